package table

import (
	"context"
	"sort"
	"sync"

	"github.com/dep2p/go-peerrouting/pkg/interfaces"
	"github.com/dep2p/go-peerrouting/pkg/lib/log"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

var logger = log.Logger("routing/table")

// ============================================================================
//                              配置
// ============================================================================

// Config 路由表配置
type Config struct {
	// Capacity 节点数上限（满时淘汰距本节点最远的条目）
	Capacity int

	// ClosestCount ClosestPeers 返回的最大节点数（K 值）
	ClosestCount int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Capacity:     1000,
		ClosestCount: 20,
	}
}

// ============================================================================
//                              Table 结构
// ============================================================================

// Table 本地路由表后端
//
// 实现 interfaces.PeerRouting。并发安全。
type Table struct {
	config Config
	self   types.NodeID

	mu    sync.RWMutex
	peers map[types.NodeID]types.PeerInfo
}

// New 创建路由表
func New(config Config, self types.NodeID) *Table {
	if config.Capacity <= 0 {
		config.Capacity = DefaultConfig().Capacity
	}
	if config.ClosestCount <= 0 {
		config.ClosestCount = DefaultConfig().ClosestCount
	}

	return &Table{
		config: config,
		self:   self,
		peers:  make(map[types.NodeID]types.PeerInfo),
	}
}

// ============================================================================
//                              维护 API
// ============================================================================

// Add 添加或更新节点
//
// 表满时淘汰距本节点最远的条目为新节点腾位。
func (t *Table) Add(info types.PeerInfo) error {
	if info.ID.Equal(t.self) {
		return ErrSelfLookup
	}
	if info.ID.IsEmpty() {
		return ErrPeerNotFound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.peers[info.ID]; !exists && len(t.peers) >= t.config.Capacity {
		t.evictFarthest()
	}
	t.peers[info.ID] = info

	logger.Debug("路由表添加节点", "peer", info.ID.ShortString(), "addrs", len(info.Addrs))
	return nil
}

// Remove 移除节点
func (t *Table) Remove(id types.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, id)
}

// Len 返回节点数
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// evictFarthest 淘汰距本节点最远的条目（调用方必须持锁）
func (t *Table) evictFarthest() {
	var farthest types.NodeID
	first := true
	for id := range t.peers {
		if first || CompareDistance(id, farthest, t.self) > 0 {
			farthest = id
			first = false
		}
	}
	if !first {
		delete(t.peers, farthest)
		logger.Debug("路由表淘汰节点", "peer", farthest.ShortString())
	}
}

// ============================================================================
//                              PeerRouting 实现
// ============================================================================

// FindPeer 精确查找已知节点
func (t *Table) FindPeer(ctx context.Context, id types.NodeID) (types.PeerInfo, error) {
	if err := ctx.Err(); err != nil {
		return types.PeerInfo{}, err
	}

	t.mu.RLock()
	info, ok := t.peers[id]
	t.mu.RUnlock()

	if !ok || !info.HasAddrs() {
		return types.PeerInfo{}, ErrPeerNotFound
	}
	return info, nil
}

// ClosestPeers 返回距 key 最近的 ≤K 个节点（按距离升序）
//
// 返回的迭代器在首次 Next 时对表做快照，之后的表变更不影响
// 已创建的序列。
func (t *Table) ClosestPeers(ctx context.Context, key []byte) (interfaces.PeerIterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &snapshotIterator{
		snapshot: func() []types.PeerInfo {
			return t.nearest(KeyToNodeID(key))
		},
	}, nil
}

// nearest 返回距 target 最近的 ≤K 个节点
func (t *Table) nearest(target types.NodeID) []types.PeerInfo {
	t.mu.RLock()
	all := make([]types.PeerInfo, 0, len(t.peers))
	for _, info := range t.peers {
		all = append(all, info)
	}
	t.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return CompareDistance(all[i].ID, all[j].ID, target) < 0
	})

	if len(all) > t.config.ClosestCount {
		all = all[:t.config.ClosestCount]
	}
	return all
}

// ============================================================================
//                              快照迭代器
// ============================================================================

// snapshotIterator 基于表快照的懒加载迭代器
//
// snapshot 在首次 Next 时调用一次；之后逐个交付快照元素。
type snapshotIterator struct {
	mu       sync.Mutex
	snapshot func() []types.PeerInfo
	items    []types.PeerInfo
	started  bool
	pos      int
	closed   bool
}

// Next 拉取下一个元素
func (it *snapshotIterator) Next(ctx context.Context) (types.PeerInfo, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return types.PeerInfo{}, interfaces.ErrIteratorClosed
	}
	if err := ctx.Err(); err != nil {
		return types.PeerInfo{}, err
	}

	if !it.started {
		it.items = it.snapshot()
		it.started = true
	}

	if it.pos >= len(it.items) {
		return types.PeerInfo{}, interfaces.ErrIteratorDone
	}

	info := it.items[it.pos]
	it.pos++
	return info, nil
}

// Close 关闭迭代器
func (it *snapshotIterator) Close() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closed = true
	it.items = nil
	return nil
}

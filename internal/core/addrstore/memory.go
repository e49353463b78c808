package addrstore

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-peerrouting/pkg/lib/log"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

var logger = log.Logger("core/addrstore")

// ============================================================================
//                              配置
// ============================================================================

// Config 地址簿配置
type Config struct {
	// MaxPeers 节点数上限（LRU 淘汰）
	MaxPeers int

	// AddrTTL 地址默认有效期（AddAddrs 传 0 时使用）
	AddrTTL time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxPeers: 10000,
		AddrTTL:  24 * time.Hour,
	}
}

// ============================================================================
//                              内存实现
// ============================================================================

// expiringAddr 带过期时间的地址
type expiringAddr struct {
	addr      types.Multiaddr
	expiresAt time.Time
}

// peerEntry 单个节点的地址集合（保序）
type peerEntry struct {
	addrs []expiringAddr
}

// Memory 内存地址簿
//
// 实现 interfaces.AddrBook。节点数达到上限时淘汰最久未写入的节点。
type Memory struct {
	config Config

	mu    sync.Mutex
	peers *lru.Cache[types.NodeID, *peerEntry]
}

// NewMemory 创建内存地址簿
func NewMemory(config Config) *Memory {
	if config.MaxPeers <= 0 {
		config.MaxPeers = DefaultConfig().MaxPeers
	}
	if config.AddrTTL <= 0 {
		config.AddrTTL = DefaultConfig().AddrTTL
	}

	cache, err := lru.New[types.NodeID, *peerEntry](config.MaxPeers)
	if err != nil {
		// 容量已在上面归一化为正数，New 只会因非正容量失败
		panic("addrstore: " + err.Error())
	}

	return &Memory{
		config: config,
		peers:  cache,
	}
}

// AddAddrs 添加节点地址（保序、幂等）
func (m *Memory) AddAddrs(peerID types.NodeID, addrs []types.Multiaddr, ttl time.Duration) {
	if peerID.IsEmpty() || len(addrs) == 0 {
		return
	}
	if ttl <= 0 {
		ttl = m.config.AddrTTL
	}
	expiresAt := time.Now().Add(ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.peers.Get(peerID)
	if !ok {
		entry = &peerEntry{}
	}

	for _, addr := range addrs {
		if addr.IsEmpty() {
			continue
		}
		if i := entry.index(addr); i >= 0 {
			// 已存在：只刷新 TTL，保留首次位置
			entry.addrs[i].expiresAt = expiresAt
			continue
		}
		entry.addrs = append(entry.addrs, expiringAddr{addr: addr, expiresAt: expiresAt})
	}

	m.peers.Add(peerID, entry)
}

// Addrs 获取节点的未过期地址（按添加顺序）
func (m *Memory) Addrs(peerID types.NodeID) []types.Multiaddr {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.peers.Peek(peerID)
	if !ok {
		return nil
	}

	now := time.Now()
	entry.dropExpired(now)
	if len(entry.addrs) == 0 {
		m.peers.Remove(peerID)
		return nil
	}

	out := make([]types.Multiaddr, len(entry.addrs))
	for i, ea := range entry.addrs {
		out[i] = ea.addr
	}
	return out
}

// ClearAddrs 清除节点地址
func (m *Memory) ClearAddrs(peerID types.NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers.Remove(peerID)
}

// PeersWithAddrs 返回拥有未过期地址的节点列表
func (m *Memory) PeersWithAddrs() []types.NodeID {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	keys := m.peers.Keys()
	out := make([]types.NodeID, 0, len(keys))
	for _, id := range keys {
		entry, ok := m.peers.Peek(id)
		if !ok {
			continue
		}
		entry.dropExpired(now)
		if len(entry.addrs) > 0 {
			out = append(out, id)
		}
	}
	return out
}

// ============================================================================
//                              peerEntry 辅助
// ============================================================================

// index 返回地址在集合中的位置，不存在时返回 -1
func (e *peerEntry) index(addr types.Multiaddr) int {
	for i, ea := range e.addrs {
		if ea.addr.Equal(addr) {
			return i
		}
	}
	return -1
}

// dropExpired 原地移除过期地址（保序）
func (e *peerEntry) dropExpired(now time.Time) {
	kept := e.addrs[:0]
	for _, ea := range e.addrs {
		if ea.expiresAt.After(now) {
			kept = append(kept, ea)
		}
	}
	e.addrs = kept
}

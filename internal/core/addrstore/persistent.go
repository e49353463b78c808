package addrstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-peerrouting/pkg/types"
)

// addrKeyPrefix 地址记录的键前缀
var addrKeyPrefix = []byte("addr/")

// ============================================================================
//                              持久化记录
// ============================================================================

// storedAddr 持久化的单个地址
type storedAddr struct {
	Addr      string    `json:"addr"`
	ExpiresAt time.Time `json:"expires_at"`
}

// storedEntry 持久化的节点地址记录
type storedEntry struct {
	Addrs []storedAddr `json:"addrs"`
}

// dropExpired 原地移除过期地址（保序）
func (e *storedEntry) dropExpired(now time.Time) {
	kept := e.Addrs[:0]
	for _, sa := range e.Addrs {
		if sa.ExpiresAt.After(now) {
			kept = append(kept, sa)
		}
	}
	e.Addrs = kept
}

// index 返回地址在记录中的位置，不存在时返回 -1
func (e *storedEntry) index(addr string) int {
	for i, sa := range e.Addrs {
		if sa.Addr == addr {
			return i
		}
	}
	return -1
}

// ============================================================================
//                              持久化实现
// ============================================================================

// Persistent BadgerDB 持久化地址簿
//
// 实现 interfaces.AddrBook。写入失败只记录日志（契约接口无错误
// 返回），过期地址在读取时过滤。
type Persistent struct {
	config Config
	db     *badger.DB
}

// NewPersistent 创建持久化地址簿
func NewPersistent(config Config, dataDir string) (*Persistent, error) {
	if dataDir == "" {
		return nil, errors.New("addrstore: data dir required")
	}
	if config.AddrTTL <= 0 {
		config.AddrTTL = DefaultConfig().AddrTTL
	}

	opts := badger.DefaultOptions(dataDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("addrstore: open badger: %w", err)
	}

	logger.Info("持久化地址簿已打开", "dir", dataDir)
	return &Persistent{
		config: config,
		db:     db,
	}, nil
}

// Close 关闭底层数据库
func (p *Persistent) Close() error {
	return p.db.Close()
}

// addrKey 构造节点的存储键
func addrKey(peerID types.NodeID) []byte {
	return append(append([]byte{}, addrKeyPrefix...), peerID.Bytes()...)
}

// AddAddrs 添加节点地址（保序、幂等）
func (p *Persistent) AddAddrs(peerID types.NodeID, addrs []types.Multiaddr, ttl time.Duration) {
	if peerID.IsEmpty() || len(addrs) == 0 {
		return
	}
	if ttl <= 0 {
		ttl = p.config.AddrTTL
	}
	expiresAt := time.Now().Add(ttl)

	err := p.db.Update(func(txn *badger.Txn) error {
		var entry storedEntry

		item, err := txn.Get(addrKey(peerID))
		if err == nil {
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				// 损坏的记录直接覆盖
				entry = storedEntry{}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		for _, addr := range addrs {
			if addr.IsEmpty() {
				continue
			}
			s := addr.String()
			if i := entry.index(s); i >= 0 {
				entry.Addrs[i].ExpiresAt = expiresAt
				continue
			}
			entry.Addrs = append(entry.Addrs, storedAddr{Addr: s, ExpiresAt: expiresAt})
		}

		val, err := json.Marshal(&entry)
		if err != nil {
			return err
		}
		return txn.Set(addrKey(peerID), val)
	})
	if err != nil {
		logger.Error("地址写入失败", "peer", peerID.ShortString(), "err", err)
	}
}

// Addrs 获取节点的未过期地址（按添加顺序）
func (p *Persistent) Addrs(peerID types.NodeID) []types.Multiaddr {
	var entry storedEntry

	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(addrKey(peerID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logger.Error("地址读取失败", "peer", peerID.ShortString(), "err", err)
		}
		return nil
	}

	entry.dropExpired(time.Now())
	if len(entry.Addrs) == 0 {
		return nil
	}

	out := make([]types.Multiaddr, 0, len(entry.Addrs))
	for _, sa := range entry.Addrs {
		if ma, err := types.ParseMultiaddr(sa.Addr); err == nil {
			out = append(out, ma)
		}
	}
	return out
}

// ClearAddrs 清除节点地址
func (p *Persistent) ClearAddrs(peerID types.NodeID) {
	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(addrKey(peerID))
	})
	if err != nil {
		logger.Error("地址清除失败", "peer", peerID.ShortString(), "err", err)
	}
}

// PeersWithAddrs 返回拥有未过期地址的节点列表
func (p *Persistent) PeersWithAddrs() []types.NodeID {
	now := time.Now()
	var out []types.NodeID

	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = addrKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			id, err := types.NodeIDFromBytes(item.Key()[len(addrKeyPrefix):])
			if err != nil {
				continue
			}

			var entry storedEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				continue
			}

			entry.dropExpired(now)
			if len(entry.Addrs) > 0 {
				out = append(out, id)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("地址簿遍历失败", "err", err)
	}
	return out
}

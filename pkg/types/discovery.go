package types

import "time"

// ============================================================================
//                              PeerInfo - 节点信息
// ============================================================================

// PeerInfo 节点信息
// 路由后端返回结果的基本单元
type PeerInfo struct {
	// ID 节点 ID
	ID NodeID

	// Addrs 地址列表（Multiaddr 格式，保序）
	Addrs []Multiaddr

	// Source 结果来源（如 "table", "delegated"）
	Source string

	// DiscoveredAt 发现时间
	DiscoveredAt time.Time
}

// HasAddrs 检查是否有地址
func (pi PeerInfo) HasAddrs() bool {
	return len(pi.Addrs) > 0
}

// IsExpired 检查是否过期（基于发现时间和 TTL）
func (pi PeerInfo) IsExpired(ttl time.Duration) bool {
	return time.Since(pi.DiscoveredAt) > ttl
}

// AddrsToStrings 返回地址的字符串切片
func (pi PeerInfo) AddrsToStrings() []string {
	return MultiaddrsToStrings(pi.Addrs)
}

// NewPeerInfo 创建 PeerInfo
func NewPeerInfo(id NodeID, addrs []Multiaddr) PeerInfo {
	return PeerInfo{
		ID:           id,
		Addrs:        addrs,
		DiscoveredAt: time.Now(),
	}
}

// NewPeerInfoFromStrings 从字符串地址创建 PeerInfo
//
// 忽略无法解析的地址。
func NewPeerInfoFromStrings(id NodeID, addrStrs []string) PeerInfo {
	return PeerInfo{
		ID:           id,
		Addrs:        ParseMultiaddrs(addrStrs),
		DiscoveredAt: time.Now(),
	}
}

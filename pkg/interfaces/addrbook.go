// Package interfaces 定义公共接口
//
// 本文件定义地址簿接口，对应 internal/core/addrstore/ 实现。
package interfaces

import (
	"time"

	"github.com/dep2p/go-peerrouting/pkg/types"
)

// AddrBook 定义地址簿接口
//
// 地址簿是刷新管理器与节点其余部分之间唯一共享的资源，
// 必须容忍并发读写（加锁纪律是实现方的契约）。
//
// 重复添加同一地址是幂等安全的：刷新管理器不做去重，
// 去重由地址簿实现负责。
type AddrBook interface {
	// AddAddrs 添加节点地址（保序）
	//
	// ttl 为 0 时使用实现方的默认 TTL。
	AddAddrs(peerID types.NodeID, addrs []types.Multiaddr, ttl time.Duration)

	// Addrs 获取节点的未过期地址（按添加顺序）
	Addrs(peerID types.NodeID) []types.Multiaddr

	// ClearAddrs 清除节点地址
	ClearAddrs(peerID types.NodeID)

	// PeersWithAddrs 返回拥有地址的节点列表
	PeersWithAddrs() []types.NodeID
}

// Package interfaces 定义公共接口
//
// 本文件定义路由后端能力契约，对应 internal/routing/ 下的各实现。
package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/dep2p/go-peerrouting/pkg/types"
)

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrPeerNotFound 后端不认识目标节点
	//
	// 后端的"未找到"错误必须包装此哨兵（errors.Is 可检出），
	// 组合路由器据此把它当作"无答案"继续回退到下一个后端，
	// 而不是当作后端失败。
	ErrPeerNotFound = errors.New("peer not found")

	// ErrIteratorDone 迭代结束（正常耗尽，不是错误状态）
	ErrIteratorDone = errors.New("peer iterator done")

	// ErrIteratorClosed 迭代器已关闭
	ErrIteratorClosed = errors.New("peer iterator closed")
)

// ============================================================================
//                              PeerRouting 接口
// ============================================================================

// PeerRouting 定义路由后端能力契约
//
// 任何可插拔的节点发现机制（本地路由表、远程委托服务）都实现此接口。
// 组合路由器持有一组 PeerRouting，按优先级顺序回退，对持有的具体
// 实现种类不做任何假设。
//
// 实现要求：
//   - FindPeer 在节点未知时返回错误（而非崩溃或空成功）
//   - ClosestPeers 返回的迭代器必须是懒加载的：构造时不发起查询
//   - 两个方法都必须响应 ctx 取消
type PeerRouting interface {
	// FindPeer 将节点 ID 解析为其已知地址
	//
	// 节点未知时返回包装 ErrPeerNotFound 的错误。返回的 PeerInfo
	// 地址为空同样视为"无答案"，调用方（组合路由器）会继续尝试
	// 下一个后端。
	FindPeer(ctx context.Context, id types.NodeID) (types.PeerInfo, error)

	// ClosestPeers 返回按距离排序的节点懒加载序列
	//
	// key 是任意查找键（不必是节点 ID）。距离度量由后端内部决定，
	// 对调用方不透明。后端可以在此处直接返回错误（如后端不可达），
	// 也可以返回一个产生零个元素的迭代器表示"无信息"。
	ClosestPeers(ctx context.Context, key []byte) (PeerIterator, error)
}

// ============================================================================
//                              PeerIterator 接口
// ============================================================================

// PeerIterator 节点结果的懒加载拉取序列
//
// 单遍历、不可重启：每次查询创建新的迭代器。
// 元素按产生方的顺序交付。
//
// 使用方式：
//
//	it, err := backend.ClosestPeers(ctx, key)
//	if err != nil { ... }
//	defer it.Close()
//	for {
//	    peer, err := it.Next(ctx)
//	    if errors.Is(err, interfaces.ErrIteratorDone) {
//	        break
//	    }
//	    if err != nil { ... }
//	    // 消费 peer
//	}
type PeerIterator interface {
	// Next 拉取下一个元素
	//
	// 序列正常耗尽时返回 ErrIteratorDone。
	// ctx 取消或超时通过 ctx.Err() 返回。
	Next(ctx context.Context) (types.PeerInfo, error)

	// Close 释放生产方资源
	//
	// 提前中止消费时必须调用，以便取消仍在进行的后端查询。
	// 可重复调用，可在任意状态调用。
	Close() error
}

// ============================================================================
//                              调用选项
// ============================================================================

// RoutingOptions 路由调用选项
type RoutingOptions struct {
	// Timeout 整次调用的超时（0 表示使用配置默认值）
	Timeout time.Duration
}

// RoutingOption 路由调用选项函数
type RoutingOption func(*RoutingOptions)

// WithTimeout 设置整次调用的超时
//
// 对 FindPeer 约束整个回退链；对 ClosestPeers 约束整个流式消费过程。
func WithTimeout(d time.Duration) RoutingOption {
	return func(o *RoutingOptions) {
		o.Timeout = d
	}
}

// ApplyRoutingOptions 应用选项并返回结果
func ApplyRoutingOptions(opts ...RoutingOption) RoutingOptions {
	var options RoutingOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

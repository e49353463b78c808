package composite

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-peerrouting/pkg/interfaces"
	"github.com/dep2p/go-peerrouting/pkg/lib/log"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

var logger = log.Logger("routing/composite")

// ============================================================================
//                              Router 结构
// ============================================================================

// Router 组合路由器
//
// 持有按优先级排序的后端列表（构造后只读），并发调用安全。
type Router struct {
	// 配置
	config *Config

	// 后端列表（优先级顺序，构造后不可变）
	backends []interfaces.PeerRouting

	// 相同目标的并发 FindPeer 合并为一次链路遍历
	lookups singleflight.Group
}

// NewRouter 创建组合路由器
//
// backends 按优先级排序，索引 0 优先级最高。
// 传入的切片会被复制，调用方之后的修改不影响路由器。
func NewRouter(config *Config, backends []interfaces.PeerRouting) *Router {
	if config == nil {
		config = DefaultConfig()
	}

	list := make([]interfaces.PeerRouting, len(backends))
	copy(list, backends)

	logger.Info("组合路由器已创建",
		"backends", len(list),
		"callTimeout", config.CallTimeout)

	return &Router{
		config:   config,
		backends: list,
	}
}

// BackendCount 返回后端数量
func (r *Router) BackendCount() int {
	return len(r.backends)
}

// ============================================================================
//                              FindPeer
// ============================================================================

// FindPeer 查找节点地址
//
// 按优先级顺序逐个尝试后端：
//   - 第一个返回非空结果的后端胜出，不再咨询后续后端
//   - 失败、未找到或空结果则继续下一个后端
//   - 全部耗尽时，若最后落定的后端是报错的，返回
//     ErrAllBackendsFailed 包装其错误；否则返回 ErrPeerNotFound
//
// 相同目标的并发调用共享一次在途查询。共享查询运行在与任何
// 单个调用方解耦的上下文上：某个调用方的超时或取消只影响它
// 自己的等待，其余等待方照常收到查询结果。
func (r *Router) FindPeer(ctx context.Context, id types.NodeID, opts ...interfaces.RoutingOption) (types.PeerInfo, error) {
	if len(r.backends) == 0 {
		return types.PeerInfo{}, ErrNoRouters
	}

	options := interfaces.ApplyRoutingOptions(opts...)
	timeout := options.Timeout
	if timeout == 0 {
		timeout = r.config.CallTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ch := r.lookups.DoChan(id.String(), func() (interface{}, error) {
		// 脱离发起方的取消/超时；共享查询由配置的 CallTimeout 单独约束
		flightCtx := context.WithoutCancel(ctx)
		if r.config.CallTimeout > 0 {
			var cancel context.CancelFunc
			flightCtx, cancel = context.WithTimeout(flightCtx, r.config.CallTimeout)
			defer cancel()
		}
		return r.findPeerFallback(flightCtx, id)
	})

	select {
	case <-ctx.Done():
		// 只放弃本调用方的等待；共享查询继续服务其他等待方
		return types.PeerInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return types.PeerInfo{}, res.Err
		}
		return res.Val.(types.PeerInfo), nil
	}
}

// findPeerFallback 串行回退链
func (r *Router) findPeerFallback(ctx context.Context, id types.NodeID) (types.PeerInfo, error) {
	var lastErr error

	for i, backend := range r.backends {
		if err := ctx.Err(); err != nil {
			return types.PeerInfo{}, err
		}

		info, err := backend.FindPeer(ctx, id)
		if err != nil {
			// 超时/取消直接上抛，不再尝试后续后端
			if ctxErr := ctx.Err(); ctxErr != nil {
				return types.PeerInfo{}, ctxErr
			}
			// 后端"未找到"等同于空结果，不算后端失败
			if errors.Is(err, interfaces.ErrPeerNotFound) {
				logger.Debug("后端无结果", "backend", i, "peer", id.ShortString())
				lastErr = nil
				continue
			}
			logger.Debug("后端查找失败",
				"backend", i,
				"peer", id.ShortString(),
				"err", err)
			lastErr = err
			continue
		}

		if info.HasAddrs() {
			logger.Debug("后端查找命中",
				"backend", i,
				"peer", id.ShortString(),
				"addrs", len(info.Addrs))
			return info, nil
		}

		// 空结果：清除之前的错误，继续下一个后端
		logger.Debug("后端无结果", "backend", i, "peer", id.ShortString())
		lastErr = nil
	}

	if lastErr != nil {
		return types.PeerInfo{}, fmt.Errorf("%w: %w", ErrAllBackendsFailed, lastErr)
	}
	return types.PeerInfo{}, ErrPeerNotFound
}

// ============================================================================
//                              ClosestPeers
// ============================================================================

// ClosestPeers 返回距 key 最近节点的懒加载序列
//
// 后端列表为空时立即返回 ErrNoRouters，不产生任何元素。
// 否则返回一个未启动的迭代器：首次 Next 之前不会碰任何后端。
//
// 回退语义：
//   - 按优先级咨询后端，第一个产生 ≥1 个元素的后端独占整条流
//   - 产生 0 个元素（报错或干净耗尽）则轮到下一个后端
//   - 全部干净耗尽 → 序列为空（首次 Next 返回 ErrIteratorDone）
//   - 全部在产生元素前报错 → 最后一个后端的错误被上抛
//
// 序列单遍历、不可重启；提前 Close 会取消进行中的后端查询。
func (r *Router) ClosestPeers(ctx context.Context, key []byte, opts ...interfaces.RoutingOption) (interfaces.PeerIterator, error) {
	if len(r.backends) == 0 {
		return nil, ErrNoRouters
	}

	options := interfaces.ApplyRoutingOptions(opts...)
	timeout := options.Timeout
	if timeout == 0 {
		timeout = r.config.CallTimeout
	}

	return newFallbackIterator(ctx, r.backends, key, timeout), nil
}

package peerrouting

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dep2p/go-peerrouting/internal/routing/composite"
	"github.com/dep2p/go-peerrouting/internal/routing/refresh"
	"github.com/dep2p/go-peerrouting/pkg/interfaces"
	"github.com/dep2p/go-peerrouting/pkg/lib/log"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

var logger = log.Logger("peerrouting")

// Router 路由层门面
//
// 聚合组合路由器与刷新管理器。一个节点一个实例：节点构造时
// New，节点启动时 Start，节点关闭时 Close。
type Router struct {
	composite *composite.Router
	refresh   *refresh.Manager // 未启用时为 nil
	opts      *options

	started atomic.Bool
	closed  atomic.Bool
}

// New 创建路由层门面
func New(opts ...Option) (*Router, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	cfg := composite.DefaultConfig()
	if o.callTimeout > 0 {
		cfg.CallTimeout = o.callTimeout
	}
	comp := composite.NewRouter(cfg, o.backends)

	r := &Router{
		composite: comp,
		opts:      o,
	}

	if o.refreshSet {
		backend := o.refreshBackend
		if backend == nil && len(o.backends) > 0 {
			backend = o.backends[0]
		}
		switch {
		case backend == nil:
			return nil, errors.New("refresh requires at least one backend")
		case o.addrBook == nil:
			return nil, errors.New("refresh requires an addr book")
		case o.self.IsEmpty():
			return nil, errors.New("refresh requires a self node ID")
		}
		r.refresh = refresh.NewManager(o.refresh, backend, o.addrBook, o.self)
	}

	logger.Info("路由层已创建",
		"backends", comp.BackendCount(),
		"refresh", r.refresh != nil)
	return r, nil
}

// ============================================================================
//                              公开 API
// ============================================================================

// FindPeer 查找节点地址
func (r *Router) FindPeer(ctx context.Context, id types.NodeID, opts ...interfaces.RoutingOption) (types.PeerInfo, error) {
	if r.closed.Load() {
		return types.PeerInfo{}, ErrRouterClosed
	}
	return r.composite.FindPeer(ctx, id, opts...)
}

// ClosestPeers 返回距 key 最近节点的懒加载序列
func (r *Router) ClosestPeers(ctx context.Context, key []byte, opts ...interfaces.RoutingOption) (interfaces.PeerIterator, error) {
	if r.closed.Load() {
		return nil, ErrRouterClosed
	}
	return r.composite.ClosestPeers(ctx, key, opts...)
}

// AddrBook 返回配置的地址簿（可能为 nil）
func (r *Router) AddrBook() interfaces.AddrBook {
	return r.opts.addrBook
}

// RefreshState 返回刷新管理器状态
//
// 未启用刷新时恒为 StateStopped。
func (r *Router) RefreshState() refresh.State {
	if r.refresh == nil {
		return refresh.StateStopped
	}
	return r.refresh.State()
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动后台组件（当前只有刷新管理器）
//
// 幂等；未启用刷新时为空操作。
func (r *Router) Start(_ context.Context) error {
	if r.closed.Load() {
		return ErrRouterClosed
	}
	if r.started.Swap(true) {
		return nil
	}
	if r.refresh != nil {
		r.refresh.Start()
	}
	return nil
}

// Close 停止后台组件并关闭注册的资源
//
// 幂等。
func (r *Router) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	if r.refresh != nil {
		r.refresh.Stop()
	}

	var err error
	for _, c := range r.opts.closers {
		err = multierr.Append(err, c.Close())
	}

	logger.Info("路由层已关闭")
	return err
}

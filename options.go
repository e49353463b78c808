package peerrouting

import (
	"errors"
	"io"
	"time"

	"github.com/dep2p/go-peerrouting/internal/routing/refresh"
	"github.com/dep2p/go-peerrouting/pkg/interfaces"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

// Option 用户配置选项函数
type Option func(*options) error

// RefreshConfig 刷新管理器配置（WithRefresh 的参数类型）
type RefreshConfig = refresh.Config

// DefaultRefreshConfig 返回默认刷新配置
func DefaultRefreshConfig() RefreshConfig {
	return refresh.DefaultConfig()
}

// RefreshState 刷新管理器状态（见 Router.RefreshState）
type RefreshState = refresh.State

// 刷新管理器状态值
const (
	RefreshIdle      = refresh.StateIdle
	RefreshScheduled = refresh.StateScheduled
	RefreshRunning   = refresh.StateRunning
	RefreshWaiting   = refresh.StateWaiting
	RefreshStopped   = refresh.StateStopped
)

// options 内部选项结构
type options struct {
	// 本节点身份
	self types.NodeID

	// 后端列表（优先级顺序）
	backends []interfaces.PeerRouting

	// 调用默认超时
	callTimeout time.Duration

	// 地址簿（nil 时刷新管理器不可用）
	addrBook interfaces.AddrBook

	// 刷新配置
	refresh    refresh.Config
	refreshSet bool

	// 刷新目标后端（nil 时使用优先级最高的后端）
	refreshBackend interfaces.PeerRouting

	// 随门面一起关闭的资源（如持久化地址簿）
	closers []io.Closer
}

// WithSelf 设置本节点 ID
//
// 刷新管理器的自查询以它为键。
func WithSelf(id types.NodeID) Option {
	return func(o *options) error {
		if id.IsEmpty() {
			return errors.New("self node ID must not be empty")
		}
		o.self = id
		return nil
	}
}

// WithBackends 追加路由后端
//
// 多次调用按调用顺序累积；整体顺序即回退优先级。
func WithBackends(backends ...interfaces.PeerRouting) Option {
	return func(o *options) error {
		for _, b := range backends {
			if b == nil {
				return errors.New("backend must not be nil")
			}
			o.backends = append(o.backends, b)
		}
		return nil
	}
}

// WithCallTimeout 设置单次路由调用的默认超时
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("call timeout must not be negative")
		}
		o.callTimeout = d
		return nil
	}
}

// WithAddrBook 设置地址簿
//
// 刷新管理器把发现的地址写入这里。
func WithAddrBook(ab interfaces.AddrBook) Option {
	return func(o *options) error {
		if ab == nil {
			return errors.New("addr book must not be nil")
		}
		o.addrBook = ab
		return nil
	}
}

// WithRefresh 启用刷新管理器
//
// 需要同时配置 WithSelf 与 WithAddrBook。刷新只针对路由表后端
// （默认是优先级最高的后端，可用 WithRefreshBackend 覆盖）。
func WithRefresh(cfg refresh.Config) Option {
	return func(o *options) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.refresh = cfg
		o.refreshSet = true
		return nil
	}
}

// WithRefreshBackend 指定刷新自查询的目标后端
func WithRefreshBackend(b interfaces.PeerRouting) Option {
	return func(o *options) error {
		if b == nil {
			return errors.New("refresh backend must not be nil")
		}
		o.refreshBackend = b
		return nil
	}
}

// WithCloser 注册随门面一起关闭的资源
func WithCloser(c io.Closer) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("closer must not be nil")
		}
		o.closers = append(o.closers, c)
		return nil
	}
}

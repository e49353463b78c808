package refresh

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-peerrouting/config"
	"github.com/dep2p/go-peerrouting/pkg/interfaces"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

// ============================================================================
//
//	Fx 模块定义
//
// ============================================================================

// Module 刷新管理器 Fx 模块
var Module = fx.Module("routing_refresh",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// ============================================================================
//
//	Fx 参数和结果
//
// ============================================================================

// Params 刷新管理器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`

	// Table 路由表后端（刷新只针对它，不走回退链）
	Table interfaces.PeerRouting `name:"routing_table"`

	AddrBook interfaces.AddrBook
	Self     types.NodeID
}

// ============================================================================
//
//	构造与生命周期
//
// ============================================================================

// ConfigFromUnified 从统一配置创建刷新管理器配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	rm := cfg.PeerRouting.RefreshManager
	return Config{
		Enabled:   rm.Enabled,
		BootDelay: rm.BootDelay.Duration(),
		Interval:  rm.Interval.Duration(),
	}
}

// NewFromParams 从 Fx 参数创建刷新管理器
func NewFromParams(p Params) (*Manager, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewManager(cfg, p.Table, p.AddrBook, p.Self), nil
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			m.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			m.Stop()
			return nil
		},
	})
}

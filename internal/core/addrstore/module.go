package addrstore

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-peerrouting/config"
	"github.com/dep2p/go-peerrouting/pkg/interfaces"
)

// ============================================================================
//
//	Fx 模块定义
//
// ============================================================================

// Module 地址簿 Fx 模块
var Module = fx.Module("core_addrstore",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params 地址簿依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result 地址簿导出结果
type Result struct {
	fx.Out

	AddrBook interfaces.AddrBook

	// Persistent 仅在配置了 DataDir 时非 nil（用于生命周期关闭）
	Persistent *Persistent
}

// ConfigFromUnified 从统一配置创建地址簿配置
func ConfigFromUnified(cfg *config.Config) (Config, string) {
	if cfg == nil {
		return DefaultConfig(), ""
	}
	return Config{
		MaxPeers: cfg.AddrStore.MaxPeers,
		AddrTTL:  cfg.AddrStore.AddrTTL.Duration(),
	}, cfg.AddrStore.DataDir
}

// NewFromParams 从 Fx 参数创建地址簿
//
// 配置了数据目录时使用持久化实现，否则使用内存实现。
func NewFromParams(p Params) (Result, error) {
	cfg, dataDir := ConfigFromUnified(p.UnifiedCfg)

	if dataDir == "" {
		return Result{AddrBook: NewMemory(cfg)}, nil
	}

	persistent, err := NewPersistent(cfg, dataDir)
	if err != nil {
		return Result{}, err
	}
	return Result{
		AddrBook:   persistent,
		Persistent: persistent,
	}, nil
}

// registerLifecycle 注册生命周期钩子
//
// 内存实现时 p 为 nil，无需关闭。
func registerLifecycle(lc fx.Lifecycle, p *Persistent) {
	if p == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})
}

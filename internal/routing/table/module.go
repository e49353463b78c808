package table

import (
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

// Module 路由表 Fx 模块
var Module = fx.Module("routing_table",
	fx.Provide(NewFromParams),
)

// Params 路由表依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Self       types.NodeID
}

// Result 路由表导出结果
type Result struct {
	fx.Out

	Table   *Table
	Backend interfaces.PeerRouting `name:"routing_table"`
}

// ConfigFromUnified 从统一配置创建路由表配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Capacity:     cfg.PeerRouting.Table.Capacity,
		ClosestCount: cfg.PeerRouting.Table.ClosestCount,
	}
}

// NewFromParams 从 Fx 参数创建路由表
func NewFromParams(p Params) Result {
	t := New(ConfigFromUnified(p.UnifiedCfg), p.Self)
	return Result{
		Table:   t,
		Backend: t,
	}
}

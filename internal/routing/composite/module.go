package composite

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-peerrouting/config"
	"github.com/dep2p/go-peerrouting/pkg/interfaces"
)

// ============================================================================
//
//	Fx 模块定义
//
// ============================================================================

// Module 组合路由器 Fx 模块
var Module = fx.Module("routing_composite",
	fx.Provide(NewFromParams),
)

// ============================================================================
//
//	Fx 参数和结果
//
// ============================================================================

// Params 组合路由器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`

	// 命名后端（优先级：路由表 > 委托路由）
	Table     interfaces.PeerRouting `name:"routing_table" optional:"true"`
	Delegated interfaces.PeerRouting `name:"routing_delegated" optional:"true"`

	// 额外后端（优先级排在命名后端之后，顺序不保证）
	Extra []interfaces.PeerRouting `group:"routing_backends"`
}

// Result 组合路由器导出结果
type Result struct {
	fx.Out

	Router *Router
}

// ============================================================================
//
//	构造函数
//
// ============================================================================

// ConfigFromUnified 从统一配置创建组合路由器配置
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return &Config{
		CallTimeout: cfg.PeerRouting.CallTimeout.Duration(),
	}
}

// NewFromParams 从 Fx 参数创建组合路由器
//
// 后端列表按优先级组装：路由表、委托路由、额外后端。
func NewFromParams(p Params) (Result, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	backends := make([]interfaces.PeerRouting, 0, 2+len(p.Extra))
	if p.Table != nil {
		backends = append(backends, p.Table)
	}
	if p.Delegated != nil {
		backends = append(backends, p.Delegated)
	}
	for _, b := range p.Extra {
		if b != nil {
			backends = append(backends, b)
		}
	}

	return Result{Router: NewRouter(cfg, backends)}, nil
}

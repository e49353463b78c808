package delegated

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

// Module 委托路由 Fx 模块
var Module = fx.Module("routing_delegated",
	fx.Provide(NewFromParams),
)

// Params 委托路由依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result 委托路由导出结果
type Result struct {
	fx.Out

	// Backend 未启用时为 nil，组合路由器跳过 nil 后端
	Backend interfaces.PeerRouting `name:"routing_delegated"`
}

// NewFromParams 从 Fx 参数创建委托路由客户端
//
// 配置未启用委托路由时导出 nil 后端。
func NewFromParams(p Params) (Result, error) {
	if p.UnifiedCfg == nil || !p.UnifiedCfg.PeerRouting.Delegated.Enabled {
		return Result{}, nil
	}

	dc := p.UnifiedCfg.PeerRouting.Delegated
	client, err := NewClient(Config{
		Endpoint:       dc.Endpoint,
		RequestTimeout: dc.RequestTimeout.Duration(),
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Backend: client}, nil
}

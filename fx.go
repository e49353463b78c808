package peerrouting

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-peerrouting/internal/core/addrstore"
	"github.com/dep2p/go-peerrouting/internal/routing/composite"
	"github.com/dep2p/go-peerrouting/internal/routing/delegated"
	"github.com/dep2p/go-peerrouting/internal/routing/refresh"
	"github.com/dep2p/go-peerrouting/internal/routing/table"
	"github.com/dep2p/go-peerrouting/pkg/interfaces"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

// FxModule 路由层的完整 Fx 模块
//
// 供宿主节点嵌入自己的 fx 应用。宿主需要额外提供：
//
//   - types.NodeID: 本节点身份
//   - *config.Config: 统一配置（可选，缺省为默认配置）
//
// 模块导出 interfaces.PeerRouting（组合路由器）和
// interfaces.AddrBook 供宿主消费。
//
// 使用示例:
//
//	app := fx.New(
//	    fx.Supply(selfID),
//	    fx.Supply(cfg),
//	    peerrouting.FxModule,
//	    fx.Invoke(func(r interfaces.PeerRouting) { ... }),
//	)
var FxModule = fx.Module("peerrouting",
	addrstore.Module,
	table.Module,
	delegated.Module,
	composite.Module,
	refresh.Module,
	fx.Provide(asPeerRouting),
)

// asPeerRouting 把组合路由器绑定到公共接口，宿主无需引用内部包
func asPeerRouting(r *composite.Router) interfaces.PeerRouting {
	return compositeBinding{r}
}

// compositeBinding 组合路由器的接口适配（抹掉可选参数）
type compositeBinding struct {
	r *composite.Router
}

func (b compositeBinding) FindPeer(ctx context.Context, id types.NodeID) (types.PeerInfo, error) {
	return b.r.FindPeer(ctx, id)
}

func (b compositeBinding) ClosestPeers(ctx context.Context, key []byte) (interfaces.PeerIterator, error) {
	return b.r.ClosestPeers(ctx, key)
}

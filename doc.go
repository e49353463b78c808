// Package peerrouting 是节点发现路由层的门面
//
// 给定目标节点 ID 或任意查找键，通过一组可插拔的路由后端
// （本地路由表、远程委托服务）定位节点地址或距键最近的节点集合。
//
// 核心组成：
//
//   - 组合路由器: 按优先级回退的后端聚合门面（FindPeer / ClosestPeers）
//   - 刷新管理器: 定时自查询以保持本地路由表温热的后台状态机
//   - 地址簿: 节点 ID 到已知地址的并发安全映射
//
// 宿主节点通过 FxModule 嵌入完整路由层：
//
//	app := fx.New(
//	    fx.Supply(selfID),
//	    fx.Supply(cfg),
//	    peerrouting.FxModule,
//	    fx.Invoke(func(r interfaces.PeerRouting) { ... }),
//	)
//
// 自带后端实现（任何 interfaces.PeerRouting）也可以直接用门面组装：
//
//	router, err := peerrouting.New(
//	    peerrouting.WithSelf(self),
//	    peerrouting.WithBackends(myTable, myDelegated),
//	    peerrouting.WithAddrBook(myAddrBook),
//	    peerrouting.WithRefresh(peerrouting.DefaultRefreshConfig()),
//	)
//	if err != nil { ... }
//	defer router.Close()
//
//	router.Start(context.Background())
//
//	info, err := router.FindPeer(ctx, target)
//
//	it, err := router.ClosestPeers(ctx, key)
//	defer it.Close()
//	for {
//	    peer, err := it.Next(ctx)
//	    if errors.Is(err, peerrouting.ErrIteratorDone) { break }
//	    ...
//	}
package peerrouting

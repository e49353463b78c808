// Package interfaces 定义 go-peerrouting 公共接口
//
// 本包只包含接口和接口级别的错误/选项定义，不包含实现：
//
//   - PeerRouting: 路由后端能力契约（本地路由表、远程委托服务等）
//   - PeerIterator: 懒加载、单遍历的节点结果序列
//   - AddrBook: 地址簿契约（刷新管理器的写入目标）
//
// 实现位置：
//   - internal/routing/table: 本地路由表后端
//   - internal/routing/delegated: 远程委托后端
//   - internal/routing/composite: 组合路由器（后端的聚合门面）
//   - internal/core/addrstore: 地址簿实现
package interfaces

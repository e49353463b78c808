// Package types 定义 go-peerrouting 的基础类型
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据：
//
//   - NodeID: 节点唯一标识（32 字节，Base58 外部表示）
//   - Multiaddr: 统一地址类型（canonical 字符串值对象）
//   - PeerInfo: 发现/路由结果的基本单元（ID + 地址列表）
package types

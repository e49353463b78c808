// Package addrstore 实现地址簿
//
// 节点 ID 到已知网络地址集合的映射，实现 interfaces.AddrBook 契约。
// 地址簿是刷新管理器与节点其余部分之间共享的唯一资源，两个实现
// 都容忍并发读写：
//
//   - Memory: 纯内存实现，地址带 TTL，节点数上限由 LRU 淘汰保证
//   - Persistent: BadgerDB 持久化实现，重启后地址簿仍然可用
//
// 语义：
//   - AddAddrs 保序且幂等：重复添加同一地址只刷新 TTL，保留首次位置
//   - Addrs 只返回未过期地址，按添加顺序
package addrstore

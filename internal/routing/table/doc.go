// Package table 实现本地路由表后端
//
// 内存中的节点表，按 XOR 距离提供最近节点查询，实现
// interfaces.PeerRouting 能力契约：
//
//   - FindPeer: 精确查找已知节点
//   - ClosestPeers: 返回距查找键最近的 ≤K 个节点（按距离升序）
//
// 表容量有上限，满时淘汰距本节点最远的条目。桶管理、节点探活等
// 完整的 Kademlia 维护不在本包范围内。
package table

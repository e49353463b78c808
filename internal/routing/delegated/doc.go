// Package delegated 实现远程委托路由后端
//
// 通过 HTTP 请求/响应向一个委托路由服务查询节点信息，实现
// interfaces.PeerRouting 能力契约：
//
//   - FindPeer: GET {endpoint}/v1/peers/{nodeID}，响应为单个 JSON 记录
//   - ClosestPeers: GET {endpoint}/v1/closest/{hex(key)}，响应为
//     NDJSON 流（每行一个记录），边到达边交付给懒加载迭代器
//
// 错误语义：
//   - 404 视为节点未知（ErrPeerNotFound）
//   - 其他非 2xx 状态或畸形响应体是错误，绝不静默地当作空结果
//
// 委托路由协议本身（服务端如何得出答案）不在本包范围内。
package delegated

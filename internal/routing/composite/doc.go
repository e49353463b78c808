// Package composite 实现组合路由器
//
// 组合路由器是所有已配置路由后端的聚合门面。它持有一个构造后
// 不可变的、按优先级排序的后端列表，对外暴露两个操作：
//
//   - FindPeer: 按优先级逐个尝试后端，第一个给出非空结果的后端胜出
//   - ClosestPeers: 懒加载流式序列，第一个产生元素的后端独占整条流
//
// 回退策略：
//   - 后端严格串行，前一个后端未落定之前不会尝试下一个
//   - 单个后端的失败被本地吞掉（仅记录日志），只有全部后端耗尽
//     才向调用方返回错误
//   - "第一个有结果的后端即权威" 是刻意的简单性/延迟取舍，
//     不做跨后端合并或去重
//
// 超时与取消：
//   - 调用方超时约束整次操作（含整条回退链）
//   - 超时或调用方提前放弃消费时，取消信号会传播给进行中的后端查询
package composite

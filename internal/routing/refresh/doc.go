// Package refresh 实现路由表后台刷新管理器
//
// 刷新管理器是一个定时器驱动的状态机：节点启动后等待 BootDelay，
// 然后周期性地对路由表后端执行一次自查询（以本节点 ID 为键的
// 最近节点查询），并把发现的节点地址按序写入地址簿。
//
// 状态机：
//
//	Idle --Start()--> Scheduled（武装 BootDelay 一次性定时器）
//	Idle --Start()--> Stopped（Enabled=false 时，不武装任何定时器）
//	Scheduled --定时器触发--> Running
//	Running --查询落定（无论成败）--> Waiting（武装 Interval 定时器）
//	Waiting --定时器触发--> Running
//	任意状态 --Stop()--> Stopped（取消武装中的定时器，取消在途查询）
//
// 保证：
//   - 同一时刻最多一个自查询在途
//   - 查询失败被吞掉（仅记录日志），不影响后续周期
//   - Stop 在任意状态下安全、幂等，之后任何定时器都不会再触发
//
// 刷新只针对路由表后端本身，不走组合路由器的回退链：刷新的目的
// 是保持本地路由表温热，委托/远程后端与此无关。
package refresh

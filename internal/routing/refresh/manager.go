package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-peerrouting/pkg/interfaces"
	"github.com/dep2p/go-peerrouting/pkg/lib/log"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

var logger = log.Logger("routing/refresh")

// ============================================================================
//                              状态定义
// ============================================================================

// State 刷新管理器生命周期状态
type State int

const (
	// StateIdle 已创建，尚未启动
	StateIdle State = iota

	// StateScheduled BootDelay 定时器已武装
	StateScheduled

	// StateRunning 自查询在途
	StateRunning

	// StateWaiting Interval 定时器已武装
	StateWaiting

	// StateStopped 已停止（或 Enabled=false 时启动即停止）
	StateStopped
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              配置
// ============================================================================

// Config 刷新管理器配置
type Config struct {
	// Enabled 是否启用（false 时 Start 为空操作）
	Enabled bool

	// BootDelay 启动后首次刷新的延迟（0 表示立即）
	BootDelay time.Duration

	// Interval 后续刷新周期
	Interval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		BootDelay: 10 * time.Second,
		Interval:  10 * time.Minute,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.BootDelay < 0 {
		return errors.New("boot delay must not be negative")
	}
	if c.Enabled && c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	return nil
}

// ============================================================================
//                              Manager 结构
// ============================================================================

// Manager 路由表刷新管理器
//
// 每个节点一个实例：节点构造时创建，节点启动时 Start，
// 节点关闭时 Stop。
type Manager struct {
	config Config

	// 依赖（构造时注入）
	backend  interfaces.PeerRouting // 路由表后端
	addrBook interfaces.AddrBook
	self     types.NodeID
	clock    clock.Clock

	mu          sync.Mutex
	state       State
	timer       *clock.Timer       // 武装中的定时器（Scheduled/Waiting）
	queryCancel context.CancelFunc // 在途查询的取消函数（Running）
	wg          sync.WaitGroup
}

// Option Manager 构造选项
type Option func(*Manager)

// WithClock 设置时钟实现（测试中注入 clock.Mock）
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// NewManager 创建刷新管理器
//
// backend 必须是路由表后端本身，而非组合路由器。
func NewManager(config Config, backend interfaces.PeerRouting, addrBook interfaces.AddrBook, self types.NodeID, opts ...Option) *Manager {
	m := &Manager{
		config:   config,
		backend:  backend,
		addrBook: addrBook,
		self:     self,
		clock:    clock.New(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State 返回当前状态
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动刷新管理器
//
// Enabled=false 时不武装任何定时器，之后也不会发起任何查询。
// 重复调用为空操作。
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return
	}

	if !m.config.Enabled {
		m.state = StateStopped
		logger.Info("刷新管理器已禁用")
		return
	}

	m.state = StateScheduled
	m.timer = m.clock.AfterFunc(m.config.BootDelay, m.run)

	logger.Info("刷新管理器已启动",
		"bootDelay", m.config.BootDelay,
		"interval", m.config.Interval)
}

// Stop 停止刷新管理器
//
// 在任意状态下安全、幂等：取消武装中的定时器，取消在途查询，
// 并等待查询 goroutine 退出。之后任何定时器都不会再触发。
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return
	}
	m.state = StateStopped

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	cancel := m.queryCancel
	m.queryCancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	logger.Info("刷新管理器已停止")
}

// ============================================================================
//                              刷新周期
// ============================================================================

// run 定时器回调：进入 Running 并发起一次自查询
func (m *Manager) run() {
	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return
	}
	m.state = StateRunning
	m.timer = nil

	ctx, cancel := context.WithCancel(context.Background())
	m.queryCancel = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer cancel()

		m.refreshOnce(ctx)

		// 查询落定（无论成败）：转入 Waiting 并武装下一个周期
		m.mu.Lock()
		defer m.mu.Unlock()

		m.queryCancel = nil
		if m.state == StateStopped {
			return
		}
		m.state = StateWaiting
		m.timer = m.clock.AfterFunc(m.config.Interval, m.run)
	}()
}

// refreshOnce 执行一次自查询并把结果写入地址簿
//
// 失败被吞掉：刷新是尽力而为的，不能影响节点或后续周期。
func (m *Manager) refreshOnce(ctx context.Context) {
	it, err := m.backend.ClosestPeers(ctx, m.self.Bytes())
	if err != nil {
		logger.Debug("自查询发起失败", "err", err)
		return
	}
	defer it.Close()

	count := 0
	for {
		info, err := it.Next(ctx)
		if errors.Is(err, interfaces.ErrIteratorDone) {
			break
		}
		if err != nil {
			logger.Debug("自查询中断", "err", err, "peers", count)
			return
		}

		// 停止后丢弃结果
		if m.State() == StateStopped {
			return
		}

		m.addrBook.AddAddrs(info.ID, info.Addrs, 0)
		count++
	}

	logger.Debug("路由表刷新完成", "peers", count)
}

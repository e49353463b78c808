package config

import (
	"errors"
	"time"
)

// RoutingConfig 节点路由配置
//
// 配置组合路由器及其后端：
//   - RefreshManager: 路由表后台刷新
//   - Table: 本地路由表后端
//   - Delegated: 远程委托路由后端
type RoutingConfig struct {
	// CallTimeout 单次路由调用的默认超时
	CallTimeout Duration `json:"call_timeout,omitempty"`

	// RefreshManager 刷新管理器配置
	RefreshManager RefreshManagerConfig `json:"refresh_manager,omitempty"`

	// Table 本地路由表配置
	Table TableConfig `json:"table,omitempty"`

	// Delegated 委托路由配置
	Delegated DelegatedConfig `json:"delegated,omitempty"`
}

// RefreshManagerConfig 刷新管理器配置
//
// 刷新管理器在节点启动后定期对路由表后端执行自查询，
// 并将发现的节点地址写入地址簿。
type RefreshManagerConfig struct {
	// Enabled 是否启用刷新（false 时 Start 为空操作）
	Enabled bool `json:"enabled"`

	// BootDelay 启动后首次刷新的延迟
	BootDelay Duration `json:"boot_delay,omitempty"`

	// Interval 后续刷新周期
	Interval Duration `json:"interval,omitempty"`
}

// TableConfig 本地路由表配置
type TableConfig struct {
	// Capacity 路由表容量（节点数上限）
	Capacity int `json:"capacity,omitempty"`

	// ClosestCount ClosestPeers 返回的最大节点数（K 值）
	ClosestCount int `json:"closest_count,omitempty"`
}

// DelegatedConfig 委托路由配置
type DelegatedConfig struct {
	// Enabled 是否启用委托路由后端
	Enabled bool `json:"enabled"`

	// Endpoint 委托路由服务的 HTTP 基地址
	Endpoint string `json:"endpoint,omitempty"`

	// RequestTimeout 单次 HTTP 请求超时
	RequestTimeout Duration `json:"request_timeout,omitempty"`
}

// AddrStoreConfig 地址簿配置
type AddrStoreConfig struct {
	// MaxPeers 内存地址簿的节点数上限（LRU 淘汰）
	MaxPeers int `json:"max_peers,omitempty"`

	// AddrTTL 地址默认有效期
	AddrTTL Duration `json:"addr_ttl,omitempty"`

	// DataDir 持久化数据目录（为空时使用纯内存地址簿）
	DataDir string `json:"data_dir,omitempty"`
}

// ============================================================================
//                              默认值
// ============================================================================

// DefaultRoutingConfig 返回默认路由配置
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		CallTimeout:    Duration(30 * time.Second),
		RefreshManager: DefaultRefreshManagerConfig(),
		Table:          DefaultTableConfig(),
		Delegated:      DefaultDelegatedConfig(),
	}
}

// DefaultRefreshManagerConfig 返回默认刷新管理器配置
func DefaultRefreshManagerConfig() RefreshManagerConfig {
	return RefreshManagerConfig{
		Enabled:   true,
		BootDelay: Duration(10 * time.Second),
		Interval:  Duration(10 * time.Minute),
	}
}

// DefaultTableConfig 返回默认路由表配置
func DefaultTableConfig() TableConfig {
	return TableConfig{
		Capacity:     1000,
		ClosestCount: 20,
	}
}

// DefaultDelegatedConfig 返回默认委托路由配置
func DefaultDelegatedConfig() DelegatedConfig {
	return DelegatedConfig{
		Enabled:        false,
		RequestTimeout: Duration(30 * time.Second),
	}
}

// DefaultAddrStoreConfig 返回默认地址簿配置
func DefaultAddrStoreConfig() AddrStoreConfig {
	return AddrStoreConfig{
		MaxPeers: 10000,
		AddrTTL:  Duration(24 * time.Hour),
	}
}

// ============================================================================
//                              验证
// ============================================================================

// Validate 验证路由配置
func (c *RoutingConfig) Validate() error {
	if c.CallTimeout < 0 {
		return errors.New("call timeout must not be negative")
	}
	if err := c.RefreshManager.Validate(); err != nil {
		return err
	}
	if err := c.Table.Validate(); err != nil {
		return err
	}
	return c.Delegated.Validate()
}

// Validate 验证刷新管理器配置
func (c *RefreshManagerConfig) Validate() error {
	if c.BootDelay < 0 {
		return errors.New("refresh boot delay must not be negative")
	}
	if c.Enabled && c.Interval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	return nil
}

// Validate 验证路由表配置
func (c *TableConfig) Validate() error {
	if c.Capacity < 0 {
		return errors.New("table capacity must not be negative")
	}
	if c.ClosestCount < 0 {
		return errors.New("closest count must not be negative")
	}
	return nil
}

// Validate 验证委托路由配置
func (c *DelegatedConfig) Validate() error {
	if c.Enabled && c.Endpoint == "" {
		return errors.New("delegated routing requires an endpoint")
	}
	if c.RequestTimeout < 0 {
		return errors.New("delegated request timeout must not be negative")
	}
	return nil
}

// Validate 验证地址簿配置
func (c *AddrStoreConfig) Validate() error {
	if c.MaxPeers < 0 {
		return errors.New("addr store max peers must not be negative")
	}
	if c.AddrTTL < 0 {
		return errors.New("addr TTL must not be negative")
	}
	return nil
}

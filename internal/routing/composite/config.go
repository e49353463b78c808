package composite

import (
	"errors"
	"time"
)

// Config 组合路由器配置
type Config struct {
	// CallTimeout 单次调用的默认超时
	//
	// 调用方通过 interfaces.WithTimeout 传入的值优先于此默认值。
	// 0 表示不设置默认超时。
	CallTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		CallTimeout: 30 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.CallTimeout < 0 {
		return errors.New("call timeout must not be negative")
	}
	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 统一配置根
//
// JSON 配置示例:
//
//	{
//	  "peer_routing": {
//	    "call_timeout": "30s",
//	    "refresh_manager": {
//	      "enabled": true,
//	      "boot_delay": "10s",
//	      "interval": "10m"
//	    },
//	    "delegated": {
//	      "enabled": true,
//	      "endpoint": "https://routing.example.com"
//	    }
//	  }
//	}
type Config struct {
	// PeerRouting 节点路由配置
	PeerRouting RoutingConfig `json:"peer_routing,omitempty"`

	// AddrStore 地址簿配置
	AddrStore AddrStoreConfig `json:"addr_store,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		PeerRouting: DefaultRoutingConfig(),
		AddrStore:   DefaultAddrStoreConfig(),
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := c.PeerRouting.Validate(); err != nil {
		return fmt.Errorf("peer_routing: %w", err)
	}
	if err := c.AddrStore.Validate(); err != nil {
		return fmt.Errorf("addr_store: %w", err)
	}
	return nil
}

// LoadFile 从 JSON 文件加载配置
//
// 文件中未出现的字段保持默认值。
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

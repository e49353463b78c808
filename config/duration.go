// Package config 提供路由层的统一配置管理
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 是支持 JSON 字符串解析的 time.Duration 包装类型
//
// 路由配置中的所有时长字段（call_timeout、boot_delay、interval、
// addr_ttl 等）都使用此类型，配置文件里写人类可读的字符串：
//
//	{"peer_routing": {"call_timeout": "30s", "refresh_manager": {"interval": "10m"}}}
//
// 也接受纳秒数字（程序生成的配置）。
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler 接口
//
// 字符串用 time.ParseDuration 解析（"30s"、"1h30m"、"100ms"），
// 数字直接作为纳秒数。
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		duration, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration string %q: %w", s, err)
		}
		*d = Duration(duration)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*d = Duration(n)
		return nil
	}

	return fmt.Errorf("duration must be a string (e.g., \"30s\") or number (nanoseconds)")
}

// MarshalJSON 实现 json.Marshaler 接口，输出人类可读的字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Duration 返回底层的 time.Duration 值
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String 返回字符串表示
func (d Duration) String() string {
	return time.Duration(d).String()
}

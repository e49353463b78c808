package types

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ============================================================================
//                              Multiaddr - 统一地址类型
// ============================================================================

// Multiaddr 统一地址类型（值对象）
//
// Multiaddr 是路由层内部唯一的地址表示形式。
// 后端返回、地址簿存储、刷新写入的地址必须是 Multiaddr 类型。
//
// 约束：
//   - String() 必须始终返回 canonical multiaddr（以 "/" 开头）
//
// 格式示例：
//   - /ip4/192.168.1.1/udp/4001/quic-v1
//   - /ip6/::1/udp/4001/quic-v1
//   - /dns4/example.com/udp/4001/quic-v1
//   - /ip4/1.2.3.4/tcp/4001/p2p/QmNodeID
type Multiaddr string

// Multiaddr 错误定义
var (
	// ErrInvalidMultiaddr 无效的 multiaddr 格式
	ErrInvalidMultiaddr = errors.New("invalid multiaddr format")

	// ErrEmptyMultiaddr 空 multiaddr
	ErrEmptyMultiaddr = errors.New("empty multiaddr")

	// ErrNotMultiaddrFormat 不是 multiaddr 格式（不以 / 开头）
	ErrNotMultiaddrFormat = errors.New("not multiaddr format: must start with /")
)

// ============================================================================
//                              解析/构建
// ============================================================================

// ParseMultiaddr 解析并规范化 multiaddr
//
// 仅接受 multiaddr 格式输入（以 "/" 开头）。
// host:port 格式应在边界层使用 FromHostPort 转换后再进入 core。
func ParseMultiaddr(s string) (Multiaddr, error) {
	if s == "" {
		return "", ErrEmptyMultiaddr
	}

	s = strings.TrimSpace(s)

	if !strings.HasPrefix(s, "/") {
		return "", ErrNotMultiaddrFormat
	}

	parts := strings.Split(s, "/")
	if len(parts) < 3 {
		return "", ErrInvalidMultiaddr
	}

	// 验证第一个组件是有效的网络类型
	switch parts[1] {
	case "ip4", "ip6", "dns4", "dns6", "dnsaddr", "p2p":
		// 有效的起始组件
	default:
		return "", fmt.Errorf("%w: unknown protocol %q", ErrInvalidMultiaddr, parts[1])
	}

	return Multiaddr(s), nil
}

// MustParseMultiaddr 解析 multiaddr，失败时 panic
//
// 仅用于常量初始化或测试代码，生产代码应使用 ParseMultiaddr。
func MustParseMultiaddr(s string) Multiaddr {
	ma, err := ParseMultiaddr(s)
	if err != nil {
		panic(fmt.Sprintf("MustParseMultiaddr(%q): %v", s, err))
	}
	return ma
}

// FromHostPort 从 host:port 创建 multiaddr
//
// 需要显式指定传输协议（避免默认值导致歧义）。
//
// 示例：
//   - FromHostPort("1.2.3.4", 4001, "udp/quic-v1") → "/ip4/1.2.3.4/udp/4001/quic-v1"
//   - FromHostPort("example.com", 4001, "tcp") → "/dns4/example.com/tcp/4001"
func FromHostPort(host string, port int, transport string) (Multiaddr, error) {
	if host == "" {
		return "", errors.New("empty host")
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid port: %d", port)
	}
	if transport == "" {
		return "", errors.New("missing transport protocol")
	}

	var networkType string
	ip := net.ParseIP(host)
	if ip == nil {
		networkType = "dns4"
	} else if ip.To4() != nil {
		networkType = "ip4"
	} else {
		networkType = "ip6"
	}

	var addr string
	if strings.Contains(transport, "/") {
		// 复合传输，如 "udp/quic-v1"
		tp := strings.SplitN(transport, "/", 2)
		addr = fmt.Sprintf("/%s/%s/%s/%d/%s", networkType, host, tp[0], port, tp[1])
	} else {
		addr = fmt.Sprintf("/%s/%s/%s/%d", networkType, host, transport, port)
	}

	return Multiaddr(addr), nil
}

// ============================================================================
//                              访问方法
// ============================================================================

// String 返回 canonical multiaddr 字符串
func (m Multiaddr) String() string {
	return string(m)
}

// IsEmpty 检查是否为空地址
func (m Multiaddr) IsEmpty() bool {
	return m == ""
}

// Equal 比较两个 Multiaddr 是否相等
func (m Multiaddr) Equal(other Multiaddr) bool {
	return m == other
}

// IP 返回 IP 地址（如果可用）
func (m Multiaddr) IP() net.IP {
	if m.IsEmpty() {
		return nil
	}

	parts := strings.Split(string(m), "/")
	for i := 1; i < len(parts)-1; i++ {
		switch parts[i] {
		case "ip4", "ip6":
			return net.ParseIP(parts[i+1])
		}
	}
	return nil
}

// Port 返回端口号（如果可用）
func (m Multiaddr) Port() int {
	if m.IsEmpty() {
		return 0
	}

	parts := strings.Split(string(m), "/")
	for i := 1; i < len(parts)-1; i++ {
		switch parts[i] {
		case "tcp", "udp":
			port, err := strconv.Atoi(parts[i+1])
			if err == nil {
				return port
			}
		}
	}
	return 0
}

// PeerID 返回嵌入的 NodeID（如果有 /p2p/<nodeID> 组件）
func (m Multiaddr) PeerID() NodeID {
	if m.IsEmpty() {
		return NodeID{}
	}

	parts := strings.Split(string(m), "/")
	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "p2p" {
			nodeID, err := ParseNodeID(parts[i+1])
			if err == nil {
				return nodeID
			}
		}
	}
	return NodeID{}
}

// ============================================================================
//                              批量转换
// ============================================================================

// MultiaddrsToStrings 将 Multiaddr 切片转换为字符串切片
func MultiaddrsToStrings(addrs []Multiaddr) []string {
	strs := make([]string, len(addrs))
	for i, ma := range addrs {
		strs[i] = ma.String()
	}
	return strs
}

// ParseMultiaddrs 解析字符串切片为 Multiaddr 切片
//
// 忽略无法解析的地址。
func ParseMultiaddrs(strs []string) []Multiaddr {
	addrs := make([]Multiaddr, 0, len(strs))
	for _, s := range strs {
		if ma, err := ParseMultiaddr(s); err == nil {
			addrs = append(addrs, ma)
		}
	}
	return addrs
}

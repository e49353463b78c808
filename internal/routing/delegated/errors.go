package delegated

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-peerrouting/pkg/interfaces"
)

var (
	// ErrPeerNotFound 委托服务不认识该节点（HTTP 404）
	// 包装 interfaces.ErrPeerNotFound，组合路由器据此回退而非报失败
	ErrPeerNotFound = fmt.Errorf("%w by delegated router", interfaces.ErrPeerNotFound)

	// ErrBadStatus 委托服务返回了非 2xx 状态
	ErrBadStatus = errors.New("delegated router returned bad status")

	// ErrMalformedResponse 响应体无法解析
	ErrMalformedResponse = errors.New("malformed delegated router response")

	// ErrNoEndpoint 未配置服务地址
	ErrNoEndpoint = errors.New("delegated router endpoint not configured")
)

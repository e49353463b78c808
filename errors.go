package peerrouting

import (
	"errors"

	"github.com/dep2p/go-peerrouting/internal/routing/composite"
	"github.com/dep2p/go-peerrouting/pkg/interfaces"
)

// 路由层错误（从内部包重导出，调用方用 errors.Is 检查）
var (
	// ErrNoRouters 未配置任何路由后端
	ErrNoRouters = composite.ErrNoRouters

	// ErrPeerNotFound 所有后端均无结果
	ErrPeerNotFound = composite.ErrPeerNotFound

	// ErrAllBackendsFailed 所有后端都返回了错误
	ErrAllBackendsFailed = composite.ErrAllBackendsFailed

	// ErrIteratorDone 迭代正常结束
	ErrIteratorDone = interfaces.ErrIteratorDone

	// ErrRouterClosed 门面已关闭
	ErrRouterClosed = errors.New("peer routing closed")
)

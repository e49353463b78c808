package composite

import (
	"errors"

	"github.com/dep2p/go-peerrouting/pkg/interfaces"
)

var (
	// ErrNoRouters 无可用路由后端（后端列表为空）
	ErrNoRouters = errors.New("no routers available")

	// ErrPeerNotFound 所有后端均已尝试且无结果
	ErrPeerNotFound = interfaces.ErrPeerNotFound

	// ErrAllBackendsFailed 所有尝试过的后端都返回了错误
	// 包装最后一个后端的错误，可通过 errors.Is/Unwrap 检查根因
	ErrAllBackendsFailed = errors.New("all routing backends failed")
)

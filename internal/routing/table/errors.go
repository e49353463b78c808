package table

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-peerrouting/pkg/interfaces"
)

var (
	// ErrPeerNotFound 节点不在路由表中
	// 包装 interfaces.ErrPeerNotFound，组合路由器据此回退而非报失败
	ErrPeerNotFound = fmt.Errorf("%w in routing table", interfaces.ErrPeerNotFound)

	// ErrSelfLookup 不能把本节点加入自己的路由表
	ErrSelfLookup = errors.New("cannot add self to routing table")
)

package table

import (
	"crypto/sha256"

	"github.com/dep2p/go-peerrouting/pkg/types"
)

// Distance 计算两个 NodeID 的 XOR 距离（大端序字节表示）
func Distance(a, b types.NodeID) [32]byte {
	var d [32]byte
	for i := 0; i < 32; i++ {
		d[i] = a[i] ^ b[i]
	}
	return d
}

// CompareDistance 比较 a 和 b 到 target 的距离
//
// 返回：
//
//	-1 如果 dist(a, target) < dist(b, target)
//	 0 如果 dist(a, target) == dist(b, target)
//	 1 如果 dist(a, target) > dist(b, target)
func CompareDistance(a, b, target types.NodeID) int {
	for i := 0; i < 32; i++ {
		da := a[i] ^ target[i]
		db := b[i] ^ target[i]
		if da < db {
			return -1
		}
		if da > db {
			return 1
		}
	}
	return 0
}

// CommonPrefixLen 计算两个 NodeID 的共同前缀长度（按位计数）
func CommonPrefixLen(a, b types.NodeID) int {
	d := Distance(a, b)

	zeroBits := 0
	for _, b := range d {
		if b == 0 {
			zeroBits += 8
			continue
		}
		for mask := byte(0x80); mask > 0; mask >>= 1 {
			if b&mask != 0 {
				return zeroBits
			}
			zeroBits++
		}
	}
	return zeroBits
}

// KeyToNodeID 把任意查找键映射到 NodeID 距离空间
//
// 32 字节的键直接使用，其余长度取 SHA256。
func KeyToNodeID(key []byte) types.NodeID {
	if len(key) == 32 {
		var id types.NodeID
		copy(id[:], key)
		return id
	}
	return types.NodeID(sha256.Sum256(key))
}

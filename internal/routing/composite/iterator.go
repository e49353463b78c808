package composite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-peerrouting/pkg/interfaces"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

// ============================================================================
//                              回退迭代器
// ============================================================================

// fallbackIterator 跨后端的懒加载回退迭代器
//
// 状态机：
//   - 未启动: 尚未碰任何后端
//   - 探测中: 当前后端尚未产生元素，报错或干净耗尽都会轮到下一个
//   - 流式中: 当前后端已产生 ≥1 个元素，独占整条流，不再切换
//   - 终止: 全部耗尽或出错，终止结果被记住并重复返回
//
// Next 由单个消费者串行调用；Close 可从任意 goroutine 调用，
// 通过取消操作级 ctx 解除阻塞中的 Next。
type fallbackIterator struct {
	// opCtx 约束整次流式操作（含超时），Close 时取消
	opCtx    context.Context
	opCancel context.CancelFunc

	backends []interfaces.PeerRouting
	key      []byte

	closed atomic.Bool

	// mu 保护以下迭代状态（Next 内部使用）
	mu        sync.Mutex
	idx       int                     // 下一个待尝试的后端
	cur       interfaces.PeerIterator // 当前活动的后端迭代器
	streaming bool                    // 当前后端已产生元素
	lastErr   error                   // 最近一个在产生元素前报错的后端错误
	termErr   error                   // 终止结果（ErrIteratorDone 或错误）
}

// newFallbackIterator 创建未启动的回退迭代器
//
// timeout > 0 时从创建时刻起约束整次流式操作。
func newFallbackIterator(ctx context.Context, backends []interfaces.PeerRouting, key []byte, timeout time.Duration) *fallbackIterator {
	var opCtx context.Context
	var opCancel context.CancelFunc
	if timeout > 0 {
		opCtx, opCancel = context.WithTimeout(ctx, timeout)
	} else {
		opCtx, opCancel = context.WithCancel(ctx)
	}

	k := make([]byte, len(key))
	copy(k, key)

	return &fallbackIterator{
		opCtx:    opCtx,
		opCancel: opCancel,
		backends: backends,
		key:      k,
	}
}

// Next 拉取下一个元素
func (it *fallbackIterator) Next(ctx context.Context) (types.PeerInfo, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed.Load() {
		it.releaseCurrent()
		return types.PeerInfo{}, interfaces.ErrIteratorClosed
	}
	if it.termErr != nil {
		return types.PeerInfo{}, it.termErr
	}

	// 合并调用方 ctx 与操作级 ctx
	callCtx, cancel := it.joinContext(ctx)
	defer cancel()

	for {
		if err := it.ctxErr(callCtx); err != nil {
			it.releaseCurrent()
			return types.PeerInfo{}, it.terminate(err)
		}

		// 需要新的后端
		if it.cur == nil {
			if it.idx >= len(it.backends) {
				return types.PeerInfo{}, it.exhaust()
			}

			backend := it.backends[it.idx]
			it.idx++
			it.streaming = false

			sub, err := backend.ClosestPeers(it.opCtx, it.key)
			if err != nil {
				logger.Debug("后端最近节点查询失败", "backend", it.idx-1, "err", err)
				it.lastErr = err
				continue
			}
			it.cur = sub
		}

		info, err := it.cur.Next(callCtx)
		if err == nil {
			it.streaming = true
			return info, nil
		}

		if errors.Is(err, interfaces.ErrIteratorDone) {
			it.releaseCurrent()
			if it.streaming {
				// 胜出后端正常耗尽，整条序列结束
				return types.PeerInfo{}, it.exhaust()
			}
			// 干净的空序列：清除之前的错误，轮到下一个后端
			it.lastErr = nil
			continue
		}

		// 超时/取消终止整条序列
		if ctxErr := it.ctxErr(callCtx); ctxErr != nil {
			it.releaseCurrent()
			return types.PeerInfo{}, it.terminate(ctxErr)
		}

		it.releaseCurrent()

		if it.streaming {
			// 胜出后端中途失败：错误上抛，不切换到后续后端
			return types.PeerInfo{}, it.terminate(err)
		}

		logger.Debug("后端在产生元素前失败", "backend", it.idx-1, "err", err)
		it.lastErr = err
	}
}

// exhaust 记录全部后端耗尽后的终止结果
func (it *fallbackIterator) exhaust() error {
	if it.lastErr != nil {
		return it.terminate(fmt.Errorf("%w: %w", ErrAllBackendsFailed, it.lastErr))
	}
	return it.terminate(interfaces.ErrIteratorDone)
}

// terminate 记录终止结果并取消操作级 ctx
func (it *fallbackIterator) terminate(err error) error {
	it.termErr = err
	it.opCancel()
	return err
}

// releaseCurrent 关闭并丢弃当前后端迭代器
func (it *fallbackIterator) releaseCurrent() {
	if it.cur != nil {
		_ = it.cur.Close()
		it.cur = nil
	}
}

// ctxErr 返回首个已结束 ctx 的错误，操作级 ctx（承载超时）优先
func (it *fallbackIterator) ctxErr(callCtx context.Context) error {
	if err := it.opCtx.Err(); err != nil {
		return err
	}
	return callCtx.Err()
}

// joinContext 返回一个在调用方 ctx 或操作级 ctx 任一结束时取消的 ctx
func (it *fallbackIterator) joinContext(ctx context.Context) (context.Context, context.CancelFunc) {
	joined, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(it.opCtx, cancel)
	return joined, func() {
		stop()
		cancel()
	}
}

// Close 中止迭代并取消进行中的后端查询
//
// 可重复调用，可从任意 goroutine 调用；阻塞中的 Next 会被解除。
func (it *fallbackIterator) Close() error {
	if it.closed.Swap(true) {
		return nil
	}
	it.opCancel()
	return nil
}

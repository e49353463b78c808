package composite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-peerrouting/pkg/interfaces"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// mockBackend 可编程的路由后端
type mockBackend struct {
	findPeerFn func(ctx context.Context, id types.NodeID) (types.PeerInfo, error)
	closestFn  func(ctx context.Context, key []byte) (interfaces.PeerIterator, error)

	findCalls    atomic.Int32
	closestCalls atomic.Int32
}

func (m *mockBackend) FindPeer(ctx context.Context, id types.NodeID) (types.PeerInfo, error) {
	m.findCalls.Add(1)
	if m.findPeerFn == nil {
		return types.PeerInfo{}, errors.New("not implemented")
	}
	return m.findPeerFn(ctx, id)
}

func (m *mockBackend) ClosestPeers(ctx context.Context, key []byte) (interfaces.PeerIterator, error) {
	m.closestCalls.Add(1)
	if m.closestFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.closestFn(ctx, key)
}

// sliceIter 固定元素序列的迭代器，元素耗尽后返回 finalErr（nil 时为 Done）
type sliceIter struct {
	mu       sync.Mutex
	items    []types.PeerInfo
	pos      int
	finalErr error
	closed   bool
}

func (it *sliceIter) Next(ctx context.Context) (types.PeerInfo, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return types.PeerInfo{}, err
	}
	if it.pos < len(it.items) {
		info := it.items[it.pos]
		it.pos++
		return info, nil
	}
	if it.finalErr != nil {
		return types.PeerInfo{}, it.finalErr
	}
	return types.PeerInfo{}, interfaces.ErrIteratorDone
}

func (it *sliceIter) Close() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closed = true
	return nil
}

func testPeer(addr string) types.PeerInfo {
	return types.NewPeerInfo(types.RandomNodeID(), []types.Multiaddr{types.MustParseMultiaddr(addr)})
}

// ============================================================================
//                              配置测试
// ============================================================================

// TestDefaultConfig 测试默认配置
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.NoError(t, cfg.Validate())
}

// ============================================================================
//                              FindPeer 测试
// ============================================================================

// TestRouter_FindPeer_NoBackends 测试空后端列表
func TestRouter_FindPeer_NoBackends(t *testing.T) {
	r := NewRouter(nil, nil)

	_, err := r.FindPeer(context.Background(), types.RandomNodeID())
	assert.ErrorIs(t, err, ErrNoRouters)
}

// TestRouter_FindPeer_SingleBackend 测试单后端命中
func TestRouter_FindPeer_SingleBackend(t *testing.T) {
	want := testPeer("/ip4/10.0.0.1/udp/4001/quic-v1")
	b := &mockBackend{
		findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
			return want, nil
		},
	}
	r := NewRouter(nil, []interfaces.PeerRouting{b})

	got, err := r.FindPeer(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Addrs, got.Addrs)
	assert.Equal(t, int32(1), b.findCalls.Load())
}

// TestRouter_FindPeer_FirstBackendWins 测试高优先级后端命中时不咨询后续后端
func TestRouter_FindPeer_FirstBackendWins(t *testing.T) {
	want := testPeer("/ip4/10.0.0.1/tcp/4001")
	a := &mockBackend{
		findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
			return want, nil
		},
	}
	b := &mockBackend{}
	r := NewRouter(nil, []interfaces.PeerRouting{a, b})

	got, err := r.FindPeer(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Addrs, got.Addrs)
	assert.Equal(t, int32(0), b.findCalls.Load(), "lower-priority backend must not be invoked")
}

// TestRouter_FindPeer_Fallback 测试回退
func TestRouter_FindPeer_Fallback(t *testing.T) {
	want := testPeer("/ip4/10.0.0.2/tcp/4001")

	t.Run("first returns empty", func(t *testing.T) {
		a := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				return types.PeerInfo{}, nil
			},
		}
		b := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				return want, nil
			},
		}
		r := NewRouter(nil, []interfaces.PeerRouting{a, b})

		got, err := r.FindPeer(context.Background(), want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Addrs, got.Addrs)
		assert.Equal(t, int32(1), a.findCalls.Load())
		assert.Equal(t, int32(1), b.findCalls.Load())
	})

	t.Run("first fails", func(t *testing.T) {
		a := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				return types.PeerInfo{}, errors.New("backend down")
			},
		}
		b := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				return want, nil
			},
		}
		r := NewRouter(nil, []interfaces.PeerRouting{a, b})

		got, err := r.FindPeer(context.Background(), want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Addrs, got.Addrs)
	})

	t.Run("first reports not found", func(t *testing.T) {
		a := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				return types.PeerInfo{}, fmt.Errorf("%w in local table", interfaces.ErrPeerNotFound)
			},
		}
		b := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				return want, nil
			},
		}
		r := NewRouter(nil, []interfaces.PeerRouting{a, b})

		got, err := r.FindPeer(context.Background(), want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Addrs, got.Addrs)
	})

	t.Run("backends are sequential", func(t *testing.T) {
		var order []string
		var mu sync.Mutex
		record := func(name string) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}

		a := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				record("a")
				return types.PeerInfo{}, nil
			},
		}
		b := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				record("b")
				return want, nil
			},
		}
		r := NewRouter(nil, []interfaces.PeerRouting{a, b})

		_, err := r.FindPeer(context.Background(), want.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, order)
	})
}

// TestRouter_FindPeer_Exhausted 测试全部后端耗尽
func TestRouter_FindPeer_Exhausted(t *testing.T) {
	t.Run("all fail surfaces last error", func(t *testing.T) {
		errA := errors.New("a down")
		errB := errors.New("b down")
		a := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				return types.PeerInfo{}, errA
			},
		}
		b := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				return types.PeerInfo{}, errB
			},
		}
		r := NewRouter(nil, []interfaces.PeerRouting{a, b})

		_, err := r.FindPeer(context.Background(), types.RandomNodeID())
		assert.ErrorIs(t, err, ErrAllBackendsFailed)
		assert.ErrorIs(t, err, errB)
		assert.NotErrorIs(t, err, errA)
	})

	t.Run("last empty yields not found", func(t *testing.T) {
		a := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				return types.PeerInfo{}, errors.New("a down")
			},
		}
		b := &mockBackend{
			findPeerFn: func(context.Context, types.NodeID) (types.PeerInfo, error) {
				return types.PeerInfo{}, nil
			},
		}
		r := NewRouter(nil, []interfaces.PeerRouting{a, b})

		_, err := r.FindPeer(context.Background(), types.RandomNodeID())
		assert.ErrorIs(t, err, ErrPeerNotFound)
	})

	t.Run("all not found yields not found", func(t *testing.T) {
		notFound := func(context.Context, types.NodeID) (types.PeerInfo, error) {
			return types.PeerInfo{}, fmt.Errorf("%w somewhere", interfaces.ErrPeerNotFound)
		}
		a := &mockBackend{findPeerFn: notFound}
		b := &mockBackend{findPeerFn: notFound}
		r := NewRouter(nil, []interfaces.PeerRouting{a, b})

		_, err := r.FindPeer(context.Background(), types.RandomNodeID())
		assert.ErrorIs(t, err, ErrPeerNotFound)
		assert.NotErrorIs(t, err, ErrAllBackendsFailed)
	})
}

// TestRouter_FindPeer_Timeout 测试调用超时
func TestRouter_FindPeer_Timeout(t *testing.T) {
	slow := &mockBackend{
		findPeerFn: func(ctx context.Context, _ types.NodeID) (types.PeerInfo, error) {
			<-ctx.Done()
			return types.PeerInfo{}, ctx.Err()
		},
	}
	fast := &mockBackend{}
	r := NewRouter(&Config{CallTimeout: 200 * time.Millisecond}, []interfaces.PeerRouting{slow, fast})

	start := time.Now()
	_, err := r.FindPeer(context.Background(), types.RandomNodeID(),
		interfaces.WithTimeout(50*time.Millisecond))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(0), fast.findCalls.Load(), "timeout must not fall through to next backend")
}

// TestRouter_FindPeer_Cancel 测试调用方取消
func TestRouter_FindPeer_Cancel(t *testing.T) {
	slow := &mockBackend{
		findPeerFn: func(ctx context.Context, _ types.NodeID) (types.PeerInfo, error) {
			<-ctx.Done()
			return types.PeerInfo{}, ctx.Err()
		},
	}
	r := NewRouter(&Config{CallTimeout: 200 * time.Millisecond}, []interfaces.PeerRouting{slow})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.FindPeer(ctx, types.RandomNodeID())
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRouter_FindPeer_Coalesced 测试相同目标的并发查找合并
func TestRouter_FindPeer_Coalesced(t *testing.T) {
	target := types.RandomNodeID()
	want := types.NewPeerInfo(target, []types.Multiaddr{types.MustParseMultiaddr("/ip4/10.0.0.3/tcp/4001")})

	release := make(chan struct{})
	b := &mockBackend{
		findPeerFn: func(ctx context.Context, _ types.NodeID) (types.PeerInfo, error) {
			select {
			case <-release:
				return want, nil
			case <-ctx.Done():
				return types.PeerInfo{}, ctx.Err()
			}
		},
	}
	r := NewRouter(nil, []interfaces.PeerRouting{b})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.FindPeer(context.Background(), target)
			assert.NoError(t, err)
			assert.Equal(t, want.Addrs, got.Addrs)
		}()
	}

	// 等所有调用都挂在同一次在途查询上
	require.Eventually(t, func() bool {
		return b.findCalls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), b.findCalls.Load(), "concurrent identical lookups must share one backend call")
}

// TestRouter_FindPeer_CoalescedIndependentTimeouts 测试合并调用的超时命运互不影响
func TestRouter_FindPeer_CoalescedIndependentTimeouts(t *testing.T) {
	target := types.RandomNodeID()
	want := types.NewPeerInfo(target, []types.Multiaddr{types.MustParseMultiaddr("/ip4/10.0.0.4/tcp/4001")})

	b := &mockBackend{
		findPeerFn: func(ctx context.Context, _ types.NodeID) (types.PeerInfo, error) {
			select {
			case <-time.After(150 * time.Millisecond):
				return want, nil
			case <-ctx.Done():
				return types.PeerInfo{}, ctx.Err()
			}
		},
	}
	r := NewRouter(nil, []interfaces.PeerRouting{b})

	var wg sync.WaitGroup
	var slowErr error
	var slowInfo types.PeerInfo
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowInfo, slowErr = r.FindPeer(context.Background(), target,
			interfaces.WithTimeout(10*time.Second))
	}()

	// 等耐心的调用方挂上在途查询
	require.Eventually(t, func() bool {
		return b.findCalls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	// 急躁的调用方加入同一次查询并先超时
	_, err := r.FindPeer(context.Background(), target,
		interfaces.WithTimeout(30*time.Millisecond))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 耐心的调用方不受波及，照常拿到结果
	wg.Wait()
	require.NoError(t, slowErr)
	assert.Equal(t, want.Addrs, slowInfo.Addrs)
	assert.Equal(t, int32(1), b.findCalls.Load(), "both callers must share the one backend call")
}

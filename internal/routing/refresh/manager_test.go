package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-peerrouting/pkg/interfaces"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// stubBackend 记录查询次数并返回固定结果的路由表后端
type stubBackend struct {
	mu      sync.Mutex
	results []types.PeerInfo
	err     error

	calls     atomic.Int32
	callTimes []time.Time
}

func (s *stubBackend) FindPeer(context.Context, types.NodeID) (types.PeerInfo, error) {
	return types.PeerInfo{}, errors.New("not implemented")
}

func (s *stubBackend) ClosestPeers(ctx context.Context, _ []byte) (interfaces.PeerIterator, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.callTimes = append(s.callTimes, time.Now())
	results, err := s.results, s.err
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &stubIter{items: results}, nil
}

type stubIter struct {
	items []types.PeerInfo
	pos   int
}

func (it *stubIter) Next(ctx context.Context) (types.PeerInfo, error) {
	if err := ctx.Err(); err != nil {
		return types.PeerInfo{}, err
	}
	if it.pos >= len(it.items) {
		return types.PeerInfo{}, interfaces.ErrIteratorDone
	}
	info := it.items[it.pos]
	it.pos++
	return info, nil
}

func (it *stubIter) Close() error { return nil }

// recordingAddrBook 记录写入顺序的地址簿
type recordingAddrBook struct {
	mu    sync.Mutex
	order []types.NodeID
	addrs map[types.NodeID][]types.Multiaddr
}

func newRecordingAddrBook() *recordingAddrBook {
	return &recordingAddrBook{addrs: make(map[types.NodeID][]types.Multiaddr)}
}

func (ab *recordingAddrBook) AddAddrs(id types.NodeID, addrs []types.Multiaddr, _ time.Duration) {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	ab.order = append(ab.order, id)
	ab.addrs[id] = append(ab.addrs[id], addrs...)
}

func (ab *recordingAddrBook) Addrs(id types.NodeID) []types.Multiaddr {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	return ab.addrs[id]
}

func (ab *recordingAddrBook) ClearAddrs(id types.NodeID) {}

func (ab *recordingAddrBook) PeersWithAddrs() []types.NodeID {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	return append([]types.NodeID{}, ab.order...)
}

func (ab *recordingAddrBook) writeOrder() []types.NodeID {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	return append([]types.NodeID{}, ab.order...)
}

func testPeers(n int) []types.PeerInfo {
	peers := make([]types.PeerInfo, n)
	for i := range peers {
		peers[i] = types.NewPeerInfo(types.RandomNodeID(), []types.Multiaddr{
			types.MustParseMultiaddr("/ip4/10.0.0.1/tcp/4001"),
			types.MustParseMultiaddr("/ip4/10.0.0.2/udp/4001/quic-v1"),
		})
	}
	return peers
}

// ============================================================================
//                              配置测试
// ============================================================================

// TestDefaultConfig 测试默认配置
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 10*time.Second, cfg.BootDelay)
	assert.Equal(t, 10*time.Minute, cfg.Interval)
	assert.NoError(t, cfg.Validate())
}

// TestConfig_Validate 测试配置验证
func TestConfig_Validate(t *testing.T) {
	t.Run("negative boot delay", func(t *testing.T) {
		cfg := Config{Enabled: true, BootDelay: -1, Interval: time.Second}
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero interval when enabled", func(t *testing.T) {
		cfg := Config{Enabled: true, Interval: 0}
		assert.Error(t, cfg.Validate())
	})

	t.Run("disabled ignores interval", func(t *testing.T) {
		cfg := Config{Enabled: false}
		assert.NoError(t, cfg.Validate())
	})
}

// ============================================================================
//                              刷新周期测试
// ============================================================================

// TestManager_RefreshCycle 测试启动延迟、结果写入与周期调度
func TestManager_RefreshCycle(t *testing.T) {
	peers := testPeers(3)
	backend := &stubBackend{results: peers}
	ab := newRecordingAddrBook()

	m := NewManager(Config{
		Enabled:   true,
		BootDelay: 100 * time.Millisecond,
		Interval:  500 * time.Millisecond,
	}, backend, ab, types.RandomNodeID())
	defer m.Stop()

	m.Start()
	assert.Equal(t, StateScheduled, m.State())

	// BootDelay 之前不应有查询
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), backend.calls.Load(), "no query before boot delay elapses")

	// BootDelay 之后恰好一次查询
	require.Eventually(t, func() bool {
		return backend.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	// 结果按序写入地址簿
	require.Eventually(t, func() bool {
		return len(ab.writeOrder()) == len(peers)
	}, time.Second, 10*time.Millisecond)

	order := ab.writeOrder()
	for i, p := range peers {
		assert.Equal(t, p.ID, order[i])
		assert.Equal(t, p.Addrs, ab.Addrs(p.ID), "address order must be preserved")
	}

	// 第二次查询不早于第一次完成后 ~interval
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), backend.calls.Load(), "second query must wait for the interval")

	require.Eventually(t, func() bool {
		return backend.calls.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)

	backend.mu.Lock()
	gap := backend.callTimes[1].Sub(backend.callTimes[0])
	backend.mu.Unlock()
	assert.GreaterOrEqual(t, gap, 450*time.Millisecond)
}

// TestManager_Disabled 测试禁用时从不查询
func TestManager_Disabled(t *testing.T) {
	backend := &stubBackend{results: testPeers(1)}
	ab := newRecordingAddrBook()

	m := NewManager(Config{
		Enabled:   false,
		BootDelay: 10 * time.Millisecond,
		Interval:  10 * time.Millisecond,
	}, backend, ab, types.RandomNodeID())

	m.Start()
	assert.Equal(t, StateStopped, m.State())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), backend.calls.Load(), "disabled manager must never query")
	assert.Empty(t, ab.writeOrder())
}

// TestManager_ZeroBootDelay 测试零启动延迟的近即时首跑
func TestManager_ZeroBootDelay(t *testing.T) {
	backend := &stubBackend{results: testPeers(1)}
	m := NewManager(Config{
		Enabled:   true,
		BootDelay: 0,
		Interval:  time.Hour,
	}, backend, newRecordingAddrBook(), types.RandomNodeID())
	defer m.Stop()

	m.Start()

	require.Eventually(t, func() bool {
		return backend.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

// TestManager_QueryFailureSwallowed 测试查询失败不影响后续周期
func TestManager_QueryFailureSwallowed(t *testing.T) {
	backend := &stubBackend{err: errors.New("table unavailable")}
	m := NewManager(Config{
		Enabled:   true,
		BootDelay: 10 * time.Millisecond,
		Interval:  50 * time.Millisecond,
	}, backend, newRecordingAddrBook(), types.RandomNodeID())
	defer m.Stop()

	m.Start()

	// 失败的周期照常转入 Waiting 并继续调度
	require.Eventually(t, func() bool {
		return backend.calls.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

// ============================================================================
//                              Stop 测试
// ============================================================================

// TestManager_StopWhileWaiting 测试 Waiting 状态下停止后不再有查询
func TestManager_StopWhileWaiting(t *testing.T) {
	backend := &stubBackend{results: testPeers(1)}
	m := NewManager(Config{
		Enabled:   true,
		BootDelay: 10 * time.Millisecond,
		Interval:  200 * time.Millisecond,
	}, backend, newRecordingAddrBook(), types.RandomNodeID())

	m.Start()

	require.Eventually(t, func() bool {
		return m.State() == StateWaiting
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(1), backend.calls.Load())

	m.Stop()
	assert.Equal(t, StateStopped, m.State())

	// 原定时器本应在 200ms 后触发
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), backend.calls.Load(), "no query after stop, even past the interval")
}

// TestManager_StopFromAnyState 测试任意状态下停止安全
func TestManager_StopFromAnyState(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		m := NewManager(DefaultConfig(), &stubBackend{}, newRecordingAddrBook(), types.RandomNodeID())
		m.Stop()
		assert.Equal(t, StateStopped, m.State())
	})

	t.Run("scheduled", func(t *testing.T) {
		backend := &stubBackend{}
		m := NewManager(Config{
			Enabled:   true,
			BootDelay: time.Hour,
			Interval:  time.Hour,
		}, backend, newRecordingAddrBook(), types.RandomNodeID())
		m.Start()
		require.Equal(t, StateScheduled, m.State())

		m.Stop()
		assert.Equal(t, StateStopped, m.State())
		assert.Equal(t, int32(0), backend.calls.Load())
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		m := NewManager(DefaultConfig(), &stubBackend{}, newRecordingAddrBook(), types.RandomNodeID())
		m.Start()
		m.Stop()
		m.Stop()
		assert.Equal(t, StateStopped, m.State())
	})

	t.Run("start after stop is a no-op", func(t *testing.T) {
		backend := &stubBackend{}
		m := NewManager(Config{
			Enabled:   true,
			BootDelay: 10 * time.Millisecond,
			Interval:  10 * time.Millisecond,
		}, backend, newRecordingAddrBook(), types.RandomNodeID())
		m.Start()
		m.Stop()
		m.Start()

		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, StateStopped, m.State())
	})
}

// TestManager_StopCancelsInflightQuery 测试停止取消在途查询
func TestManager_StopCancelsInflightQuery(t *testing.T) {
	started := make(chan struct{})
	blocking := &blockingBackend{started: started}
	ab := newRecordingAddrBook()

	m := NewManager(Config{
		Enabled:   true,
		BootDelay: 0,
		Interval:  time.Hour,
	}, blocking, ab, types.RandomNodeID())

	m.Start()
	<-started

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on in-flight query")
	}

	assert.Equal(t, StateStopped, m.State())
	assert.Empty(t, ab.writeOrder(), "post-stop results must be discarded")
}

// blockingBackend 阻塞到 ctx 取消的后端
type blockingBackend struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingBackend) FindPeer(context.Context, types.NodeID) (types.PeerInfo, error) {
	return types.PeerInfo{}, errors.New("not implemented")
}

func (b *blockingBackend) ClosestPeers(ctx context.Context, _ []byte) (interfaces.PeerIterator, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

// ============================================================================
//                              状态机测试（mock 时钟）
// ============================================================================

// TestManager_StateMachine 测试确定性的状态转换
func TestManager_StateMachine(t *testing.T) {
	mock := clock.NewMock()
	backend := &stubBackend{results: testPeers(2)}
	ab := newRecordingAddrBook()

	m := NewManager(Config{
		Enabled:   true,
		BootDelay: 100 * time.Millisecond,
		Interval:  500 * time.Millisecond,
	}, backend, ab, types.RandomNodeID(), WithClock(mock))
	defer m.Stop()

	assert.Equal(t, StateIdle, m.State())

	m.Start()
	assert.Equal(t, StateScheduled, m.State())
	assert.Equal(t, int32(0), backend.calls.Load())

	// BootDelay 触发 → Running → 查询完成 → Waiting
	mock.Add(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return m.State() == StateWaiting
	}, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), backend.calls.Load())
	assert.Len(t, ab.writeOrder(), 2)

	// Interval 触发第二个周期
	mock.Add(500 * time.Millisecond)
	require.Eventually(t, func() bool {
		return backend.calls.Load() == 2
	}, time.Second, time.Millisecond)

	m.Stop()
	assert.Equal(t, StateStopped, m.State())

	// 停止后时间推进不再触发任何周期
	mock.Add(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), backend.calls.Load())
}

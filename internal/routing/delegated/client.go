package delegated

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dep2p/go-peerrouting/pkg/interfaces"
	"github.com/dep2p/go-peerrouting/pkg/lib/log"
	"github.com/dep2p/go-peerrouting/pkg/types"
)

var logger = log.Logger("routing/delegated")

// sourceName 委托路由结果的来源标记
const sourceName = "delegated"

// ============================================================================
//                              配置
// ============================================================================

// Config 委托路由客户端配置
type Config struct {
	// Endpoint 委托路由服务的 HTTP 基地址，如 "https://routing.example.com"
	Endpoint string

	// RequestTimeout 单次 HTTP 请求超时（0 表示不限制，依赖调用方 ctx）
	RequestTimeout time.Duration

	// HTTPClient 自定义 HTTP 客户端（nil 时使用 http.DefaultClient）
	HTTPClient *http.Client
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
	}
}

// ============================================================================
//                              线上格式
// ============================================================================

// peerRecord 委托服务的节点记录（JSON）
type peerRecord struct {
	ID    string   `json:"id"`
	Addrs []string `json:"addrs"`
}

// toPeerInfo 转换为 PeerInfo
//
// 记录带了地址但全部无法解析时视为响应损坏，而不是静默降级
// 为零地址结果。
func (r peerRecord) toPeerInfo() (types.PeerInfo, error) {
	id, err := types.ParseNodeID(r.ID)
	if err != nil {
		return types.PeerInfo{}, fmt.Errorf("%w: bad node id %q", ErrMalformedResponse, r.ID)
	}

	info := types.NewPeerInfoFromStrings(id, r.Addrs)
	if len(r.Addrs) > 0 && !info.HasAddrs() {
		return types.PeerInfo{}, fmt.Errorf("%w: no parsable addrs for %q", ErrMalformedResponse, r.ID)
	}
	info.Source = sourceName
	return info, nil
}

// ============================================================================
//                              Client 结构
// ============================================================================

// Client 委托路由客户端
//
// 实现 interfaces.PeerRouting。并发安全（无共享可变状态）。
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient 创建委托路由客户端
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if _, err := url.Parse(config.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	hc := config.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	return &Client{
		endpoint:   strings.TrimRight(config.Endpoint, "/"),
		timeout:    config.RequestTimeout,
		httpClient: hc,
	}, nil
}

// ============================================================================
//                              PeerRouting 实现
// ============================================================================

// FindPeer 向委托服务解析节点地址
func (c *Client) FindPeer(ctx context.Context, id types.NodeID) (types.PeerInfo, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reqURL := c.endpoint + "/v1/peers/" + id.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.PeerInfo{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.PeerInfo{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return types.PeerInfo{}, ErrPeerNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return types.PeerInfo{}, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var rec peerRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRecordSize)).Decode(&rec); err != nil {
		return types.PeerInfo{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	info, err := rec.toPeerInfo()
	if err != nil {
		return types.PeerInfo{}, err
	}

	logger.Debug("委托查找命中", "peer", id.ShortString(), "addrs", len(info.Addrs))
	return info, nil
}

// ClosestPeers 返回委托服务最近节点流的懒加载迭代器
//
// HTTP 请求在首次 Next 时才发出；Close 会取消请求并释放响应体。
func (c *Client) ClosestPeers(ctx context.Context, key []byte) (interfaces.PeerIterator, error) {
	var reqCtx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}

	return &streamIterator{
		client: c,
		ctx:    reqCtx,
		cancel: cancel,
		url:    c.endpoint + "/v1/closest/" + hex.EncodeToString(key),
	}, nil
}

// maxRecordSize 单条记录的大小上限
const maxRecordSize = 1 << 16

// ============================================================================
//                              流式迭代器
// ============================================================================

// streamIterator NDJSON 响应流的懒加载迭代器
//
// 单遍历；首次 Next 发出 HTTP 请求，之后每次 Next 读取一行。
type streamIterator struct {
	client *Client
	ctx    context.Context
	cancel context.CancelFunc
	url    string

	mu      sync.Mutex
	body    io.ReadCloser
	scanner *bufio.Scanner
	started bool
	done    bool
	termErr error // 流的终止错误；nil 表示干净耗尽
	closed  bool
}

// Next 拉取下一个记录
func (it *streamIterator) Next(ctx context.Context) (types.PeerInfo, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return types.PeerInfo{}, interfaces.ErrIteratorClosed
	}
	if it.done {
		// 失败的流在重复拉取时重复报错，不会伪装成干净的空流
		if it.termErr != nil {
			return types.PeerInfo{}, it.termErr
		}
		return types.PeerInfo{}, interfaces.ErrIteratorDone
	}
	if err := ctx.Err(); err != nil {
		return types.PeerInfo{}, err
	}

	if !it.started {
		if err := it.start(); err != nil {
			return types.PeerInfo{}, it.terminate(err)
		}
	}

	for it.scanner.Scan() {
		line := strings.TrimSpace(it.scanner.Text())
		if line == "" {
			continue
		}

		var rec peerRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return types.PeerInfo{}, it.terminate(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
		}
		info, err := rec.toPeerInfo()
		if err != nil {
			return types.PeerInfo{}, it.terminate(err)
		}
		return info, nil
	}

	// 流结束：区分干净 EOF 与中断
	if err := it.scanner.Err(); err != nil {
		if ctxErr := it.ctx.Err(); ctxErr != nil {
			return types.PeerInfo{}, it.terminate(ctxErr)
		}
		return types.PeerInfo{}, it.terminate(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	it.finish()
	return types.PeerInfo{}, interfaces.ErrIteratorDone
}

// start 发出 HTTP 请求并校验状态（调用方必须持锁）
func (it *streamIterator) start() error {
	it.started = true

	req, err := http.NewRequestWithContext(it.ctx, http.MethodGet, it.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := it.client.httpClient.Do(req)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	it.body = resp.Body
	it.scanner = bufio.NewScanner(resp.Body)
	it.scanner.Buffer(make([]byte, 4096), maxRecordSize)
	return nil
}

// terminate 以错误终止流并记住它（调用方必须持锁）
func (it *streamIterator) terminate(err error) error {
	it.termErr = err
	it.finish()
	return err
}

// finish 标记流结束并释放响应体（调用方必须持锁）
func (it *streamIterator) finish() {
	it.done = true
	if it.body != nil {
		it.body.Close()
		it.body = nil
	}
	it.cancel()
}

// Close 中止迭代：取消请求并释放响应体
func (it *streamIterator) Close() error {
	it.cancel()

	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return nil
	}
	it.closed = true

	if it.body != nil {
		it.body.Close()
		it.body = nil
	}
	return nil
}

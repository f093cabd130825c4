package binance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"tradegate/internal/config"
	"tradegate/internal/operr"
	"tradegate/internal/signer"
)

// Client 是币安 REST 端点的签名请求核心。
// 合约与现货适配器各持有一个实例，指向不同的 baseURL。
type Client struct {
	venue      string
	baseURL    string
	httpClient *http.Client
	signer     *signer.Signer
	tracker    *signer.UsageTracker
	retry      config.RetryConfig
	logger     *zap.Logger
	timePath   string

	parserPool fastjson.ParserPool
}

// NewClient 创建请求核心。
func NewClient(venue, baseURL, timePath string, sg *signer.Signer, cfg config.BinanceConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		venue:      venue,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		signer:     sg,
		tracker:    &signer.UsageTracker{},
		retry:      cfg.Retry,
		logger:     logger,
		timePath:   timePath,
	}
}

// Signer 返回该端点使用的签名器。
func (c *Client) Signer() *signer.Signer {
	return c.signer
}

// ServerTime 查询交易所服务器时间，供对时使用。
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	body, err := c.public(ctx, http.MethodGet, c.timePath, "")
	if err != nil {
		return time.Time{}, err
	}

	p := c.parserPool.Get()
	defer c.parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析服务器时间失败: %w", err)
	}
	return time.UnixMilli(v.GetInt64("serverTime")).UTC(), nil
}

// Signed 发送签名请求并返回响应体。
// 限频压力下先退避，429/418 与网络类错误按指数退避重试，
// 业务拒绝立即映射为 VENUE_REJECTED 返回。
func (c *Client) Signed(ctx context.Context, method, path string, params []signer.Param) ([]byte, error) {
	maxAttempts := c.retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if usage := c.tracker.Snapshot(); signer.ShouldBackoff(usage) {
			wait := signer.BackoffDelay(attempt)
			c.logger.Warn("限频用量逼近阈值，主动退避",
				zap.String("venue", c.venue),
				zap.Int("weight_1m", usage.Weight1m),
				zap.Int("orders_10s", usage.Orders10s),
				zap.Int("orders_1m", usage.Orders1m),
				zap.Duration("wait", wait),
			)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
		}

		signed, err := c.signer.Sign(method, c.baseURL+path, params)
		if err != nil {
			return nil, err
		}

		body, retryable, err := c.do(ctx, method, signed.URL)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}

		lastErr = err
		wait := signer.BackoffDelay(attempt)
		c.logger.Warn("交易所请求失败，等待重试",
			zap.String("venue", c.venue),
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%s 请求重试后仍失败: %w", c.venue, lastErr)
}

func (c *Client) public(ctx context.Context, method, path, query string) ([]byte, error) {
	url := c.baseURL + path
	if query != "" {
		url += "?" + query
	}
	body, _, err := c.do(ctx, method, url)
	return body, err
}

// do 执行一次 HTTP 请求，返回 (body, 是否可重试, err)。
func (c *Client) do(ctx context.Context, method, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, false, err
	}
	if key := c.signer.APIKey(); key != "" {
		req.Header.Set("X-MBX-APIKEY", key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.captureUsage(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 418:
		return nil, true, fmt.Errorf("%s 触发限频 (HTTP %d)", c.venue, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%s 服务端错误 (HTTP %d)", c.venue, resp.StatusCode)
	default:
		return nil, false, c.rejectionError(body, resp.StatusCode)
	}
}

// rejectionError 把交易所业务错误体映射为 VENUE_REJECTED。
func (c *Client) rejectionError(body []byte, status int) error {
	p := c.parserPool.Get()
	defer c.parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return operr.New(operr.CodeVenueRejected, "%s 拒绝请求 (HTTP %d)", c.venue, status)
	}

	code := v.GetInt("code")
	msg := string(v.GetStringBytes("msg"))
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return operr.New(operr.CodeVenueRejected, "%s 拒绝请求 (code=%d): %s", c.venue, code, msg)
}

func (c *Client) captureUsage(header http.Header) {
	usage := signer.Usage{
		Weight1m:  headerInt(header, "X-Mbx-Used-Weight-1m"),
		Orders10s: headerInt(header, "X-Mbx-Order-Count-10s"),
		Orders1m:  headerInt(header, "X-Mbx-Order-Count-1m"),
	}
	c.tracker.Update(usage)
}

func headerInt(header http.Header, key string) int {
	raw := header.Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

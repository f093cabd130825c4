package signer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"tradegate/internal/operr"
)

// Param 是一个有序查询参数。交易所签名对参数顺序敏感，
// 因此序列化严格按调用方给定的顺序，绝不排序。
type Param struct {
	Key   string
	Value string
}

// SignedRequest 为签名结果。
type SignedRequest struct {
	URL            string
	CanonicalQuery string
	Signature      string
	Timestamp      int64
}

// Signer 为单个交易所构建签名请求。
// 每个交易所持有独立实例，时钟偏移与限频状态互不影响。
type Signer struct {
	venue      string
	apiKey     string
	secret     []byte
	recvWindow time.Duration
	clock      *Clock
	logger     *zap.Logger
}

// New 创建签名器。
func New(venue, apiKey, apiSecret string, recvWindow time.Duration, logger *zap.Logger) *Signer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recvWindow <= 0 {
		recvWindow = 5 * time.Second
	}
	return &Signer{
		venue:      venue,
		apiKey:     apiKey,
		secret:     []byte(apiSecret),
		recvWindow: recvWindow,
		clock:      NewClock(),
		logger:     logger,
	}
}

// Venue 返回签名器所属的交易所名称。
func (s *Signer) Venue() string {
	return s.venue
}

// APIKey 返回请求头使用的密钥标识。
func (s *Signer) APIKey() string {
	return s.apiKey
}

// Clock 返回该交易所的时钟。
func (s *Signer) Clock() *Clock {
	return s.clock
}

// Sign 按调用方给定的参数顺序构建签名请求。
// timestamp 与 recvWindow 追加在参数末尾，签名串即该精确字符串，
// 签名本身作为最后一个参数附加。
func (s *Signer) Sign(method, endpoint string, params []Param) (SignedRequest, error) {
	return s.signAt(method, endpoint, params, s.clock.Now().UnixMilli())
}

func (s *Signer) signAt(method, endpoint string, params []Param, timestamp int64) (SignedRequest, error) {
	if len(s.secret) == 0 {
		return SignedRequest{}, operr.New(operr.CodeSigning, "%s 缺少 API 密钥，无法签名", s.venue)
	}
	if method == "" || endpoint == "" {
		return SignedRequest{}, operr.New(operr.CodeSigning, "签名请求缺少 method 或 endpoint")
	}

	full := make([]Param, 0, len(params)+2)
	full = append(full, params...)
	full = append(full,
		Param{Key: "recvWindow", Value: strconv.FormatInt(s.recvWindow.Milliseconds(), 10)},
		Param{Key: "timestamp", Value: strconv.FormatInt(timestamp, 10)},
	)

	canonical := encodeParams(full)
	signature := SignQuery(s.secret, canonical)

	return SignedRequest{
		URL:            fmt.Sprintf("%s?%s&signature=%s", endpoint, canonical, signature),
		CanonicalQuery: canonical,
		Signature:      signature,
		Timestamp:      timestamp,
	}, nil
}

// Resync 对时：以交易所服务器时间修正本地偏移，失败时清零。
func (s *Signer) Resync(ctx context.Context, source TimeSource) error {
	server, err := source.ServerTime(ctx)
	if err != nil {
		s.clock.Reset()
		s.logger.Warn("对时失败，时钟偏移已清零",
			zap.String("venue", s.venue),
			zap.Error(err),
		)
		return operr.Wrap(operr.CodeSigning, err, "%s 对时失败", s.venue)
	}

	offset := time.Until(server)
	s.clock.SetOffset(offset)
	s.logger.Debug("时钟偏移已更新",
		zap.String("venue", s.venue),
		zap.Duration("offset", offset),
	)
	return nil
}

// SignQuery 对给定的规范查询串计算 HMAC-SHA256 十六进制签名。
func SignQuery(secret []byte, canonical string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

func encodeParams(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

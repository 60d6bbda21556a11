// Package auth 实现请求鉴权：HMAC-SHA256 签名校验（支持密钥轮换）、
// 时间戳新鲜度检查与单次使用 nonce 防重放。
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
)

// 鉴权相关请求头。
const (
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
	HeaderKeyID     = "X-Key-Id"
	HeaderNonce     = "X-Nonce"
)

// ReasonAuthFailed 为所有鉴权失败的统一 reason；不区分失败原因。
const ReasonAuthFailed = "AUTH_FAILED"

// ReasonNonceUnavailable 仅在防重放 fail-closed 且存储故障时返回。
const ReasonNonceUnavailable = "NONCE_UNAVAILABLE"

// ErrAuthFailed 为统一的 401 鉴权失败错误。消息不泄露具体失败环节。
var ErrAuthFailed = kerrors.New(401, ReasonAuthFailed, "unauthorized")

// ErrNonceUnavailable 为防重放存储不可用（fail-closed）错误。
var ErrNonceUnavailable = kerrors.New(503, ReasonNonceUnavailable, "anti-replay unavailable")

// 默认时钟偏移容忍窗口（对称）。
const defaultMaxSkew = 5 * time.Minute

// Key 为一把签名密钥及其标识。
type Key struct {
	ID     string
	Secret []byte
}

// NonceStore 抽象防重放 nonce 的存取，便于测试替身。
type NonceStore interface {
	Available() bool
	Register(ctx context.Context, nonce string, ttl time.Duration) (firstUse bool, err error)
}

// Authenticator 对请求执行 allow/deny 判定。
type Authenticator struct {
	current    Key
	previous   *Key
	maxSkew    time.Duration
	antiReplay bool
	failOpen   bool
	nonceTTL   time.Duration
	nonces     NonceStore
	now        func() time.Time
	log        *log.Helper
}

// AuthenticatorOption 定义可选配置。
type AuthenticatorOption func(*Authenticator)

// WithClock 覆盖时间获取函数，便于测试。
func WithClock(clock func() time.Time) AuthenticatorOption {
	return func(a *Authenticator) {
		if clock != nil {
			a.now = clock
		}
	}
}

// NewAuthenticator 构造 Authenticator。
func NewAuthenticator(cfg configloader.AuthConfig, nonces NonceStore, logger log.Logger, opts ...AuthenticatorOption) (*Authenticator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: current secret is required")
	}
	a := &Authenticator{
		current:    Key{ID: cfg.KeyID, Secret: []byte(cfg.Secret)},
		maxSkew:    defaultMaxSkew,
		antiReplay: cfg.AntiReplayEnabled,
		failOpen:   cfg.ReplayFailOpen,
		nonceTTL:   cfg.ReplayTTL.AsDuration(),
		nonces:     nonces,
		now:        time.Now,
		log:        log.NewHelper(logger),
	}
	if cfg.PreviousSecret != "" {
		a.previous = &Key{ID: cfg.PreviousKeyID, Secret: []byte(cfg.PreviousSecret)}
	}
	if a.nonceTTL <= 0 {
		a.nonceTTL = 300 * time.Second
	}
	if a.antiReplay && (nonces == nil || !nonces.Available()) {
		return nil, errors.New("auth: anti-replay enabled but nonce store unavailable")
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Request 为鉴权所需的请求投影。Body 为收到的原始字节，不允许重新序列化。
type Request struct {
	Method    string
	Path      string
	Body      []byte
	Timestamp string
	Signature string
	KeyID     string
	Nonce     string
}

// Verify 执行完整判定：时间戳 → 签名 → 防重放。
// 除 fail-closed 的存储故障外，一切失败均返回同一个 ErrAuthFailed。
func (a *Authenticator) Verify(ctx context.Context, req Request) error {
	if !a.freshTimestamp(req.Timestamp) {
		return ErrAuthFailed
	}
	if !a.validSignature(req) {
		return ErrAuthFailed
	}
	if a.antiReplay {
		if err := a.checkReplay(ctx, req.Nonce); err != nil {
			return err
		}
	}
	return nil
}

// freshTimestamp 校验 unix 毫秒时间戳落在 ±maxSkew 窗口内。
func (a *Authenticator) freshTimestamp(value string) bool {
	if value == "" {
		return false
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || ts <= 0 {
		return false
	}
	now := a.now().UnixMilli()
	diff := now - ts
	if diff < 0 {
		diff = -diff
	}
	return diff <= a.maxSkew.Milliseconds()
}

// validSignature 按 key id 选择密钥并做常数时间比较。
// 未携带 key id 时依次尝试 current 与 previous，实现零停机轮换。
func (a *Authenticator) validSignature(req Request) bool {
	if req.Signature == "" {
		return false
	}
	payload := CanonicalString(req.Method, req.Path, req.Timestamp, req.Body, req.Nonce)

	switch req.KeyID {
	case "":
		if constantTimeMatch(req.Signature, computeSignature(a.current.Secret, payload)) {
			return true
		}
		if a.previous != nil {
			return constantTimeMatch(req.Signature, computeSignature(a.previous.Secret, payload))
		}
		return false
	case a.current.ID:
		return constantTimeMatch(req.Signature, computeSignature(a.current.Secret, payload))
	default:
		if a.previous != nil && req.KeyID == a.previous.ID {
			return constantTimeMatch(req.Signature, computeSignature(a.previous.Secret, payload))
		}
		return false
	}
}

// checkReplay 要求携带 nonce，并在 TTL 窗口内拒绝重复值。
// 存储故障时按 fail-open/fail-closed 策略处理。
func (a *Authenticator) checkReplay(ctx context.Context, nonce string) error {
	if strings.TrimSpace(nonce) == "" {
		return ErrAuthFailed
	}
	firstUse, err := a.nonces.Register(ctx, nonce, a.nonceTTL)
	if err != nil {
		a.log.WithContext(ctx).Warnf("nonce store error (fail_open=%v): %v", a.failOpen, err)
		if a.failOpen {
			return nil
		}
		return ErrNonceUnavailable
	}
	if !firstUse {
		return ErrAuthFailed
	}
	return nil
}

// CanonicalString 构造签名串：METHOD\nPATH\nTIMESTAMP\nRAW_BODY，
// GET/HEAD 的 RAW_BODY 为空串；携带 nonce 时追加为第五行。
func CanonicalString(method, path, timestamp string, body []byte, nonce string) string {
	method = strings.ToUpper(method)
	raw := ""
	if method != "GET" && method != "HEAD" {
		raw = string(body)
	}
	payload := method + "\n" + path + "\n" + timestamp + "\n" + raw
	if nonce != "" {
		payload += "\n" + nonce
	}
	return payload
}

// Sign 计算给定请求投影的签名（base64 HMAC-SHA256），供客户端与测试使用。
func Sign(secret []byte, method, path, timestamp string, body []byte, nonce string) string {
	return computeSignature(secret, CanonicalString(method, path, timestamp, body, nonce))
}

func computeSignature(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// constantTimeMatch 对两个 base64 字符串做常数时间比较。
func constantTimeMatch(got, want string) bool {
	if len(got) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// FromTime 将时间格式化为本服务使用的 unix 毫秒时间戳字符串。
func FromTime(t time.Time) string {
	return fmt.Sprintf("%d", t.UnixMilli())
}

package auth_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/slidesmith/internal/auth"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
)

type stubNonceStore struct {
	available bool
	seen      map[string]bool
	err       error
	calls     int
}

func newStubNonceStore() *stubNonceStore {
	return &stubNonceStore{available: true, seen: map[string]bool{}}
}

func (s *stubNonceStore) Available() bool { return s.available }

func (s *stubNonceStore) Register(_ context.Context, nonce string, _ time.Duration) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	if s.seen[nonce] {
		return false, nil
	}
	s.seen[nonce] = true
	return true, nil
}

var testClock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newAuthenticator(t *testing.T, cfg configloader.AuthConfig, store auth.NonceStore) *auth.Authenticator {
	t.Helper()
	a, err := auth.NewAuthenticator(cfg, store, log.NewStdLogger(io.Discard), auth.WithClock(func() time.Time { return testClock }))
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	return a
}

func signedRequest(secret, method, path string, body []byte, at time.Time, nonce string) auth.Request {
	ts := auth.FromTime(at)
	return auth.Request{
		Method:    method,
		Path:      path,
		Body:      body,
		Timestamp: ts,
		Signature: auth.Sign([]byte(secret), method, path, ts, body, nonce),
		Nonce:     nonce,
	}
}

func TestVerify_ValidSignature(t *testing.T) {
	a := newAuthenticator(t, configloader.AuthConfig{Secret: "s3cret"}, nil)

	req := signedRequest("s3cret", "POST", "/jobs", []byte(`{"uploadId":"upl_1"}`), testClock, "")
	if err := a.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
}

func TestVerify_GetIgnoresBody(t *testing.T) {
	a := newAuthenticator(t, configloader.AuthConfig{Secret: "s3cret"}, nil)

	// 签名按空体计算，校验时携带任意 body 也应通过
	req := signedRequest("s3cret", "GET", "/jobs/job_1", nil, testClock, "")
	req.Body = []byte("ignored")
	if err := a.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
}

func TestVerify_ExpiredTimestamp(t *testing.T) {
	a := newAuthenticator(t, configloader.AuthConfig{Secret: "s3cret"}, nil)

	req := signedRequest("s3cret", "POST", "/jobs", nil, testClock.Add(-6*time.Minute), "")
	err := a.Verify(context.Background(), req)
	if !errors.Is(err, auth.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestVerify_SkewWithinWindow(t *testing.T) {
	a := newAuthenticator(t, configloader.AuthConfig{Secret: "s3cret"}, nil)

	req := signedRequest("s3cret", "POST", "/jobs", nil, testClock.Add(4*time.Minute), "")
	if err := a.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected accept within skew window, got %v", err)
	}
}

func TestVerify_TamperedBody(t *testing.T) {
	a := newAuthenticator(t, configloader.AuthConfig{Secret: "s3cret"}, nil)

	req := signedRequest("s3cret", "POST", "/jobs", []byte(`{"a":1}`), testClock, "")
	req.Body = []byte(`{"a":2}`)
	if !errors.Is(a.Verify(context.Background(), req), auth.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed on tampered body")
	}
}

func TestVerify_WrongSecretIsGeneric(t *testing.T) {
	a := newAuthenticator(t, configloader.AuthConfig{Secret: "s3cret"}, nil)

	req := signedRequest("other", "POST", "/jobs", nil, testClock, "")
	err := a.Verify(context.Background(), req)
	if !errors.Is(err, auth.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	ke := kerrors.FromError(err)
	if ke.Reason != "AUTH_FAILED" || ke.Code != 401 {
		t.Fatalf("expected generic AUTH_FAILED 401, got %s %d", ke.Reason, ke.Code)
	}
}

func TestVerify_PreviousKeyRotation(t *testing.T) {
	cfg := configloader.AuthConfig{
		Secret:         "new-secret",
		KeyID:          "k2",
		PreviousSecret: "old-secret",
		PreviousKeyID:  "k1",
	}
	a := newAuthenticator(t, cfg, nil)

	// 显式指定旧 key id
	req := signedRequest("old-secret", "POST", "/jobs", nil, testClock, "")
	req.KeyID = "k1"
	if err := a.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected previous key accept, got %v", err)
	}

	// 未指定 key id 时依次尝试两把密钥
	req = signedRequest("old-secret", "POST", "/jobs", nil, testClock, "")
	if err := a.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected fallback to previous key, got %v", err)
	}

	// 未知 key id 直接拒绝
	req = signedRequest("new-secret", "POST", "/jobs", nil, testClock, "")
	req.KeyID = "k9"
	if !errors.Is(a.Verify(context.Background(), req), auth.ErrAuthFailed) {
		t.Fatalf("expected unknown key id rejection")
	}
}

func TestVerify_ReplayRejected(t *testing.T) {
	store := newStubNonceStore()
	cfg := configloader.AuthConfig{Secret: "s3cret", AntiReplayEnabled: true}
	a := newAuthenticator(t, cfg, store)

	req := signedRequest("s3cret", "POST", "/jobs", []byte(`{}`), testClock, "nonce-1")
	if err := a.Verify(context.Background(), req); err != nil {
		t.Fatalf("first use should pass: %v", err)
	}
	if !errors.Is(a.Verify(context.Background(), req), auth.ErrAuthFailed) {
		t.Fatalf("second use of same nonce should be rejected")
	}
}

func TestVerify_MissingNonceWhenReplayEnabled(t *testing.T) {
	cfg := configloader.AuthConfig{Secret: "s3cret", AntiReplayEnabled: true}
	a := newAuthenticator(t, cfg, newStubNonceStore())

	req := signedRequest("s3cret", "POST", "/jobs", nil, testClock, "")
	if !errors.Is(a.Verify(context.Background(), req), auth.ErrAuthFailed) {
		t.Fatalf("expected rejection without nonce")
	}
}

func TestVerify_NonceStoreFailOpen(t *testing.T) {
	store := newStubNonceStore()
	store.err = errors.New("redis down")
	cfg := configloader.AuthConfig{Secret: "s3cret", AntiReplayEnabled: true, ReplayFailOpen: true}
	a := newAuthenticator(t, cfg, store)

	req := signedRequest("s3cret", "POST", "/jobs", nil, testClock, "nonce-2")
	if err := a.Verify(context.Background(), req); err != nil {
		t.Fatalf("fail-open should accept on store error, got %v", err)
	}
}

func TestVerify_NonceStoreFailClosed(t *testing.T) {
	store := newStubNonceStore()
	store.err = errors.New("redis down")
	cfg := configloader.AuthConfig{Secret: "s3cret", AntiReplayEnabled: true, ReplayFailOpen: false}
	a := newAuthenticator(t, cfg, store)

	req := signedRequest("s3cret", "POST", "/jobs", nil, testClock, "nonce-3")
	err := a.Verify(context.Background(), req)
	if !errors.Is(err, auth.ErrNonceUnavailable) {
		t.Fatalf("fail-closed should return ErrNonceUnavailable, got %v", err)
	}
	ke := kerrors.FromError(err)
	if ke.Code != 503 {
		t.Fatalf("expected 503, got %d", ke.Code)
	}
}

func TestNewAuthenticator_RequiresStoreWhenReplayEnabled(t *testing.T) {
	cfg := configloader.AuthConfig{Secret: "s3cret", AntiReplayEnabled: true}
	_, err := auth.NewAuthenticator(cfg, nil, log.NewStdLogger(io.Discard))
	if err == nil {
		t.Fatalf("expected constructor error without nonce store")
	}
}

func TestCanonicalString_NonceAsFifthLine(t *testing.T) {
	got := auth.CanonicalString("post", "/jobs", "123", []byte("body"), "n1")
	want := "POST\n/jobs\n123\nbody\nn1"
	if got != want {
		t.Fatalf("canonical string mismatch:\n got %q\nwant %q", got, want)
	}

	got = auth.CanonicalString("GET", "/jobs/j1", "123", []byte("body"), "")
	want = "GET\n/jobs/j1\n123\n"
	if got != want {
		t.Fatalf("canonical string mismatch:\n got %q\nwant %q", got, want)
	}
}

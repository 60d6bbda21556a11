package clients_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bionicotaku/slidesmith/internal/auth"
	"github.com/bionicotaku/slidesmith/internal/clients"
	"github.com/bionicotaku/slidesmith/internal/models/po"
)

func TestWaitForJob_StopsOnTerminalStatus(t *testing.T) {
	secret := []byte("poller-secret")
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/jobs/job_1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		// 轮询请求必须携带完整签名头
		ts := r.Header.Get(auth.HeaderTimestamp)
		nonce := r.Header.Get(auth.HeaderNonce)
		want := auth.Sign(secret, r.Method, r.URL.Path, ts, nil, nonce)
		if r.Header.Get(auth.HeaderSignature) != want {
			t.Errorf("signature mismatch on poll %d", calls)
		}

		view := map[string]any{"status": "processing"}
		if calls >= 3 {
			view = map[string]any{
				"status": "done",
				"result": map[string]any{"resultJsonUrl": "https://signed.example/result.json"},
			}
		}
		_ = json.NewEncoder(w).Encode(view)
	}))
	defer srv.Close()

	poller := &clients.StatusPoller{
		BaseURL:  srv.URL,
		Secret:   secret,
		Interval: time.Millisecond,
	}
	view, err := poller.WaitForJob(context.Background(), "job_1")
	if err != nil {
		t.Fatalf("WaitForJob: %v", err)
	}
	if view.Status != po.JobStatusDone {
		t.Fatalf("expected done, got %s", view.Status)
	}
	if view.Result == nil || view.Result.ResultJSONURL == "" {
		t.Fatalf("missing result url: %+v", view)
	}
	if calls != 3 {
		t.Fatalf("expected 3 polls, got %d", calls)
	}
}

func TestWaitForJob_BudgetExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "queued"})
	}))
	defer srv.Close()

	poller := &clients.StatusPoller{
		BaseURL:  srv.URL,
		Secret:   []byte("s"),
		Interval: time.Millisecond,
		MaxPolls: 3,
	}
	_, err := poller.WaitForJob(context.Background(), "job_1")
	if !errors.Is(err, clients.ErrPollBudgetExhausted) {
		t.Fatalf("expected budget exhaustion, got %v", err)
	}
}

func TestWaitForJob_ErrorStatusIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "error",
			"error":  map[string]any{"code": "WORKER_ERROR", "message": "boom"},
		})
	}))
	defer srv.Close()

	poller := &clients.StatusPoller{BaseURL: srv.URL, Secret: []byte("s"), Interval: time.Millisecond}
	view, err := poller.WaitForJob(context.Background(), "job_1")
	if err != nil {
		t.Fatalf("WaitForJob: %v", err)
	}
	if view.Status != po.JobStatusError || view.Error == nil || view.Error.Code != "WORKER_ERROR" {
		t.Fatalf("unexpected view: %+v", view)
	}
}

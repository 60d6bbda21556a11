package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/bionicotaku/slidesmith/internal/auth"
	"github.com/bionicotaku/slidesmith/internal/models/po"
)

// JobView 为轮询到的任务状态快照，与 GET /jobs/{id} 的应答同构。
type JobView struct {
	Status  po.JobStatus   `json:"status"`
	Result  *JobResult     `json:"result,omitempty"`
	Error   *po.JobError   `json:"error,omitempty"`
	Metrics *po.JobMetrics `json:"metrics,omitempty"`
}

// JobResult 携带任务完成后的结果下载地址。
type JobResult struct {
	ResultJSONURL string `json:"resultJsonUrl"`
}

// StatusPoller 以签名请求轮询任务状态直至终态。供 Go 侧消费方
// 和端到端联调使用。
type StatusPoller struct {
	BaseURL string
	KeyID   string
	Secret  []byte

	// MaxPolls 为轮询预算上限，0 使用默认值。
	MaxPolls int
	// Interval 为首个轮询间隔，按指数抬升、封顶 10s。
	Interval time.Duration

	HTTP *http.Client
}

const (
	defaultMaxPolls = 60
	pollIntervalCap = 10 * time.Second
)

// ErrPollBudgetExhausted 表示预算内任务仍未到终态。
var ErrPollBudgetExhausted = fmt.Errorf("job did not reach a terminal status within the poll budget")

// WaitForJob 轮询 GET /jobs/{id}，返回首个终态快照。
func (p *StatusPoller) WaitForJob(ctx context.Context, jobID string) (*JobView, error) {
	maxPolls := p.MaxPolls
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}
	interval := p.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = interval
	policy.MaxInterval = pollIntervalCap
	policy.MaxElapsedTime = 0
	ticker := backoff.WithContext(policy, ctx)

	for i := 0; i < maxPolls; i++ {
		view, err := p.fetch(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if view.Status.Terminal() {
			return view, nil
		}

		wait := ticker.NextBackOff()
		if wait == backoff.Stop {
			return nil, ctx.Err()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, ErrPollBudgetExhausted
}

func (p *StatusPoller) fetch(ctx context.Context, jobID string) (*JobView, error) {
	path := "/jobs/" + jobID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	timestamp := auth.FromTime(time.Now())
	nonce := uuid.NewString()
	req.Header.Set(auth.HeaderTimestamp, timestamp)
	req.Header.Set(auth.HeaderNonce, nonce)
	req.Header.Set(auth.HeaderSignature, auth.Sign(p.Secret, http.MethodGet, path, timestamp, nil, nonce))
	if p.KeyID != "" {
		req.Header.Set(auth.HeaderKeyID, p.KeyID)
	}

	client := p.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var view JobView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &view, nil
}

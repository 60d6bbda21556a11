package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
	"github.com/bionicotaku/slidesmith/internal/models/po"
)

const (
	renderRetryInitial = 200 * time.Millisecond
	renderRetryCap     = 2 * time.Second
	renderMaxRetries   = 2
)

// RendererError 表示渲染服务返回的非 2xx 应答。响应体原样保留，
// 这一类错误不重试。
type RendererError struct {
	StatusCode int
	Body       string
}

func (e *RendererError) Error() string {
	return fmt.Sprintf("renderer responded %d: %s", e.StatusCode, e.Body)
}

type renderRequest struct {
	GCSPath  string `json:"gcsPath"`
	DPI      int    `json:"dpi"`
	MaxPages int    `json:"maxPages"`
	JobID    string `json:"jobId"`
}

type renderResponse struct {
	Pages []po.RenderedPage `json:"pages"`
}

// RendererClient 调用页面渲染服务，把 PDF 各页转为 GCS 上的图片对象。
// URL 未配置时客户端降级为直接返回空结果。
type RendererClient struct {
	cfg    configloader.RendererConfig
	limits configloader.LimitsConfig
	http   *http.Client
	log    *log.Helper
}

func NewRendererClient(cfg configloader.RendererConfig, limits configloader.LimitsConfig, logger log.Logger) *RendererClient {
	return &RendererClient{
		cfg:    cfg,
		limits: limits,
		http:   &http.Client{Timeout: cfg.Timeout.AsDuration()},
		log:    log.NewHelper(log.With(logger, "module", "clients/renderer")),
	}
}

// Configured 报告渲染服务是否可用。
func (c *RendererClient) Configured() bool { return c.cfg.URL != "" }

// RenderPages 请求渲染 gcsPath 指向的 PDF。仅传输层错误按
// 200ms 起步、2s 封顶的指数退避重试两次；服务端错误原样上抛。
func (c *RendererClient) RenderPages(ctx context.Context, jobID, gcsPath string) ([]po.RenderedPage, error) {
	if !c.Configured() {
		c.log.WithContext(ctx).Debug("renderer not configured, skipping page rendering")
		return nil, nil
	}

	body, err := json.Marshal(renderRequest{
		GCSPath:  gcsPath,
		DPI:      c.cfg.DPI,
		MaxPages: c.limits.MaxPages,
		JobID:    jobID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = renderRetryInitial
	policy.MaxInterval = renderRetryCap
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	var pages []po.RenderedPage
	operation := func() error {
		result, err := c.doRender(ctx, body)
		if err != nil {
			var rendererErr *RendererError
			if errors.As(err, &rendererErr) {
				return backoff.Permanent(err)
			}
			c.log.WithContext(ctx).Warnw("msg", "render request failed, retrying", "error", err)
			return err
		}
		pages = result
		return nil
	}

	retries := backoff.WithMaxRetries(backoff.WithContext(policy, ctx), renderMaxRetries)
	if err := backoff.Retry(operation, retries); err != nil {
		return nil, err
	}
	return pages, nil
}

func (c *RendererClient) doRender(ctx context.Context, body []byte) ([]po.RenderedPage, error) {
	url := strings.TrimRight(c.cfg.URL, "/") + "/render"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read render response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RendererError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var parsed renderResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &RendererError{StatusCode: resp.StatusCode, Body: "malformed render response: " + err.Error()}
	}
	return parsed.Pages, nil
}

package deckjobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/slidesmith/internal/generation"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/gcs"
	"github.com/bionicotaku/slidesmith/internal/models/po"
	"github.com/bionicotaku/slidesmith/internal/pdftext"
	"github.com/bionicotaku/slidesmith/internal/repositories"
	"github.com/bionicotaku/slidesmith/internal/services"
)

// errorCodeWorker 为 worker 侧未分类失败的统一错误码。
const errorCodeWorker = "WORKER_ERROR"

type jobRepository interface {
	MarkProcessing(ctx context.Context, jobID string) (*po.Job, error)
	MarkDone(ctx context.Context, jobID string, metrics *po.JobMetrics) (*po.Job, error)
	MarkFailed(ctx context.Context, jobID string, jobErr po.JobError, metrics *po.JobMetrics) (*po.Job, error)
}

type objectStore interface {
	Download(ctx context.Context, bucket, objectName string) ([]byte, error)
	Upload(ctx context.Context, bucket, objectName, contentType string, data []byte) error
}

type pageRenderer interface {
	Configured() bool
	RenderPages(ctx context.Context, jobID, gcsPath string) ([]po.RenderedPage, error)
}

type deckGenerator interface {
	Generate(ctx context.Context, in generation.Input) (*po.SlideDeck, generation.Usage, error)
}

type downloadSigner interface {
	SignedDownloadURL(ctx context.Context, bucket, objectName string, ttl time.Duration) (string, time.Time, error)
}

// Handler 执行单条任务消息的完整流水线。所有业务失败都在 Handle 内
// 收敛为任务记录上的终态错误，只有基础设施写失败才向上返回触发重投递。
type Handler struct {
	jobs      jobRepository
	store     objectStore
	renderer  pageRenderer
	generator deckGenerator
	signer    downloadSigner
	gcsCfg    configloader.GCSConfig
	limits    configloader.LimitsConfig
	log       *log.Helper
}

// NewHandler 构造任务处理器。
func NewHandler(
	jobs jobRepository,
	store objectStore,
	renderer pageRenderer,
	generator deckGenerator,
	signer downloadSigner,
	gcsCfg configloader.GCSConfig,
	limits configloader.LimitsConfig,
	logger log.Logger,
) *Handler {
	if logger == nil {
		logger = log.NewStdLogger(nil)
	}
	return &Handler{
		jobs:      jobs,
		store:     store,
		renderer:  renderer,
		generator: generator,
		signer:    signer,
		gcsCfg:    gcsCfg,
		limits:    limits,
		log:       log.NewHelper(logger),
	}
}

// Handle 处理一条任务启动消息。终态任务直接确认，保证重投递幂等。
func (h *Handler) Handle(ctx context.Context, msg *po.JobStartMessage) error {
	if msg == nil {
		return fmt.Errorf("deckjobs: nil message payload")
	}

	job, err := h.jobs.MarkProcessing(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobTerminal) {
			h.log.WithContext(ctx).Infof("deckjobs: skip redelivery for terminal job_id=%s", msg.JobID)
			return nil
		}
		if errors.Is(err, repositories.ErrJobNotFound) {
			h.log.WithContext(ctx).Warnf("deckjobs: start message for unknown job_id=%s", msg.JobID)
			return nil
		}
		return fmt.Errorf("deckjobs: mark processing: %w", err)
	}

	metrics := &po.JobMetrics{DurationsMs: map[string]int64{}}
	start := time.Now()
	procErr := h.process(ctx, msg, job, metrics)
	metrics.DurationsMs["total"] = time.Since(start).Milliseconds()

	if procErr != nil {
		jobErr := classifyError(procErr)
		h.log.WithContext(ctx).Errorf("deckjobs: job failed job_id=%s code=%s: %v", msg.JobID, jobErr.Code, procErr)
		if _, markErr := h.jobs.MarkFailed(ctx, msg.JobID, jobErr, metrics); markErr != nil {
			if errors.Is(markErr, repositories.ErrJobTerminal) {
				return nil
			}
			return fmt.Errorf("deckjobs: mark failed: %w", markErr)
		}
		return nil
	}

	if _, err := h.jobs.MarkDone(ctx, msg.JobID, metrics); err != nil {
		if errors.Is(err, repositories.ErrJobTerminal) {
			return nil
		}
		return fmt.Errorf("deckjobs: mark done: %w", err)
	}
	h.log.WithContext(ctx).Infof("deckjobs: job done job_id=%s attempts=%d duration_ms=%d",
		msg.JobID, job.Attempts, metrics.DurationsMs["total"])
	return nil
}

// process 跑完下载、抽取、渲染、生成、写结果五步。
// 下载失败走空文本兜底，渲染失败退化为纯文本；生成与写结果的失败上抛，
// 由 Handle 收敛为任务错误。
func (h *Handler) process(ctx context.Context, msg *po.JobStartMessage, job *po.Job, metrics *po.JobMetrics) error {
	pages := h.extractPages(ctx, msg, metrics)
	images := h.renderPages(ctx, msg, metrics)

	input := generation.Input{
		Pages:     pages,
		Images:    images,
		MaxSlides: job.Options.MaxSlides,
	}
	if job.Options.Language != nil {
		input.Language = *job.Options.Language
	}

	stepStart := time.Now()
	deck, usage, err := h.generator.Generate(ctx, input)
	metrics.DurationsMs["generate"] = time.Since(stepStart).Milliseconds()
	if usage.PromptTokens > 0 || usage.CompletionTokens > 0 {
		prompt, completion := usage.PromptTokens, usage.CompletionTokens
		metrics.PromptTokens = &prompt
		metrics.CompletionTokens = &completion
	}
	if err != nil {
		return err
	}

	stepStart = time.Now()
	body, err := json.Marshal(deck)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	resultPath := services.ResultObjectPath(msg.JobID)
	if err := h.store.Upload(ctx, h.gcsCfg.JobsBucket, resultPath, "application/json", body); err != nil {
		return fmt.Errorf("upload result: %w", err)
	}
	metrics.DurationsMs["upload"] = time.Since(stepStart).Milliseconds()
	return nil
}

// extractPages 下载源对象并逐页抽取文本。下载或解析失败时退化为
// 空文本切分，保证纯图片 PDF 也能继续走生成。
func (h *Handler) extractPages(ctx context.Context, msg *po.JobStartMessage, metrics *po.JobMetrics) []po.PageText {
	stepStart := time.Now()
	defer func() {
		metrics.DurationsMs["extract"] = time.Since(stepStart).Milliseconds()
	}()

	bucket, objectName, err := gcs.ParseURI(msg.GCSPath)
	if err != nil {
		h.log.WithContext(ctx).Warnf("deckjobs: bad source uri job_id=%s: %v", msg.JobID, err)
		return pdftext.Chunk("")
	}
	data, err := h.store.Download(ctx, bucket, objectName)
	if err != nil {
		h.log.WithContext(ctx).Warnf("deckjobs: source download failed job_id=%s: %v", msg.JobID, err)
		return pdftext.Chunk("")
	}
	return pdftext.Pages(data, h.limits.MaxPages)
}

// renderPages 调用渲染服务并为每页图片签发只读地址。渲染或签名失败
// 都退化为纯文本结果，不让截图缺失拖垮任务。
func (h *Handler) renderPages(ctx context.Context, msg *po.JobStartMessage, metrics *po.JobMetrics) []po.RenderedPage {
	if h.renderer == nil || !h.renderer.Configured() {
		return nil
	}

	stepStart := time.Now()
	defer func() {
		metrics.DurationsMs["render"] = time.Since(stepStart).Milliseconds()
	}()

	pages, err := h.renderer.RenderPages(ctx, msg.JobID, msg.GCSPath)
	if err != nil {
		h.log.WithContext(ctx).Warnf("deckjobs: page rendering failed job_id=%s, continuing text-only: %v", msg.JobID, err)
		return nil
	}

	ttl := h.gcsCfg.SignedURLTTL.AsDuration()
	signed := make([]po.RenderedPage, 0, len(pages))
	for _, page := range pages {
		if page.ObjectPath == "" {
			continue
		}
		url, _, err := h.signer.SignedDownloadURL(ctx, h.gcsCfg.JobsBucket, page.ObjectPath, ttl)
		if err != nil {
			h.log.WithContext(ctx).Warnf("deckjobs: signing rendered page %d failed job_id=%s, continuing text-only: %v", page.Index, msg.JobID, err)
			return nil
		}
		page.URL = url
		signed = append(signed, page)
	}
	return signed
}

// classifyError 将流水线错误映射为任务记录上的错误码。
func classifyError(err error) po.JobError {
	if errors.Is(err, generation.ErrSchemaInvalid) {
		return po.JobError{Code: generation.ReasonSchemaInvalid, Message: err.Error()}
	}
	return po.JobError{Code: errorCodeWorker, Message: err.Error()}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/pubsub"
	"github.com/bionicotaku/slidesmith/internal/models/po"
	"github.com/bionicotaku/slidesmith/internal/repositories"
)

// 任务相关错误 reason。
const (
	ReasonNotFound      = "NOT_FOUND"
	ReasonJobStoreWrite = "JOBSTORE_WRITE"
	ReasonPublishFailed = "PUBLISH_FAILED"
)

const maxSlidesCeiling = 200

// JobRepositoryContract 抽象任务记录的持久化操作，便于测试。
type JobRepositoryContract interface {
	Create(ctx context.Context, input repositories.CreateJobInput) (*po.Job, error)
	GetByID(ctx context.Context, jobID string) (*po.Job, error)
}

// ResultURLIssuer 为已完成任务签发结果读句柄的能力。
type ResultURLIssuer interface {
	IssueResultDownloadURL(ctx context.Context, jobID string) (string, error)
	SourceURI(uploadID string) string
}

// CreateJobInput 为提交任务的输入。
type CreateJobInput struct {
	UploadID string
	PDFName  string
	Options  po.JobOptions
}

// JobStatus 为状态查询的投影。
type JobStatus struct {
	Status    po.JobStatus
	ResultURL string
	Error     *po.JobError
	Metrics   *po.JobMetrics
}

// JobService 实现任务提交与状态查询。
type JobService struct {
	repo      JobRepositoryContract
	publisher pubsub.Publisher
	staging   ResultURLIssuer
	now       func() time.Time
	log       *log.Helper
}

// NewJobService 创建 JobService。
func NewJobService(repo JobRepositoryContract, publisher pubsub.Publisher, staging ResultURLIssuer, logger log.Logger) (*JobService, error) {
	switch {
	case repo == nil:
		return nil, errors.New("job service: repository is required")
	case publisher == nil:
		return nil, errors.New("job service: publisher is required")
	case staging == nil:
		return nil, errors.New("job service: staging service is required")
	}
	return &JobService{
		repo:      repo,
		publisher: publisher,
		staging:   staging,
		now:       time.Now,
		log:       log.NewHelper(logger),
	}, nil
}

// CreateJob 写入 queued 任务记录并投递启动消息。
// 写库成功但投递失败时，任务停留在 queued 且无投递保证，该失败必须
// 作为硬错误（PUBLISH_FAILED）上抛给调用方，不允许伪装成功。
func (s *JobService) CreateJob(ctx context.Context, input CreateJobInput) (string, error) {
	if err := s.validateInput(&input); err != nil {
		return "", err
	}

	jobID := newOpaqueID("job", s.now())
	gcsPath := s.staging.SourceURI(input.UploadID)

	if _, err := s.repo.Create(ctx, repositories.CreateJobInput{
		JobID:    jobID,
		UploadID: input.UploadID,
		PDFName:  input.PDFName,
		GCSPath:  gcsPath,
		Options:  input.Options,
	}); err != nil {
		return "", kerrors.InternalServer(ReasonJobStoreWrite, "failed to persist job").WithCause(err)
	}

	payload, err := json.Marshal(po.JobStartMessage{
		JobID:    jobID,
		UploadID: input.UploadID,
		GCSPath:  gcsPath,
		Options:  input.Options,
	})
	if err != nil {
		return "", kerrors.InternalServer(ReasonPublishFailed, "failed to encode start message").WithCause(err)
	}

	if _, err := s.publisher.Publish(ctx, pubsub.Message{Data: payload}); err != nil {
		s.log.WithContext(ctx).Errorf("publish start message failed: job_id=%s err=%v", jobID, err)
		return "", kerrors.InternalServer(ReasonPublishFailed, "failed to enqueue job").WithCause(err)
	}

	s.log.WithContext(ctx).Infof("job created: job_id=%s upload_id=%s", jobID, input.UploadID)
	return jobID, nil
}

// GetJobStatus 返回任务当前投影；done 时附带新签发的结果读句柄。
// 读句柄签发失败以 GCS_SIGN 上抛，不会把任务本身标记为失败。
func (s *JobService) GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, kerrors.BadRequest(ReasonBadRequest, "jobId is required")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return nil, kerrors.NotFound(ReasonNotFound, "job not found")
		}
		return nil, kerrors.InternalServer(ReasonJobStoreWrite, "failed to load job").WithCause(err)
	}

	status := &JobStatus{
		Status:  job.Status,
		Error:   job.Error,
		Metrics: job.Metrics,
	}
	if job.Status == po.JobStatusDone {
		url, err := s.staging.IssueResultDownloadURL(ctx, jobID)
		if err != nil {
			return nil, err
		}
		status.ResultURL = url
	}
	return status, nil
}

func (s *JobService) validateInput(input *CreateJobInput) error {
	if strings.TrimSpace(input.UploadID) == "" {
		return kerrors.BadRequest(ReasonBadRequest, "uploadId is required")
	}
	if strings.TrimSpace(input.PDFName) == "" {
		return kerrors.BadRequest(ReasonBadRequest, "pdfName is required")
	}
	if input.Options.MaxSlides != nil {
		if *input.Options.MaxSlides <= 0 || *input.Options.MaxSlides > maxSlidesCeiling {
			return kerrors.BadRequest(ReasonBadRequest, "options.maxSlides must be within 1-200")
		}
	}
	if input.Options.Theme != nil {
		switch po.DeckTheme(*input.Options.Theme) {
		case po.DeckThemeDefault, po.DeckThemeLight, po.DeckThemeDark:
		default:
			return kerrors.BadRequest(ReasonBadRequest, "options.theme must be one of DEFAULT, LIGHT, DARK")
		}
	}
	return nil
}

// Package repositories 封装持久化访问逻辑，向服务层暴露强类型操作。
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/slidesmith/internal/models/po"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrJobNotFound 表示任务记录不存在。
var ErrJobNotFound = errors.New("job not found")

// ErrJobTerminal 表示任务已处于终态，拒绝再次推进。
var ErrJobTerminal = errors.New("job already in terminal state")

// JobRepository 封装 jobs 表的访问逻辑。
type JobRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewJobRepository 构造 JobRepository。
func NewJobRepository(db *pgxpool.Pool, logger log.Logger) *JobRepository {
	return &JobRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// CreateJobInput 描述创建任务记录所需的字段。
type CreateJobInput struct {
	JobID    string
	UploadID string
	PDFName  string
	GCSPath  string
	Options  po.JobOptions
}

// Create 插入一条 queued 状态的任务记录。
func (r *JobRepository) Create(ctx context.Context, input CreateJobInput) (*po.Job, error) {
	options, err := json.Marshal(input.Options)
	if err != nil {
		return nil, fmt.Errorf("marshal job options: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO jobs (job_id, status, upload_id, pdf_name, gcs_path, options, created_at, updated_at, attempts)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now(), 0)
		RETURNING job_id, status, upload_id, pdf_name, gcs_path, options, created_at, updated_at, attempts, error, metrics`,
		input.JobID, po.JobStatusQueued, input.UploadID, input.PDFName, input.GCSPath, options,
	)
	job, err := scanJob(row)
	if err != nil {
		r.log.WithContext(ctx).Errorf("insert job failed: job_id=%s err=%v", input.JobID, err)
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetByID 查询指定任务。不存在时返回 ErrJobNotFound。
func (r *JobRepository) GetByID(ctx context.Context, jobID string) (*po.Job, error) {
	row := r.db.QueryRow(ctx, `
		SELECT job_id, status, upload_id, pdf_name, gcs_path, options, created_at, updated_at, attempts, error, metrics
		FROM jobs WHERE job_id = $1`,
		jobID,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// MarkProcessing 将任务推进为 processing 并累加 attempts。
// 仅允许从 queued/processing 推进；任务已终态时返回 ErrJobTerminal，
// 从而保证同一消息重投不会改写 done/error 的结局。
func (r *JobRepository) MarkProcessing(ctx context.Context, jobID string) (*po.Job, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE jobs
		SET status = $2, attempts = attempts + 1, updated_at = now()
		WHERE job_id = $1 AND status IN ($3, $2)
		RETURNING job_id, status, upload_id, pdf_name, gcs_path, options, created_at, updated_at, attempts, error, metrics`,
		jobID, po.JobStatusProcessing, po.JobStatusQueued,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyMissing(ctx, jobID)
		}
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	return job, nil
}

// MarkDone 将 processing 任务推进为 done，并写入运行指标。
func (r *JobRepository) MarkDone(ctx context.Context, jobID string, metrics *po.JobMetrics) (*po.Job, error) {
	return r.finish(ctx, jobID, po.JobStatusDone, nil, metrics)
}

// MarkFailed 将 processing 任务推进为 error，并写入错误与指标。
func (r *JobRepository) MarkFailed(ctx context.Context, jobID string, jobErr po.JobError, metrics *po.JobMetrics) (*po.Job, error) {
	return r.finish(ctx, jobID, po.JobStatusError, &jobErr, metrics)
}

func (r *JobRepository) finish(ctx context.Context, jobID string, status po.JobStatus, jobErr *po.JobError, metrics *po.JobMetrics) (*po.Job, error) {
	errJSON, err := marshalNullable(jobErr)
	if err != nil {
		return nil, fmt.Errorf("marshal job error: %w", err)
	}
	metricsJSON, err := marshalNullable(metrics)
	if err != nil {
		return nil, fmt.Errorf("marshal job metrics: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE jobs
		SET status = $2, error = $3, metrics = $4, updated_at = now()
		WHERE job_id = $1 AND status = $5
		RETURNING job_id, status, upload_id, pdf_name, gcs_path, options, created_at, updated_at, attempts, error, metrics`,
		jobID, status, errJSON, metricsJSON, po.JobStatusProcessing,
	)
	job, scanErr := scanJob(row)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, r.classifyMissing(ctx, jobID)
		}
		return nil, fmt.Errorf("finish job: %w", scanErr)
	}
	return job, nil
}

// classifyMissing 区分「记录不存在」与「已终态被守卫拒绝」。
func (r *JobRepository) classifyMissing(ctx context.Context, jobID string) error {
	current, err := r.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return fmt.Errorf("%w: job_id=%s status=%s", ErrJobTerminal, jobID, current.Status)
	}
	return fmt.Errorf("job %s in unexpected status %s", jobID, current.Status)
}

type jobRow interface {
	Scan(dest ...any) error
}

func scanJob(row jobRow) (*po.Job, error) {
	var (
		job         po.Job
		options     []byte
		errJSON     []byte
		metricsJSON []byte
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(
		&job.JobID, &job.Status, &job.UploadID, &job.PDFName, &job.GCSPath,
		&options, &createdAt, &updatedAt, &job.Attempts, &errJSON, &metricsJSON,
	); err != nil {
		return nil, err
	}
	job.CreatedAt = createdAt.UTC()
	job.UpdatedAt = updatedAt.UTC()
	if len(options) > 0 {
		if err := json.Unmarshal(options, &job.Options); err != nil {
			return nil, fmt.Errorf("unmarshal job options: %w", err)
		}
	}
	if len(errJSON) > 0 {
		job.Error = &po.JobError{}
		if err := json.Unmarshal(errJSON, job.Error); err != nil {
			return nil, fmt.Errorf("unmarshal job error: %w", err)
		}
	}
	if len(metricsJSON) > 0 {
		job.Metrics = &po.JobMetrics{}
		if err := json.Unmarshal(metricsJSON, job.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal job metrics: %w", err)
		}
	}
	return &job, nil
}

func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Package po 定义面向持久化的数据对象（Persistent Objects），由 Repository 层使用。
// PO 对象映射数据库表结构，不直接暴露给上层业务逻辑。
package po

import (
	"time"
)

// JobStatus 表示转换任务的生命周期状态
type JobStatus string

// 任务状态常量定义
const (
	JobStatusQueued     JobStatus = "queued"     // 记录已创建，等待 worker 领取
	JobStatusProcessing JobStatus = "processing" // worker 处理中
	JobStatusDone       JobStatus = "done"       // 结果对象已写入（终态）
	JobStatusError      JobStatus = "error"      // 处理失败，error 字段已填充（终态）
	JobStatusCancelled  JobStatus = "cancelled"  // 运维介入取消（终态，本服务不主动写入）
)

// Terminal 判断状态是否为终态。终态任务不允许被再次处理。
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusDone, JobStatusError, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// JobOptions 为调用方提交任务时的可选参数。
type JobOptions struct {
	MaxSlides *int    `json:"maxSlides,omitempty"`
	Language  *string `json:"language,omitempty"`
	Theme     *string `json:"theme,omitempty"`
}

// JobError 记录 worker 侧捕获的终态错误。
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JobMetrics 记录一次成功/失败运行的耗时与 token 用量。
type JobMetrics struct {
	PromptTokens     *int             `json:"promptTokens,omitempty"`
	CompletionTokens *int             `json:"completionTokens,omitempty"`
	DurationsMs      map[string]int64 `json:"durationsMs,omitempty"`
}

// JobStartMessage 为投递到任务队列的启动消息。
type JobStartMessage struct {
	JobID    string     `json:"jobId"`
	UploadID string     `json:"uploadId"`
	GCSPath  string     `json:"gcsPath"`
	Options  JobOptions `json:"options"`
}

// Job 表示 jobs 表的数据库实体，跟踪一次 PDF→幻灯片转换请求。
type Job struct {
	JobID     string      `db:"job_id"`     // 主键（job_<random><unixms>）
	Status    JobStatus   `db:"status"`     // 生命周期状态
	UploadID  string      `db:"upload_id"`  // 关联的上传句柄 ID
	PDFName   string      `db:"pdf_name"`   // 调用方提供的展示名
	GCSPath   string      `db:"gcs_path"`   // 源对象 gs:// 路径
	Options   JobOptions  `db:"options"`    // 提交时的可选参数（jsonb）
	CreatedAt time.Time   `db:"created_at"` // 记录创建时间
	UpdatedAt time.Time   `db:"updated_at"` // 最近更新时间
	Attempts  int32       `db:"attempts"`   // worker 领取次数（重投递可见）
	Error     *JobError   `db:"error"`      // 终态错误（jsonb，可空）
	Metrics   *JobMetrics `db:"metrics"`    // 运行指标（jsonb，可空）
}

package dto

import (
	"time"

	"github.com/bionicotaku/slidesmith/internal/models/po"
	"github.com/bionicotaku/slidesmith/internal/services"
)

// SignedUploadResponse 为上传握手应答。
type SignedUploadResponse struct {
	UploadID  string            `json:"uploadId"`
	UploadURL string            `json:"uploadUrl"`
	Headers   map[string]string `json:"headers"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Limits    UploadLimits      `json:"limits"`
}

// UploadLimits 回显服务端接受的上限，供客户端预检。
type UploadLimits struct {
	MaxBytes int64 `json:"maxBytes"`
	MaxPages int   `json:"maxPages"`
}

// CreateJobResponse 为建任务应答。
type CreateJobResponse struct {
	JobID string `json:"jobId"`
}

// JobStatusResponse 为任务状态应答。
type JobStatusResponse struct {
	Status  po.JobStatus   `json:"status"`
	Result  *JobResult     `json:"result,omitempty"`
	Error   *po.JobError   `json:"error,omitempty"`
	Metrics *po.JobMetrics `json:"metrics,omitempty"`
}

// JobResult 携带结果对象的签名下载地址。
type JobResult struct {
	ResultJSONURL string `json:"resultJsonUrl"`
}

// HealthResponse 为存活探针应答。
type HealthResponse struct {
	OK bool `json:"ok"`
}

// FromUploadHandle 转换服务层上传句柄为应答体。
func FromUploadHandle(handle *services.UploadHandle) SignedUploadResponse {
	return SignedUploadResponse{
		UploadID:  handle.UploadID,
		UploadURL: handle.UploadURL,
		Headers:   handle.Headers,
		ExpiresAt: handle.ExpiresAt.UTC(),
		Limits: UploadLimits{
			MaxBytes: handle.MaxBytes,
			MaxPages: handle.MaxPages,
		},
	}
}

// FromJobStatus 转换服务层状态视图为应答体。
func FromJobStatus(status *services.JobStatus) JobStatusResponse {
	resp := JobStatusResponse{
		Status:  status.Status,
		Error:   status.Error,
		Metrics: status.Metrics,
	}
	if status.ResultURL != "" {
		resp.Result = &JobResult{ResultJSONURL: status.ResultURL}
	}
	return resp
}

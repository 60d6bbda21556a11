package controllers

import (
	"strings"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"

	"github.com/bionicotaku/slidesmith/internal/controllers/dto"
	"github.com/bionicotaku/slidesmith/internal/services"
)

// JobHandler 处理任务创建与状态查询请求。
type JobHandler struct {
	*BaseHandler
	svc *services.JobService
}

// NewJobHandler 构造 JobHandler。
func NewJobHandler(base *BaseHandler, svc *services.JobService) *JobHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &JobHandler{BaseHandler: base, svc: svc}
}

// CreateJob 处理 POST /jobs。
func (h *JobHandler) CreateJob(ctx khttp.Context) error {
	if h.svc == nil {
		return kerrors.InternalServer(services.ReasonJobStoreWrite, "job service not available")
	}
	var req dto.CreateJobRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest(services.ReasonBadRequest, "invalid request body")
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeCommand)
	defer cancel()

	jobID, err := h.svc.CreateJob(timeoutCtx, dto.ToCreateJobInput(req))
	if err != nil {
		return err
	}
	return ctx.Result(200, dto.CreateJobResponse{JobID: jobID})
}

// GetJob 处理 GET /jobs/{jobId}。
func (h *JobHandler) GetJob(ctx khttp.Context) error {
	if h.svc == nil {
		return kerrors.InternalServer(services.ReasonJobStoreWrite, "job service not available")
	}
	jobID := strings.TrimSpace(ctx.Vars().Get("jobId"))
	if jobID == "" {
		return kerrors.BadRequest(services.ReasonBadRequest, "jobId is required")
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeQuery)
	defer cancel()

	status, err := h.svc.GetJobStatus(timeoutCtx, jobID)
	if err != nil {
		return err
	}
	return ctx.Result(200, dto.FromJobStatus(status))
}

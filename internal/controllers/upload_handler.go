// Package controllers 将 HTTP 请求映射到服务层调用。
package controllers

import (
	kerrors "github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"

	"github.com/bionicotaku/slidesmith/internal/controllers/dto"
	"github.com/bionicotaku/slidesmith/internal/services"
)

// UploadHandler 处理上传握手请求。
type UploadHandler struct {
	*BaseHandler
	svc *services.UploadService
}

// NewUploadHandler 构造 UploadHandler。
func NewUploadHandler(base *BaseHandler, svc *services.UploadService) *UploadHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &UploadHandler{BaseHandler: base, svc: svc}
}

// IssueSignedURL 处理 POST /uploads/signed-url。
func (h *UploadHandler) IssueSignedURL(ctx khttp.Context) error {
	if h.svc == nil {
		return kerrors.InternalServer(services.ReasonGCSSign, "upload service not available")
	}
	var req dto.SignedUploadRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest(services.ReasonBadRequest, "invalid request body")
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeCommand)
	defer cancel()

	handle, err := h.svc.IssueUploadHandle(timeoutCtx, dto.ToIssueUploadHandleInput(req))
	if err != nil {
		return err
	}
	return ctx.Result(200, dto.FromUploadHandle(handle))
}

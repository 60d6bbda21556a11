// Package services 实现业务用例层：上传句柄签发与任务生命周期。
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
)

// 鉴权之外的请求级错误 reason。
const (
	ReasonBadRequest  = "BAD_REQUEST"
	ReasonPDFTooLarge = "PDF_TOO_LARGE"
	ReasonGCSSign     = "GCS_SIGN"
)

const pdfContentType = "application/pdf"

var sha256HexRe = regexp.MustCompile(`^[a-f0-9]{64}$`)

// UploadSigner 定义生成签名 URL 的能力。
type UploadSigner interface {
	SignedUploadURL(ctx context.Context, bucket, objectName, contentType string, ttl time.Duration) (string, time.Time, error)
	SignedDownloadURL(ctx context.Context, bucket, objectName string, ttl time.Duration) (string, time.Time, error)
}

// IssueUploadHandleInput 为签发上传句柄的输入。
type IssueUploadHandleInput struct {
	FileName      string
	ContentType   string
	ContentLength int64
	ContentSHA256 string
}

// UploadHandle 为签发结果：一次性、限时、单对象写入能力。
type UploadHandle struct {
	UploadID   string
	ObjectPath string
	UploadURL  string
	Headers    map[string]string
	ExpiresAt  time.Time
	MaxBytes   int64
	MaxPages   int
}

// UploadService 实现对象暂存：上传句柄与结果下载句柄的签发。
type UploadService struct {
	signer        UploadSigner
	uploadsBucket string
	jobsBucket    string
	ttl           time.Duration
	maxBytes      int64
	maxPages      int
	now           func() time.Time
	log           *log.Helper
}

// NewUploadService 创建 UploadService。
func NewUploadService(signer UploadSigner, gcsCfg configloader.GCSConfig, limits configloader.LimitsConfig, logger log.Logger) (*UploadService, error) {
	switch {
	case signer == nil:
		return nil, errors.New("upload service: signer is required")
	case gcsCfg.UploadsBucket == "":
		return nil, errors.New("upload service: uploads bucket is required")
	case gcsCfg.JobsBucket == "":
		return nil, errors.New("upload service: jobs bucket is required")
	case gcsCfg.SignedURLTTL.AsDuration() <= 0:
		return nil, errors.New("upload service: signed url ttl must be positive")
	}
	return &UploadService{
		signer:        signer,
		uploadsBucket: gcsCfg.UploadsBucket,
		jobsBucket:    gcsCfg.JobsBucket,
		ttl:           gcsCfg.SignedURLTTL.AsDuration(),
		maxBytes:      limits.MaxPDFBytes,
		maxPages:      limits.MaxPages,
		now:           time.Now,
		log:           log.NewHelper(logger),
	}, nil
}

// IssueUploadHandle 校验输入并签发限时写句柄。
// 句柄只授予 uploads/{uploadId}/source.pdf 这一个对象的写入能力。
func (s *UploadService) IssueUploadHandle(ctx context.Context, input IssueUploadHandleInput) (*UploadHandle, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	if input.ContentLength > s.maxBytes {
		return nil, kerrors.BadRequest(ReasonPDFTooLarge, "file exceeds max size")
	}

	uploadID := newOpaqueID("upl", s.now())
	objectPath := SourceObjectPath(uploadID)

	signedURL, expiresAt, err := s.signer.SignedUploadURL(ctx, s.uploadsBucket, objectPath, pdfContentType, s.ttl)
	if err != nil {
		s.log.WithContext(ctx).Errorf("sign upload url failed: upload_id=%s err=%v", uploadID, err)
		return nil, kerrors.InternalServer(ReasonGCSSign, "failed to issue upload url").WithCause(err)
	}

	return &UploadHandle{
		UploadID:   uploadID,
		ObjectPath: objectPath,
		UploadURL:  signedURL,
		Headers: map[string]string{
			"Content-Type":          pdfContentType,
			"x-goog-content-sha256": "UNSIGNED-PAYLOAD",
		},
		ExpiresAt: expiresAt.UTC(),
		MaxBytes:  s.maxBytes,
		MaxPages:  s.maxPages,
	}, nil
}

// IssueResultDownloadURL 为已完成任务的结果对象签发限时读句柄。
func (s *UploadService) IssueResultDownloadURL(ctx context.Context, jobID string) (string, error) {
	signedURL, _, err := s.signer.SignedDownloadURL(ctx, s.jobsBucket, ResultObjectPath(jobID), s.ttl)
	if err != nil {
		s.log.WithContext(ctx).Errorf("sign result url failed: job_id=%s err=%v", jobID, err)
		return "", kerrors.InternalServer(ReasonGCSSign, "failed to issue result url").WithCause(err)
	}
	return signedURL, nil
}

// SourceURI 返回上传对象的 gs:// 路径。
func (s *UploadService) SourceURI(uploadID string) string {
	return fmt.Sprintf("gs://%s/%s", s.uploadsBucket, SourceObjectPath(uploadID))
}

func (s *UploadService) validateInput(input IssueUploadHandleInput) error {
	if strings.TrimSpace(input.FileName) == "" {
		return kerrors.BadRequest(ReasonBadRequest, "fileName is required")
	}
	if input.ContentType != pdfContentType {
		return kerrors.BadRequest(ReasonBadRequest, fmt.Sprintf("unsupported contentType: %s", input.ContentType))
	}
	if input.ContentLength <= 0 {
		return kerrors.BadRequest(ReasonBadRequest, "contentLength must be positive")
	}
	if !sha256HexRe.MatchString(input.ContentSHA256) {
		return kerrors.BadRequest(ReasonBadRequest, "contentSha256 must be 64 lowercase hex characters")
	}
	return nil
}

// SourceObjectPath 返回上传对象在 uploads bucket 内的路径。
func SourceObjectPath(uploadID string) string {
	return fmt.Sprintf("uploads/%s/source.pdf", uploadID)
}

// ResultObjectPath 返回结果对象在 jobs bucket 内的路径。
func ResultObjectPath(jobID string) string {
	return fmt.Sprintf("results/%s/result.json", jobID)
}

// newOpaqueID 生成 <prefix>_<random><unixms> 形式的不透明标识。
func newOpaqueID(prefix string, now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s%d", prefix, random, now.UnixMilli())
}

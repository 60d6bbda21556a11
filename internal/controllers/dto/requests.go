// Package dto 定义 HTTP 层的请求/应答结构及其与服务层输入输出的映射。
package dto

import (
	"github.com/bionicotaku/slidesmith/internal/models/po"
	"github.com/bionicotaku/slidesmith/internal/services"
)

// SignedUploadRequest 为 POST /uploads/signed-url 请求体。
type SignedUploadRequest struct {
	FileName      string `json:"fileName"`
	ContentType   string `json:"contentType"`
	ContentLength int64  `json:"contentLength"`
	ContentSHA256 string `json:"contentSha256"`
}

// CreateJobRequest 为 POST /jobs 请求体。
type CreateJobRequest struct {
	UploadID string      `json:"uploadId"`
	PDFName  string      `json:"pdfName"`
	Options  *JobOptions `json:"options,omitempty"`
}

// JobOptions 为任务生成选项。
type JobOptions struct {
	MaxSlides *int    `json:"maxSlides,omitempty"`
	Language  string  `json:"language,omitempty"`
	Theme     *string `json:"theme,omitempty"`
}

// ToIssueUploadHandleInput 转换上传握手请求为服务层输入。
func ToIssueUploadHandleInput(req SignedUploadRequest) services.IssueUploadHandleInput {
	return services.IssueUploadHandleInput{
		FileName:      req.FileName,
		ContentType:   req.ContentType,
		ContentLength: req.ContentLength,
		ContentSHA256: req.ContentSHA256,
	}
}

// ToCreateJobInput 转换建任务请求为服务层输入。
func ToCreateJobInput(req CreateJobRequest) services.CreateJobInput {
	input := services.CreateJobInput{
		UploadID: req.UploadID,
		PDFName:  req.PDFName,
	}
	if req.Options != nil {
		input.Options = po.JobOptions{
			MaxSlides: req.Options.MaxSlides,
			Theme:     req.Options.Theme,
		}
		if req.Options.Language != "" {
			lang := req.Options.Language
			input.Options.Language = &lang
		}
	}
	return input
}

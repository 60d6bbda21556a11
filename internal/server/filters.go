// Package server 组装 HTTP 服务：过滤器链、错误编码与路由注册。
package server

import (
	"bytes"
	"encoding/json"
	"io"
	stdhttp "net/http"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/slidesmith/internal/auth"
	"github.com/bionicotaku/slidesmith/internal/metadata"
)

// HeaderRequestID 为请求链路标识头，入站透传、出站回显。
const HeaderRequestID = "X-Request-Id"

// publicPaths 内的路径跳过签名校验。
var publicPaths = map[string]bool{
	"/health":        true,
	"/public/health": true,
}

// RequestIDFilter 归一化并注入 request id，同时回写到应答头。
func RequestIDFilter() func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			requestID := metadata.EnsureRequestID(r.Header.Get(HeaderRequestID))
			r.Header.Set(HeaderRequestID, requestID)
			w.Header().Set(HeaderRequestID, requestID)

			next.ServeHTTP(w, r.WithContext(metadata.InjectRequestID(r.Context(), requestID)))
		})
	}
}

// AuthFilter 在路由前读取原始请求体并执行签名与防重放校验。
// 校验基于收到的原始字节，读取后的 Body 原样回填供后续绑定使用。
func AuthFilter(authn *auth.Authenticator, logger log.Logger) func(stdhttp.Handler) stdhttp.Handler {
	helper := log.NewHelper(log.With(logger, "module", "server/auth"))
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			var body []byte
			if r.Body != nil {
				var err error
				body, err = io.ReadAll(r.Body)
				if err != nil {
					helper.WithContext(r.Context()).Warnw("msg", "failed to read request body", "error", err)
					writeErrorEnvelope(w, r, auth.ErrAuthFailed)
					return
				}
				_ = r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			err := authn.Verify(r.Context(), auth.Request{
				Method:    r.Method,
				Path:      r.URL.Path,
				Body:      body,
				Timestamp: r.Header.Get(auth.HeaderTimestamp),
				Signature: r.Header.Get(auth.HeaderSignature),
				KeyID:     r.Header.Get(auth.HeaderKeyID),
				Nonce:     r.Header.Get(auth.HeaderNonce),
			})
			if err != nil {
				writeErrorEnvelope(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"requestId,omitempty"`
}

// ErrorEncoder 将错误渲染为统一的信封结构。
func ErrorEncoder(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	writeErrorEnvelope(w, r, err)
}

func writeErrorEnvelope(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	ke := kerrors.FromError(err)
	if ke == nil {
		ke = kerrors.InternalServer("INTERNAL", "internal error")
	}
	if ke.Reason == "" {
		// 未携带 reason 的内部错误统一归口，避免泄露实现细节。
		ke = kerrors.New(int(ke.Code), "INTERNAL", "internal error")
	}

	requestID := metadata.RequestIDFromContext(r.Context())
	if requestID == "" {
		requestID = r.Header.Get(HeaderRequestID)
	}

	envelope := errorEnvelope{
		Error: errorBody{
			Code:    ke.Reason,
			Message: ke.Message,
			Details: ke.Metadata,
		},
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(int(ke.Code))
	_ = json.NewEncoder(w).Encode(envelope)
}

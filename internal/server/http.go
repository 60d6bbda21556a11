package server

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"

	"github.com/bionicotaku/slidesmith/internal/auth"
	"github.com/bionicotaku/slidesmith/internal/controllers"
	"github.com/bionicotaku/slidesmith/internal/controllers/dto"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
)

// NewHTTPServer 构造 HTTP 服务并注册全部路由。
// 过滤器在路由之前执行：先注入 request id，再做签名校验，
// 保证鉴权失败的应答也带有链路标识。
func NewHTTPServer(
	cfg configloader.ServerConfig,
	authn *auth.Authenticator,
	uploads *controllers.UploadHandler,
	jobs *controllers.JobHandler,
	logger log.Logger,
) *khttp.Server {
	opts := []khttp.ServerOption{
		khttp.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
		khttp.Filter(
			RequestIDFilter(),
			AuthFilter(authn, logger),
		),
		khttp.ErrorEncoder(ErrorEncoder),
	}
	if cfg.HTTP.Addr != "" {
		opts = append(opts, khttp.Address(cfg.HTTP.Addr))
	}
	if timeout := cfg.HTTP.Timeout.AsDuration(); timeout > 0 {
		opts = append(opts, khttp.Timeout(timeout))
	}

	srv := khttp.NewServer(opts...)

	route := srv.Route("/")
	route.POST("/uploads/signed-url", uploads.IssueSignedURL)
	route.POST("/jobs", jobs.CreateJob)
	route.GET("/jobs/{jobId}", jobs.GetJob)
	route.GET("/health", healthHandler)
	route.GET("/public/health", healthHandler)

	return srv
}

func healthHandler(ctx khttp.Context) error {
	return ctx.Result(200, dto.HealthResponse{OK: true})
}

package configloader

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

const (
	defaultConfPath    = "./configs"
	defaultServiceName = "slidesmith"
)

// ServerConfig 为 HTTP 服务端配置。
type ServerConfig struct {
	HTTP HTTPConfig `json:"http"`
}

// HTTPConfig 为监听地址与请求超时。
type HTTPConfig struct {
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// PostgresConfig 为连接池配置。
type PostgresConfig struct {
	DSN             string   `json:"dsn"`
	MaxConns        int32    `json:"max_conns"`
	MinConns        int32    `json:"min_conns"`
	MaxConnLifetime Duration `json:"max_conn_lifetime"`
	MaxConnIdleTime Duration `json:"max_conn_idle_time"`
}

// RedisConfig 为防重放 nonce 存储的连接配置。
type RedisConfig struct {
	Addr string `json:"addr"`
	DB   int    `json:"db"`
}

// DataConfig 聚合数据层配置。
type DataConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
}

// GCSConfig 为对象存储与签名 URL 配置。
type GCSConfig struct {
	UploadsBucket  string   `json:"uploads_bucket"`
	JobsBucket     string   `json:"jobs_bucket"`
	SignerAccessID string   `json:"signer_access_id"`
	SignedURLTTL   Duration `json:"signed_url_ttl"`
}

// QueueConfig 为任务队列（Pub/Sub）配置。
type QueueConfig struct {
	ProjectID    string `json:"project_id"`
	Topic        string `json:"topic"`
	Subscription string `json:"subscription"`
}

// LimitsConfig 为上传体量限制。
type LimitsConfig struct {
	MaxPDFBytes int64 `json:"max_pdf_bytes"`
	MaxPages    int   `json:"max_pages"`
}

// AuthConfig 为 HMAC 鉴权与防重放配置。Secret 只从环境变量注入。
type AuthConfig struct {
	Secret            string   `json:"-"`
	PreviousSecret    string   `json:"-"`
	KeyID             string   `json:"key_id"`
	PreviousKeyID     string   `json:"previous_key_id"`
	AntiReplayEnabled bool     `json:"anti_replay_enabled"`
	ReplayTTL         Duration `json:"replay_ttl"`
	ReplayFailOpen    bool     `json:"replay_fail_open"`
}

// RendererConfig 为页面渲染服务客户端配置。URL 为空表示未配置（可降级）。
type RendererConfig struct {
	URL     string   `json:"url"`
	DPI     int      `json:"dpi"`
	Timeout Duration `json:"timeout"`
}

// GenerationConfig 为结构化生成服务配置。APIKey 只从环境变量注入。
type GenerationConfig struct {
	APIKey    string `json:"-"`
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Disabled  bool   `json:"disabled"`
}

// Bootstrap 为全量启动配置。
type Bootstrap struct {
	Server     ServerConfig     `json:"server"`
	Data       DataConfig       `json:"data"`
	GCS        GCSConfig        `json:"gcs"`
	Queue      QueueConfig      `json:"queue"`
	Limits     LimitsConfig     `json:"limits"`
	Auth       AuthConfig       `json:"auth"`
	Renderer   RendererConfig   `json:"renderer"`
	Generation GenerationConfig `json:"generation"`
}

// DefaultBootstrap 返回填充默认值的 Bootstrap。
func DefaultBootstrap() *Bootstrap {
	return &Bootstrap{
		Server: ServerConfig{HTTP: HTTPConfig{
			Addr:    "0.0.0.0:8080",
			Timeout: Duration(30 * time.Second),
		}},
		Data: DataConfig{Postgres: PostgresConfig{
			MaxConns: 10,
			MinConns: 1,
		}},
		GCS: GCSConfig{
			SignedURLTTL: Duration(2 * time.Hour),
		},
		Queue: QueueConfig{
			Topic:        "deck-jobs",
			Subscription: "deck-jobs-worker",
		},
		Limits: LimitsConfig{
			MaxPDFBytes: 31457280,
			MaxPages:    150,
		},
		Auth: AuthConfig{
			KeyID:             "current",
			PreviousKeyID:     "previous",
			AntiReplayEnabled: true,
			ReplayTTL:         Duration(300 * time.Second),
			ReplayFailOpen:    true,
		},
		Renderer: RendererConfig{
			DPI:     180,
			Timeout: Duration(30 * time.Second),
		},
		Generation: GenerationConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 6000,
		},
	}
}

// applyDefaults 回填扫描后仍为零值的字段。
func applyDefaults(bc *Bootstrap) {
	if bc == nil {
		return
	}
	def := DefaultBootstrap()
	if bc.Server.HTTP.Addr == "" {
		bc.Server.HTTP.Addr = def.Server.HTTP.Addr
	}
	if bc.Server.HTTP.Timeout <= 0 {
		bc.Server.HTTP.Timeout = def.Server.HTTP.Timeout
	}
	if bc.Data.Postgres.MaxConns <= 0 {
		bc.Data.Postgres.MaxConns = def.Data.Postgres.MaxConns
	}
	if bc.GCS.SignedURLTTL <= 0 {
		bc.GCS.SignedURLTTL = def.GCS.SignedURLTTL
	}
	if bc.Queue.Topic == "" {
		bc.Queue.Topic = def.Queue.Topic
	}
	if bc.Queue.Subscription == "" {
		bc.Queue.Subscription = def.Queue.Subscription
	}
	if bc.Limits.MaxPDFBytes <= 0 {
		bc.Limits.MaxPDFBytes = def.Limits.MaxPDFBytes
	}
	if bc.Limits.MaxPages <= 0 {
		bc.Limits.MaxPages = def.Limits.MaxPages
	}
	if bc.Auth.KeyID == "" {
		bc.Auth.KeyID = def.Auth.KeyID
	}
	if bc.Auth.PreviousKeyID == "" {
		bc.Auth.PreviousKeyID = def.Auth.PreviousKeyID
	}
	if bc.Auth.ReplayTTL <= 0 {
		bc.Auth.ReplayTTL = def.Auth.ReplayTTL
	}
	if bc.Renderer.DPI <= 0 {
		bc.Renderer.DPI = def.Renderer.DPI
	}
	if bc.Renderer.Timeout <= 0 {
		bc.Renderer.Timeout = def.Renderer.Timeout
	}
	if bc.Generation.Model == "" {
		bc.Generation.Model = def.Generation.Model
	}
	if bc.Generation.MaxTokens <= 0 {
		bc.Generation.MaxTokens = def.Generation.MaxTokens
	}
}

var bucketNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,220}[a-z0-9]$`)

// Validate 执行快速失败校验：必填项缺失立即报错，避免带病启动。
func (bc *Bootstrap) Validate() error {
	if bc == nil {
		return errors.New("bootstrap is nil")
	}
	if bc.GCS.UploadsBucket == "" {
		return errors.New("gcs.uploads_bucket is required")
	}
	if bc.GCS.JobsBucket == "" {
		return errors.New("gcs.jobs_bucket is required")
	}
	for _, b := range []string{bc.GCS.UploadsBucket, bc.GCS.JobsBucket} {
		if !bucketNameRe.MatchString(b) {
			return fmt.Errorf("invalid bucket name %q", b)
		}
	}
	if bc.Queue.ProjectID == "" {
		return errors.New("queue.project_id is required")
	}
	if bc.Auth.Secret == "" {
		return errors.New("auth secret is required (set AUTH_SHARED_SECRET)")
	}
	if bc.Auth.AntiReplayEnabled && bc.Data.Redis.Addr == "" {
		return errors.New("data.redis.addr is required when anti-replay is enabled")
	}
	return nil
}

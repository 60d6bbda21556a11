// Package configloader 在进程启动时构建一份不可变的配置 Bundle：
// godotenv → Kratos file config → 环境变量覆盖 → 快速失败校验。
package configloader

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/joho/godotenv"
)

const (
	envConfPath       = "CONF_PATH"
	envServiceName    = "SERVICE_NAME"
	envServiceVersion = "SERVICE_VERSION"
	envAppEnv         = "APP_ENV"
	envPort           = "PORT"
	envDatabaseURL    = "DATABASE_URL"
	envRedisAddr      = "REDIS_ADDR"
	envAuthSecret     = "AUTH_SHARED_SECRET"
	envAuthPrevSecret = "AUTH_SHARED_SECRET_PREVIOUS"
	envOpenAIKey      = "OPENAI_API_KEY"
	envRendererURL    = "RENDERER_URL"
	envGCPProject     = "GOOGLE_CLOUD_PROJECT"
)

var envFileNames = []string{".env.local", ".env"}

// Params 包含构造配置 Bundle 所需的运行时输入参数。
type Params struct {
	ConfPath string // 配置文件路径（可为空，使用默认值）
}

// ServiceMetadata 保存服务标识信息，供日志组件使用。
type ServiceMetadata struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
}

// Bundle 聚合强类型的配置片段，供下游 Wire 注入使用。
type Bundle struct {
	Bootstrap *Bootstrap
	Service   ServiceMetadata
}

// BuildError 捕获配置构建过程中的上下文错误信息。
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

// Error 实现 error 接口，提供包含上下文的错误信息。
func (e BuildError) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("config %s at %q: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

// Unwrap 暴露底层错误，支持 errors.Is/As 链式查询。
func (e BuildError) Unwrap() error {
	return e.Err
}

// Build 从 bootstrap 配置文件构建 Bundle。
//
// 流程：
// 1. 解析配置路径（应用回退规则）并加载 .env 文件
// 2. 加载 YAML 配置并扫描到 Bootstrap 结构体
// 3. 应用环境变量覆盖（DATABASE_URL、PORT、secrets 等）
// 4. 填充缺省值并执行快速失败校验
func Build(params Params) (*Bundle, error) {
	confPath := ResolveConfPath(params.ConfPath)
	loadEnvFiles(confPath)

	bc := DefaultBootstrap()
	c := config.New(config.WithSource(file.NewSource(confPath)))
	if err := c.Load(); err != nil {
		return nil, BuildError{Stage: "load", Path: confPath, Err: err}
	}
	defer c.Close()

	if err := c.Scan(bc); err != nil {
		return nil, BuildError{Stage: "scan", Path: confPath, Err: err}
	}
	applyEnvOverrides(bc)
	applyDefaults(bc)

	if err := bc.Validate(); err != nil {
		return nil, BuildError{Stage: "validate", Path: confPath, Err: err}
	}

	return &Bundle{
		Bootstrap: bc,
		Service:   buildServiceMetadata(),
	}, nil
}

// ResolveConfPath 应用回退规则确定要加载的配置目录/文件路径。
// 优先级：显式传入路径 > CONF_PATH 环境变量 > 默认路径。
func ResolveConfPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(envConfPath); env != "" {
		return env
	}
	return defaultConfPath
}

// loadEnvFiles 加载配置目录旁的 .env 文件（存在才加载，不覆盖已有环境变量）。
func loadEnvFiles(confPath string) {
	dir := confPath
	if info, err := os.Stat(confPath); err != nil || !info.IsDir() {
		dir = filepath.Dir(confPath)
	}
	for _, name := range envFileNames {
		path := filepath.Join(dir, "..", name)
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
	for _, name := range envFileNames {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// applyEnvOverrides 应用环境变量覆盖配置文件中的特定字段。
// 敏感信息（数据库 DSN、共享密钥、API key）只从环境变量读取。
func applyEnvOverrides(bc *Bootstrap) {
	if bc == nil {
		return
	}
	if dsn := os.Getenv(envDatabaseURL); dsn != "" {
		bc.Data.Postgres.DSN = dsn
	}
	if addr := os.Getenv(envRedisAddr); addr != "" {
		bc.Data.Redis.Addr = addr
	}
	if port := os.Getenv(envPort); port != "" {
		bc.Server.HTTP.Addr = replacePort(bc.Server.HTTP.Addr, port)
	}
	if secret := os.Getenv(envAuthSecret); secret != "" {
		bc.Auth.Secret = secret
	}
	if prev := os.Getenv(envAuthPrevSecret); prev != "" {
		bc.Auth.PreviousSecret = prev
	}
	if key := os.Getenv(envOpenAIKey); key != "" {
		bc.Generation.APIKey = key
	}
	if url := os.Getenv(envRendererURL); url != "" {
		bc.Renderer.URL = url
	}
	if project := os.Getenv(envGCPProject); project != "" {
		bc.Queue.ProjectID = project
	}
}

// buildServiceMetadata 构建服务元信息，来源优先级：环境变量 > 默认值。
func buildServiceMetadata() ServiceMetadata {
	name := os.Getenv(envServiceName)
	if name == "" {
		name = defaultServiceName
	}
	version := os.Getenv(envServiceVersion)
	if version == "" {
		version = "dev"
	}
	env := os.Getenv(envAppEnv)
	if env == "" {
		env = "development"
	}
	host, _ := os.Hostname()
	return ServiceMetadata{Name: name, Version: version, Environment: env, InstanceID: host}
}

// replacePort 替换 host:port 形式地址的端口部分，保留 host。
func replacePort(addr, port string) string {
	if addr == "" {
		return net.JoinHostPort("0.0.0.0", port)
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, port)
	}
	return net.JoinHostPort(host, port)
}

// Duration 是支持 YAML 字符串（"30s"）或纯数字（秒）反序列化的时长类型。
// Kratos config 的 Scan 底层走 encoding/json，因此实现 json.Unmarshaler。
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler。
func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return err
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// AsDuration 返回标准库时长。
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

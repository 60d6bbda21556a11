// Package logger 构建带 trace/span 关联字段的 Kratos Logger。
// 输出为 Cloud Logging 兼容的单行 JSON（severity/message/labels）。
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"
)

// Config captures runtime metadata used to annotate logs.
type Config struct {
	Service string
	Version string
	HostID  string
	Env     string
}

// NewLogger builds a Kratos-compatible logger with trace/span enrichment.
func NewLogger(cfg Config) (log.Logger, error) {
	base := &jsonLogger{
		w: os.Stdout,
		labels: map[string]string{
			"service.name":    cfg.Service,
			"service.version": cfg.Version,
			"service.id":      cfg.HostID,
			"environment":     cfg.Env,
		},
	}
	return log.With(
		base,
		"trace_id", log.Valuer(func(ctx context.Context) interface{} {
			sc := trace.SpanContextFromContext(ctx)
			if sc.HasTraceID() {
				return sc.TraceID().String()
			}
			return ""
		}),
		"span_id", log.Valuer(func(ctx context.Context) interface{} {
			sc := trace.SpanContextFromContext(ctx)
			if sc.HasSpanID() {
				return sc.SpanID().String()
			}
			return ""
		}),
	), nil
}

// DefaultConfig builds Config from environment defaults.
func DefaultConfig(service, version string) Config {
	if service == "" {
		service = "slidesmith"
	}
	if version == "" {
		version = "dev"
	}
	host, _ := os.Hostname()
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	return Config{Service: service, Version: version, HostID: host, Env: env}
}

// jsonLogger 将键值对编码为 Cloud Logging 风格的 JSON 行。
type jsonLogger struct {
	mu     sync.Mutex
	w      io.Writer
	labels map[string]string
}

var severities = map[log.Level]string{
	log.LevelDebug: "DEBUG",
	log.LevelInfo:  "INFO",
	log.LevelWarn:  "WARNING",
	log.LevelError: "ERROR",
	log.LevelFatal: "CRITICAL",
}

// Log 实现 log.Logger。
func (l *jsonLogger) Log(level log.Level, keyvals ...interface{}) error {
	entry := map[string]interface{}{
		"severity": severities[level],
		"time":     time.Now().UTC().Format(time.RFC3339Nano),
		"labels":   l.labels,
	}
	for i := 0; i+1 < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		value := keyvals[i+1]
		if key == "msg" {
			key = "message"
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		entry[key] = value
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(data, '\n'))
	return err
}

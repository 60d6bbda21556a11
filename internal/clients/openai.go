// Package clients 封装对外部服务的调用：对话补全、页面渲染服务，
// 以及面向消费方的任务状态轮询。
package clients

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/bionicotaku/slidesmith/internal/generation"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
)

// NewChatCompleter 按配置构造对话补全客户端。
// 生成被禁用时返回 nil，Generator 在该模式下不会发起调用。
func NewChatCompleter(cfg configloader.GenerationConfig) generation.ChatCompleter {
	if cfg.Disabled {
		return nil
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

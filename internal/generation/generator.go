package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
	"github.com/bionicotaku/slidesmith/internal/models/po"
)

// ReasonSchemaInvalid 标记两轮生成后仍无法通过 schema 校验的终态失败。
const ReasonSchemaInvalid = "GENERATION_SCHEMA_INVALID"

// ErrSchemaInvalid 表示修复重试后输出仍不合法，任务不应再投递重试。
var ErrSchemaInvalid = errors.New("generation output failed schema validation after repair")

// ChatCompleter 抽象对话补全调用，便于测试替换。*openai.Client 天然满足。
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Input 为一次生成任务的全部素材。
type Input struct {
	Pages     []po.PageText
	Images    []po.RenderedPage
	MaxSlides *int
	Language  string
}

// Usage 记录生成调用的 token 消耗，汇总入任务指标。
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Generator 负责两阶段生成协议：首轮强约束 schema 输出，
// 失败后一次修复重试，仍失败则返回 ErrSchemaInvalid。
type Generator struct {
	client ChatCompleter
	cfg    configloader.GenerationConfig
	log    *log.Helper
}

func NewGenerator(client ChatCompleter, cfg configloader.GenerationConfig, logger log.Logger) *Generator {
	return &Generator{
		client: client,
		cfg:    cfg,
		log:    log.NewHelper(log.With(logger, "module", "generation")),
	}
}

// Generate 产出一份已归一化的幻灯片：页数对齐、主题固定、截图确定性挂载。
func (g *Generator) Generate(ctx context.Context, in Input) (*po.SlideDeck, Usage, error) {
	target := TargetSlideCount(len(in.Pages), len(in.Images), in.MaxSlides)

	if g.cfg.Disabled {
		g.log.WithContext(ctx).Info("generation disabled, building stub deck")
		return Normalize(stubDeck(in), target, in.Images), Usage{}, nil
	}

	payload := buildPayload(in, target)
	messages, err := buildMessages(payload, in.Images)
	if err != nil {
		return nil, Usage{}, err
	}

	var usage Usage
	raw, err := g.complete(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		Temperature: 0.1,
		MaxTokens:   g.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "slide_deck",
				Schema: json.RawMessage(deckSchemaJSON),
				Strict: true,
			},
		},
	}, &usage)
	if err != nil {
		// 首轮调用失败同样进入修复轮，上一轮输出按空对象处理。
		g.log.WithContext(ctx).Warnw("msg", "first generation attempt failed, repairing", "error", err)
		raw = "{}"
	} else {
		deck, parseErr := parseDeck(raw)
		if parseErr == nil {
			return Normalize(deck, target, in.Images), usage, nil
		}
		g.log.WithContext(ctx).Warnw("msg", "first generation attempt invalid, repairing", "error", parseErr)
	}

	// go-openai 将零值温度视为未设置并从请求中省略，
	// 用最小正数才能真正下发 0 温度。
	repaired, err := g.complete(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    buildRepairMessages(raw),
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   g.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}, &usage)
	if err != nil {
		return nil, usage, fmt.Errorf("generation repair request: %w", err)
	}

	deck, parseErr := parseDeck(repaired)
	if parseErr != nil {
		g.log.WithContext(ctx).Errorw("msg", "repair attempt still invalid", "error", parseErr)
		return nil, usage, ErrSchemaInvalid
	}
	return Normalize(deck, target, in.Images), usage, nil
}

func (g *Generator) complete(ctx context.Context, req openai.ChatCompletionRequest, usage *Usage) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	usage.PromptTokens += resp.Usage.PromptTokens
	usage.CompletionTokens += resp.Usage.CompletionTokens
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// stubDeck 在生成服务关闭时用页面文本拼一份确定性的兜底结果，
// 保证本地联调无需外部凭据。
func stubDeck(in Input) *po.SlideDeck {
	deck := &po.SlideDeck{Title: "Generated Deck", Theme: po.DeckThemeDefault}
	for _, page := range in.Pages {
		lines := strings.Split(strings.TrimSpace(page.Text), "\n")
		title := strings.TrimSpace(lines[0])
		if len(title) > 80 {
			title = title[:80]
		}
		if title == "" {
			title = fmt.Sprintf("Page %d", page.Index+1)
		}
		var bullets []string
		for _, line := range lines[1:] {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if len(line) > 160 {
				line = line[:160]
			}
			bullets = append(bullets, line)
			if len(bullets) == 5 {
				break
			}
		}
		deck.Slides = append(deck.Slides, po.Slide{Title: title, Bullets: bullets})
	}
	if len(deck.Slides) == 0 {
		deck.Slides = []po.Slide{{Title: "Page 1"}}
	}
	return deck
}

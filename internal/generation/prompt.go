package generation

import (
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bionicotaku/slidesmith/internal/models/po"
)

const systemPrompt = "You are a presentation designer. Convert the supplied PDF content " +
	"into a slide deck. Respond with a single JSON object matching the provided schema. " +
	"Write concise slide titles, 3-6 short bullets per slide, and optional speaker notes. " +
	"Only reference images from the allowed list, and never invent image URLs."

// lowTextThreshold 以下的总字符量视为图文型 PDF，提示生成方更多依赖页面截图。
const lowTextThreshold = 500

// promptPayload 为随用户消息下发的结构化输入。
type promptPayload struct {
	TargetSlideCount int             `json:"targetSlideCount"`
	Language         string          `json:"language,omitempty"`
	Pages            []pageIn        `json:"pages"`
	AllowedImageURLs []string        `json:"allowedImageUrls,omitempty"`
	MinImagesPerPage int             `json:"minImagesPerSlide,omitempty"`
	LowTextDocument  bool            `json:"lowTextDocument,omitempty"`
	Schema           json.RawMessage `json:"schema"`
}

type pageIn struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

func buildPayload(in Input, target int) promptPayload {
	pages := make([]pageIn, 0, len(in.Pages))
	totalChars := 0
	for _, p := range in.Pages {
		// 内部页索引从 0 起，提示里按人类习惯的页码下发。
		pages = append(pages, pageIn{Index: p.Index + 1, Text: p.Text})
		totalChars += len(p.Text)
	}

	urls := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}

	payload := promptPayload{
		TargetSlideCount: target,
		Language:         in.Language,
		Pages:            pages,
		AllowedImageURLs: urls,
		Schema:           json.RawMessage(deckSchemaJSON),
	}
	if len(urls) > 0 {
		payload.MinImagesPerPage = 1
	}
	if totalChars < lowTextThreshold {
		payload.LowTextDocument = true
		if len(urls) > 0 {
			payload.MinImagesPerPage = 3
		}
	}
	return payload
}

// buildMessages 组装生成请求的消息序列。页面截图作为图片附件
// 随用户消息一并下发，让生成方能读取扫描件内容。
func buildMessages(payload promptPayload, images []po.RenderedPage) ([]openai.ChatCompletionMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal prompt payload: %w", err)
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: string(body)},
	}
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    img.URL,
				Detail: openai.ImageURLDetailLow,
			},
		})
	}

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, MultiContent: parts},
	}, nil
}

// buildRepairMessages 组装修复请求：携带上一轮的非法输出与目标 schema，
// 要求生成方只修正结构而不重写内容。
func buildRepairMessages(previous string) []openai.ChatCompletionMessage {
	instruction := fmt.Sprintf(
		"The previous response did not conform to the required JSON schema. "+
			"Fix it so it validates, preserving the content as much as possible. "+
			"Respond with the corrected JSON object only.\n\nSchema:\n%s\n\nPrevious response:\n%s",
		deckSchemaJSON, previous)
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: instruction},
	}
}

package generation_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/bionicotaku/slidesmith/internal/generation"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
	"github.com/bionicotaku/slidesmith/internal/models/po"
)

type stubCompleter struct {
	responses []string
	err       error
	firstErr  error
	requests  []openai.ChatCompletionRequest
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.firstErr != nil && len(s.requests) == 1 {
		return openai.ChatCompletionResponse{}, s.firstErr
	}
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.responses[idx]}},
		},
		Usage: openai.Usage{PromptTokens: 100, CompletionTokens: 50},
	}, nil
}

func newGenerator(t *testing.T, client generation.ChatCompleter) *generation.Generator {
	t.Helper()
	cfg := configloader.GenerationConfig{Model: "gpt-4o-mini", MaxTokens: 6000}
	return generation.NewGenerator(client, cfg, log.NewStdLogger(io.Discard))
}

func pages(n int) []po.PageText {
	out := make([]po.PageText, n)
	for i := range out {
		out[i] = po.PageText{Index: i, Text: fmt.Sprintf("page %d content", i+1)}
	}
	return out
}

func renderedPages(n int) []po.RenderedPage {
	out := make([]po.RenderedPage, n)
	for i := range out {
		out[i] = po.RenderedPage{
			Index:      i + 1,
			ObjectPath: fmt.Sprintf("renders/job_1/page-%d.png", i+1),
			URL:        fmt.Sprintf("https://signed.example/page-%d.png", i+1),
		}
	}
	return out
}

const validDeck = `{"title":"Quarterly Review","theme":"LIGHT","slides":[` +
	`{"title":"Intro","bullets":["a","b"]},` +
	`{"title":"Numbers","notes":"speak slowly"},` +
	`{"title":"Outlook"}]}`

func TestTargetSlideCount(t *testing.T) {
	two, ten := 2, 10
	cases := []struct {
		name              string
		pageCount, images int
		maxSlides         *int
		want              int
	}{
		{"pages only", 5, 0, nil, 5},
		{"images exceed pages", 3, 7, nil, 7},
		{"pages exceed images", 7, 3, nil, 7},
		{"user cap shrinks", 5, 5, &two, 2},
		{"user cap never grows", 5, 0, &ten, 5},
		{"floor of one", 0, 0, nil, 1},
	}
	for _, tc := range cases {
		if got := generation.TargetSlideCount(tc.pageCount, tc.images, tc.maxSlides); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, got, tc.want)
		}
	}
}

func TestNormalize_TruncateAndPad(t *testing.T) {
	deck := &po.SlideDeck{
		Title: "Deck",
		Theme: po.DeckThemeDark,
		Slides: []po.Slide{
			{Title: "One"}, {Title: "Two"}, {Title: "Three"},
		},
	}

	truncated := generation.Normalize(deck, 2, nil)
	if len(truncated.Slides) != 2 {
		t.Fatalf("expected 2 slides, got %d", len(truncated.Slides))
	}
	if truncated.Theme != po.DeckThemeDefault {
		t.Fatalf("theme must be pinned to DEFAULT, got %s", truncated.Theme)
	}

	padded := generation.Normalize(deck, 5, nil)
	if len(padded.Slides) != 5 {
		t.Fatalf("expected 5 slides, got %d", len(padded.Slides))
	}
	if padded.Slides[3].Title != "Page 4" || padded.Slides[4].Title != "Page 5" {
		t.Fatalf("placeholder titles wrong: %q %q", padded.Slides[3].Title, padded.Slides[4].Title)
	}
}

func TestNormalize_DeterministicImageAttachment(t *testing.T) {
	deck := &po.SlideDeck{
		Title: "Deck",
		Theme: po.DeckThemeDefault,
		Slides: []po.Slide{
			// 生成方声明的图片引用会被丢弃，包括白名单之外的 URL
			{Title: "One", Images: []po.SlideImage{{URL: "https://attacker.example/x.png"}}},
			{Title: "Two"},
		},
	}
	images := []po.RenderedPage{
		{Index: 2, URL: "https://signed.example/page-2.png"},
		{Index: 1, URL: "https://signed.example/page-1.png"},
	}

	out := generation.Normalize(deck, 2, images)
	for i, slide := range out.Slides {
		if len(slide.Images) != 1 {
			t.Fatalf("slide %d: expected exactly one image, got %d", i, len(slide.Images))
		}
		want := fmt.Sprintf("https://signed.example/page-%d.png", i+1)
		if slide.Images[0].URL != want {
			t.Fatalf("slide %d: expected %s, got %s", i, want, slide.Images[0].URL)
		}
		if slide.Images[0].Placement != po.ImagePlacementRight {
			t.Fatalf("slide %d: expected RIGHT placement, got %s", i, slide.Images[0].Placement)
		}
	}
}

func TestNormalize_MoreImagesThanSlides(t *testing.T) {
	deck := &po.SlideDeck{Title: "Deck", Slides: []po.Slide{{Title: "One"}}}
	out := generation.Normalize(deck, 1, renderedPages(3))
	if len(out.Slides) != 1 || len(out.Slides[0].Images) != 1 {
		t.Fatalf("extra images must be dropped: %+v", out.Slides)
	}
}

func TestGenerate_FirstAttemptValid(t *testing.T) {
	client := &stubCompleter{responses: []string{validDeck}}
	gen := newGenerator(t, client)

	deck, usage, err := gen.Generate(context.Background(), generation.Input{Pages: pages(3)})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(client.requests) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(client.requests))
	}
	if len(deck.Slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(deck.Slides))
	}
	if deck.Theme != po.DeckThemeDefault {
		t.Fatalf("theme must be DEFAULT, got %s", deck.Theme)
	}
	if usage.PromptTokens != 100 || usage.CompletionTokens != 50 {
		t.Fatalf("usage not captured: %+v", usage)
	}

	format := client.requests[0].ResponseFormat
	if format == nil || format.Type != openai.ChatCompletionResponseFormatTypeJSONSchema {
		t.Fatalf("first attempt must use strict json_schema output")
	}
	if format.JSONSchema == nil || !format.JSONSchema.Strict {
		t.Fatalf("first attempt schema must be strict")
	}
}

func TestGenerate_RepairPath(t *testing.T) {
	client := &stubCompleter{responses: []string{`{"broken":`, validDeck}}
	gen := newGenerator(t, client)

	deck, usage, err := gen.Generate(context.Background(), generation.Input{Pages: pages(3)})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(client.requests) != 2 {
		t.Fatalf("expected repair attempt, got %d requests", len(client.requests))
	}
	if len(deck.Slides) != 3 {
		t.Fatalf("expected 3 slides after repair, got %d", len(deck.Slides))
	}
	// token 用量跨两次调用累加
	if usage.PromptTokens != 200 || usage.CompletionTokens != 100 {
		t.Fatalf("usage must accumulate over attempts: %+v", usage)
	}

	repair := client.requests[1]
	if repair.ResponseFormat == nil || repair.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("repair attempt must use json_object output")
	}
}

func TestGenerate_BothAttemptsInvalid(t *testing.T) {
	client := &stubCompleter{responses: []string{`not json`, `{"still":"wrong"}`}}
	gen := newGenerator(t, client)

	_, _, err := gen.Generate(context.Background(), generation.Input{Pages: pages(1)})
	if !errors.Is(err, generation.ErrSchemaInvalid) {
		t.Fatalf("expected ErrSchemaInvalid, got %v", err)
	}
}

func TestGenerate_SchemaRejectsExtraProperties(t *testing.T) {
	deckWithExtra := `{"title":"T","theme":"DEFAULT","surprise":true,"slides":[{"title":"S"}]}`
	client := &stubCompleter{responses: []string{deckWithExtra, deckWithExtra}}
	gen := newGenerator(t, client)

	_, _, err := gen.Generate(context.Background(), generation.Input{Pages: pages(1)})
	if !errors.Is(err, generation.ErrSchemaInvalid) {
		t.Fatalf("additional properties must be rejected, got %v", err)
	}
}

func TestGenerate_ImageWhitelistEnforced(t *testing.T) {
	poisoned := `{"title":"T","theme":"DEFAULT","slides":[` +
		`{"title":"S1","images":[{"url":"https://attacker.example/evil.png"}]},` +
		`{"title":"S2"}]}`
	client := &stubCompleter{responses: []string{poisoned}}
	gen := newGenerator(t, client)

	images := renderedPages(2)
	deck, _, err := gen.Generate(context.Background(), generation.Input{Pages: pages(2), Images: images})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i, slide := range deck.Slides {
		for _, img := range slide.Images {
			if img.URL != images[i].URL {
				t.Fatalf("slide %d references non-whitelisted url %s", i, img.URL)
			}
		}
	}
}

func TestGenerate_MaxSlidesDeterminism(t *testing.T) {
	two := 2
	client := &stubCompleter{responses: []string{validDeck}}
	gen := newGenerator(t, client)

	deck, _, err := gen.Generate(context.Background(), generation.Input{
		Pages:     pages(5),
		Images:    renderedPages(5),
		MaxSlides: &two,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(deck.Slides) != 2 {
		t.Fatalf("maxSlides=2 must yield exactly 2 slides, got %d", len(deck.Slides))
	}
}

func TestGenerate_CallFailureFallsThroughToRepair(t *testing.T) {
	client := &stubCompleter{
		firstErr:  errors.New("connection reset"),
		responses: []string{validDeck},
	}
	gen := newGenerator(t, client)

	deck, _, err := gen.Generate(context.Background(), generation.Input{Pages: pages(3)})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(client.requests) != 2 {
		t.Fatalf("first call failure must trigger a repair attempt, got %d requests", len(client.requests))
	}
	if len(deck.Slides) != 3 {
		t.Fatalf("expected 3 slides from repair, got %d", len(deck.Slides))
	}

	repair := client.requests[1]
	if repair.ResponseFormat == nil || repair.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("repair attempt must use json_object output")
	}
	// 首轮没有产出时，修复请求里的上一轮输出为一个空对象
	user := repair.Messages[len(repair.Messages)-1]
	if !strings.Contains(user.Content, "Previous response:\n{}") {
		t.Fatalf("repair message must carry empty prior output, got %q", user.Content)
	}
}

func TestGenerate_BothCallsFailing(t *testing.T) {
	client := &stubCompleter{err: errors.New("connection reset")}
	gen := newGenerator(t, client)

	_, _, err := gen.Generate(context.Background(), generation.Input{Pages: pages(1)})
	if err == nil {
		t.Fatalf("expected error when repair call also fails")
	}
	if len(client.requests) != 2 {
		t.Fatalf("expected exactly two attempts, got %d", len(client.requests))
	}
}

func TestGenerate_PagesNumberedFromOne(t *testing.T) {
	client := &stubCompleter{responses: []string{validDeck}}
	gen := newGenerator(t, client)

	if _, _, err := gen.Generate(context.Background(), generation.Input{Pages: pages(2)}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	parts := client.requests[0].Messages[1].MultiContent
	if len(parts) == 0 {
		t.Fatalf("user message must carry the structured payload")
	}
	if !strings.Contains(parts[0].Text, `"index":1`) || strings.Contains(parts[0].Text, `"index":0`) {
		t.Fatalf("pages must be numbered from 1 in the prompt payload: %s", parts[0].Text)
	}
}

func TestGenerate_DisabledBuildsStubDeck(t *testing.T) {
	cfg := configloader.GenerationConfig{Disabled: true}
	gen := generation.NewGenerator(nil, cfg, log.NewStdLogger(io.Discard))

	deck, usage, err := gen.Generate(context.Background(), generation.Input{
		Pages: []po.PageText{{Index: 0, Text: "Heading\nfirst point\nsecond point"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if usage.PromptTokens != 0 {
		t.Fatalf("disabled mode must not report usage")
	}
	if len(deck.Slides) != 1 || deck.Slides[0].Title != "Heading" {
		t.Fatalf("unexpected stub deck: %+v", deck.Slides)
	}
	if len(deck.Slides[0].Bullets) != 2 {
		t.Fatalf("expected bullets from page lines: %+v", deck.Slides[0].Bullets)
	}
}

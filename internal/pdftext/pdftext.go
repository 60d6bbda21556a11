// Package pdftext 从 PDF 字节流提取逐页文本，并在提取失败或内容为空时
// 提供基于空行分段的降级切分。
package pdftext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/bionicotaku/slidesmith/internal/models/po"
)

const (
	maxChunks    = 50
	maxChunkSize = 5000

	// fallbackText 在完全提取不到文字时兜底，保证下游生成始终有输入。
	fallbackText = "Uploaded PDF"
)

// blankLine 匹配可含空白字符的空行，作为段落分隔符。
var blankLine = regexp.MustCompile(`\n\s*\n`)

// Extract 逐页提取 PDF 文本，maxPages 限制处理页数（<=0 表示不限制）。
// 返回的页文本已去除首尾空白，空页保留以维持页码对应关系。
func Extract(data []byte, maxPages int) ([]po.PageText, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}

	pages := make([]po.PageText, 0, total)
	for i := 0; i < total; i++ {
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, po.PageText{Index: i, Text: strings.TrimSpace(text)})
	}
	return pages, nil
}

// Chunk 将整段文本按空行切分为有界的逻辑页。提取失败时 worker 以
// 原始文本（或空串）调用本函数，保证生成输入永远非空。
func Chunk(text string) []po.PageText {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []po.PageText{{Index: 0, Text: fallbackText}}
	}

	var chunks []po.PageText
	for _, block := range blankLine.Split(trimmed, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if len(block) > maxChunkSize {
			block = block[:maxChunkSize]
		}
		chunks = append(chunks, po.PageText{Index: len(chunks), Text: block})
		if len(chunks) == maxChunks {
			break
		}
	}
	if len(chunks) == 0 {
		return []po.PageText{{Index: 0, Text: fallbackText}}
	}
	return chunks
}

// Pages 返回提取结果，空文档或全空页时退化为 Chunk 切分的合并文本。
func Pages(data []byte, maxPages int) []po.PageText {
	pages, err := Extract(data, maxPages)
	if err != nil {
		return Chunk("")
	}

	nonEmpty := false
	var merged strings.Builder
	for _, p := range pages {
		if p.Text != "" {
			nonEmpty = true
		}
		merged.WriteString(p.Text)
		merged.WriteString("\n\n")
	}
	if !nonEmpty {
		return Chunk("")
	}
	if len(pages) == 0 {
		return Chunk(merged.String())
	}
	return pages
}

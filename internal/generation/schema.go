// Package generation 实现结构化幻灯片生成：构造生成请求、强约束输出 schema、
// 一次修复重试，以及确定性的页数对齐与图片挂载。
package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bionicotaku/slidesmith/internal/models/po"
)

// deckSchemaJSON 为生成契约的 JSON Schema。与归一化共同保证 result.json 的
// 最终形态：非空 slides、受限的图片引用、固定主题。
const deckSchemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["title", "theme", "slides"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "theme": {"type": "string", "enum": ["DEFAULT", "LIGHT", "DARK"]},
    "slides": {
      "type": "array",
      "minItems": 1,
      "maxItems": 200,
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["title"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "bullets": {"type": "array", "items": {"type": "string"}},
          "notes": {"type": "string"},
          "images": {
            "type": "array",
            "items": {
              "type": "object",
              "additionalProperties": false,
              "required": ["url"],
              "properties": {
                "url": {"type": "string", "format": "uri"},
                "placement": {"type": "string", "enum": ["LEFT", "RIGHT", "FULL_WIDTH", "BACKGROUND"]},
                "widthPx": {"type": "integer", "minimum": 0}
              }
            }
          }
        }
      }
    }
  }
}`

var deckSchema = jsonschema.MustCompileString("deck.schema.json", deckSchemaJSON)

// parseDeck 解析并校验生成服务的原始输出。
// 先做 schema 校验（拒绝多余字段、空标题等），再反序列化为 SlideDeck。
func parseDeck(raw string) (*po.SlideDeck, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty generation output")
	}

	var value any
	decoder := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode generation output: %w", err)
	}
	if err := deckSchema.Validate(value); err != nil {
		return nil, fmt.Errorf("generation output failed schema validation: %w", err)
	}

	var deck po.SlideDeck
	if err := json.Unmarshal([]byte(trimmed), &deck); err != nil {
		return nil, fmt.Errorf("unmarshal generation output: %w", err)
	}
	return &deck, nil
}

// Package deckjobs 消费任务启动消息，驱动 PDF 转幻灯片的完整流水线。
package deckjobs

import (
	"encoding/json"
	"fmt"

	"github.com/bionicotaku/slidesmith/internal/models/po"
)

type messageDecoder struct{}

func newDecoder() *messageDecoder {
	return &messageDecoder{}
}

// Decode 将队列消息解析为任务启动指令。
func (d *messageDecoder) Decode(data []byte) (*po.JobStartMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("deckjobs: empty payload")
	}

	var msg po.JobStartMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("deckjobs: decode job start payload: %w", err)
	}
	if msg.JobID == "" || msg.GCSPath == "" {
		return nil, fmt.Errorf("deckjobs: missing jobId or gcsPath")
	}
	return &msg, nil
}

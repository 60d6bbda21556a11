package deckjobs

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/pubsub"
)

// Runner 负责消费任务启动消息并驱动 Handler。
type Runner struct {
	subscriber pubsub.Subscriber
	handler    *Handler
	decoder    *messageDecoder
	log        *log.Helper
}

// NewRunner 构造任务 Runner。
func NewRunner(subscriber pubsub.Subscriber, handler *Handler, logger log.Logger) (*Runner, error) {
	if subscriber == nil {
		return nil, fmt.Errorf("deckjobs: subscriber is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("deckjobs: handler is required")
	}
	return &Runner{
		subscriber: subscriber,
		handler:    handler,
		decoder:    newDecoder(),
		log:        log.NewHelper(logger),
	}, nil
}

// Run 启动消费循环，直到 ctx 取消。
// 无法解析的消息直接确认丢弃，避免毒消息无限重投递。
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.subscriber == nil {
		return nil
	}
	return r.subscriber.Receive(ctx, func(ctx context.Context, msg pubsub.Message) error {
		start, err := r.decoder.Decode(msg.Data)
		if err != nil {
			r.log.WithContext(ctx).Warnf("deckjobs: drop undecodable message: %v", err)
			return nil
		}
		return r.handler.Handle(ctx, start)
	})
}

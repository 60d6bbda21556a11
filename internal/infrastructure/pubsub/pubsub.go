// Package pubsub 封装任务队列（Google Cloud Pub/Sub）的发布与订阅。
// 上层只依赖 Publisher / Subscriber 两个小接口，便于测试替身。
package pubsub

import (
	"context"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
)

// Message 为发布/接收的消息载体。
type Message struct {
	Data       []byte
	Attributes map[string]string
}

// Publisher 发布一条消息并返回服务端 ID。
type Publisher interface {
	Publish(ctx context.Context, msg Message) (string, error)
}

// Subscriber 启动消费循环，handler 返回 nil 则 ack，返回错误则 nack 重投。
type Subscriber interface {
	Receive(ctx context.Context, handler func(ctx context.Context, msg Message) error) error
}

// Component 持有 Pub/Sub 客户端与 topic/subscription 绑定。
type Component struct {
	client       *gcppubsub.Client
	publisher    *gcppubsub.Publisher
	subscription string
	log          *log.Helper
}

// NewComponent 创建 Pub/Sub 组件，返回 Wire cleanup。
func NewComponent(ctx context.Context, cfg configloader.QueueConfig, logger log.Logger) (*Component, func(), error) {
	if cfg.ProjectID == "" {
		return nil, nil, fmt.Errorf("pubsub: project id is required")
	}
	if cfg.Topic == "" {
		return nil, nil, fmt.Errorf("pubsub: topic is required")
	}

	client, err := gcppubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub: create client: %w", err)
	}

	component := &Component{
		client:       client,
		publisher:    client.Publisher(cfg.Topic),
		subscription: cfg.Subscription,
		log:          log.NewHelper(logger),
	}
	cleanup := func() {
		component.publisher.Stop()
		_ = client.Close()
	}
	return component, cleanup, nil
}

// Publish 实现 Publisher。
func (c *Component) Publish(ctx context.Context, msg Message) (string, error) {
	result := c.publisher.Publish(ctx, &gcppubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("pubsub: publish: %w", err)
	}
	return id, nil
}

// Receive 实现 Subscriber。handler 返回 nil 时 ack，否则 nack 等待重投。
func (c *Component) Receive(ctx context.Context, handler func(ctx context.Context, msg Message) error) error {
	if c.subscription == "" {
		return fmt.Errorf("pubsub: subscription is required")
	}
	sub := c.client.Subscriber(c.subscription)
	return sub.Receive(ctx, func(ctx context.Context, m *gcppubsub.Message) {
		err := handler(ctx, Message{Data: m.Data, Attributes: m.Attributes})
		if err != nil {
			c.log.WithContext(ctx).Warnf("pubsub: handler failed, nacking: %v", err)
			m.Nack()
			return
		}
		m.Ack()
	})
}

// ProvidePublisher 供 Wire 注入使用。
func ProvidePublisher(c *Component) Publisher { return c }

// ProvideSubscriber 供 Wire 注入使用。
func ProvideSubscriber(c *Component) Subscriber { return c }

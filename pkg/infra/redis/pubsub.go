package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"orgjobs/internal/framework"
)

// Channel Redis 发布/订阅通道
// 广播语义：fire-and-forget，消息不落盘，发布时无订阅者则消息丢失（at-most-once）
type Channel struct {
	client *redis.Client
	sub    *redis.PubSub
	name   string
}

// NewChannel 创建通道实例并建立订阅
func NewChannel(addr, password string, db int, name string) (*Channel, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Channel{
		client: client,
		sub:    client.Subscribe(ctx, name),
		name:   name,
	}, nil
}

// NewPublisher 创建仅用于发布的通道实例（不建立订阅）
func NewPublisher(addr, password string, db int, name string) (*Channel, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Channel{
		client: client,
		name:   name,
	}, nil
}

// Receive 接收下一条消息（实现 framework.MessageSource 接口）
// 广播消息没有自带 ID，这里生成一个仅用于日志关联
func (c *Channel) Receive(ctx context.Context) (*framework.Message, error) {
	msg, err := c.sub.ReceiveMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis receive failed: %w", err)
	}

	return &framework.Message{
		ID:      uuid.New().String(),
		Channel: msg.Channel,
		Data:    []byte(msg.Payload),
	}, nil
}

// Ack 确认消息（广播通道无 ACK 语义，no-op）
func (c *Channel) Ack(msg *framework.Message) error {
	return nil
}

// Publish 向通道发布消息
func (c *Channel) Publish(ctx context.Context, data []byte) error {
	if err := c.client.Publish(ctx, c.name, data).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Close 关闭订阅与连接
func (c *Channel) Close() error {
	if c.sub != nil {
		_ = c.sub.Close()
	}
	return c.client.Close()
}

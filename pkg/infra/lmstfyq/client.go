package lmstfyq

import (
	"context"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"

	"orgjobs/internal/framework"
)

// Client Lmstfy 客户端封装
// 持久化队列后端：与 Redis 广播通道互为可替换实现（at-least-once 变体），
// 消费后需显式 ACK，进程不在线时消息不丢失
type Client struct {
	cli     *client.LmstfyClient
	queue   string
	timeout time.Duration
	ttr     time.Duration
}

// NewClient 创建 Lmstfy 客户端
func NewClient(host string, port int, namespace, token, queue string, timeout, ttr time.Duration) (*Client, error) {
	cli := client.NewLmstfyClient(host, port, namespace, token)
	return &Client{
		cli:     cli,
		queue:   queue,
		timeout: timeout,
		ttr:     ttr,
	}, nil
}

// Receive 消费消息（实现 framework.MessageSource 接口）
// lmstfy 客户端不支持 ctx 取消，通过短超时轮询保证退出及时性
func (c *Client) Receive(ctx context.Context) (*framework.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeoutSec := uint32(c.timeout.Seconds())
	ttrSec := uint32(c.ttr.Seconds())

	job, err := c.cli.Consume(c.queue, ttrSec, timeoutSec)
	if err != nil {
		return nil, fmt.Errorf("lmstfy consume failed: %w", err)
	}

	// 超时未拉到消息
	if job == nil {
		return nil, nil
	}

	return &framework.Message{
		ID:      job.ID,
		Channel: job.Queue,
		Data:    job.Data,
	}, nil
}

// Ack 确认消息（实现 framework.MessageSource 接口）
func (c *Client) Ack(msg *framework.Message) error {
	if err := c.cli.Ack(c.queue, msg.ID); err != nil {
		return fmt.Errorf("lmstfy ack failed: %w", err)
	}
	return nil
}

// Publish 发布消息
func (c *Client) Publish(ctx context.Context, data []byte) error {
	// ttl=0 表示永不过期, tries=3, delay=0 表示立即可用
	_, err := c.cli.Publish(c.queue, data, 0, 3, 0)
	if err != nil {
		return fmt.Errorf("lmstfy publish failed: %w", err)
	}
	return nil
}

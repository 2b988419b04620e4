package framework

import (
	"context"
)

// MessageSource 消息源接口（适配不同通道后端）
// Redis 广播通道为 at-most-once（fire-and-forget，无 ACK 语义）；
// lmstfy 持久化队列为 at-least-once（消费后需显式 ACK）
type MessageSource interface {
	// Receive 接收下一条消息（阻塞，直到收到消息、超时返回 nil 或 ctx 取消）
	Receive(ctx context.Context) (*Message, error)

	// Ack 确认消息（广播通道实现为 no-op）
	Ack(msg *Message) error
}

// Proc 消息处理函数类型（调度入口的函数签名）
// 错误不向上传播：生产者侧没有应答通道，所有失败只体现在日志里
type Proc func(ctx context.Context, msg *Message)

// Logger 日志接口
type Logger interface {
	Debugf(ctx context.Context, format string, args ...interface{})
	Infof(ctx context.Context, format string, args ...interface{})
	Warnf(ctx context.Context, format string, args ...interface{})
	Errorf(ctx context.Context, format string, args ...interface{})
}

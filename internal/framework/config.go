package framework

import "time"

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	ChannelName  string        // 通道/队列名称
	ErrorBackoff time.Duration // 接收错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	BufferSize int // inputChan 缓冲区大小
}

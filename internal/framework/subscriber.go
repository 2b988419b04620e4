package framework

import (
	"context"
	"sync"
	"time"
)

// Subscriber 订阅者：从消息通道接收消息，转发给 Processor
// 单个订阅连接是进程级共享资源，只用于接收；重连退避是进程生命周期关注点
type Subscriber struct {
	cfg        *SubscriberConfig
	source     MessageSource
	logger     Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewSubscriber 创建订阅者
func NewSubscriber(cfg *SubscriberConfig, source MessageSource, logger Logger) *Subscriber {
	return &Subscriber{
		cfg:    cfg,
		source: source,
		logger: logger,
	}
}

// Start 启动订阅循环
func (s *Subscriber) Start(parentCtx context.Context, inputChan chan<- *Message) error {
	// 核心：从父 Context 派生子 Context
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel

	s.logger.Infof(ctx, "[Subscriber] Starting for channel: %s", s.cfg.ChannelName)

	s.wg.Add(1)
	go s.loop(ctx, inputChan)

	return nil
}

// Stop 停止订阅（不再接收新消息）
func (s *Subscriber) Stop() {
	s.logger.Infof(context.Background(), "[Subscriber] Stopping...")
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}

// Wait 等待订阅协程退出
func (s *Subscriber) Wait() {
	s.wg.Wait()
	s.logger.Infof(context.Background(), "[Subscriber] Exited")
}

// loop 订阅循环
func (s *Subscriber) loop(ctx context.Context, inputChan chan<- *Message) {
	defer s.wg.Done()
	s.logger.Infof(ctx, "[Subscriber] Started")

	for {
		// 1. 接收消息（阻塞）
		msg, err := s.source.Receive(ctx)
		if err != nil {
			// 退出检查：ctx 取消时 Receive 会带错返回
			select {
			case <-ctx.Done():
				s.logger.Infof(ctx, "[Subscriber] Context cancelled, exiting")
				return
			default:
			}

			// 容错：传输抖动不退出，固定退避后重试
			s.logger.Warnf(ctx, "[Subscriber] Receive error: %v, retrying in %v", err, s.cfg.ErrorBackoff)
			select {
			case <-ctx.Done():
				s.logger.Infof(ctx, "[Subscriber] Context cancelled, exiting")
				return
			case <-time.After(s.cfg.ErrorBackoff):
				continue
			}
		}

		// nil 消息（接收超时未拉到），继续循环
		if msg == nil {
			select {
			case <-ctx.Done():
				s.logger.Infof(ctx, "[Subscriber] Context cancelled, exiting")
				return
			default:
				continue
			}
		}

		// 2. 发送给 Processor（防死锁设计）
		select {
		case inputChan <- msg:
			s.logger.Debugf(ctx, "[Subscriber] Message forwarded: %s", msg.ID)

		case <-ctx.Done():
			// Context 取消，丢弃消息并退出
			s.logger.Warnf(ctx, "[Subscriber] Dropping message due to shutdown: %s", msg.ID)
			return
		}
	}
}

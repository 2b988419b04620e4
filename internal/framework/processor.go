package framework

import (
	"context"
	"sync"
	"time"
)

// Processor 处理器：接收消息，调用业务处理函数
// 每条消息在独立 goroutine 上处理：一个多分钟的批量轮询
// 不能阻塞后续不相关消息的接收与分发
type Processor struct {
	cfg        *ProcessorConfig
	proc       Proc
	source     MessageSource
	logger     Logger
	shutdownCh chan struct{} // 专门的退出信号通道
	loopWG     sync.WaitGroup
	handlerWG  sync.WaitGroup
}

// NewProcessor 创建处理器
func NewProcessor(cfg *ProcessorConfig, proc Proc, source MessageSource, logger Logger) *Processor {
	return &Processor{
		cfg:        cfg,
		proc:       proc,
		source:     source,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Start 启动分发协程
func (p *Processor) Start(ctx context.Context, inputChan <-chan *Message) error {
	p.logger.Infof(ctx, "[Processor] Starting")

	p.loopWG.Add(1)
	go p.loop(ctx, inputChan)

	return nil
}

// SignalShutdown 通知 Processor 准备退出（进入 Drain 模式）
func (p *Processor) SignalShutdown() {
	p.logger.Infof(context.Background(), "[Processor] Shutdown signal received")
	close(p.shutdownCh)
}

// Wait 等待分发协程与所有在途 Handler 退出
// 在途 Handler 依赖 ctx 取消自行退出（轮询循环挂在 ctx.Done 上）
func (p *Processor) Wait() {
	p.loopWG.Wait()
	p.handlerWG.Wait()
	p.logger.Infof(context.Background(), "[Processor] All handlers exited")
}

// loop 分发循环
func (p *Processor) loop(ctx context.Context, inputChan <-chan *Message) {
	defer p.loopWG.Done()

	for {
		select {
		// A. 正常业务分发
		case msg := <-inputChan:
			p.dispatch(ctx, msg)

		// B. Drain 模式：分发完剩余消息再退出
		case <-p.shutdownCh:
			p.logger.Infof(ctx, "[Processor] Entering DRAIN mode")
			count := 0
			for {
				select {
				case msg := <-inputChan:
					p.dispatch(ctx, msg)
					count++
				default:
					// Channel 空了，安全退出
					p.logger.Infof(ctx, "[Processor] Drained %d messages, exiting", count)
					return
				}
			}
		}
	}
}

// dispatch 将单条消息派发到独立 goroutine
func (p *Processor) dispatch(ctx context.Context, msg *Message) {
	if msg == nil {
		return
	}

	p.handlerWG.Add(1)
	go func() {
		defer p.handlerWG.Done()

		startTime := time.Now()
		p.logger.Infof(ctx, "[Processor] Handling message: %s", msg.ID)

		// 调用业务处理函数（注入的 GetProcess，内部自行 recover）
		p.proc(ctx, msg)

		// 处理完成后确认消息（广播通道为 no-op）
		if err := p.source.Ack(msg); err != nil {
			p.logger.Warnf(ctx, "[Processor] Ack failed for message %s: %v", msg.ID, err)
		}

		p.logger.Infof(ctx, "[Processor] Message handled: %s, duration: %v", msg.ID, time.Since(startTime))
	}()
}

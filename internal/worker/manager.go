package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"orgjobs/internal/domains"
	"orgjobs/internal/framework"
	"orgjobs/pkg/config"
	"orgjobs/pkg/infra/lmstfyq"
	redisinfra "orgjobs/pkg/infra/redis"
	"orgjobs/pkg/logger"
)

// Manager 接口
type Manager interface {
	Start() error
	Shutdown()
}

// ManagerInstance Manager 实例
type ManagerInstance struct {
	ctx        context.Context
	cancel     context.CancelFunc
	cfg        *config.Config
	source     framework.MessageSource
	worker     Worker
	closing    *atomic.Bool
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	logger     logger.Logger
}

// NewManagerInstance 创建 Manager
func NewManagerInstance(cfg *config.Config, log logger.Logger) (Manager, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// 1. 初始化消息源（按配置选择通道后端）
	source, err := newMessageSource(cfg)
	if err != nil {
		cancel()
		return nil, err
	}

	log.Infof(ctx, "[Manager] Channel backend: %s, channel: %s", cfg.Channel.Backend, cfg.Channel.Name)

	// 2. 构建路由表与调度函数（启动时一次构建）
	handlers := domains.BuildHandlerMap(cfg, log)
	proc := domains.GetProcess(log, domains.DefaultClientFactory, handlers)

	// 3. 创建 Worker
	subCfg := &framework.SubscriberConfig{
		ChannelName:  cfg.Channel.Name,
		ErrorBackoff: cfg.Worker.ErrorBackoff,
	}
	procCfg := &framework.ProcessorConfig{
		BufferSize: cfg.Worker.BufferSize,
	}

	w, err := NewWorkerInstance(ctx, cfg.Worker.Name, subCfg, procCfg, source, proc, log)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}

	return &ManagerInstance{
		ctx:        ctx,
		cancel:     cancel,
		cfg:        cfg,
		source:     source,
		worker:     w,
		closing:    atomic.NewBool(false),
		shutdownCh: make(chan struct{}),
		logger:     log,
	}, nil
}

// newMessageSource 按配置构造消息源
func newMessageSource(cfg *config.Config) (framework.MessageSource, error) {
	switch cfg.Channel.Backend {
	case "redis":
		return redisinfra.NewChannel(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Channel.Name)
	case "lmstfy":
		return lmstfyq.NewClient(
			cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token,
			cfg.Channel.Name, cfg.Lmstfy.Timeout, cfg.Lmstfy.TTR)
	default:
		return nil, fmt.Errorf("unknown channel backend: %s", cfg.Channel.Backend)
	}
}

// Start 启动 Manager
func (m *ManagerInstance) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting...")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.worker.Start()
	}()
	m.logger.Infof(m.ctx, "[Manager] Worker started: %s", m.worker.GetName())

	// 阻塞等待退出信号
	<-m.shutdownCh

	return nil
}

// Shutdown 优雅退出
func (m *ManagerInstance) Shutdown() {
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	// 原子操作，保证并发安全
	if m.closing.CAS(false, true) {
		// 1. 取消根 Context：在途轮询循环借此退出，不留泄漏
		m.cancel()

		// 2. Worker 安全退出
		m.worker.Shutdown()
		m.wg.Wait()

		// 3. 关闭信号通道
		close(m.shutdownCh)

		m.logger.Infof(context.Background(), "[Manager] Shutdown complete")
	}
}

package domains

import (
	"context"

	"orgjobs/internal/business/data"
	"orgjobs/internal/business/quote"
	"orgjobs/internal/domains/job"
	"orgjobs/internal/salesforce"
	"orgjobs/pkg/config"
	"orgjobs/pkg/logger"
)

// ClientFactory 记录库客户端构造函数
// 每个 Job 用自己的安全上下文构造独立客户端
type ClientFactory func(sc *job.SecurityContext) (salesforce.API, error)

// DefaultClientFactory 默认客户端构造
func DefaultClientFactory(sc *job.SecurityContext) (salesforce.API, error) {
	return salesforce.NewClient(sc)
}

// HandlerFunc Job 处理函数类型
type HandlerFunc func(ctx context.Context, env *job.Envelope, api salesforce.API) error

// BuildHandlerMap 构建路由表（JobType → Handler 映射，启动时一次构建）
// 封闭枚举：每个 Job 类型一个处理函数，未注册类型为不可路由消息
func BuildHandlerMap(cfg *config.Config, log logger.Logger) map[job.Type]HandlerFunc {
	dataOpts := data.Options{
		PollInterval:   cfg.Bulk.PollInterval,
		PollTimeout:    cfg.Bulk.PollTimeout,
		DefaultCount:   cfg.Data.DefaultCount,
		LinesPerParent: cfg.Data.LinesPerParent,
		DeleteLimit:    cfg.Data.DeleteLimit,
	}

	policy := quote.NewRegionPolicy(cfg.Quote.RegionField, cfg.Quote.Discounts, cfg.Quote.DefaultDiscount)
	quoteOpts := quote.Options{
		RegionField: cfg.Quote.RegionField,
	}

	return map[job.Type]HandlerFunc{
		job.TypeData: func(ctx context.Context, env *job.Envelope, api salesforce.API) error {
			return data.NewHandler(api, log, dataOpts).Handle(ctx, env)
		},

		job.TypeQuote: func(ctx context.Context, env *job.Envelope, api salesforce.API) error {
			return quote.NewHandler(api, policy, log, quoteOpts).Handle(ctx, env)
		},
	}
}

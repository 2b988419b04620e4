package data

import (
	"context"
	"time"

	"orgjobs/internal/domains/job"
	"orgjobs/internal/salesforce"
	"orgjobs/pkg/errorutil"
	"orgjobs/pkg/logger"
)

// 批量数据作业操作的目标对象与命名约定
const (
	objectOpportunity     = "Opportunity"
	objectOpportunityLine = "OpportunityLineItem"
	syntheticNamePrefix   = "Bulk Opportunity"
)

// RecordAPI 数据作业所需的记录库能力
type RecordAPI interface {
	salesforce.Querier
	salesforce.BulkAPI
}

// Options 数据作业配置
type Options struct {
	PollInterval   time.Duration // 轮询间隔
	PollTimeout    time.Duration // 轮询墙钟预算
	DefaultCount   int           // 未指定 count 时的默认行数
	LinesPerParent int           // 每个成功父行生成的子行数
	DeleteLimit    int           // 删除操作单次最大候选数
}

// applyDefaults 填充缺省值
func (o *Options) applyDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = 5 * time.Minute
	}
	if o.DefaultCount <= 0 {
		o.DefaultCount = 10
	}
	if o.LinesPerParent <= 0 {
		o.LinesPerParent = 2
	}
	if o.DeleteLimit <= 0 {
		o.DeleteLimit = 5000
	}
}

// Handler 批量数据作业处理器
// create：生成合成父行批量写入，再为成功父行生成依赖子行批量写入；
// delete：按命名约定批量硬删除
type Handler struct {
	api  RecordAPI
	log  logger.Logger
	opts Options
}

// NewHandler 创建数据作业处理器
func NewHandler(api RecordAPI, log logger.Logger, opts Options) *Handler {
	opts.applyDefaults()
	return &Handler{
		api:  api,
		log:  log,
		opts: opts,
	}
}

// Handle 处理入口
func (h *Handler) Handle(ctx context.Context, env *job.Envelope) error {
	switch job.Operation(env.Operation) {
	case job.OperationCreate:
		count := env.Count
		if count < 1 {
			count = h.opts.DefaultCount
		}
		return h.create(ctx, count)

	case job.OperationDelete:
		return h.delete(ctx)

	default:
		return errorutil.Malformed("unknown data operation: " + env.Operation)
	}
}

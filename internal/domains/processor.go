package domains

import (
	"context"
	"encoding/json"

	"orgjobs/internal/domains/job"
	"orgjobs/internal/framework"
	"orgjobs/pkg/logger"
)

// GetProcess 返回核心调度函数（注入到 Processor）
// 调度契约：解析失败/上下文缺失 → 记录并丢弃，不重试、不向生产者回传；
// Handler 抛出的任何异常都被捕获并记录，单个失败的 Job 不影响调度器和其他 Job
func GetProcess(log logger.Logger, newClient ClientFactory, handlers map[job.Type]HandlerFunc) framework.Proc {
	return func(ctx context.Context, msg *framework.Message) {
		// 1. 解析信封（失败：记录并丢弃）
		var env job.Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.Errorf(ctx, "[Dispatch] Unparseable message %s, dropped: %v", msg.ID, err)
			return
		}

		// 2. 校验安全上下文（失败关闭：部分填充即非法）
		if err := env.SecurityContext.Validate(); err != nil {
			log.Errorf(ctx, "[Dispatch] Invalid security context for job %s, dropped: %v", env.JobID, err)
			return
		}

		// 3. 注入关联字段到 Context
		ctx = context.WithValue(ctx, logger.CtxKeyJobID, env.JobID)
		ctx = context.WithValue(ctx, logger.CtxKeyJobType, env.JobType)

		// 4. 路由（未知类型为不可路由消息：记录并丢弃）
		jobType, err := job.ParseType(env.JobType)
		if err != nil {
			log.Errorf(ctx, "[Dispatch] Unroutable message for job %s, dropped: %v", env.JobID, err)
			return
		}
		handler := handlers[jobType]
		if handler == nil {
			log.Errorf(ctx, "[Dispatch] No handler registered for job type %s, dropped", jobType)
			return
		}

		// 5. 构造记录库客户端（凭证不跨 Job 共享）
		api, err := newClient(env.SecurityContext)
		if err != nil {
			log.Errorf(ctx, "[Dispatch] Build record store client failed for job %s: %v", env.JobID, err)
			return
		}

		log.Infof(ctx, "[Dispatch] Handling job: type=%s, id=%s", env.JobType, env.JobID)

		// 6. 调用 Handler（捕获 panic，错误只记日志不上抛）
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf(ctx, "[Dispatch] Handler panic for job %s (type %s): %v", env.JobID, env.JobType, r)
				}
			}()

			if err := handler(ctx, &env, api); err != nil {
				log.Errorf(ctx, "[Dispatch] Job %s (type %s) failed: %v", env.JobID, env.JobType, err)
				return
			}

			log.Infof(ctx, "[Dispatch] Job %s (type %s) complete", env.JobID, env.JobType)
		}()
	}
}

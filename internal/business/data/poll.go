package data

import (
	"context"
	"fmt"
	"time"

	"orgjobs/internal/salesforce"
	"orgjobs/pkg/errorutil"
)

// pollToCompletion 固定间隔轮询批量作业直到终态或墙钟超时
// 状态机由外部服务驱动，这里只读不推动迁移；
// 轮询中的传输错误直接致命（不做退避重试），墙钟超时是独立的致命条件
func (h *Handler) pollToCompletion(ctx context.Context, ref *salesforce.JobRef) (*salesforce.JobStatus, error) {
	ticker := time.NewTicker(h.opts.PollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(h.opts.PollTimeout)
	defer deadline.Stop()

	lastState := salesforce.StateOpen

	for {
		select {
		case <-ctx.Done():
			// 进程关停：放弃在途作业，无恢复状态
			return nil, errorutil.Transport("poll cancelled", ref.ID, ctx.Err())

		case <-deadline.C:
			return nil, errorutil.Timeout(fmt.Sprintf(
				"bulk job did not reach terminal state within %v, last state: %s",
				h.opts.PollTimeout, lastState), ref.ID)

		case <-ticker.C:
			status, err := h.api.IngestStatus(ctx, ref)
			if err != nil {
				return nil, errorutil.Transport("poll ingest status failed", ref.ID, err)
			}

			lastState = status.State
			h.log.Debugf(ctx, "[Data] Bulk job %s state: %s", ref.ID, status.State)

			switch status.State {
			case salesforce.StateJobComplete:
				return status, nil
			case salesforce.StateFailed, salesforce.StateAborted:
				return nil, errorutil.Transport(fmt.Sprintf(
					"bulk job reached state %s: %s", status.State, status.ErrorMessage), ref.ID, nil)
			}
		}
	}
}

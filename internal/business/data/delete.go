package data

import (
	"context"
	"fmt"

	"orgjobs/internal/salesforce"
	"orgjobs/pkg/errorutil"
)

// delete 执行批量硬删除
// 按合成命名约定查询有界候选集；零候选是正常的提前退出，不是错误
func (h *Handler) delete(ctx context.Context) error {
	soql := fmt.Sprintf("SELECT Id FROM %s WHERE Name LIKE '%s%%' LIMIT %d",
		objectOpportunity, syntheticNamePrefix, h.opts.DeleteLimit)

	records, err := h.api.QueryAll(ctx, soql)
	if err != nil {
		return errorutil.Transport("query delete candidates failed", "", err)
	}

	if len(records) == 0 {
		h.log.Infof(ctx, "[DataDelete] No matching records, nothing to delete")
		return nil
	}

	// 仅标识符的行表
	table := salesforce.NewRowTable("Id")
	for _, rec := range records {
		table.Append(salesforce.Row{"Id": rec.Str("Id")})
	}

	h.log.Infof(ctx, "[DataDelete] Submitting hard delete for %d records", table.Len())

	ref, err := h.api.SubmitIngest(ctx, objectOpportunity, salesforce.OperationHardDelete, table)
	if err != nil {
		return errorutil.Transport("submit delete bulk job failed", "", err)
	}

	status, err := h.pollToCompletion(ctx, ref)
	if err != nil {
		return err
	}
	h.log.Infof(ctx, "[DataDelete] Delete bulk job complete: processed=%d, failed=%d",
		status.NumberRecordsProcessed, status.NumberRecordsFailed)

	if status.NumberRecordsFailed > 0 {
		h.logFailedRows(ctx, ref)
	}

	return nil
}

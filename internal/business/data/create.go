package data

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"orgjobs/internal/salesforce"
	"orgjobs/pkg/errorutil"
)

// prerequisites create 操作的前置引用记录
type prerequisites struct {
	accountID   string
	pricebookID string
	entries     []salesforce.Record // 有效的价目表条目
}

// resolvePrerequisites 解析前置引用记录
// 任一查询返回零行即为致命前置条件错误：整个作业立即终止，不重试
func (h *Handler) resolvePrerequisites(ctx context.Context) (*prerequisites, error) {
	accounts, err := h.api.QueryAll(ctx, "SELECT Id FROM Account ORDER BY CreatedDate LIMIT 1")
	if err != nil {
		return nil, errorutil.Transport("query reference account failed", "", err)
	}
	if len(accounts) == 0 {
		return nil, errorutil.Precondition("no reference account found in org")
	}

	pricebooks, err := h.api.QueryAll(ctx, "SELECT Id FROM Pricebook2 WHERE IsStandard = true LIMIT 1")
	if err != nil {
		return nil, errorutil.Transport("query standard pricebook failed", "", err)
	}
	if len(pricebooks) == 0 {
		return nil, errorutil.Precondition("no standard pricebook found in org")
	}
	pricebookID := pricebooks[0].Str("Id")

	entries, err := h.api.QueryAll(ctx, fmt.Sprintf(
		"SELECT Id, UnitPrice FROM PricebookEntry WHERE Pricebook2Id = '%s' AND IsActive = true", pricebookID))
	if err != nil {
		return nil, errorutil.Transport("query pricebook entries failed", "", err)
	}
	if len(entries) == 0 {
		return nil, errorutil.Precondition("no active pricebook entries found in org")
	}

	return &prerequisites{
		accountID:   accounts[0].Str("Id"),
		pricebookID: pricebookID,
		entries:     entries,
	}, nil
}

// create 执行批量创建
// 父阶段与子阶段各自独立走 提交 → 轮询 → 收割；两个批量操作之间没有事务关系
func (h *Handler) create(ctx context.Context, count int) error {
	pre, err := h.resolvePrerequisites(ctx)
	if err != nil {
		return err
	}

	// 1. 生成合成父行（形状确定、内容随机，名称批内唯一）
	table := buildParentTable(pre.accountID, count)
	h.log.Infof(ctx, "[DataCreate] Submitting %d parent rows", table.Len())

	ref, err := h.api.SubmitIngest(ctx, objectOpportunity, salesforce.OperationInsert, table)
	if err != nil {
		return errorutil.Transport("submit parent bulk job failed", "", err)
	}
	h.log.Infof(ctx, "[DataCreate] Parent bulk job submitted: %s", ref.ID)

	// 2. 轮询到终态
	status, err := h.pollToCompletion(ctx, ref)
	if err != nil {
		return err
	}
	h.log.Infof(ctx, "[DataCreate] Parent bulk job complete: processed=%d, failed=%d",
		status.NumberRecordsProcessed, status.NumberRecordsFailed)

	// 3. 部分失败时尽力收割诊断（失败不升级）
	if status.NumberRecordsFailed > 0 {
		h.logFailedRows(ctx, ref)
	}

	// 4. 全部失败则停止：依赖阶段不会拿空输入集去跑
	succeeded := status.NumberRecordsProcessed - status.NumberRecordsFailed
	if succeeded <= 0 {
		h.log.Warnf(ctx, "[DataCreate] All parent rows failed, skipping dependent stage")
		return nil
	}

	// 5. 收割成功行 ID 作为子阶段外键
	rows, err := h.api.SuccessfulRows(ctx, ref)
	if err != nil {
		return errorutil.Transport("fetch successful parent rows failed", ref.ID, err)
	}

	parentIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		if id := row["sf__Id"]; id != "" {
			parentIDs = append(parentIDs, id)
		}
	}
	if len(parentIDs) == 0 {
		h.log.Warnf(ctx, "[DataCreate] No successful parent ids harvested, skipping dependent stage")
		return nil
	}

	return h.createLines(ctx, parentIDs, pre.entries)
}

// createLines 依赖子阶段：每个成功父行生成固定数量子行
// 子阶段失败不回滚父阶段
func (h *Handler) createLines(ctx context.Context, parentIDs []string, entries []salesforce.Record) error {
	table := salesforce.NewRowTable("OpportunityId", "PricebookEntryId", "Quantity", "UnitPrice")
	for _, parentID := range parentIDs {
		for i := 0; i < h.opts.LinesPerParent; i++ {
			// 从有效条目集中均匀随机选择
			entry := entries[rand.Intn(len(entries))]
			table.Append(salesforce.Row{
				"OpportunityId":    parentID,
				"PricebookEntryId": entry.Str("Id"),
				"Quantity":         strconv.Itoa(1 + rand.Intn(10)),
				"UnitPrice":        strconv.FormatFloat(entry.Float("UnitPrice"), 'f', -1, 64),
			})
		}
	}

	h.log.Infof(ctx, "[DataCreate] Submitting %d line rows for %d parents", table.Len(), len(parentIDs))

	ref, err := h.api.SubmitIngest(ctx, objectOpportunityLine, salesforce.OperationInsert, table)
	if err != nil {
		return errorutil.Transport("submit line bulk job failed", "", err)
	}

	status, err := h.pollToCompletion(ctx, ref)
	if err != nil {
		return err
	}
	h.log.Infof(ctx, "[DataCreate] Line bulk job complete: processed=%d, failed=%d",
		status.NumberRecordsProcessed, status.NumberRecordsFailed)

	if status.NumberRecordsFailed > 0 {
		h.logFailedRows(ctx, ref)
	}

	return nil
}

// buildParentTable 生成合成父行表
// 名称带时间戳与序号，批内唯一
func buildParentTable(accountID string, count int) *salesforce.RowTable {
	stamp := time.Now().Format("20060102150405")
	closeDate := time.Now().AddDate(0, 0, 90).Format("2006-01-02")

	table := salesforce.NewRowTable("Name", "StageName", "CloseDate", "AccountId")
	for i := 0; i < count; i++ {
		table.Append(salesforce.Row{
			"Name":      fmt.Sprintf("%s %s-%04d", syntheticNamePrefix, stamp, i+1),
			"StageName": "Prospecting",
			"CloseDate": closeDate,
			"AccountId": accountID,
		})
	}
	return table
}

// logFailedRows 尽力收割失败行诊断并记录（收割失败只记日志，不升级）
func (h *Handler) logFailedRows(ctx context.Context, ref *salesforce.JobRef) {
	rows, err := h.api.FailedRows(ctx, ref)
	if err != nil {
		h.log.Warnf(ctx, "[Data] Fetch failed-row diagnostics failed (job %s): %v", ref.ID, err)
		return
	}
	for _, row := range rows {
		h.log.Warnf(ctx, "[Data] Row failed (job %s): %s", ref.ID, row["sf__Error"])
	}
}

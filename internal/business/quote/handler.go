package quote

import (
	"context"
	"fmt"
	"time"

	"orgjobs/internal/domains/job"
	"orgjobs/internal/salesforce"
	"orgjobs/pkg/errorutil"
	"orgjobs/pkg/logger"
)

const (
	objectQuote     = "Quote"
	objectQuoteLine = "QuoteLineItem"

	// 报价有效期：父记录 close date 之后 30 天
	expirationDays = 30
)

// RecordAPI 报价作业所需的记录库能力
type RecordAPI interface {
	salesforce.Querier
	salesforce.Committer
}

// Options 报价作业配置
type Options struct {
	RegionField string // 父记录上的区域字段名（用于查询投影）
}

// Handler 事务性报价作业处理器
// 单次查询取回父子记录，按父记录注册报价 + 行项目创建，
// 整批一次提交，按父级引用逐条对账
type Handler struct {
	api    RecordAPI
	policy Policy
	log    logger.Logger
	opts   Options
}

// NewHandler 创建报价作业处理器
func NewHandler(api RecordAPI, policy Policy, log logger.Logger, opts Options) *Handler {
	if opts.RegionField == "" {
		opts.RegionField = "Region__c"
	}
	return &Handler{
		api:    api,
		policy: policy,
		log:    log,
		opts:   opts,
	}
}

// parentRef 父级引用与其业务标识的对应关系（用于提交后对账）
type parentRef struct {
	ref   salesforce.Ref
	oppID string
}

// Handle 处理入口
func (h *Handler) Handle(ctx context.Context, env *job.Envelope) error {
	// 过滤条件缺失是 no-op 而非错误
	if env.SoqlWhereClause == "" {
		h.log.Warnf(ctx, "[Quote] Missing soqlWhereClause, nothing to do")
		return nil
	}

	// 1. 解析引用价目表（固定查询，缺失即致命前置条件）
	pricebookID, err := h.resolvePricebook(ctx)
	if err != nil {
		return err
	}

	// 2. 单次往返取回父记录及嵌套行项目（透明翻页）
	soql := fmt.Sprintf(
		"SELECT Id, Name, CloseDate, %s, "+
			"(SELECT Id, Quantity, UnitPrice, PricebookEntryId FROM OpportunityLineItems) "+
			"FROM Opportunity WHERE %s",
		h.opts.RegionField, env.SoqlWhereClause)

	parents, err := h.api.QueryAll(ctx, soql)
	if err != nil {
		return errorutil.Transport("query opportunities failed", "", err)
	}
	if len(parents) == 0 {
		h.log.Warnf(ctx, "[Quote] No opportunities matched filter, nothing to do")
		return nil
	}

	// 3. 逐父记录注册创建
	uow := salesforce.NewUnitOfWork()
	parentRefs := make([]parentRef, 0, len(parents))

	for _, parent := range parents {
		// 零行项目的父记录跳过（警告，不失败）
		lines := parent.Sub("OpportunityLineItems")
		if len(lines) == 0 {
			h.log.Warnf(ctx, "[Quote] Opportunity %s has no line items, skipped", parent.Str("Id"))
			continue
		}

		ref, err := h.registerParent(uow, parent, lines, pricebookID)
		if err != nil {
			// 单个父记录的处理异常不终止整批：记录并跳过
			h.log.Warnf(ctx, "[Quote] Skipping opportunity %s: %v", parent.Str("Id"), err)
			continue
		}
		parentRefs = append(parentRefs, *ref)
	}

	if uow.Len() == 0 {
		h.log.Warnf(ctx, "[Quote] Nothing registered, commit skipped")
		return nil
	}

	// 4. 整批一次提交
	h.log.Infof(ctx, "[Quote] Committing unit of work: %d registrations for %d quotes",
		uow.Len(), len(parentRefs))

	result, err := h.api.CommitUnitOfWork(ctx, uow)
	if err != nil {
		return errorutil.Transport("commit unit of work failed", "", err)
	}

	// 5. 按父级引用句柄对账（子行结果不单独核对）
	successCount, failureCount := 0, 0
	for _, pr := range parentRefs {
		outcome, ok := result.Outcome(pr.ref)
		if ok && outcome.Success() {
			successCount++
			h.log.Debugf(ctx, "[Quote] Quote created for opportunity %s: %s", pr.oppID, outcome.ID)
			continue
		}

		failureCount++
		if len(outcome.Errors) > 0 {
			h.log.Warnf(ctx, "[Quote] Quote failed for opportunity %s: %s [%s]",
				pr.oppID, outcome.Errors[0].Message, outcome.Errors[0].ErrorCode)
		} else {
			h.log.Warnf(ctx, "[Quote] Quote failed for opportunity %s: no outcome reported", pr.oppID)
		}
	}

	h.log.Infof(ctx, "[Quote] Commit reconciled: success=%d, failure=%d", successCount, failureCount)
	return nil
}

// resolvePricebook 解析标准价目表 ID
func (h *Handler) resolvePricebook(ctx context.Context) (string, error) {
	records, err := h.api.QueryAll(ctx, "SELECT Id FROM Pricebook2 WHERE IsStandard = true LIMIT 1")
	if err != nil {
		return "", errorutil.Transport("query standard pricebook failed", "", err)
	}
	if len(records) == 0 {
		return "", errorutil.Precondition("no standard pricebook found in org")
	}
	return records[0].Str("Id"), nil
}

// registerParent 为单个父记录注册报价与行项目创建
func (h *Handler) registerParent(uow *salesforce.UnitOfWork, parent salesforce.Record, lines []salesforce.Record, pricebookID string) (*parentRef, error) {
	oppID := parent.Str("Id")

	closeDate, err := time.Parse("2006-01-02", parent.Str("CloseDate"))
	if err != nil {
		return nil, fmt.Errorf("malformed close date %q: %w", parent.Str("CloseDate"), err)
	}
	expiration := closeDate.AddDate(0, 0, expirationDays).Format("2006-01-02")

	rate := h.policy.Rate(parent)

	ref := uow.RegisterCreate(objectQuote, map[string]interface{}{
		"Name":           "Quote for " + parent.Str("Name"),
		"OpportunityId":  oppID,
		"Pricebook2Id":   pricebookID,
		"Status":         "Draft",
		"ExpirationDate": expiration,
	})

	// 子行持有尚未提交的父级引用作为前向外键
	for _, line := range lines {
		uow.RegisterCreate(objectQuoteLine, map[string]interface{}{
			"QuoteId":          ref,
			"PricebookEntryId": line.Str("PricebookEntryId"),
			"Quantity":         line.Float("Quantity"),
			"UnitPrice":        line.Float("UnitPrice") * (1 - rate),
		})
	}

	return &parentRef{ref: ref, oppID: oppID}, nil
}

package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgjobs/internal/domains/job"
	"orgjobs/internal/salesforce"
	"orgjobs/pkg/errorutil"
)

// testLogger 收集日志的测试 Logger
type testLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *testLogger) Debugf(ctx context.Context, format string, args ...interface{}) {}
func (l *testLogger) Infof(ctx context.Context, format string, args ...interface{})  {}
func (l *testLogger) Warnf(ctx context.Context, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}
func (l *testLogger) Errorf(ctx context.Context, format string, args ...interface{}) {}
func (l *testLogger) Sync() error                                                    { return nil }

func (l *testLogger) hasWarnContaining(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.warns {
		if strings.Contains(w, sub) {
			return true
		}
	}
	return false
}

// fakeAPI 脚本化的记录库假实现（查询 + 工作单元提交）
type fakeAPI struct {
	pricebooks    []salesforce.Record
	opportunities []salesforce.Record

	queriedSOQL []string

	committed *salesforce.UnitOfWork
	// 按引用键脚本化失败（缺省全部成功）
	failRefs map[string]bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		pricebooks: []salesforce.Record{{"Id": "01sA"}},
		failRefs:   make(map[string]bool),
	}
}

func (f *fakeAPI) QueryAll(ctx context.Context, soql string) ([]salesforce.Record, error) {
	f.queriedSOQL = append(f.queriedSOQL, soql)
	if strings.Contains(soql, "FROM Pricebook2") {
		return f.pricebooks, nil
	}
	if strings.Contains(soql, "FROM Opportunity") {
		return f.opportunities, nil
	}
	return nil, nil
}

func (f *fakeAPI) CommitUnitOfWork(ctx context.Context, uow *salesforce.UnitOfWork) (*salesforce.CommitResult, error) {
	f.committed = uow

	outcomes := make(map[salesforce.Ref]salesforce.Outcome)
	for i, reg := range uow.Registrations() {
		if f.failRefs[reg.Ref.Key()] {
			outcomes[reg.Ref] = salesforce.Outcome{
				Errors: []salesforce.APIErrorItem{{Message: "duplicate value", ErrorCode: "DUPLICATE_VALUE"}},
			}
			continue
		}
		outcomes[reg.Ref] = salesforce.Outcome{ID: fmt.Sprintf("0Q0%03d", i+1)}
	}
	return salesforce.NewCommitResult(outcomes), nil
}

// opportunity 构造带嵌套行项目的父记录
func opportunity(id, name, closeDate, region string, lines ...salesforce.Record) salesforce.Record {
	rec := salesforce.Record{
		"Id":        id,
		"Name":      name,
		"CloseDate": closeDate,
		"Region__c": region,
	}
	raw := make([]interface{}, 0, len(lines))
	for _, line := range lines {
		raw = append(raw, map[string]interface{}(line))
	}
	rec["OpportunityLineItems"] = map[string]interface{}{"records": raw, "done": true}
	return rec
}

func line(id string, quantity, unitPrice float64) salesforce.Record {
	return salesforce.Record{
		"Id": id, "Quantity": quantity, "UnitPrice": unitPrice, "PricebookEntryId": "01uA",
	}
}

func newTestHandler(api *fakeAPI, log *testLogger) *Handler {
	policy := NewRegionPolicy("Region__c", map[string]float64{"EMEA": 0.15}, 0.05)
	return NewHandler(api, policy, log, Options{})
}

func TestMissingWhereClauseIsNoOp(t *testing.T) {
	api := newFakeAPI()
	log := &testLogger{}
	h := newTestHandler(api, log)

	err := h.Handle(context.Background(), &job.Envelope{JobType: "quote"})
	require.NoError(t, err)

	// 连前置查询都不该发出
	assert.Empty(t, api.queriedSOQL)
	assert.Nil(t, api.committed)
	assert.True(t, log.hasWarnContaining("Missing soqlWhereClause"))
}

func TestZeroMatchesSkipsCommit(t *testing.T) {
	api := newFakeAPI()
	log := &testLogger{}
	h := newTestHandler(api, log)

	err := h.Handle(context.Background(), &job.Envelope{SoqlWhereClause: "Name = 'X'"})
	require.NoError(t, err)

	assert.Nil(t, api.committed)
	assert.True(t, log.hasWarnContaining("No opportunities matched"))
}

func TestMissingPricebookIsFatal(t *testing.T) {
	api := newFakeAPI()
	api.pricebooks = nil
	h := newTestHandler(api, &testLogger{})

	err := h.Handle(context.Background(), &job.Envelope{SoqlWhereClause: "Name != ''"})
	require.Error(t, err)
	assert.True(t, errorutil.IsPrecondition(err))
}

func TestParentWithoutLinesIsSkipped(t *testing.T) {
	api := newFakeAPI()
	api.opportunities = []salesforce.Record{
		opportunity("006A", "With lines", "2026-03-01", "EMEA", line("00kA", 2, 100)),
		opportunity("006B", "No lines", "2026-03-01", "EMEA"),
	}
	log := &testLogger{}
	h := newTestHandler(api, log)

	err := h.Handle(context.Background(), &job.Envelope{SoqlWhereClause: "Name != ''"})
	require.NoError(t, err)

	require.NotNil(t, api.committed)
	regs := api.committed.Registrations()
	// 仅一个父记录被注册：1 个 Quote + 1 条行项目
	require.Len(t, regs, 2)
	assert.Equal(t, "Quote", regs[0].ObjectType)
	assert.Equal(t, "QuoteLineItem", regs[1].ObjectType)
	assert.True(t, log.hasWarnContaining("006B"))
}

func TestDiscountAppliedExactly(t *testing.T) {
	api := newFakeAPI()
	api.opportunities = []salesforce.Record{
		opportunity("006A", "Opp A", "2026-03-01", "EMEA", line("00kA", 2, 100.0), line("00kB", 1, 33.3)),
	}
	h := newTestHandler(api, &testLogger{})

	err := h.Handle(context.Background(), &job.Envelope{SoqlWhereClause: "Name != ''"})
	require.NoError(t, err)

	regs := api.committed.Registrations()
	require.Len(t, regs, 3)

	quote := regs[0]
	assert.Equal(t, "Draft", quote.Fields["Status"])
	assert.Equal(t, "01sA", quote.Fields["Pricebook2Id"])
	// 过期日 = close date + 30 天
	assert.Equal(t, "2026-03-31", quote.Fields["ExpirationDate"])

	// 单价精确等于 original * (1 - rate)，无额外舍入
	assert.Equal(t, 100.0*(1-0.15), regs[1].Fields["UnitPrice"])
	assert.Equal(t, 33.3*(1-0.15), regs[2].Fields["UnitPrice"])

	// 子行持有父级引用作为前向外键
	assert.Equal(t, quote.Ref, regs[1].Fields["QuoteId"])
}

func TestMalformedCloseDateSkipsParentOnly(t *testing.T) {
	api := newFakeAPI()
	api.opportunities = []salesforce.Record{
		opportunity("006A", "Bad date", "not-a-date", "EMEA", line("00kA", 1, 10)),
		opportunity("006B", "Good", "2026-03-01", "EMEA", line("00kB", 1, 10)),
	}
	log := &testLogger{}
	h := newTestHandler(api, log)

	err := h.Handle(context.Background(), &job.Envelope{SoqlWhereClause: "Name != ''"})
	require.NoError(t, err)

	// 坏记录跳过，好记录照常：1 Quote + 1 行项目
	require.NotNil(t, api.committed)
	assert.Equal(t, 2, api.committed.Len())
	assert.True(t, log.hasWarnContaining("006A"))
}

func TestPerReferenceReconciliation(t *testing.T) {
	// 同一提交里一成一败：各自计数，互不影响
	api := newFakeAPI()
	api.opportunities = []salesforce.Record{
		opportunity("006A", "Opp A", "2026-03-01", "EMEA", line("00kA", 1, 10)),
		opportunity("006B", "Opp B", "2026-03-01", "APAC", line("00kB", 1, 10)),
	}
	// 第二个父记录（ref3：ref1=QuoteA, ref2=LineA, ref3=QuoteB）提交失败
	api.failRefs["ref3"] = true

	log := &testLogger{}
	h := newTestHandler(api, log)

	err := h.Handle(context.Background(), &job.Envelope{SoqlWhereClause: "Name != ''"})
	require.NoError(t, err)

	assert.True(t, log.hasWarnContaining("006B"))
	assert.False(t, log.hasWarnContaining("006A"))
}

package salesforce

import "context"

// Querier 分页查询能力
type Querier interface {
	QueryAll(ctx context.Context, soql string) ([]Record, error)
}

// BulkAPI 异步批量写入能力
type BulkAPI interface {
	SubmitIngest(ctx context.Context, object string, op Operation, table *RowTable) (*JobRef, error)
	IngestStatus(ctx context.Context, ref *JobRef) (*JobStatus, error)
	SuccessfulRows(ctx context.Context, ref *JobRef) ([]Row, error)
	FailedRows(ctx context.Context, ref *JobRef) ([]Row, error)
}

// Committer 工作单元提交能力
type Committer interface {
	CommitUnitOfWork(ctx context.Context, uow *UnitOfWork) (*CommitResult, error)
}

// API 记录库完整能力边界
type API interface {
	Querier
	BulkAPI
	Committer
}

var _ API = (*Client)(nil)

package salesforce

import (
	"bytes"
	"context"
	"fmt"
)

// Operation 批量操作类型
type Operation string

const (
	OperationInsert     Operation = "insert"
	OperationHardDelete Operation = "hardDelete"
)

// JobState 批量作业状态（外部服务驱动，本地只读不推动迁移）
// Open → UploadComplete → InProgress → {JobComplete | Failed | Aborted}
type JobState string

const (
	StateOpen           JobState = "Open"
	StateUploadComplete JobState = "UploadComplete"
	StateInProgress     JobState = "InProgress"
	StateJobComplete    JobState = "JobComplete"
	StateFailed         JobState = "Failed"
	StateAborted        JobState = "Aborted"
)

// IsTerminal 是否为终态
func (s JobState) IsTerminal() bool {
	switch s {
	case StateJobComplete, StateFailed, StateAborted:
		return true
	default:
		return false
	}
}

// JobRef 在途批量作业的引用句柄
type JobRef struct {
	ID        string    `json:"id"`
	Object    string    `json:"object"`
	Operation Operation `json:"operation"`
}

// JobStatus 批量作业状态快照
type JobStatus struct {
	ID                     string   `json:"id"`
	State                  JobState `json:"state"`
	NumberRecordsProcessed int64    `json:"numberRecordsProcessed"`
	NumberRecordsFailed    int64    `json:"numberRecordsFailed"`
	ErrorMessage           string   `json:"errorMessage"`
}

// ingestJobRequest 创建批量作业的请求体
type ingestJobRequest struct {
	Object      string `json:"object"`
	Operation   string `json:"operation"`
	ContentType string `json:"contentType"`
	LineEnding  string `json:"lineEnding"`
}

// SubmitIngest 提交批量写入作业
// 三步提交：创建作业 → 上传 CSV → 标记 UploadComplete；任一步失败即整体失败
func (c *Client) SubmitIngest(ctx context.Context, object string, op Operation, table *RowTable) (*JobRef, error) {
	// 1. 创建作业
	var status JobStatus
	req := &ingestJobRequest{
		Object:      object,
		Operation:   string(op),
		ContentType: "CSV",
		LineEnding:  "LF",
	}
	if err := c.doJSON(ctx, "POST", c.restPath("jobs/ingest"), req, &status); err != nil {
		return nil, fmt.Errorf("create ingest job failed: %w", err)
	}
	if status.ID == "" {
		return nil, fmt.Errorf("create ingest job returned no id")
	}

	ref := &JobRef{ID: status.ID, Object: object, Operation: op}

	// 2. 上传行数据
	csvData, err := table.EncodeCSV()
	if err != nil {
		return nil, err
	}
	batchPath := c.restPath("jobs/ingest/" + ref.ID + "/batches")
	if _, err := c.doRaw(ctx, "PUT", batchPath, "text/csv", bytes.NewReader(csvData)); err != nil {
		return nil, fmt.Errorf("upload ingest batch failed (job %s): %w", ref.ID, err)
	}

	// 3. 标记上传完成，作业进入外部处理
	patch := map[string]string{"state": string(StateUploadComplete)}
	if err := c.doJSON(ctx, "PATCH", c.restPath("jobs/ingest/"+ref.ID), patch, nil); err != nil {
		return nil, fmt.Errorf("close ingest job failed (job %s): %w", ref.ID, err)
	}

	return ref, nil
}

// IngestStatus 查询批量作业状态
func (c *Client) IngestStatus(ctx context.Context, ref *JobRef) (*JobStatus, error) {
	var status JobStatus
	if err := c.doJSON(ctx, "GET", c.restPath("jobs/ingest/"+ref.ID), nil, &status); err != nil {
		return nil, fmt.Errorf("get ingest status failed (job %s): %w", ref.ID, err)
	}
	return &status, nil
}

// SuccessfulRows 拉取成功行结果
// 仅在 JobComplete 终态下调用；返回行包含 sf__Id 列（已创建记录的外部 ID）
func (c *Client) SuccessfulRows(ctx context.Context, ref *JobRef) ([]Row, error) {
	data, err := c.doRaw(ctx, "GET", c.restPath("jobs/ingest/"+ref.ID+"/successfulResults/"), "", nil)
	if err != nil {
		return nil, fmt.Errorf("get successful rows failed (job %s): %w", ref.ID, err)
	}
	return ParseResultCSV(data)
}

// FailedRows 拉取失败行诊断
// 返回行包含 sf__Error 列（每行的失败原因）
func (c *Client) FailedRows(ctx context.Context, ref *JobRef) ([]Row, error) {
	data, err := c.doRaw(ctx, "GET", c.restPath("jobs/ingest/"+ref.ID+"/failedResults/"), "", nil)
	if err != nil {
		return nil, fmt.Errorf("get failed rows failed (job %s): %w", ref.ID, err)
	}
	return ParseResultCSV(data)
}

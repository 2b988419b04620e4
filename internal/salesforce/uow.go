package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
)

// Ref 工作单元内的记录引用句柄
// 注册时分配的显式顺序令牌，既是提交请求里的 referenceId，
// 也是提交结果的查找键；仅在创建它的工作单元内可解析
type Ref struct {
	key string
}

// Key 引用令牌（如 "ref1"）
func (r Ref) Key() string {
	return r.key
}

// registration 一条待创建记录
type registration struct {
	ref        Ref
	objectType string
	fields     map[string]interface{}
}

// UnitOfWork 工作单元：单次请求内的待创建记录批次
// 一次事务性提交，逐记录报告结果；提交前记录不落库
type UnitOfWork struct {
	regs []registration
}

// NewUnitOfWork 创建空工作单元
func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{regs: make([]registration, 0)}
}

// RegisterCreate 注册一条记录创建，返回引用句柄
// 返回的 Ref 可作为后续注册字段里的前向外键（记录尚未持久化）
func (u *UnitOfWork) RegisterCreate(objectType string, fields map[string]interface{}) Ref {
	ref := Ref{key: fmt.Sprintf("ref%d", len(u.regs)+1)}
	u.regs = append(u.regs, registration{
		ref:        ref,
		objectType: objectType,
		fields:     fields,
	})
	return ref
}

// Len 已注册记录数
func (u *UnitOfWork) Len() int {
	return len(u.regs)
}

// Registration 已注册记录的只读视图
type Registration struct {
	Ref        Ref
	ObjectType string
	Fields     map[string]interface{}
}

// Registrations 按注册顺序返回只读视图
func (u *UnitOfWork) Registrations() []Registration {
	out := make([]Registration, 0, len(u.regs))
	for _, reg := range u.regs {
		out = append(out, Registration{
			Ref:        reg.ref,
			ObjectType: reg.objectType,
			Fields:     reg.fields,
		})
	}
	return out
}

// Outcome 单条记录的提交结果
// 成功以分配到的 ID 标记，失败以结构化错误详情标记，二者互斥
type Outcome struct {
	ID     string
	Errors []APIErrorItem
}

// Success 是否创建成功
func (o Outcome) Success() bool {
	return o.ID != ""
}

// CommitResult 提交结果：按引用句柄寻址（注册顺序不保证等于结果顺序）
type CommitResult struct {
	outcomes map[Ref]Outcome
}

// NewCommitResult 从结果映射构造提交结果（供 Committer 的替代实现使用）
func NewCommitResult(outcomes map[Ref]Outcome) *CommitResult {
	return &CommitResult{outcomes: outcomes}
}

// Outcome 按引用句柄查找结果
func (r *CommitResult) Outcome(ref Ref) (Outcome, bool) {
	o, ok := r.outcomes[ref]
	return o, ok
}

// 组合图请求/响应的线上结构
type compositeSubRequest struct {
	Method      string                 `json:"method"`
	URL         string                 `json:"url"`
	ReferenceID string                 `json:"referenceId"`
	Body        map[string]interface{} `json:"body"`
}

type compositeGraphRequest struct {
	Graphs []compositeGraph `json:"graphs"`
}

type compositeGraph struct {
	GraphID          string                `json:"graphId"`
	CompositeRequest []compositeSubRequest `json:"compositeRequest"`
}

type compositeGraphResponse struct {
	Graphs []struct {
		GraphID       string `json:"graphId"`
		IsSuccessful  bool   `json:"isSuccessful"`
		GraphResponse struct {
			CompositeResponse []struct {
				ReferenceID    string          `json:"referenceId"`
				HTTPStatusCode int             `json:"httpStatusCode"`
				Body           json.RawMessage `json:"body"`
			} `json:"compositeResponse"`
		} `json:"graphResponse"`
	} `json:"graphs"`
}

// CommitUnitOfWork 提交工作单元
// 整批一次提交；注册字段里的 Ref 值序列化为前向外键占位符 "@{refN.id}"
func (c *Client) CommitUnitOfWork(ctx context.Context, uow *UnitOfWork) (*CommitResult, error) {
	if uow.Len() == 0 {
		return nil, fmt.Errorf("unit of work is empty")
	}

	subRequests := make([]compositeSubRequest, 0, uow.Len())
	for _, reg := range uow.regs {
		body := make(map[string]interface{}, len(reg.fields))
		for k, v := range reg.fields {
			if ref, ok := v.(Ref); ok {
				body[k] = fmt.Sprintf("@{%s.id}", ref.key)
			} else {
				body[k] = v
			}
		}

		subRequests = append(subRequests, compositeSubRequest{
			Method:      "POST",
			URL:         c.restPath("sobjects/" + reg.objectType),
			ReferenceID: reg.ref.key,
			Body:        body,
		})
	}

	req := &compositeGraphRequest{
		Graphs: []compositeGraph{{
			GraphID:          "uow",
			CompositeRequest: subRequests,
		}},
	}

	var resp compositeGraphResponse
	if err := c.doJSON(ctx, "POST", c.restPath("composite/graph"), req, &resp); err != nil {
		return nil, fmt.Errorf("commit unit of work failed: %w", err)
	}
	if len(resp.Graphs) == 0 {
		return nil, fmt.Errorf("commit unit of work returned no graphs")
	}

	// 按 referenceId 回填结果
	byKey := make(map[string]Ref, uow.Len())
	for _, reg := range uow.regs {
		byKey[reg.ref.key] = reg.ref
	}

	result := &CommitResult{outcomes: make(map[Ref]Outcome, uow.Len())}
	for _, item := range resp.Graphs[0].GraphResponse.CompositeResponse {
		ref, ok := byKey[item.ReferenceID]
		if !ok {
			continue
		}

		var outcome Outcome
		if item.HTTPStatusCode < 300 {
			var created struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(item.Body, &created); err == nil {
				outcome.ID = created.ID
			}
		} else {
			_ = json.Unmarshal(item.Body, &outcome.Errors)
			if len(outcome.Errors) == 0 {
				outcome.Errors = []APIErrorItem{{Message: fmt.Sprintf("status %d", item.HTTPStatusCode)}}
			}
		}

		result.outcomes[ref] = outcome
	}

	return result, nil
}

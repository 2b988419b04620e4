package salesforce

import (
	"context"
	"fmt"
	"net/url"
)

// Record 查询返回的记录（字段名 → 值）
type Record map[string]interface{}

// Str 读取字符串字段（缺失或类型不符返回空串）
func (r Record) Str(name string) string {
	if v, ok := r[name].(string); ok {
		return v
	}
	return ""
}

// Float 读取数值字段（缺失或类型不符返回 0）
func (r Record) Float(name string) float64 {
	if v, ok := r[name].(float64); ok {
		return v
	}
	return 0
}

// Sub 读取嵌套子查询记录（父子 join 的 children 部分）
func (r Record) Sub(name string) []Record {
	nested, ok := r[name].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := nested["records"].([]interface{})
	if !ok {
		return nil
	}

	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			records = append(records, Record(m))
		}
	}
	return records
}

// QueryResult 单页查询结果
type QueryResult struct {
	TotalSize      int      `json:"totalSize"`
	Done           bool     `json:"done"`
	NextRecordsURL string   `json:"nextRecordsUrl"`
	Records        []Record `json:"records"`
}

// Query 执行单页 SOQL 查询
func (c *Client) Query(ctx context.Context, soql string) (*QueryResult, error) {
	path := c.restPath("query") + "?q=" + url.QueryEscape(soql)

	var result QueryResult
	if err := c.doJSON(ctx, "GET", path, nil, &result); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	return &result, nil
}

// QueryAll 执行 SOQL 查询并透明翻页
// 跟随 nextRecordsUrl 直到 done，拼接所有页；绝不静默截断
func (c *Client) QueryAll(ctx context.Context, soql string) ([]Record, error) {
	result, err := c.Query(ctx, soql)
	if err != nil {
		return nil, err
	}

	records := result.Records
	for !result.Done {
		if result.NextRecordsURL == "" {
			return nil, fmt.Errorf("query pagination broken: done=false but no nextRecordsUrl")
		}

		var next QueryResult
		if err := c.doJSON(ctx, "GET", result.NextRecordsURL, nil, &next); err != nil {
			return nil, fmt.Errorf("query next page failed: %w", err)
		}

		records = append(records, next.Records...)
		result = &next
	}

	return records, nil
}

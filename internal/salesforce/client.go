package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"orgjobs/internal/domains/job"
)

var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

// Client 记录库 REST 客户端
// 由单个 Job 的安全上下文构造，生命周期与 Job 相同，不跨 Job 复用
type Client struct {
	http        *http.Client
	instanceURL string
	apiVersion  string
	accessToken string
}

// NewClient 从安全上下文构造客户端
// 上下文必须完整；部分填充的上下文在构造前就已被调度层拒绝
func NewClient(sc *job.SecurityContext) (*Client, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		http:        httpClient,
		instanceURL: strings.TrimRight(sc.InstanceURL, "/"),
		apiVersion:  sc.APIVersion,
		accessToken: sc.AccessToken,
	}, nil
}

// restPath 拼接版本化 REST 路径（path 不含前缀，如 "query"）
func (c *Client) restPath(path string) string {
	return fmt.Sprintf("/services/data/v%s/%s", c.apiVersion, path)
}

// APIError 记录库结构化错误（响应体为错误数组）
type APIError struct {
	StatusCode int
	Items      []APIErrorItem
}

// APIErrorItem 单条错误详情
type APIErrorItem struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	if len(e.Items) > 0 {
		return fmt.Sprintf("api error (status %d): %s [%s]", e.StatusCode, e.Items[0].Message, e.Items[0].ErrorCode)
	}
	return fmt.Sprintf("api error (status %d)", e.StatusCode)
}

// doJSON 执行 JSON 请求
// path 为实例根下的绝对路径；reqBody/respBody 可为 nil
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var bodyReader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request failed: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	data, err := c.doRaw(ctx, method, path, "application/json", bodyReader)
	if err != nil {
		return err
	}

	if respBody != nil && len(data) > 0 {
		if err := json.Unmarshal(data, respBody); err != nil {
			return fmt.Errorf("unmarshal response failed: %w", err)
		}
	}

	return nil
}

// doRaw 执行原始请求，返回响应体字节
// 非 2xx 响应解析为 APIError（解析失败时保留状态码）
func (c *Client) doRaw(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.instanceURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, &apiErr.Items)
		return nil, apiErr
	}

	return data, nil
}

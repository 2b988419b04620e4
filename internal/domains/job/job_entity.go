package job

import (
	"fmt"
)

// Type Job 类型（封闭枚举，路由键）
type Type string

const (
	// TypeData 批量数据作业（create/delete）
	TypeData Type = "data"
	// TypeQuote 事务性报价作业
	TypeQuote Type = "quote"
)

// ParseType 解析 Job 类型，未知类型视为不可路由消息
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeData, TypeQuote:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unknown job type: %q", s)
	}
}

// Operation 数据作业操作类型
type Operation string

const (
	OperationCreate Operation = "create"
	OperationDelete Operation = "delete"
)

// Envelope Job 信封：生产者发布到通道的消息载荷
// 发布后不可变；无持久化表示，发布时无订阅者则丢失（fire-and-forget）
type Envelope struct {
	// 元信息
	JobID   string `json:"jobId"`   // 关联 ID，仅用于日志；不做幂等/去重
	JobType string `json:"jobType"` // 路由键

	// 安全上下文（构造记录库客户端所需）
	SecurityContext *SecurityContext `json:"securityContext"`

	// data 作业字段
	Operation string `json:"operation,omitempty"`
	Count     int    `json:"count,omitempty"`

	// quote 作业字段
	SoqlWhereClause string `json:"soqlWhereClause,omitempty"`
}

// SecurityContext 调用方安全上下文
// 每个 Job 用自己的上下文构造独立客户端，凭证不跨 Job 共享，避免跨租户泄漏
type SecurityContext struct {
	AccessToken string `json:"accessToken"` // 访问令牌
	APIVersion  string `json:"apiVersion"`  // API 版本（如 "62.0"）
	OrgID       string `json:"orgId"`       // 租户/组织 ID
	UserID      string `json:"userId"`      // 操作用户身份
	Namespace   string `json:"namespace"`   // 命名空间（可为空）
	InstanceURL string `json:"instanceUrl"` // 记录库基础 URL
}

// Validate 校验安全上下文完整性
// 失败关闭：任一必填字段缺失即视为非法消息，返回首个缺失字段
func (s *SecurityContext) Validate() error {
	if s == nil {
		return fmt.Errorf("security context is missing")
	}
	required := []struct {
		name  string
		value string
	}{
		{"accessToken", s.AccessToken},
		{"apiVersion", s.APIVersion},
		{"orgId", s.OrgID},
		{"userId", s.UserID},
		{"instanceUrl", s.InstanceURL},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("security context field %s is required", f.name)
		}
	}
	return nil
}

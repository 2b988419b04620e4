package errorutil

import (
	"errors"
	"fmt"
)

// Kind 错误分类
// 错误分类决定调度层的处理方式：Malformed 直接丢弃，其余都终止当前 Job
type Kind int

const (
	// KindMalformed 非法输入（消息解析失败、安全上下文缺失），丢弃不重试
	KindMalformed Kind = iota
	// KindPrecondition 前置条件缺失（必需的引用记录不存在），终止当前 Job
	KindPrecondition
	// KindTransport 外部传输错误（提交失败、查询失败、轮询失败）
	KindTransport
	// KindTimeout 轮询超时（外部 Job 在时间预算内未到达终态）
	KindTimeout
)

// Error 错误结构
// Transport/Timeout 类错误必须携带外部引用 ID（RefID），便于运维关联排查
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	RefID   string `json:"ref_id,omitempty"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.RefID != "" {
		return fmt.Sprintf("%s (ref=%s)", e.Message, e.RefID)
	}
	return e.Message
}

// Unwrap 支持 errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// Malformed 创建非法输入错误
func Malformed(message string) *Error {
	return &Error{Kind: KindMalformed, Message: message}
}

// Precondition 创建前置条件错误
func Precondition(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message}
}

// Transport 创建传输错误（refID 为外部 Job/引用 ID，可为空）
func Transport(message string, refID string, err error) *Error {
	return &Error{Kind: KindTransport, Message: message, RefID: refID, Err: err}
}

// Timeout 创建超时错误
func Timeout(message string, refID string) *Error {
	return &Error{Kind: KindTimeout, Message: message, RefID: refID}
}

// kindOf 提取错误分类
func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsMalformed 判断是否为非法输入错误
func IsMalformed(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindMalformed
}

// IsPrecondition 判断是否为前置条件错误
func IsPrecondition(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindPrecondition
}

// IsTransport 判断是否为传输错误
func IsTransport(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransport
}

// IsTimeout 判断是否为超时错误
func IsTimeout(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTimeout
}

// RefID 提取错误携带的外部引用 ID（无则返回空串）
func RefID(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.RefID
	}
	return ""
}

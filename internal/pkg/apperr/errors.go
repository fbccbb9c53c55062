// Package apperr 定义跨限界上下文共享的错误类型。
package apperr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"storefront/internal/pkg/metrics"
)

var (
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("operation not permitted for this session")
)

// FieldError 描述一个校验失败的字段
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError 表示请求缺少必填字段或字段取值非法。
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add 追加一个字段错误
func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// OrNil 没有字段错误时返回 nil，方便调用方直接 return。
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ExternalStoreError 包装外部存储（数据库、缓存）的失败。
// Error() 不暴露底层原因，原因通过 Cause/Unwrap 保留用于日志。
type ExternalStoreError struct {
	Op    string
	cause error
}

func (e *ExternalStoreError) Error() string {
	return fmt.Sprintf("external store failure during %s", e.Op)
}

func (e *ExternalStoreError) Unwrap() error { return e.cause }

// Cause 兼容 github.com/pkg/errors 的 Cause 链
func (e *ExternalStoreError) Cause() error { return e.cause }

// Store 把底层错误包装为 ExternalStoreError，并记录指标。
// 已经是业务错误（ErrNotFound 等）的不做包装。
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *ExternalStoreError
	if errors.As(err, &storeErr) {
		return err
	}
	metrics.StoreErrors.WithLabelValues(op).Inc()
	return &ExternalStoreError{Op: op, cause: errors.WithStack(err)}
}

// IsStore 判断错误链上是否有 ExternalStoreError
func IsStore(err error) bool {
	var storeErr *ExternalStoreError
	return errors.As(err, &storeErr)
}

package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message），可选包装底层错误（Err）
//   - 支持错误检查函数（IsXXX），兼容 errors.Is / errors.As
//
// 错误分类：
//   - CONFIGURATION：Space 边界等启动期配置错误，进程不应启动
//   - NOT_FOUND：按 id 查询不存在
//   - INVALID_FILTER / INVALID_PARAMETERS：查询参数非法，拒绝请求
//   - EXTERNAL_SERVICE：Embedding / LLM 调用失败
//   - VALIDATION_ANOMALY：LLM 产出了越界值，已被截断或丢弃
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "INVALID_FILTER"）
	Message string // 错误消息
	Module  string // 模块名称（如 "index", "query", "nlq"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is 让 errors.Is 按 Module + Code 匹配预定义的错误变量。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Module == "" || e.Module == t.Module)
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// Errorf 创建带格式化消息的领域错误。
func Errorf(module, code, format string, args ...any) *DomainError {
	return NewDomainError(module, code, fmt.Sprintf(format, args...))
}

// WrapError 用领域错误包装底层错误。
func WrapError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// GetDomainError 获取错误链上的 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// IsDomainError 检查错误链上是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// 错误代码常量
const (
	ErrorCodeConfiguration     = "CONFIGURATION"
	ErrorCodeNotFound          = "NOT_FOUND"
	ErrorCodeInvalidFilter     = "INVALID_FILTER"
	ErrorCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrorCodeInvalidInput      = "INVALID_INPUT"
	ErrorCodeExternalService   = "EXTERNAL_SERVICE"
	ErrorCodeValidationAnomaly = "VALIDATION_ANOMALY"
	ErrorCodeNotSupported      = "NOT_SUPPORTED"
	ErrorCodeUnavailable       = "UNAVAILABLE"
)

// 模块名称常量
const (
	ModuleCatalog = "catalog"
	ModuleSpace   = "space"
	ModuleIndex   = "index"
	ModuleQuery   = "query"
	ModuleNLQ     = "nlq"
	ModuleStore   = "store"
	ModuleIngest  = "ingest"
	ModuleConfig  = "config"
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsConfiguration 检查错误是否为 CONFIGURATION
func IsConfiguration(err error) bool { return hasCode(err, ErrorCodeConfiguration) }

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsInvalidFilter 检查错误是否为 INVALID_FILTER
func IsInvalidFilter(err error) bool { return hasCode(err, ErrorCodeInvalidFilter) }

// IsInvalidParameters 检查错误是否为 INVALID_PARAMETERS
func IsInvalidParameters(err error) bool { return hasCode(err, ErrorCodeInvalidParameters) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsExternalService 检查错误是否为 EXTERNAL_SERVICE
func IsExternalService(err error) bool { return hasCode(err, ErrorCodeExternalService) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

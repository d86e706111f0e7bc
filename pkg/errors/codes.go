package errors

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/errors"
)

// 错误码规范：
// - 1xxxx: 通用错误（参数、未找到）
// - 4xxxx: 外部服务错误（GraphQL hub、agent 后端、缓存协议）
// - 5xxxx: 系统级错误

// ==================== 通用错误 (10000-19999) ====================

const (
	CodeNotFound         = 10003
	CodeInvalidParameter = 10100
)

// ==================== 外部服务错误 (40000-49999) ====================

const (
	// 传输层错误 (40000-40099)
	CodeFetchFailed        = 40000
	CodeCircuitBreakerOpen = 40003

	// 远端错误响应 (40100-40199)
	CodeRemoteError   = 40100
	CodeGraphQLErrors = 40101

	// 缓存协议错误 (40200-40299)
	CodeCacheProtocolError = 40200
)

// ==================== 系统错误 (50000-59999) ====================

const (
	CodeConfigError = 50003
)

// 错误 reason，kratos 以 reason 区分错误类别
const (
	ReasonFetchFailed   = "FETCH_FAILED"
	ReasonRemoteError   = "REMOTE_ERROR"
	ReasonCacheProtocol = "CACHE_PROTOCOL_ERROR"
	ReasonNotFound      = "NOT_FOUND"
	ReasonInvalidArg    = "INVALID_ARGUMENT"
	ReasonCircuitOpen   = "CIRCUIT_OPEN"
	ReasonConfig        = "CONFIG_ERROR"
)

// ==================== 错误构造函数 ====================

// NewFetchFailed 传输层失败（网络不可达、超时），对应 "fetch failed"
func NewFetchFailed(err error, message string) *errors.Error {
	if message == "" {
		message = "fetch failed"
	}
	e := errors.New(503, ReasonFetchFailed, message).
		WithMetadata(map[string]string{"code": fmt.Sprint(CodeFetchFailed)})
	if err != nil {
		e = e.WithCause(err)
	}
	return e
}

// NewRemoteError 远端返回非 2xx 或 GraphQL errors
// serverMessage 为空时退化为通用的 HTTP 状态描述
func NewRemoteError(status int, serverMessage string) *errors.Error {
	message := serverMessage
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	code := 502
	if status >= 400 && status < 600 {
		code = status
	}
	return errors.New(code, ReasonRemoteError, message).
		WithMetadata(map[string]string{
			"code":   fmt.Sprint(CodeRemoteError),
			"status": fmt.Sprint(status),
		})
}

// NewGraphQLError GraphQL 响应中带 errors 数组
func NewGraphQLError(serverMessage string) *errors.Error {
	if serverMessage == "" {
		serverMessage = "graphql request failed"
	}
	return errors.New(502, ReasonRemoteError, serverMessage).
		WithMetadata(map[string]string{"code": fmt.Sprint(CodeGraphQLErrors)})
}

// NewCacheProtocolError 缓存控制接口调用失败
func NewCacheProtocolError(operation string, err error) *errors.Error {
	msg := fmt.Sprintf("cache %s failed", operation)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	e := errors.New(502, ReasonCacheProtocol, msg).
		WithMetadata(map[string]string{
			"code":      fmt.Sprint(CodeCacheProtocolError),
			"operation": operation,
		})
	if err != nil {
		e = e.WithCause(err)
	}
	return e
}

// NewCircuitOpen 熔断器打开
func NewCircuitOpen(service string, err error) *errors.Error {
	return errors.New(503, ReasonCircuitOpen, fmt.Sprintf("%s: circuit breaker is open", service)).
		WithMetadata(map[string]string{"code": fmt.Sprint(CodeCircuitBreakerOpen)}).
		WithCause(err)
}

// ==================== 错误判断函数 ====================

// IsFetchFailed 判断是否为传输层错误
func IsFetchFailed(err error) bool {
	return hasReason(err, ReasonFetchFailed)
}

// IsRemoteError 判断是否为远端错误响应
func IsRemoteError(err error) bool {
	return hasReason(err, ReasonRemoteError)
}

// IsCacheProtocolError 判断是否为缓存协议错误
func IsCacheProtocolError(err error) bool {
	return hasReason(err, ReasonCacheProtocol)
}

// IsCircuitOpen 判断是否为熔断错误
func IsCircuitOpen(err error) bool {
	return hasReason(err, ReasonCircuitOpen)
}

// StatusOf 返回远端 HTTP 状态码，非远端错误返回 0
func StatusOf(err error) int {
	e := errors.FromError(err)
	if e == nil || e.Reason != ReasonRemoteError {
		return 0
	}
	var status int
	fmt.Sscanf(e.Metadata["status"], "%d", &status)
	return status
}

func hasReason(err error, reason string) bool {
	if err == nil {
		return false
	}
	return errors.Reason(err) == reason
}

package errors

import (
	"encoding/json"
	"strings"
)

// ErrorBody 后端统一错误响应格式
// agent 后端返回 {"message": "...", "status": 404}，部分网关返回 {"error": "..."}
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// GraphQLError GraphQL 响应中的单个错误
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// MessageFromBody 从错误响应体中提取服务端消息
// 无法解析时返回空字符串，由调用方退化为 HTTP 状态描述
func MessageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var eb ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}

	// GraphQL 网关在非 2xx 时也可能返回 errors 数组
	var gql struct {
		Errors []GraphQLError `json:"errors"`
	}
	if err := json.Unmarshal(body, &gql); err == nil {
		if msg := JoinGraphQLErrors(gql.Errors); msg != "" {
			return msg
		}
	}

	return ""
}

// JoinGraphQLErrors 合并多个 GraphQL 错误消息
func JoinGraphQLErrors(errs []GraphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

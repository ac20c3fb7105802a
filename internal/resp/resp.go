// Package resp 提供统一的 JSON 响应封装和稳定的业务响应码。
// 同一类失败总是产生相同的 code/message，调用方的幂等重试逻辑依赖这一点。
package resp

import (
	"encoding/json"
	"net/http"
)

// Code 业务响应码，与 HTTP 状态码解耦。
type Code int

const (
	CodeOK Code = 0

	CodeInvalidParam      Code = 10001 // 请求参数非法
	CodeUnauthorized      Code = 10002 // 未认证或令牌无效
	CodeForbidden         Code = 10003 // 权限不足
	CodeNotFound          Code = 10004 // 资源不存在或不可见
	CodeConflict          Code = 10005 // 唯一约束冲突
	CodeTimeout           Code = 10006 // 请求超时
	CodeTooManyRequests   Code = 10007 // 触发限流或重复请求
	CodeInsufficientStock Code = 20001 // 库存不足
	CodeInvalidState      Code = 20002 // 状态机非法迁移
	CodeInternalError     Code = 50000 // 服务端内部错误
)

// HTTPStatusFromCode 返回业务码对应的 HTTP 状态码。
func HTTPStatusFromCode(code Code) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeInsufficientStock, CodeInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Body 统一响应体。
type Body struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// OK 写出成功响应。
func OK(w http.ResponseWriter, data any, requestID, traceID string) {
	write(w, http.StatusOK, &Body{
		Code:      CodeOK,
		Message:   "ok",
		Data:      data,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

// Error 写出失败响应。
func Error(w http.ResponseWriter, status int, code Code, message, requestID, traceID string) {
	write(w, status, &Body{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

func write(w http.ResponseWriter, status int, body *Body) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// 编码失败时响应头已发出，只能放弃；body 均为可序列化结构，实际不会发生
	_ = json.NewEncoder(w).Encode(body)
}

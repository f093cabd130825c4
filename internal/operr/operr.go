package operr

import (
	"errors"
	"fmt"
)

// Code 为面向用户与审计日志的短错误码。
type Code string

const (
	// CodeValidation 表示操作本身不合法，永远不会进入暂存阶段。
	CodeValidation Code = "VALIDATION"
	// CodeQuantityTooSmall 表示归一化后的数量低于交易所最小要求。
	CodeQuantityTooSmall Code = "QUANTITY_TOO_SMALL"
	// CodeContextMissing 表示弹性数量规格缺少价格或仓位上下文。
	CodeContextMissing Code = "CONTEXT_MISSING"
	// CodeConstraintsUnknown 表示约束目录中没有该交易对的规则。
	CodeConstraintsUnknown Code = "CONSTRAINTS_UNKNOWN"
	// CodeSigning 表示密钥缺失或时间同步失败导致无法签名。
	CodeSigning Code = "SIGNING_ERROR"
	// CodeVenueRejected 表示交易所返回了业务层拒绝。
	CodeVenueRejected Code = "VENUE_REJECTED"
	// CodePartialBatch 表示批量订单中部分子订单失败。
	CodePartialBatch Code = "PARTIAL_BATCH_FAILURE"
	// CodeNotFound 表示操作已过期、已取消或已执行完毕。
	CodeNotFound Code = "OPERATION_NOT_FOUND"
	// CodeExecution 表示交易所调用在业务层之外失败（如网络中断）。
	CodeExecution Code = "EXECUTION_FAILED"
	// CodeUnsupported 表示该交易所后端不支持此操作。
	CodeUnsupported Code = "UNSUPPORTED"
)

// Error 同时携带机器可读错误码与人类可读消息。
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 构造带错误码的错误。
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 在保留底层错误的同时附加错误码与说明。
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf 提取错误码，非本包错误归类为 VENUE_REJECTED 之外的通用校验失败。
func CodeOf(err error) Code {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	var qtyErr *QuantityTooSmallError
	if errors.As(err, &qtyErr) {
		return CodeQuantityTooSmall
	}
	return CodeValidation
}

// Is 判断错误是否携带指定错误码。
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// QuantityTooSmallError 在基础币与计价币两种单位下携带计算出的最小值，
// 便于上层直接给出修正建议。
type QuantityTooSmallError struct {
	Symbol      string
	MinQuantity string
	MinNotional string
}

func (e *QuantityTooSmallError) Error() string {
	return fmt.Sprintf("%s: %s 数量过小，最小数量 %s，最小名义价值 %s",
		CodeQuantityTooSmall, e.Symbol, e.MinQuantity, e.MinNotional)
}

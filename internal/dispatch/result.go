package dispatch

import (
	"errors"

	"tradegate/internal/operation"
	"tradegate/internal/operr"
	"tradegate/internal/venue"
)

// StageOutcome 是暂存成功后返回给确认界面的内容。
type StageOutcome struct {
	OperationID string
	Description string
	RiskLevel   operation.RiskLevel
	Preview     string
	NeedsRecalc bool
}

// Result 是一次执行的统一结果。
// 交易所拒绝与批量部分失败都被捕获进 Result，不会作为异常逃出调度器。
type Result struct {
	Success      bool
	OrderID      string
	Status       string
	Raw          string
	ErrorCode    operr.Code
	ErrorMessage string
	Batch        *BatchResult
}

// BatchResult 列出批量订单中成功与失败的子订单。
type BatchResult struct {
	Succeeded []venue.OrderResult
	Failed    []FailedOrder
}

// FailedOrder 描述批量中失败（或因前序失败未执行）的子订单。
type FailedOrder struct {
	Index        int
	Symbol       string
	ErrorCode    operr.Code
	ErrorMessage string
}

// resultFromOrder 由交易所回执构造成功结果。
func resultFromOrder(order venue.OrderResult) Result {
	return Result{
		Success: true,
		OrderID: order.OrderID,
		Status:  order.Status,
		Raw:     order.Raw,
	}
}

// resultFromError 把执行错误折叠进结果。
func resultFromError(err error) Result {
	return Result{
		Success:      false,
		ErrorCode:    executionCode(err),
		ErrorMessage: err.Error(),
	}
}

// executionCode 提取执行阶段的错误码；
// 无法归类的错误（网络中断等）记为 EXECUTION_FAILED。
func executionCode(err error) operr.Code {
	var opErr *operr.Error
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	return operr.CodeExecution
}

// Package domain 定义业务领域模型和核心业务规则。
package domain

import (
	"errors"
	"fmt"
)

// 业务错误分类。服务层返回这些哨兵错误（或包装它们），
// API层通过 errors.Is/As 映射为稳定的响应码，不做字符串匹配。
var (
	// ErrInvalidInput 请求字段缺失或非法（空明细、数量非正数等），调用方可修复。
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidProduct 商品不存在、已停用或不属于当前租户。
	ErrInvalidProduct = errors.New("invalid product")

	// ErrInvalidSupplier 供应商不存在、已停用或不属于当前租户。
	ErrInvalidSupplier = errors.New("invalid supplier")

	// ErrInsufficientStock 库存不足，业务规则拒绝；不自动重试。
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStockRecordNotFound 商品缺少台账记录。每个在售商品必须恰好有一条
	// 台账记录，出现该错误说明数据完整性被破坏，需要大声记录日志。
	ErrStockRecordNotFound = errors.New("stock record not found")

	// ErrInvalidStateTransition 采购单状态机非法迁移。
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrDuplicateKey 唯一约束冲突（SKU、单号、供应商邮箱/电话等）。
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound 按ID查询的实体不存在或不在当前租户可见范围内。
	ErrNotFound = errors.New("not found")
)

// InsufficientStockError 携带库存不足的细节：哪个商品、可用多少、请求多少。
// 通过 Unwrap 关联到 ErrInsufficientStock，调用方统一用 errors.Is 判断。
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InvalidStateTransitionError 携带状态机拒绝的细节：单据当前处于什么状态、
// 想迁移到什么状态。通过 Unwrap 关联到 ErrInvalidStateTransition。
type InvalidStateTransitionError struct {
	PurchaseID int64
	Current    PurchaseStatus
	Attempted  PurchaseStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("purchase %d is %s, cannot transition to %s",
		e.PurchaseID, e.Current, e.Attempted)
}

func (e *InvalidStateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// Package domain 定义采购单相关的业务领域模型和核心业务规则。
package domain

import (
	"time"
)

// PurchaseStatus 定义采购单状态。状态机：
//
//	ordered → received（终态，入库生效）
//	ordered → cancelled（终态，从未影响库存）
//
// received 和 cancelled 不是任何迁移的起点。
type PurchaseStatus string

const (
	PurchaseStatusOrdered   PurchaseStatus = "ordered"
	PurchaseStatusReceived  PurchaseStatus = "received"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

// Valid 判断采购状态是否属于封闭枚举。
func (s PurchaseStatus) Valid() bool {
	switch s {
	case PurchaseStatusOrdered, PurchaseStatusReceived, PurchaseStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo 判断状态机是否允许从当前状态迁移到目标状态。
func (s PurchaseStatus) CanTransitionTo(target PurchaseStatus) bool {
	if s != PurchaseStatusOrdered {
		return false
	}
	return target == PurchaseStatusReceived || target == PurchaseStatusCancelled
}

// Purchase 表示采购单领域模型。创建时不影响库存，
// 只有收货（received）才产生 purchase 类型的台账变动。
type Purchase struct {
	ID             int64           `json:"id"`
	OwnerID        int64           `json:"owner_id"`
	PurchaseNumber string          `json:"purchase_number"` // PO-NNNNNN，租户内唯一
	SupplierID     int64           `json:"supplier_id"`
	Items          []*PurchaseItem `json:"items"`
	TotalAmount    float64         `json:"total_amount"`
	PaymentMethod  string          `json:"payment_method"`
	Status         PurchaseStatus  `json:"status"`
	OrderDate      time.Time       `json:"order_date"`
	ReceivedAt     *time.Time      `json:"received_at,omitempty"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PurchaseItem 表示采购单明细行，TotalCost = Quantity * UnitCost。
type PurchaseItem struct {
	ID         int64   `json:"id"`
	PurchaseID int64   `json:"purchase_id"`
	ProductID  int64   `json:"product_id"`
	Quantity   int     `json:"quantity"`
	UnitCost   float64 `json:"unit_cost"`
	TotalCost  float64 `json:"total_cost"`
}

// PurchaseItemInput 表示创建采购单时的明细输入。
type PurchaseItemInput struct {
	ProductID int64   `json:"product_id" binding:"required,gt=0"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	UnitCost  float64 `json:"unit_cost" binding:"gte=0"`
}

// CreatePurchaseRequest 表示创建采购单请求。
type CreatePurchaseRequest struct {
	SupplierID    int64               `json:"supplier_id" binding:"required,gt=0"`
	Items         []PurchaseItemInput `json:"items" binding:"required,min=1,dive"`
	PaymentMethod string              `json:"payment_method" binding:"required"`
}

// PurchaseListRequest 表示采购单列表查询请求。
type PurchaseListRequest struct {
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Status     *PurchaseStatus `json:"status"`
	SupplierID *int64          `json:"supplier_id"`
}

// PurchaseListResponse 表示采购单列表查询响应。
type PurchaseListResponse struct {
	Purchases []*Purchase `json:"purchases"`
	Total     int64       `json:"total"`
	Page      int         `json:"page"`
	PageSize  int         `json:"page_size"`
}

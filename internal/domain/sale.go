// Package domain 定义销售单相关的业务领域模型和核心业务规则。
package domain

import (
	"time"
)

// SaleStatus 定义销售单状态。取消的销售单保留记录并通过 return 变动
// 回补库存，而不是物理删除，保证审计链完整。
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed" // 已成交，库存已扣减
	SaleStatusCancelled SaleStatus = "cancelled" // 已取消，库存已回补
)

// Sale 表示销售单领域模型。TotalAmount 由服务端计算，不信任客户端。
type Sale struct {
	ID            int64       `json:"id"`
	OwnerID       int64       `json:"owner_id"`
	InvoiceNumber string      `json:"invoice_number"` // INV-NNNNNN，租户内唯一
	Items         []*SaleItem `json:"items"`
	TotalAmount   float64     `json:"total_amount"`
	PaymentMethod string      `json:"payment_method"`
	Status        SaleStatus  `json:"status"`
	SaleDate      time.Time   `json:"sale_date"`
	CreatedBy     int64       `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// IsCancellable 判断销售单是否允许取消。
func (s *Sale) IsCancellable() bool {
	return s.Status == SaleStatusCompleted
}

// SaleItem 表示销售单明细行，TotalPrice = Quantity * UnitPrice。
type SaleItem struct {
	ID         int64   `json:"id"`
	SaleID     int64   `json:"sale_id"`
	ProductID  int64   `json:"product_id"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// SaleItemInput 表示创建销售单时的明细输入。
type SaleItemInput struct {
	ProductID int64   `json:"product_id" binding:"required,gt=0"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" binding:"gte=0"`
}

// CreateSaleRequest 表示创建销售单请求。
type CreateSaleRequest struct {
	Items         []SaleItemInput `json:"items" binding:"required,min=1,dive"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	SaleDate      *time.Time      `json:"sale_date"` // 缺省为当前时间
}

// SaleListRequest 表示销售单列表查询请求。
type SaleListRequest struct {
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Status   *SaleStatus `json:"status"`
}

// SaleListResponse 表示销售单列表查询响应。
type SaleListResponse struct {
	Sales    []*Sale `json:"sales"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

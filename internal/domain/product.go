// Package domain 定义商品相关的业务领域模型和核心业务规则。
package domain

import (
	"time"
)

// Product 表示商品领域模型。所有商品归属于某个店主（OwnerID），
// 非管理员的读写都隐式按租户过滤。商品一旦产生库存记录就不再物理删除，
// 只做停用（IsActive=false）。
type Product struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku"` // 租户内唯一
	Unit          string    `json:"unit"`
	PurchasePrice float64   `json:"purchase_price"`
	SellingPrice  float64   `json:"selling_price"`
	MinStockLevel int       `json:"min_stock_level"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsSellable 判断商品是否可参与销售/采购。
func (p *Product) IsSellable() bool {
	return p.IsActive
}

// CreateProductRequest 表示创建商品请求。
// InitialStock 大于零时会在同一事务内生成一条 adjustment 变动作为期初库存。
type CreateProductRequest struct {
	Name          string  `json:"name" binding:"required,min=1,max=255"`
	SKU           string  `json:"sku" binding:"required,min=1,max=100"`
	Unit          string  `json:"unit" binding:"required,min=1,max=32"`
	PurchasePrice float64 `json:"purchase_price" binding:"gte=0"`
	SellingPrice  float64 `json:"selling_price" binding:"gte=0"`
	MinStockLevel int     `json:"min_stock_level" binding:"gte=0"`
	InitialStock  int     `json:"initial_stock" binding:"gte=0"`
}

// UpdateProductRequest 表示更新商品请求，nil 字段表示不修改。
type UpdateProductRequest struct {
	Name          *string  `json:"name"`
	Unit          *string  `json:"unit"`
	PurchasePrice *float64 `json:"purchase_price"`
	SellingPrice  *float64 `json:"selling_price"`
	MinStockLevel *int     `json:"min_stock_level"`
	IsActive      *bool    `json:"is_active"`
}

// ProductListRequest 表示商品列表查询请求。
type ProductListRequest struct {
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	IsActive *bool   `json:"is_active"`
	Keyword  *string `json:"keyword"` // 匹配名称或SKU
}

// ProductListResponse 表示商品列表查询响应。
type ProductListResponse struct {
	Products []*Product `json:"products"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// ProductWithStock 表示带台账信息的商品。
type ProductWithStock struct {
	*Product
	Stock *StockRecord `json:"stock"`
}

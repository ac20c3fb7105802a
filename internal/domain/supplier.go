// Package domain 定义供应商相关的业务领域模型。
package domain

import (
	"time"
)

// Supplier 表示供应商领域模型，按店主（OwnerID）隔离。
type Supplier struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"` // 租户内唯一
	Phone     string    `json:"phone"` // 租户内唯一
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateSupplierRequest 表示创建供应商请求。
type CreateSupplierRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=255"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required,min=5,max=32"`
	Address string `json:"address"`
}

// UpdateSupplierRequest 表示更新供应商请求，nil 字段表示不修改。
type UpdateSupplierRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	IsActive *bool   `json:"is_active"`
}

// SupplierListRequest 表示供应商列表查询请求。
type SupplierListRequest struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	IsActive *bool `json:"is_active"`
}

// SupplierListResponse 表示供应商列表查询响应。
type SupplierListResponse struct {
	Suppliers []*Supplier `json:"suppliers"`
	Total     int64       `json:"total"`
	Page      int         `json:"page"`
	PageSize  int         `json:"page_size"`
}

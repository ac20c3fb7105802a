// Package domain 定义用户领域模型。
// 用户即租户：店主名下的商品、供应商、单据和台账彼此隔离。
package domain

import (
	"time"
)

// UserRole 定义用户角色类型。
type UserRole string

const (
	UserRoleOwner UserRole = "owner" // 店主，只能访问自己名下的数据
	UserRoleAdmin UserRole = "admin" // 管理员，负责账号管理
)

// User 表示用户领域模型。
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // JSON序列化时忽略密码哈希
	Role         UserRole  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin 判断用户是否为管理员。
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// Valid 判断角色取值是否合法。
func (r UserRole) Valid() bool {
	return r == UserRoleOwner || r == UserRoleAdmin
}

// RegisterRequest 表示用户注册请求。
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest 表示用户登录请求。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 表示登录成功的响应。
type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenRequest 表示刷新令牌请求。
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserListRequest 表示用户列表查询请求，管理员专用。
type UserListRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// UserListResponse 表示用户列表查询响应。
type UserListResponse struct {
	Users    []*User `json:"users"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// UpdateUserRoleRequest 表示修改用户角色请求。
type UpdateUserRoleRequest struct {
	UserID int64    `json:"user_id" binding:"required"`
	Role   UserRole `json:"role" binding:"required"`
}

// UpdateUserStatusRequest 表示启用或停用用户的请求。
type UpdateUserStatusRequest struct {
	UserID   int64 `json:"user_id" binding:"required"`
	IsActive *bool `json:"is_active" binding:"required"`
}

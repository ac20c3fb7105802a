// Package domain 定义库存台账相关的业务领域模型和核心业务规则。
package domain

import (
	"time"
)

// MovementType 定义库存变动类型。
// 变动方向是类型的纯函数（见 Direction），存储的数量永远为正数，
// 符号不落库，避免用字符串比较决定正负号带来的"未知类型"类错误。
// 减少库存的人工调整使用独立的 adjustment_out 标签承载方向。
type MovementType string

const (
	MovementTypePurchase      MovementType = "purchase"       // 采购入库
	MovementTypeSale          MovementType = "sale"           // 销售出库
	MovementTypeAdjustment    MovementType = "adjustment"     // 人工调增（含期初库存）
	MovementTypeAdjustmentOut MovementType = "adjustment_out" // 人工调减
	MovementTypeReturn        MovementType = "return"         // 退货入库（含销售取消回补）
)

// Valid 判断变动类型是否属于封闭枚举。
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypePurchase, MovementTypeSale, MovementTypeAdjustment,
		MovementTypeAdjustmentOut, MovementTypeReturn:
		return true
	}
	return false
}

// Direction 返回该类型对 current_stock 的符号：
// sale 和 adjustment_out 为 -1，其余为 +1。
func (t MovementType) Direction() int {
	if t == MovementTypeSale || t == MovementTypeAdjustmentOut {
		return -1
	}
	return 1
}

// StockRecord 表示单个商品的库存台账行，current_stock 是唯一权威的现存量。
// 该行只能通过 RecordMovement 变更，任何会使 current_stock 为负的操作
// 必须在落库前原子性失败。
type StockRecord struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	CurrentStock int       `json:"current_stock"`
	Version      int64     `json:"version"` // 每次变动自增，用于审计对账
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StockMovement 表示一次已提交的库存变动，构成追加式审计日志。
// 插入顺序即时间顺序；并发提交之间的排序不保证与提交时刻一致，
// 每条记录自带时间戳。
type StockMovement struct {
	ID           int64        `json:"id"`
	ProductID    int64        `json:"product_id"`
	MovementType MovementType `json:"movement_type"`
	Quantity     int          `json:"quantity"` // 恒 >= 1，方向由 MovementType 决定
	SourceDocID  *int64       `json:"source_document_id,omitempty"`
	SourceModel  *string      `json:"source_model,omitempty"` // "sales" / "purchases" / "products"
	MovedBy      int64        `json:"moved_by"`
	Note         string       `json:"note"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Delta 返回该变动对 current_stock 的实际增量。
func (m *StockMovement) Delta() int {
	return m.Quantity * m.MovementType.Direction()
}

// Validate 校验变动记录自身的一致性。
func (m *StockMovement) Validate() error {
	if !m.MovementType.Valid() {
		return ErrInvalidInput
	}
	if m.Quantity <= 0 {
		return ErrInvalidInput
	}
	return nil
}

// 变动来源集合，对应 SourceDocID 所属的表。
const (
	SourceModelSale     = "sales"
	SourceModelPurchase = "purchases"
	SourceModelProduct  = "products"
)

// AdjustStockRequest 表示人工调整库存请求。
type AdjustStockRequest struct {
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Increase bool   `json:"increase"` // true 增加，false 减少
	Note     string `json:"note"`
}

// MovementListRequest 表示变动历史查询请求。
type MovementListRequest struct {
	ProductID int64 `json:"product_id"`
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
}

// MovementListResponse 表示变动历史查询响应。
type MovementListResponse struct {
	Movements []*StockMovement `json:"movements"`
	Total     int64            `json:"total"`
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
}

// LowStockAlert 低库存告警：现存量不高于商品的最低库存水位。
type LowStockAlert struct {
	ProductID     int64  `json:"product_id"`
	ProductName   string `json:"product_name"`
	ProductSKU    string `json:"product_sku"`
	CurrentStock  int    `json:"current_stock"`
	MinStockLevel int    `json:"min_stock_level"`
}

package mq

import (
	"time"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

// MovementEvent 库存变动事件，事务提交后发布。
// 事件只是通知，台账数据库才是权威记录。
type MovementEvent struct {
	MovementID   int64               `json:"movement_id"`
	OwnerID      int64               `json:"owner_id"`
	ProductID    int64               `json:"product_id"`
	MovementType domain.MovementType `json:"movement_type"`
	Quantity     int                 `json:"quantity"`
	Delta        int                 `json:"delta"`
	SourceDocID  *int64              `json:"source_document_id,omitempty"`
	SourceModel  *string             `json:"source_model,omitempty"`
	MovedBy      int64               `json:"moved_by"`
	Note         string              `json:"note,omitempty"`
	OccurredAt   time.Time           `json:"occurred_at"`
}

// LowStockAlertEvent 低库存告警事件。
type LowStockAlertEvent struct {
	OwnerID       int64     `json:"owner_id"`
	ProductID     int64     `json:"product_id"`
	ProductName   string    `json:"product_name"`
	ProductSKU    string    `json:"product_sku"`
	CurrentStock  int       `json:"current_stock"`
	MinStockLevel int       `json:"min_stock_level"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewMovementEvent 从领域变动记录构造事件。
func NewMovementEvent(ownerID int64, m *domain.StockMovement) *MovementEvent {
	occurredAt := m.CreatedAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return &MovementEvent{
		MovementID:   m.ID,
		OwnerID:      ownerID,
		ProductID:    m.ProductID,
		MovementType: m.MovementType,
		Quantity:     m.Quantity,
		Delta:        m.Delta(),
		SourceDocID:  m.SourceDocID,
		SourceModel:  m.SourceModel,
		MovedBy:      m.MovedBy,
		Note:         m.Note,
		OccurredAt:   occurredAt,
	}
}

// NewLowStockAlertEvent 从领域告警构造事件。
func NewLowStockAlertEvent(ownerID int64, alert *domain.LowStockAlert) *LowStockAlertEvent {
	return &LowStockAlertEvent{
		OwnerID:       ownerID,
		ProductID:     alert.ProductID,
		ProductName:   alert.ProductName,
		ProductSKU:    alert.ProductSKU,
		CurrentStock:  alert.CurrentStock,
		MinStockLevel: alert.MinStockLevel,
		OccurredAt:    time.Now(),
	}
}

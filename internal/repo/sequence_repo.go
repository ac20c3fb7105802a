// Package repo 实现单据序号生成。
package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

// 单据类型，对应 sequences.doc_type。
const (
	DocTypeInvoice  = "invoice"
	DocTypePurchase = "purchase"
)

// SequenceRepository 提供按租户+单据类型的原子自增序号。
// 不采用"扫最大单号+1"的方案：那在并发创建下必然撞号。
// 序号在事务内领取，事务回滚会留下空洞，这是可接受的取舍。
type SequenceRepository interface {
	// Next 领取下一个序号，从1开始。
	Next(ctx context.Context, q Querier, ownerID int64, docType string) (int64, error)
}

type sequenceRepo struct {
	db *sql.DB
}

// NewSequenceRepository 创建序号仓储实例。
func NewSequenceRepository(db *sql.DB) SequenceRepository {
	return &sequenceRepo{db: db}
}

// Next 利用 MySQL 的 LAST_INSERT_ID(expr) 技巧：
// upsert 自增和取值在同一条语句内完成，无需 SELECT ... FOR UPDATE。
func (r *sequenceRepo) Next(ctx context.Context, q Querier, ownerID int64, docType string) (int64, error) {
	query := `
		INSERT INTO sequences (owner_id, doc_type, value)
		VALUES (?, ?, LAST_INSERT_ID(1))
		ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)
	`

	result, err := q.ExecContext(ctx, query, ownerID, docType)
	if err != nil {
		return 0, fmt.Errorf("advance sequence %s/%d: %w", docType, ownerID, err)
	}

	n, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read sequence value: %w", err)
	}
	return n, nil
}

// FormatDocNumber 将序号格式化为对外单号：INV-000123 / PO-000045。
func FormatDocNumber(docType string, n int64) (string, error) {
	switch docType {
	case DocTypeInvoice:
		return fmt.Sprintf("INV-%06d", n), nil
	case DocTypePurchase:
		return fmt.Sprintf("PO-%06d", n), nil
	}
	return "", fmt.Errorf("%w: unknown doc type %q", domain.ErrInvalidInput, docType)
}

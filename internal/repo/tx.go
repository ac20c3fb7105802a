// Package repo 提供数据访问层实现，负责与数据库交互。
// 仓储模式将数据访问逻辑与业务逻辑分离，业务层不感知具体的存储实现。
package repo

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier 是 *sql.DB 与 *sql.Tx 的公共查询子集。
// 需要参与事务的仓储方法统一接收 Querier，由调用方决定传入
// 事务句柄还是裸连接池，同一份 SQL 不必写两遍。
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxRunner 提供跨多个文档写入的原子工作单元。
// 一次销售/收货会同时写业务单据和 N 条台账变动，必须一起提交或一起回滚。
type TxRunner interface {
	// WithinTx 开启事务并执行 fn。fn 返回 nil 则提交，否则回滚。
	// 失败时向上抛出 fn 的原始错误（而非包装后的事务错误），
	// 使调用方对"事务前校验失败"和"事务内台账拒绝"有一致的错误处理。
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

// NewTxRunner 创建基于 database/sql 的事务执行器。
func NewTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		// 回滚失败只能吞掉：原始业务错误优先级更高
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

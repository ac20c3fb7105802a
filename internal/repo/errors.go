package repo

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

// mysqlDuplicateEntry 是 MySQL 唯一约束冲突的错误码（ER_DUP_ENTRY）。
const mysqlDuplicateEntry = 1062

// mapDuplicateKey 将驱动层的唯一约束冲突映射为领域错误 ErrDuplicateKey，
// 其余错误原样返回。SKU、单号、供应商邮箱/电话的冲突都经由这里。
func mapDuplicateKey(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateKey, mysqlErr.Message)
	}
	return err
}

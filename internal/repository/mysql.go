package repository

import (
	"context"
	"database/sql"

	"github.com/depdiscover/pkg/compression"
)

// mysqlDialect serves MySQL and SQLite, which share ? placeholders and
// report generated ids through LastInsertId.
type mysqlDialect struct{}

func (mysqlDialect) rebind(query string) string {
	return query
}

func (mysqlDialect) insert(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// NewMySQLRunStore creates a SQLRunStore for MySQL or SQLite.
func NewMySQLRunStore(db *sql.DB, codec *compression.Codec) *SQLRunStore {
	return newSQLRunStore(db, mysqlDialect{}, codec)
}

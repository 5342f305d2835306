package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/depdiscover/pkg/compression"
)

// postgresDialect numbers placeholders and reads generated ids through
// RETURNING, since lib/pq and pgx do not implement LastInsertId.
type postgresDialect struct{}

func (postgresDialect) rebind(query string) string {
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (postgresDialect) insert(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id)
	return id, err
}

// NewPostgresRunStore creates a SQLRunStore for PostgreSQL.
func NewPostgresRunStore(db *sql.DB, codec *compression.Codec) *SQLRunStore {
	return newSQLRunStore(db, postgresDialect{}, codec)
}

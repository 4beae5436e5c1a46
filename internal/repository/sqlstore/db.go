package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"triplog/internal/repository"
)

// Dialect selects the SQL flavour the store speaks.
type Dialect string

const (
	// DialectSQLite is the embedded store (modernc.org/sqlite driver).
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres is the server-backed flavour (lib/pq driver).
	DialectPostgres Dialect = "postgres"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// rebind rewrites ? placeholders into $N for the postgres dialect. Queries
// throughout this package are written with ? and rebound per dialect.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseID converts an opaque external id into the numeric key this backend
// assigns. Ill-formed ids cannot reference anything and map to ErrNotFound.
func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, repository.ErrNotFound
	}
	return n, nil
}

func formatID(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Package pg implements the record store contract on PostgreSQL. Blobs live
// in a dedicated table so a single DSN covers both halves of the contract.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"atlasforge.io/internal/store"
)

const (
	pgErrUniqueViolation = "23505"

	blobsTable = "blobs"
)

// Store wraps a SQL connection pool and satisfies store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to PostgreSQL using the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Pool sized for a handful of concurrent admin sessions.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool. Used by tests and cmd/migrate.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Select(ctx context.Context, table string, filter store.Filter) ([]store.Row, error) {
	if s.db == nil {
		return nil, store.Remote("select", table, errors.New("database connection unavailable"))
	}
	query := "select * from " + quoteIdent(table)
	where, args := buildWhere(filter, 1)
	query += where

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Remote("select", table, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, store.Remote("select", table, err)
	}
	return result, nil
}

func (s *Store) Insert(ctx context.Context, table string, row store.Row) (store.Row, error) {
	if s.db == nil {
		return nil, store.Remote("insert", table, errors.New("database connection unavailable"))
	}
	if len(row) == 0 {
		return nil, store.Remote("insert", table, errors.New("empty row"))
	}
	cols := sortedKeys(row)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[c]
	}
	query := fmt.Sprintf("insert into %s (%s) values (%s) returning *",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, store.Remote("insert", table, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, store.Remote("insert", table, err)
	}
	if len(out) == 0 {
		return nil, store.Remote("insert", table, errors.New("insert returned no row"))
	}
	return out[0], nil
}

func (s *Store) Update(ctx context.Context, table string, patch store.Row, filter store.Filter) ([]store.Row, error) {
	if s.db == nil {
		return nil, store.Remote("update", table, errors.New("database connection unavailable"))
	}
	if len(patch) == 0 {
		return nil, store.Remote("update", table, errors.New("empty patch"))
	}
	cols := sortedKeys(patch)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(filter))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdent(c), i+1)
		args = append(args, patch[c])
	}
	where, whereArgs := buildWhere(filter, len(cols)+1)
	args = append(args, whereArgs...)
	query := fmt.Sprintf("update %s set %s%s returning *",
		quoteIdent(table), strings.Join(sets, ", "), where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, store.Remote("update", table, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, store.Remote("update", table, err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, table string, filter store.Filter) error {
	if s.db == nil {
		return store.Remote("delete", table, errors.New("database connection unavailable"))
	}
	where, args := buildWhere(filter, 1)
	query := "delete from " + quoteIdent(table) + where
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return store.Remote("delete", table, err)
	}
	return nil
}

func (s *Store) Upload(ctx context.Context, bucket, path string, data []byte) error {
	if s.db == nil {
		return store.Remote("upload", blobsTable, errors.New("database connection unavailable"))
	}
	_, err := s.db.ExecContext(ctx, `
		insert into blobs (bucket, path, data)
		values ($1, $2, $3)
		on conflict (bucket, path) do update set data = excluded.data
	`, bucket, path, data)
	if err != nil {
		return store.Remote("upload", blobsTable, err)
	}
	return nil
}

func (s *Store) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	if s.db == nil {
		return nil, store.Remote("download", blobsTable, errors.New("database connection unavailable"))
	}
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`select data from blobs where bucket = $1 and path = $2`,
		bucket, path).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNoRows
	}
	if err != nil {
		return nil, store.Remote("download", blobsTable, err)
	}
	return data, nil
}

func (s *Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	if s.db == nil {
		return nil, store.Remote("list", blobsTable, errors.New("database connection unavailable"))
	}
	rows, err := s.db.QueryContext(ctx, `
		select path from blobs
		where bucket = $1 and path like $2 || '%'
		order by path
	`, bucket, prefix)
	if err != nil {
		return nil, store.Remote("list", blobsTable, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, store.Remote("list", blobsTable, err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Remote("list", blobsTable, err)
	}
	return paths, nil
}

func buildWhere(filter store.Filter, firstArg int) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	cols := sortedKeys(store.Row(filter))
	clauses := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		clauses[i] = fmt.Sprintf("%s = $%d", quoteIdent(c), firstArg+i)
		args[i] = filter[c]
	}
	return " where " + strings.Join(clauses, " and "), args
}

func scanRows(rows *sql.Rows) ([]store.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var result []store.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(store.Row, len(cols))
		for i, c := range cols {
			v := values[i]
			// Drivers hand text columns back as []byte; normalize so the
			// entity layer only ever sees strings.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[c] = v
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// quoteIdent quotes a SQL identifier. Event tables keep camelCase column
// names, so every identifier goes out quoted.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

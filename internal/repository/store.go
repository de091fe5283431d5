package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/models"
)

// DB is the part of pgxpool.Pool the stores use. pgx.Tx satisfies it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Filter maps a query parameter onto a column predicate.
type Filter struct {
	Column string
	// Op is one of "=", ">=", "<", "<=", "ILIKE".
	Op    string
	Parse func(raw string) (any, error)
}

// Table describes how a record type maps onto its owner-scoped table.
// Every table carries id, owner_id, created_at and updated_at.
type Table[T any] struct {
	Name string
	// Columns are the writable columns, in the order Values returns them.
	Columns []string
	Values  func(*T) []any
	// Scan reads id, owner_id, Columns..., created_at, updated_at.
	Scan        func(pgx.Row) (*T, error)
	Sortable    map[string]string
	DefaultSort string
	Filters     map[string]Filter
}

func (t *Table[T]) selectList() string {
	return "id, owner_id, " + strings.Join(t.Columns, ", ") + ", created_at, updated_at"
}

// ListQuery carries pagination, sorting and raw filter values.
type ListQuery struct {
	Page     int
	Limit    int
	SortBy   string
	SortDesc bool
	Filters  map[string]string
}

// Page is one slice of a listing plus the total matching count.
type Page[T any] struct {
	Items []*T
	Total int
	Page  int
	Limit int
}

// Store is an owner-scoped CRUD store. Every statement it issues is
// restricted to the caller's owner partition, so records of another owner
// are indistinguishable from absent ones.
type Store[T any] struct {
	db    DB
	table Table[T]
}

func NewStore[T any](db DB, table Table[T]) *Store[T] {
	return &Store[T]{db: db, table: table}
}

// ownerPredicate treats Anonymous (NULL) as its own partition.
const ownerPredicate = "owner_id IS NOT DISTINCT FROM $1::uuid"

func (s *Store[T]) Get(ctx context.Context, owner models.Owner, id uuid.UUID) (*T, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s AND id = $2", s.table.selectList(), s.table.Name, ownerPredicate)
	item, err := s.table.Scan(s.db.QueryRow(ctx, sql, owner.Arg(), id))
	if err != nil {
		return nil, MapErr(err)
	}
	return item, nil
}

func (s *Store[T]) Create(ctx context.Context, owner models.Owner, item *T) (*T, error) {
	cols := s.table.Columns
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
	}
	sql := fmt.Sprintf("INSERT INTO %s (owner_id, %s) VALUES ($1::uuid, %s) RETURNING %s",
		s.table.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "), s.table.selectList())
	args := append([]any{owner.Arg()}, s.table.Values(item)...)
	created, err := s.table.Scan(s.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, MapErr(err)
	}
	return created, nil
}

// Update overwrites the writable columns of the owner's record id.
func (s *Store[T]) Update(ctx context.Context, owner models.Owner, id uuid.UUID, item *T) (*T, error) {
	cols := s.table.Columns
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+3)
	}
	sql := fmt.Sprintf("UPDATE %s SET %s, updated_at = now() WHERE %s AND id = $2 RETURNING %s",
		s.table.Name, strings.Join(sets, ", "), ownerPredicate, s.table.selectList())
	args := append([]any{owner.Arg(), id}, s.table.Values(item)...)
	updated, err := s.table.Scan(s.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, MapErr(err)
	}
	return updated, nil
}

func (s *Store[T]) Delete(ctx context.Context, owner models.Owner, id uuid.UUID) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s AND id = $2", s.table.Name, ownerPredicate)
	tag, err := s.db.Exec(ctx, sql, owner.Arg(), id)
	if err != nil {
		return MapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *Store[T]) List(ctx context.Context, owner models.Owner, q ListQuery) (*Page[T], error) {
	q = normalize(q)
	where, args, err := s.where(owner, q.Filters)
	if err != nil {
		return nil, err
	}
	order, err := s.orderBy(q)
	if err != nil {
		return nil, err
	}

	var total int
	countSQL := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", s.table.Name, where)
	if err := s.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, MapErr(err)
	}

	n := len(args)
	listSQL := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		s.table.selectList(), s.table.Name, where, order, n+1, n+2)
	rows, err := s.db.Query(ctx, listSQL, append(args, q.Limit, (q.Page-1)*q.Limit)...)
	if err != nil {
		return nil, MapErr(err)
	}
	defer rows.Close()

	items := make([]*T, 0, q.Limit)
	for rows.Next() {
		item, err := s.table.Scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, MapErr(err)
	}
	return &Page[T]{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

func normalize(q ListQuery) ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func (s *Store[T]) where(owner models.Owner, raw map[string]string) (string, []any, error) {
	clauses := []string{ownerPredicate}
	args := []any{owner.Arg()}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var details []string
	for _, key := range keys {
		f, ok := s.table.Filters[key]
		if !ok || raw[key] == "" {
			continue
		}
		v, err := f.Parse(raw[key])
		if err != nil {
			details = append(details, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		if f.Op == "ILIKE" {
			v = "%" + escapeLike(fmt.Sprint(v)) + "%"
		}
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", f.Column, f.Op, len(args)))
	}
	if len(details) > 0 {
		return "", nil, common.NewValidationError(details...)
	}
	return strings.Join(clauses, " AND "), args, nil
}

func (s *Store[T]) orderBy(q ListQuery) (string, error) {
	col := s.table.DefaultSort
	if q.SortBy != "" {
		c, ok := s.table.Sortable[q.SortBy]
		if !ok {
			allowed := make([]string, 0, len(s.table.Sortable))
			for k := range s.table.Sortable {
				allowed = append(allowed, k)
			}
			sort.Strings(allowed)
			return "", common.NewValidationError(fmt.Sprintf("sortBy must be one of %s", strings.Join(allowed, ", ")))
		}
		col = c
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// MapErr translates pgx and Postgres errors into the common taxonomy.
// Failures to reach the database become common.ErrServiceUnavailable.
func MapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", common.ErrConflict, pgErr.Detail)
		case "23503":
			return common.NewValidationError("referenced record does not exist")
		case "23514":
			return common.NewValidationError(fmt.Sprintf("value violates constraint %s", pgErr.ConstraintName))
		case "22P02":
			return common.NewValidationError("malformed value")
		}
		if unavailableCode(pgErr.Code) {
			return fmt.Errorf("%w: %v", common.ErrServiceUnavailable, err)
		}
		return err
	}
	if Unreachable(err) {
		return fmt.Errorf("%w: %v", common.ErrServiceUnavailable, err)
	}
	return err
}

// Unreachable reports whether err means the database could not be reached
// or did not answer in time, as opposed to rejecting the statement.
func Unreachable(err error) bool {
	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connErr), errors.As(err, &netErr):
		return true
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err), pgconn.SafeToRetry(err):
		return true
	case strings.Contains(err.Error(), "closed pool"):
		return true
	}
	return false
}

// Class 08 is connection exception; 53 is insufficient resources;
// 57P01-57P03 are shutdown and cannot-connect-now.
func unavailableCode(code string) bool {
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "53") ||
		code == "57P01" || code == "57P02" || code == "57P03"
}

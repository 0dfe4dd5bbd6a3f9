package repo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/gderossilive/devShopDemo/internal/entity"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SQLStore is the single source of truth for catalog, customers and orders.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) DB() *sql.DB { return s.db }

// Migrate applies the embedded schema for the store's dialect. Statements are
// idempotent (CREATE TABLE IF NOT EXISTS).
func (s *SQLStore) Migrate(ctx context.Context) error {
	raw, err := schemaFS.ReadFile("schema/" + string(s.dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// WithinTx commits when fn returns nil and rolls back otherwise. A cancelled
// or expired ctx aborts the transaction with no side effect.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx usecase.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &sqlTx{tx: tx, dialect: s.dialect}); err != nil {
		_ = tx.Rollback()
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, entity.ErrPersistence) && !isDomainErr(err) {
			return classify("tx", ctxErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

var _ usecase.TxRunner = (*SQLStore)(nil)

func isDomainErr(err error) bool {
	return errors.Is(err, entity.ErrInvalidInput) ||
		errors.Is(err, entity.ErrNotFound) ||
		errors.Is(err, entity.ErrInsufficientStock) ||
		errors.Is(err, entity.ErrTransactionConflict)
}

// classify maps driver errors onto the workflow's failure kinds.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return entity.ErrNotFound
	case isConflict(err):
		return fmt.Errorf("%w: %s: %w", entity.ErrTransactionConflict, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", entity.ErrPersistence, op, err)
	}
}

// MySQL: 1213 deadlock, 1205 lock wait timeout. SQLite: BUSY/LOCKED.
func isConflict(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		primary := se.Code() & 0xff
		return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
	}
	return false
}

// MySQL: 1062 duplicate entry. SQLite: UNIQUE/PRIMARY KEY constraint.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(se.Error(), "UNIQUE")
		}
	}
	return false
}

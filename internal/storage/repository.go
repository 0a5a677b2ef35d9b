package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"housebudget/internal/core"
)

// ErrSave marks a failed replace of a person's outgoings. The previous
// records are left untouched when it is returned.
var ErrSave = errors.New("save outgoings")

// SaveError carries the person whose save failed and the underlying cause.
type SaveError struct {
	Person string
	Err    error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save outgoings for %s: %v", e.Person, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

func (e *SaveError) Is(target error) bool { return target == ErrSave }

// SQLRepository stores outgoings in SQLite or PostgreSQL.
type SQLRepository struct {
	db      *sql.DB
	queries *Queries
	dialect Dialect
}

// NewSQLiteRepository opens (creating if needed) the SQLite file at dbPath
// and brings its schema up to date.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open(DialectSQLite.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the delete and insert of a replace.
	db.SetMaxOpenConns(1)

	return open(db, DialectSQLite, dsn)
}

// NewPostgresRepository connects through pgx and applies migrations.
func NewPostgresRepository(dsn string) (*SQLRepository, error) {
	db, err := sql.Open(DialectPostgres.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return open(db, DialectPostgres, dsn)
}

func open(db *sql.DB, dialect Dialect, dsn string) (*SQLRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{
		db:      db,
		queries: New(db, dialect),
		dialect: dialect,
	}, nil
}

func (r *SQLRepository) Dialect() Dialect { return r.dialect }

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListOutgoings returns every record, grouped by person, largest amount first.
func (r *SQLRepository) ListOutgoings(ctx context.Context) ([]core.Outgoing, error) {
	rows, err := r.queries.ListOutgoings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list outgoings: %w", err)
	}
	return toOutgoings(rows), nil
}

// ListOutgoingsByPerson returns one person's records, largest amount first.
func (r *SQLRepository) ListOutgoingsByPerson(ctx context.Context, person string) ([]core.Outgoing, error) {
	rows, err := r.queries.ListOutgoingsByPerson(ctx, person)
	if err != nil {
		return nil, fmt.Errorf("list outgoings for %s: %w", person, err)
	}
	return toOutgoings(rows), nil
}

// ReplaceOutgoings swaps the person's records for the given set in one
// transaction. Readers see either the old set or the new one.
func (r *SQLRepository) ReplaceOutgoings(ctx context.Context, person string, records []core.Outgoing) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &SaveError{Person: person, Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	deleted, err := qtx.DeleteOutgoingsByPerson(ctx, person)
	if err != nil {
		return &SaveError{Person: person, Err: fmt.Errorf("delete outgoings: %w", err)}
	}

	for _, rec := range records {
		err := qtx.InsertOutgoing(ctx, OutgoingRow{
			Person:      person,
			Outgoing:    rec.Label,
			AmountPence: rec.Amount.Pence,
		})
		if err != nil {
			return &SaveError{Person: person, Err: fmt.Errorf("insert outgoing %q: %w", rec.Label, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &SaveError{Person: person, Err: fmt.Errorf("commit transaction: %w", err)}
	}

	slog.InfoContext(ctx, "Outgoings replaced",
		"person", person,
		"deleted", deleted,
		"inserted", len(records),
		"dialect", r.dialect)

	return nil
}

// CountOutgoings returns the number of stored records across all people.
func (r *SQLRepository) CountOutgoings(ctx context.Context) (int64, error) {
	n, err := r.queries.CountOutgoings(ctx)
	if err != nil {
		return 0, fmt.Errorf("count outgoings: %w", err)
	}
	return n, nil
}

func toOutgoings(rows []OutgoingRow) []core.Outgoing {
	out := make([]core.Outgoing, len(rows))
	for i, row := range rows {
		out[i] = core.Outgoing{
			Person: row.Person,
			Label:  row.Outgoing,
			Amount: core.Money{Pence: row.AmountPence},
		}
	}
	return out
}

package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Rebind rewrites ? placeholders into $n for postgres.
func (d Dialect) Rebind(query string) string {
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

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

// OutgoingRow mirrors one row of the outgoings table.
type OutgoingRow struct {
	Person      string
	Outgoing    string
	AmountPence int64
}

const listOutgoings = `SELECT person, outgoing, amount_pence FROM outgoings
ORDER BY person, amount_pence DESC, outgoing`

func (q *Queries) ListOutgoings(ctx context.Context) ([]OutgoingRow, error) {
	rows, err := q.db.QueryContext(ctx, listOutgoings)
	if err != nil {
		return nil, err
	}
	return scanOutgoings(rows)
}

const listOutgoingsByPerson = `SELECT person, outgoing, amount_pence FROM outgoings
WHERE person = ?
ORDER BY amount_pence DESC, outgoing`

func (q *Queries) ListOutgoingsByPerson(ctx context.Context, person string) ([]OutgoingRow, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.Rebind(listOutgoingsByPerson), person)
	if err != nil {
		return nil, err
	}
	return scanOutgoings(rows)
}

const deleteOutgoingsByPerson = `DELETE FROM outgoings WHERE person = ?`

func (q *Queries) DeleteOutgoingsByPerson(ctx context.Context, person string) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.dialect.Rebind(deleteOutgoingsByPerson), person)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertOutgoing = `INSERT INTO outgoings (person, outgoing, amount_pence) VALUES (?, ?, ?)`

func (q *Queries) InsertOutgoing(ctx context.Context, arg OutgoingRow) error {
	_, err := q.db.ExecContext(ctx, q.dialect.Rebind(insertOutgoing), arg.Person, arg.Outgoing, arg.AmountPence)
	return err
}

const countOutgoings = `SELECT COUNT(*) FROM outgoings`

func (q *Queries) CountOutgoings(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countOutgoings).Scan(&n)
	return n, err
}

func scanOutgoings(rows *sql.Rows) ([]OutgoingRow, error) {
	defer rows.Close()
	var items []OutgoingRow
	for rows.Next() {
		var i OutgoingRow
		if err := rows.Scan(&i.Person, &i.Outgoing, &i.AmountPence); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

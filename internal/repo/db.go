// Package repo contains all database access logic for the back office.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, and lets the
// service layer run several repos inside one transaction.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Repos groups the repositories bound to the same connection or transaction.
type Repos struct {
	Trips    TripRepo
	Expenses ExpenseRepo
	Audit    AuditRepo
	Refs     RefDataRepo
}

// NewRepos binds every repository to db.
func NewRepos(db db) Repos {
	return Repos{
		Trips:    NewTripRepo(db),
		Expenses: NewExpenseRepo(db),
		Audit:    NewAuditRepo(db),
		Refs:     NewRefDataRepo(db),
	}
}

// TxRunner runs a unit of work inside a single database transaction.
// The transaction commits when fn returns nil and rolls back otherwise, so a
// write and its audit record are either both stored or both discarded.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Repos) error) error
}

// txBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type pgTxRunner struct {
	pool txBeginner
}

// NewTxRunner constructs a TxRunner that opens READ COMMITTED transactions on pool.
// Row locks (SELECT ... FOR UPDATE) taken inside fn serialise concurrent
// mutations of the same trip.
func NewTxRunner(pool txBeginner) TxRunner {
	return &pgTxRunner{pool: pool}
}

func (r *pgTxRunner) InTx(ctx context.Context, fn func(Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("repo.TxRunner.InTx: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.TxRunner.InTx: commit: %w", err)
	}
	return nil
}

// numericToDecimal converts a scanned NUMERIC into a decimal.Decimal.
// NULL becomes zero, which is what every SUM in this package wants.
func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).Set(n.Int), n.Exp)
}

// optionalText turns an empty string into SQL NULL.
func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// optionalInt8 turns a zero id into SQL NULL.
func optionalInt8(v int64) pgtype.Int8 {
	return pgtype.Int8{Int64: v, Valid: v != 0}
}

// optionalTime turns a nil time into SQL NULL.
func optionalTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

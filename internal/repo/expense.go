package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/fleetledger/backoffice/internal/domain"
)

// ExpenseRepo defines the persistence operations for expense entries (gastos).
// Entries are append-only: there is no update or delete.
type ExpenseRepo interface {
	// Create inserts an expense entry for entry.TripID.
	Create(ctx context.Context, entry domain.ExpenseEntry) (domain.ExpenseEntry, error)

	// ListByTripID returns every entry of a trip, most recent expense date first.
	ListByTripID(ctx context.Context, tripID int64) ([]domain.ExpenseEntry, error)

	// SumByTripID returns the total amount booked on a trip. Zero when it has none.
	SumByTripID(ctx context.Context, tripID int64) (decimal.Decimal, error)

	// SumForDepartureRange sums the entries of every trip whose scheduled
	// departure falls in [from, to), regardless of trip state.
	SumForDepartureRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

type pgExpenseRepo struct {
	db db
}

// NewExpenseRepo constructs an ExpenseRepo backed by the provided db connection.
func NewExpenseRepo(db db) ExpenseRepo {
	return &pgExpenseRepo{db: db}
}

const expenseColumns = `
	id, viaje_id, tipo, monto, fecha, metodo_pago, descripcion,
	comprobante_url, comprobante_id, created_at`

func (r *pgExpenseRepo) Create(ctx context.Context, entry domain.ExpenseEntry) (domain.ExpenseEntry, error) {
	const q = `
		INSERT INTO gastos (viaje_id, tipo, monto, fecha, metodo_pago, descripcion, comprobante_url, comprobante_id)
		VALUES (@viaje_id, @tipo, @monto, @fecha, @metodo_pago, @descripcion, @comprobante_url, @comprobante_id)
		RETURNING` + expenseColumns

	args := pgx.NamedArgs{
		"viaje_id":        entry.TripID,
		"tipo":            string(entry.Type),
		"monto":           entry.Amount,
		"fecha":           pgtype.Date{Time: entry.Date, Valid: !entry.Date.IsZero()},
		"metodo_pago":     string(entry.PaymentMethod),
		"descripcion":     entry.Description,
		"comprobante_url": pgtype.Text{},
		"comprobante_id":  pgtype.Text{},
	}
	if entry.Receipt != nil {
		args["comprobante_url"] = optionalText(entry.Receipt.URL)
		args["comprobante_id"] = optionalText(entry.Receipt.StorageID)
	}

	result, err := scanExpense(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.ExpenseEntry{}, fmt.Errorf("repo.ExpenseRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgExpenseRepo) ListByTripID(ctx context.Context, tripID int64) ([]domain.ExpenseEntry, error) {
	const q = `SELECT` + expenseColumns + `
		FROM gastos
		WHERE viaje_id = @viaje_id
		ORDER BY fecha DESC, id DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"viaje_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.ExpenseRepo.ListByTripID: %w", err)
	}
	defer rows.Close()

	entries := []domain.ExpenseEntry{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ExpenseRepo.ListByTripID: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ExpenseRepo.ListByTripID: rows: %w", err)
	}
	return entries, nil
}

func (r *pgExpenseRepo) SumByTripID(ctx context.Context, tripID int64) (decimal.Decimal, error) {
	const q = `SELECT COALESCE(SUM(monto), 0) FROM gastos WHERE viaje_id = @viaje_id`

	var total pgtype.Numeric
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"viaje_id": tripID}).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("repo.ExpenseRepo.SumByTripID: %w", err)
	}
	return numericToDecimal(total), nil
}

func (r *pgExpenseRepo) SumForDepartureRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	const q = `
		SELECT COALESCE(SUM(g.monto), 0)
		FROM gastos g
		JOIN viajes v ON v.id = g.viaje_id
		WHERE v.fecha_salida >= @desde AND v.fecha_salida < @hasta`

	var total pgtype.Numeric
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"desde": from, "hasta": to}).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("repo.ExpenseRepo.SumForDepartureRange: %w", err)
	}
	return numericToDecimal(total), nil
}

func scanExpense(s scanner) (domain.ExpenseEntry, error) {
	var (
		e          domain.ExpenseEntry
		entryType  string
		method     string
		amount     pgtype.Numeric
		date       pgtype.Date
		receiptURL pgtype.Text
		receiptID  pgtype.Text
	)

	err := s.Scan(&e.ID, &e.TripID, &entryType, &amount, &date, &method, &e.Description,
		&receiptURL, &receiptID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ExpenseEntry{}, domain.ErrNotFound
		}
		return domain.ExpenseEntry{}, err
	}

	e.Type = domain.ExpenseType(entryType)
	e.PaymentMethod = domain.PaymentMethod(method)
	e.Amount = numericToDecimal(amount)
	if date.Valid {
		e.Date = date.Time
	}
	if receiptURL.Valid {
		e.Receipt = &domain.Receipt{URL: receiptURL.String, StorageID: receiptID.String}
	}
	return e, nil
}

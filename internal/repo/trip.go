package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fleetledger/backoffice/internal/domain"
)

// TripRepo defines the persistence operations for trips (viajes).
// The service layer depends on this interface, not the concrete Postgres implementation,
// which allows the service to be unit-tested with a mock.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record (with DB-generated
	// id, created_at, and updated_at populated).
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by id.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id int64) (domain.Trip, error)

	// GetForUpdate is GetByID plus a row lock held until the surrounding
	// transaction ends. Only meaningful on a repo bound to a pgx.Tx.
	GetForUpdate(ctx context.Context, id int64) (domain.Trip, error)

	// ListPaged returns one page of trips matching f, ordered by departure
	// descending, and the total number of matching trips.
	ListPaged(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error)

	// Update overwrites every mutable column of the trip, including state and
	// completion data, but only if the stored state still equals expected.
	// Returns domain.ErrNotFound if the trip is gone and domain.ErrInvalidState
	// if its state changed in the meantime.
	Update(ctx context.Context, trip domain.Trip, expected domain.TripState) (domain.Trip, error)

	// Delete removes a trip whose stored state equals expected.
	// Same error contract as Update.
	Delete(ctx context.Context, id int64, expected domain.TripState) error

	// MonthlyTotals counts trips departing in [from, to) and sums the tariffs
	// of the completed ones.
	MonthlyTotals(ctx context.Context, from, to time.Time) (domain.MonthlyTotals, error)
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool or a pgx.Tx from TxRunner; in tests pass a
// pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `
	id, vehiculo_id, chofer_id, cliente_id, material_id, origen, destino,
	fecha_salida, fecha_llegada_estimada, fecha_llegada_real,
	kilometros_estimados, kilometros_reales, tarifa, observaciones, estado,
	created_at, updated_at`

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		INSERT INTO viajes (
			vehiculo_id, chofer_id, cliente_id, material_id, origen, destino,
			fecha_salida, fecha_llegada_estimada, kilometros_estimados,
			tarifa, observaciones, estado)
		VALUES (
			@vehiculo_id, @chofer_id, @cliente_id, @material_id, @origen, @destino,
			@fecha_salida, @fecha_llegada_estimada, @kilometros_estimados,
			@tarifa, @observaciones, @estado)
		RETURNING` + tripColumns

	args := pgx.NamedArgs{
		"vehiculo_id":            trip.VehicleID,
		"chofer_id":              trip.DriverID,
		"cliente_id":             trip.ClientID,
		"material_id":            trip.MaterialID,
		"origen":                 trip.Origin,
		"destino":                trip.Destination,
		"fecha_salida":           trip.DepartureAt,
		"fecha_llegada_estimada": trip.EstimatedArrivalAt, // nil becomes NULL
		"kilometros_estimados":   trip.EstimatedKm,
		"tarifa":                 trip.Tariff,
		"observaciones":          trip.Notes,
		"estado":                 string(trip.State),
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id int64) (domain.Trip, error) {
	const q = `SELECT` + tripColumns + ` FROM viajes WHERE id = @id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

// GetForUpdate retrieves a trip and locks its row.
func (r *pgTripRepo) GetForUpdate(ctx context.Context, id int64) (domain.Trip, error) {
	const q = `SELECT` + tripColumns + ` FROM viajes WHERE id = @id FOR UPDATE`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetForUpdate: %w", err)
	}
	return result, nil
}

// tripFilterWhere treats every NULL parameter as "no filter", so one
// statement serves every combination of filters.
const tripFilterWhere = `
	WHERE (@estado::text IS NULL OR estado = @estado)
	  AND (@vehiculo_id::bigint IS NULL OR vehiculo_id = @vehiculo_id)
	  AND (@chofer_id::bigint IS NULL OR chofer_id = @chofer_id)
	  AND (@cliente_id::bigint IS NULL OR cliente_id = @cliente_id)
	  AND (@fecha_desde::timestamptz IS NULL OR fecha_salida >= @fecha_desde)
	  AND (@fecha_hasta::timestamptz IS NULL OR fecha_salida <= @fecha_hasta)`

// ListPaged returns a page of trips ordered by departure descending (most recent first).
func (r *pgTripRepo) ListPaged(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	const listQ = `SELECT` + tripColumns + ` FROM viajes` + tripFilterWhere + `
		ORDER BY fecha_salida DESC, id DESC
		LIMIT @limit OFFSET @offset`
	const countQ = `SELECT COUNT(*) FROM viajes` + tripFilterWhere

	args := pgx.NamedArgs{
		"estado":      optionalText(string(f.State)),
		"vehiculo_id": optionalInt8(f.VehicleID),
		"chofer_id":   optionalInt8(f.DriverID),
		"cliente_id":  optionalInt8(f.ClientID),
		"fecha_desde": optionalTime(f.DepartureFrom),
		"fecha_hasta": optionalTime(f.DepartureTo),
	}

	var total int64
	if err := r.db.QueryRow(ctx, countQ, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: count: %w", err)
	}

	args["limit"] = p.Limit
	args["offset"] = p.Offset()
	rows, err := r.db.Query(ctx, listQ, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: rows: %w", err)
	}

	return trips, total, nil
}

// Update overwrites the mutable fields of a trip, keyed on its expected state.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip, expected domain.TripState) (domain.Trip, error) {
	const q = `
		UPDATE viajes
		SET vehiculo_id            = @vehiculo_id,
		    chofer_id              = @chofer_id,
		    cliente_id             = @cliente_id,
		    material_id            = @material_id,
		    origen                 = @origen,
		    destino                = @destino,
		    fecha_salida           = @fecha_salida,
		    fecha_llegada_estimada = @fecha_llegada_estimada,
		    fecha_llegada_real     = @fecha_llegada_real,
		    kilometros_estimados   = @kilometros_estimados,
		    kilometros_reales      = @kilometros_reales,
		    tarifa                 = @tarifa,
		    observaciones          = @observaciones,
		    estado                 = @estado,
		    updated_at             = now()
		WHERE id = @id AND estado = @expected
		RETURNING` + tripColumns

	args := pgx.NamedArgs{
		"id":                     trip.ID,
		"expected":               string(expected),
		"vehiculo_id":            trip.VehicleID,
		"chofer_id":              trip.DriverID,
		"cliente_id":             trip.ClientID,
		"material_id":            trip.MaterialID,
		"origen":                 trip.Origin,
		"destino":                trip.Destination,
		"fecha_salida":           trip.DepartureAt,
		"fecha_llegada_estimada": trip.EstimatedArrivalAt,
		"fecha_llegada_real":     trip.ActualArrivalAt,
		"kilometros_estimados":   trip.EstimatedKm,
		"kilometros_reales":      trip.ActualKm,
		"tarifa":                 trip.Tariff,
		"observaciones":          trip.Notes,
		"estado":                 string(trip.State),
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if errors.Is(err, domain.ErrNotFound) {
		err = r.missingOrMoved(ctx, trip.ID)
	}
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	return result, nil
}

// Delete removes a trip by primary key, keyed on its expected state.
func (r *pgTripRepo) Delete(ctx context.Context, id int64, expected domain.TripState) error {
	const q = `DELETE FROM viajes WHERE id = @id AND estado = @expected`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "expected": string(expected)})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", r.missingOrMoved(ctx, id))
	}
	return nil
}

// missingOrMoved explains why a conditional write matched no row.
func (r *pgTripRepo) missingOrMoved(ctx context.Context, id int64) error {
	var state string
	err := r.db.QueryRow(ctx, `SELECT estado FROM viajes WHERE id = @id`, pgx.NamedArgs{"id": id}).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: trip is now %s", domain.ErrInvalidState, state)
}

// MonthlyTotals aggregates trips departing in the half-open window [from, to).
func (r *pgTripRepo) MonthlyTotals(ctx context.Context, from, to time.Time) (domain.MonthlyTotals, error) {
	const q = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE estado = 'COMPLETED'),
		       COALESCE(SUM(tarifa) FILTER (WHERE estado = 'COMPLETED'), 0)
		FROM viajes
		WHERE fecha_salida >= @desde AND fecha_salida < @hasta`

	var (
		totals domain.MonthlyTotals
		income pgtype.Numeric
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"desde": from, "hasta": to}).
		Scan(&totals.TotalTrips, &totals.CompletedTrips, &income)
	if err != nil {
		return domain.MonthlyTotals{}, fmt.Errorf("repo.TripRepo.MonthlyTotals: %w", err)
	}
	totals.CompletedIncome = numericToDecimal(income)
	return totals, nil
}

// scanTrip maps a single database row into a domain.Trip.
// It handles the nullable timestamps and distances and the NUMERIC tariff.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t           domain.Trip
		estimatedAt pgtype.Timestamptz
		actualAt    pgtype.Timestamptz
		estimatedKm pgtype.Int4
		actualKm    pgtype.Int4
		tariff      pgtype.Numeric
		state       string
	)

	err := s.Scan(
		&t.ID, &t.VehicleID, &t.DriverID, &t.ClientID, &t.MaterialID, &t.Origin, &t.Destination,
		&t.DepartureAt, &estimatedAt, &actualAt,
		&estimatedKm, &actualKm, &tariff, &t.Notes, &state,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.State = domain.TripState(state)
	t.Tariff = numericToDecimal(tariff)
	t.DepartureAt = t.DepartureAt.UTC()
	if estimatedAt.Valid {
		ea := estimatedAt.Time.UTC()
		t.EstimatedArrivalAt = &ea
	}
	if actualAt.Valid {
		aa := actualAt.Time.UTC()
		t.ActualArrivalAt = &aa
	}
	if estimatedKm.Valid {
		km := int(estimatedKm.Int32)
		t.EstimatedKm = &km
	}
	if actualKm.Valid {
		km := int(actualKm.Int32)
		t.ActualKm = &km
	}

	return t, nil
}

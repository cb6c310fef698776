package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/testutil"
)

// newTestTx opens a transaction against the test database that is rolled
// back when the test finishes, giving free per-test isolation.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return tx
}

// refs holds the ids of one freshly inserted row per reference table.
type refs struct {
	vehicle, driver, client, material int64
}

// seedRefs inserts an active vehicle, driver and client plus a material.
func seedRefs(t *testing.T, tx pgx.Tx) refs {
	t.Helper()
	ctx := context.Background()
	var r refs

	// placa is unique; the nanosecond suffix keeps parallel runs apart.
	plate := "TST-" + time.Now().Format("150405.000000000")
	require.NoError(t, tx.QueryRow(ctx,
		`INSERT INTO vehiculos (placa, marca, modelo) VALUES ($1, 'Volvo', 'FH') RETURNING id`, plate).Scan(&r.vehicle))
	require.NoError(t, tx.QueryRow(ctx,
		`INSERT INTO choferes (nombres, apellidos) VALUES ('Ana', 'Quispe') RETURNING id`).Scan(&r.driver))
	require.NoError(t, tx.QueryRow(ctx,
		`INSERT INTO clientes (nombre_razon_social) VALUES ('Minera Sur SAC') RETURNING id`).Scan(&r.client))
	require.NoError(t, tx.QueryRow(ctx,
		`INSERT INTO materiales (nombre) VALUES ('Cemento') RETURNING id`).Scan(&r.material))
	return r
}

// tripFixture returns a PLANNED domain.Trip pointing at r.
// Callers can override individual fields after calling this function.
func tripFixture(r refs) domain.Trip {
	departure := time.Date(2031, 3, 10, 8, 0, 0, 0, time.UTC)
	arrival := departure.Add(10 * time.Hour)
	km := 420
	return domain.Trip{
		VehicleID:          r.vehicle,
		DriverID:           r.driver,
		ClientID:           r.client,
		MaterialID:         r.material,
		Origin:             "Lima",
		Destination:        "Arequipa",
		DepartureAt:        departure,
		EstimatedArrivalAt: &arrival,
		EstimatedKm:        &km,
		Tariff:             decimal.RequireFromString("1500.00"),
		Notes:              "carga paletizada",
		State:              domain.TripPlanned,
	}
}

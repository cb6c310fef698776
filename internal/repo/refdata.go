package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fleetledger/backoffice/internal/domain"
)

// RefDataRepo gives the trip core read access to the reference tables
// (vehiculos, choferes, clientes, materiales). Their CRUD lives elsewhere.
type RefDataRepo interface {
	// FindVehicle, FindDriver, FindClient and FindMaterial return
	// domain.ErrNotFound when the id does not exist. Inactive rows are
	// returned with Active=false; deciding what that means is up to the caller.
	FindVehicle(ctx context.Context, id int64) (domain.Vehicle, error)
	FindDriver(ctx context.Context, id int64) (domain.Driver, error)
	FindClient(ctx context.Context, id int64) (domain.Client, error)
	FindMaterial(ctx context.Context, id int64) (domain.Material, error)

	// Counts returns active/total counts for the dashboard.
	Counts(ctx context.Context) (domain.ReferenceCounts, error)
}

type pgRefDataRepo struct {
	db db
}

// NewRefDataRepo constructs a RefDataRepo backed by the provided db connection.
func NewRefDataRepo(db db) RefDataRepo {
	return &pgRefDataRepo{db: db}
}

func (r *pgRefDataRepo) FindVehicle(ctx context.Context, id int64) (domain.Vehicle, error) {
	const q = `SELECT id, placa, estado = 'ACTIVO' FROM vehiculos WHERE id = @id`

	var v domain.Vehicle
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&v.ID, &v.Plate, &v.Active); err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.RefDataRepo.FindVehicle: %w", notFound(err))
	}
	return v, nil
}

func (r *pgRefDataRepo) FindDriver(ctx context.Context, id int64) (domain.Driver, error) {
	const q = `SELECT id, trim(nombres || ' ' || apellidos), estado = 'ACTIVO' FROM choferes WHERE id = @id`

	var d domain.Driver
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&d.ID, &d.FullName, &d.Active); err != nil {
		return domain.Driver{}, fmt.Errorf("repo.RefDataRepo.FindDriver: %w", notFound(err))
	}
	return d, nil
}

func (r *pgRefDataRepo) FindClient(ctx context.Context, id int64) (domain.Client, error) {
	const q = `SELECT id, nombre_razon_social, estado = 'ACTIVO' FROM clientes WHERE id = @id`

	var c domain.Client
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&c.ID, &c.Name, &c.Active); err != nil {
		return domain.Client{}, fmt.Errorf("repo.RefDataRepo.FindClient: %w", notFound(err))
	}
	return c, nil
}

func (r *pgRefDataRepo) FindMaterial(ctx context.Context, id int64) (domain.Material, error) {
	const q = `SELECT id, nombre FROM materiales WHERE id = @id`

	var m domain.Material
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&m.ID, &m.Name); err != nil {
		return domain.Material{}, fmt.Errorf("repo.RefDataRepo.FindMaterial: %w", notFound(err))
	}
	return m, nil
}

func (r *pgRefDataRepo) Counts(ctx context.Context) (domain.ReferenceCounts, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FILTER (WHERE estado = 'ACTIVO') FROM vehiculos),
			(SELECT COUNT(*) FROM vehiculos),
			(SELECT COUNT(*) FILTER (WHERE estado = 'ACTIVO') FROM choferes),
			(SELECT COUNT(*) FROM choferes),
			(SELECT COUNT(*) FILTER (WHERE estado = 'ACTIVO') FROM clientes),
			(SELECT COUNT(*) FROM clientes),
			(SELECT COUNT(*) FROM materiales)`

	var c domain.ReferenceCounts
	err := r.db.QueryRow(ctx, q).Scan(
		&c.Vehicles.Active, &c.Vehicles.Total,
		&c.Drivers.Active, &c.Drivers.Total,
		&c.Clients.Active, &c.Clients.Total,
		&c.Materials,
	)
	if err != nil {
		return domain.ReferenceCounts{}, fmt.Errorf("repo.RefDataRepo.Counts: %w", err)
	}
	return c, nil
}

// notFound maps pgx.ErrNoRows onto the domain sentinel.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

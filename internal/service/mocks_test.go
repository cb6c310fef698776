package service_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/repo"
)

// Hand-written test doubles for the repo interfaces.
// Each method is a function field: set only the ones your test needs.

type mockTripRepo struct {
	create        func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID       func(ctx context.Context, id int64) (domain.Trip, error)
	getForUpdate  func(ctx context.Context, id int64) (domain.Trip, error)
	listPaged     func(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error)
	update        func(ctx context.Context, trip domain.Trip, expected domain.TripState) (domain.Trip, error)
	delete        func(ctx context.Context, id int64, expected domain.TripState) error
	monthlyTotals func(ctx context.Context, from, to time.Time) (domain.MonthlyTotals, error)
}

func (m *mockTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.create(ctx, trip)
}
func (m *mockTripRepo) GetByID(ctx context.Context, id int64) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) GetForUpdate(ctx context.Context, id int64) (domain.Trip, error) {
	return m.getForUpdate(ctx, id)
}
func (m *mockTripRepo) ListPaged(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	return m.listPaged(ctx, f, p)
}
func (m *mockTripRepo) Update(ctx context.Context, trip domain.Trip, expected domain.TripState) (domain.Trip, error) {
	return m.update(ctx, trip, expected)
}
func (m *mockTripRepo) Delete(ctx context.Context, id int64, expected domain.TripState) error {
	return m.delete(ctx, id, expected)
}
func (m *mockTripRepo) MonthlyTotals(ctx context.Context, from, to time.Time) (domain.MonthlyTotals, error) {
	return m.monthlyTotals(ctx, from, to)
}

var _ repo.TripRepo = (*mockTripRepo)(nil)

type mockExpenseRepo struct {
	create               func(ctx context.Context, entry domain.ExpenseEntry) (domain.ExpenseEntry, error)
	listByTripID         func(ctx context.Context, tripID int64) ([]domain.ExpenseEntry, error)
	sumByTripID          func(ctx context.Context, tripID int64) (decimal.Decimal, error)
	sumForDepartureRange func(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

func (m *mockExpenseRepo) Create(ctx context.Context, entry domain.ExpenseEntry) (domain.ExpenseEntry, error) {
	return m.create(ctx, entry)
}
func (m *mockExpenseRepo) ListByTripID(ctx context.Context, tripID int64) ([]domain.ExpenseEntry, error) {
	return m.listByTripID(ctx, tripID)
}
func (m *mockExpenseRepo) SumByTripID(ctx context.Context, tripID int64) (decimal.Decimal, error) {
	return m.sumByTripID(ctx, tripID)
}
func (m *mockExpenseRepo) SumForDepartureRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	return m.sumForDepartureRange(ctx, from, to)
}

var _ repo.ExpenseRepo = (*mockExpenseRepo)(nil)

// recordingAuditRepo keeps every record it is given. Setting err makes
// Record fail, which must abort the surrounding transaction.
type recordingAuditRepo struct {
	records []domain.AuditRecord
	err     error
	list    func(ctx context.Context, f domain.AuditFilter) ([]domain.AuditRecord, error)
}

func (m *recordingAuditRepo) Record(_ context.Context, rec domain.AuditRecord) (domain.AuditRecord, error) {
	if m.err != nil {
		return domain.AuditRecord{}, m.err
	}
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, rec)
	return rec, nil
}
func (m *recordingAuditRepo) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditRecord, error) {
	return m.list(ctx, f)
}

var _ repo.AuditRepo = (*recordingAuditRepo)(nil)

// fakeRefs serves reference data from maps. Missing ids are not found.
type fakeRefs struct {
	vehicles  map[int64]bool // id -> active
	drivers   map[int64]bool
	clients   map[int64]bool
	materials map[int64]bool
	err       error
	counts    domain.ReferenceCounts
}

func (f *fakeRefs) FindVehicle(_ context.Context, id int64) (domain.Vehicle, error) {
	if f.err != nil {
		return domain.Vehicle{}, f.err
	}
	active, ok := f.vehicles[id]
	if !ok {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return domain.Vehicle{ID: id, Active: active}, nil
}
func (f *fakeRefs) FindDriver(_ context.Context, id int64) (domain.Driver, error) {
	if f.err != nil {
		return domain.Driver{}, f.err
	}
	active, ok := f.drivers[id]
	if !ok {
		return domain.Driver{}, domain.ErrNotFound
	}
	return domain.Driver{ID: id, Active: active}, nil
}
func (f *fakeRefs) FindClient(_ context.Context, id int64) (domain.Client, error) {
	if f.err != nil {
		return domain.Client{}, f.err
	}
	active, ok := f.clients[id]
	if !ok {
		return domain.Client{}, domain.ErrNotFound
	}
	return domain.Client{ID: id, Active: active}, nil
}
func (f *fakeRefs) FindMaterial(_ context.Context, id int64) (domain.Material, error) {
	if f.err != nil {
		return domain.Material{}, f.err
	}
	if _, ok := f.materials[id]; !ok {
		return domain.Material{}, domain.ErrNotFound
	}
	return domain.Material{ID: id}, nil
}
func (f *fakeRefs) Counts(context.Context) (domain.ReferenceCounts, error) {
	return f.counts, f.err
}

var _ repo.RefDataRepo = (*fakeRefs)(nil)

// activeRefs knows vehicle, driver, client and material 1, all active.
func activeRefs() *fakeRefs {
	return &fakeRefs{
		vehicles:  map[int64]bool{1: true},
		drivers:   map[int64]bool{1: true},
		clients:   map[int64]bool{1: true},
		materials: map[int64]bool{1: true},
	}
}

// fakeTx runs fn against fixed repos. committed reports whether the last
// unit of work returned nil, i.e. would have been committed.
type fakeTx struct {
	repos     repo.Repos
	committed bool
	calls     int
}

func (f *fakeTx) InTx(_ context.Context, fn func(repo.Repos) error) error {
	f.calls++
	err := fn(f.repos)
	f.committed = err == nil
	return err
}

var _ repo.TxRunner = (*fakeTx)(nil)

// recordingObserver remembers the transitions and expenses it was told about.
type recordingObserver struct {
	transitions [][2]domain.TripState
	expenses    []domain.ExpenseType
}

func (o *recordingObserver) TripTransitioned(from, to domain.TripState) {
	o.transitions = append(o.transitions, [2]domain.TripState{from, to})
}
func (o *recordingObserver) ExpenseRecorded(t domain.ExpenseType) {
	o.expenses = append(o.expenses, t)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetledger/backoffice/internal/blob"
	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/repo"
)

// TripService is the gatekeeper for every trip mutation: it validates input
// against the reference data, enforces the state machine, and writes each
// change together with its audit record in one transaction.
type TripService struct {
	trips    repo.TripRepo
	refs     repo.RefDataRepo
	tx       repo.TxRunner
	observer TransitionObserver
	receipts blob.Store
	logger   *slog.Logger
	now      func() time.Time
}

// TripOption customises a TripService.
type TripOption func(*TripService)

// WithTransitionObserver registers o to be told about committed state changes.
func WithTransitionObserver(o TransitionObserver) TripOption {
	return func(s *TripService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock replaces time.Now as the source of "now" for completions.
func WithClock(now func() time.Time) TripOption {
	return func(s *TripService) { s.now = now }
}

// WithReceiptStore lets Delete remove the receipt files of the expenses that
// go away with a trip. Without one the files are left in place.
func WithReceiptStore(store blob.Store) TripOption {
	return func(s *TripService) { s.receipts = store }
}

// WithLogger sets the logger used for best-effort cleanup failures.
func WithLogger(logger *slog.Logger) TripOption {
	return func(s *TripService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewTripService constructs a TripService. trips and refs serve reads outside
// transactions; every write goes through tx.
func NewTripService(trips repo.TripRepo, refs repo.RefDataRepo, tx repo.TxRunner, opts ...TripOption) *TripService {
	s := &TripService{trips: trips, refs: refs, tx: tx, observer: noopObserver{}, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a new PLANNED trip.
// Every violated rule is reported at once in a *domain.ValidationError.
func (s *TripService) Create(ctx context.Context, actor domain.Actor, in domain.NewTrip) (domain.Trip, error) {
	const op = "service.TripService.Create"

	trip := in.Trip()
	problems := trip.ScheduleProblems()
	refProblems, err := referenceProblems(ctx, s.refs, refsOf(trip))
	if err != nil {
		return domain.Trip{}, classify(op, err)
	}
	if err := domain.NewValidationError(append(problems, refProblems...)); err != nil {
		return domain.Trip{}, classify(op, err)
	}

	var created domain.Trip
	err = s.tx.InTx(ctx, func(r repo.Repos) error {
		var err error
		if created, err = r.Trips.Create(ctx, trip); err != nil {
			return err
		}
		return record(ctx, r.Audit, actor, domain.AuditCreate, created.ID, nil, created)
	})
	if err != nil {
		return domain.Trip{}, classify(op, err)
	}
	return created, nil
}

// Get returns a single trip by ID.
func (s *TripService) Get(ctx context.Context, id int64) (domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, classify("service.TripService.Get", err)
	}
	return trip, nil
}

// List returns one page of trips matching f, most recent departure first.
func (s *TripService) List(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) (domain.Page[domain.Trip], error) {
	trips, total, err := s.trips.ListPaged(ctx, f, p)
	if err != nil {
		return domain.Page[domain.Trip]{}, classify("service.TripService.List", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return domain.Page[domain.Trip]{Items: trips, Total: total, PaginationParams: p}, nil
}

// Update applies the supplied fields of patch to a PLANNED or IN_PROGRESS trip.
// Returns domain.ErrNotFound, domain.ErrInvalidState for terminal trips, or a
// *domain.ValidationError when the merged trip or a new reference is invalid.
func (s *TripService) Update(ctx context.Context, actor domain.Actor, id int64, patch domain.TripPatch) (domain.Trip, error) {
	const op = "service.TripService.Update"

	if patch.IsEmpty() {
		return domain.Trip{}, classify(op, domain.NewValidationError([]string{"no fields to update"}))
	}
	refProblems, err := referenceProblems(ctx, s.refs, refsOfPatch(patch))
	if err != nil {
		return domain.Trip{}, classify(op, err)
	}

	var updated domain.Trip
	err = s.tx.InTx(ctx, func(r repo.Repos) error {
		current, err := r.Trips.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.State.CanEdit() {
			return fmt.Errorf("%w: trip %d is %s and can no longer be edited", domain.ErrInvalidState, id, current.State)
		}

		merged := patch.Apply(current)
		if err := domain.NewValidationError(append(merged.ScheduleProblems(), refProblems...)); err != nil {
			return err
		}

		if updated, err = r.Trips.Update(ctx, merged, current.State); err != nil {
			return err
		}
		return record(ctx, r.Audit, actor, domain.AuditEdit, id, current, updated)
	})
	if err != nil {
		return domain.Trip{}, classify(op, err)
	}
	return updated, nil
}

// stateSnapshot is the audit payload of a state change.
type stateSnapshot struct {
	State           domain.TripState `json:"estado"`
	ActualArrivalAt *time.Time       `json:"fechaLlegadaReal,omitempty"`
	ActualKm        *int             `json:"kilometrosReales,omitempty"`
}

// ChangeState moves a trip along the state machine.
// Completing a trip stamps the actual arrival (defaulting to now, UTC) and
// records the actual distance only when one is supplied.
func (s *TripService) ChangeState(ctx context.Context, actor domain.Actor, id int64, target domain.TripState, completion domain.CompletionData) (domain.Trip, error) {
	const op = "service.TripService.ChangeState"

	if !target.IsValid() {
		return domain.Trip{}, classify(op, domain.NewValidationError([]string{
			fmt.Sprintf("unknown trip state %q", target),
		}))
	}
	if completion.ActualKm != nil && *completion.ActualKm < 0 {
		return domain.Trip{}, classify(op, domain.NewValidationError([]string{"actual distance must not be negative"}))
	}

	var (
		from    domain.TripState
		updated domain.Trip
	)
	err := s.tx.InTx(ctx, func(r repo.Repos) error {
		current, err := r.Trips.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = current.State
		if !from.CanTransitionTo(target) {
			return &domain.TransitionError{From: from, To: target}
		}

		next := current
		next.State = target
		after := stateSnapshot{State: target}
		if target == domain.TripCompleted {
			arrival := s.now().UTC()
			if completion.ActualArrivalAt != nil {
				arrival = completion.ActualArrivalAt.UTC()
			}
			next.ActualArrivalAt = &arrival
			after.ActualArrivalAt = &arrival
			if completion.ActualKm != nil {
				km := *completion.ActualKm
				next.ActualKm = &km
				after.ActualKm = &km
			}
		}

		if updated, err = r.Trips.Update(ctx, next, from); err != nil {
			return err
		}
		return record(ctx, r.Audit, actor, domain.AuditEdit, id, stateSnapshot{State: from}, after)
	})
	if err != nil {
		return domain.Trip{}, classify(op, err)
	}

	s.observer.TripTransitioned(from, target)
	return updated, nil
}

// deleteSnapshot is the audit payload of a deleted trip: the trip itself and
// the expenses removed with it.
type deleteSnapshot struct {
	Trip     domain.Trip           `json:"viaje"`
	Expenses []domain.ExpenseEntry `json:"gastos"`
}

// Delete physically removes a PLANNED trip together with its expenses. Trips
// that ever started carry financial history and are refused with
// domain.ErrInvalidState. Receipt files of the removed expenses are deleted
// after commit on a best-effort basis.
func (s *TripService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	const op = "service.TripService.Delete"

	var receipts []string
	err := s.tx.InTx(ctx, func(r repo.Repos) error {
		current, err := r.Trips.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.State.CanDelete() {
			return fmt.Errorf("%w: only PLANNED trips may be deleted (trip %d is %s)", domain.ErrInvalidState, id, current.State)
		}
		expenses, err := r.Expenses.ListByTripID(ctx, id)
		if err != nil {
			return err
		}
		if expenses == nil {
			expenses = []domain.ExpenseEntry{}
		}
		if err := r.Trips.Delete(ctx, id, current.State); err != nil {
			return err
		}
		for _, e := range expenses {
			if e.Receipt != nil && e.Receipt.StorageID != "" {
				receipts = append(receipts, e.Receipt.StorageID)
			}
		}
		return record(ctx, r.Audit, actor, domain.AuditDelete, id, deleteSnapshot{Trip: current, Expenses: expenses}, nil)
	})
	if err != nil {
		return classify(op, err)
	}

	if s.receipts != nil && len(receipts) > 0 {
		discardReceipts(ctx, s.receipts, s.logger, receipts...)
	}
	return nil
}

// record writes a trip audit entry through the transaction-bound audit repo.
// A failure here aborts the surrounding transaction.
func record(ctx context.Context, audit repo.AuditRepo, actor domain.Actor, action domain.AuditAction, id int64, before, after any) error {
	return recordEntity(ctx, audit, actor, action, domain.EntityTrip, id, before, after)
}

func recordEntity(ctx context.Context, audit repo.AuditRepo, actor domain.Actor, action domain.AuditAction, entity string, id int64, before, after any) error {
	rec, err := auditRecord(actor, action, entity, id, before, after)
	if err != nil {
		return fmt.Errorf("%w: audit: %w", domain.ErrInfrastructure, err)
	}
	if _, err := audit.Record(ctx, rec); err != nil {
		return fmt.Errorf("%w: audit: %w", domain.ErrInfrastructure, err)
	}
	return nil
}

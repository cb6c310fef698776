package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/fleetledger/backoffice/internal/blob"
	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/repo"
)

// receiptFolder groups expense receipts inside the blob store.
const receiptFolder = "gastos"

// ExpenseService books expenses against trips and reads them back.
type ExpenseService struct {
	trips    repo.TripRepo
	expenses repo.ExpenseRepo
	tx       repo.TxRunner
	blobs    blob.Store
	observer ExpenseObserver
	logger   *slog.Logger
}

// NewExpenseService constructs an ExpenseService. observer may be nil.
func NewExpenseService(trips repo.TripRepo, expenses repo.ExpenseRepo, tx repo.TxRunner, blobs blob.Store, observer ExpenseObserver, logger *slog.Logger) *ExpenseService {
	if observer == nil {
		observer = noopObserver{}
	}
	return &ExpenseService{trips: trips, expenses: expenses, tx: tx, blobs: blobs, observer: observer, logger: logger}
}

// AddExpense books in against a PLANNED or IN_PROGRESS trip, storing receipt
// first when one is given. If the entry cannot be committed the stored
// receipt is deleted again.
func (s *ExpenseService) AddExpense(ctx context.Context, actor domain.Actor, tripID int64, in domain.NewExpense, receipt *domain.ReceiptUpload) (domain.ExpenseEntry, error) {
	const op = "service.ExpenseService.AddExpense"

	problems := in.Problems()
	if receipt != nil && len(receipt.Body) == 0 {
		problems = append(problems, "receipt file is empty")
	}
	if err := domain.NewValidationError(problems); err != nil {
		return domain.ExpenseEntry{}, classify(op, err)
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.ExpenseEntry{}, classify(op, err)
	}
	if !trip.State.CanEdit() {
		return domain.ExpenseEntry{}, classify(op, notEditable(trip))
	}

	entry := domain.ExpenseEntry{
		TripID:        tripID,
		Type:          in.Type,
		Amount:        in.Amount,
		Date:          in.Date,
		PaymentMethod: in.PaymentMethod,
		Description:   in.Description,
	}
	if receipt != nil {
		stored, err := s.blobs.Put(ctx, receipt.Body, receiptFolder, receipt.Filename)
		if err != nil {
			return domain.ExpenseEntry{}, classify(op, fmt.Errorf("store receipt: %w", err))
		}
		entry.Receipt = &stored
	}

	var created domain.ExpenseEntry
	err = s.tx.InTx(ctx, func(r repo.Repos) error {
		// The trip may have been completed or cancelled since the first read.
		locked, err := r.Trips.GetForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		if !locked.State.CanEdit() {
			return notEditable(locked)
		}
		if created, err = r.Expenses.Create(ctx, entry); err != nil {
			return err
		}
		return recordEntity(ctx, r.Audit, actor, domain.AuditCreate, domain.EntityExpense, created.ID, nil, created)
	})
	if err != nil {
		if entry.Receipt != nil {
			s.discardReceipt(ctx, entry.Receipt.StorageID)
		}
		return domain.ExpenseEntry{}, classify(op, err)
	}

	s.observer.ExpenseRecorded(created.Type)
	return created, nil
}

// discardReceipt removes an orphaned receipt.
func (s *ExpenseService) discardReceipt(ctx context.Context, storageID string) {
	discardReceipts(ctx, s.blobs, s.logger, storageID)
}

// discardReceipts removes receipts no row references any more. Failure only
// leaves an unreferenced file behind, so it is logged rather than returned.
func discardReceipts(ctx context.Context, blobs blob.Store, logger *slog.Logger, storageIDs ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range storageIDs {
		if err := blobs.Delete(ctx, id); err != nil {
			logger.ErrorContext(ctx, "orphan receipt cleanup failed",
				slog.String("storage_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// ListByTrip returns the expenses of an existing trip, most recent first.
func (s *ExpenseService) ListByTrip(ctx context.Context, tripID int64) ([]domain.ExpenseEntry, error) {
	const op = "service.ExpenseService.ListByTrip"

	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, classify(op, err)
	}
	entries, err := s.expenses.ListByTripID(ctx, tripID)
	if err != nil {
		return nil, classify(op, err)
	}
	if entries == nil {
		return []domain.ExpenseEntry{}, nil
	}
	return entries, nil
}

// SumExpensesForTrip returns the total booked on a trip; zero when it has no entries.
func (s *ExpenseService) SumExpensesForTrip(ctx context.Context, tripID int64) (decimal.Decimal, error) {
	sum, err := s.expenses.SumByTripID(ctx, tripID)
	if err != nil {
		return decimal.Zero, classify("service.ExpenseService.SumExpensesForTrip", err)
	}
	return sum, nil
}

func notEditable(t domain.Trip) error {
	return fmt.Errorf("%w: expenses can only be added to PLANNED or IN_PROGRESS trips (trip %d is %s)",
		domain.ErrInvalidState, t.ID, t.State)
}

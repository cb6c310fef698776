package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/fleetledger/backoffice/internal/blob"
	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/repo"
	"github.com/fleetledger/backoffice/internal/service"
)

func validNewExpense() domain.NewExpense {
	return domain.NewExpense{
		Type:          domain.ExpenseFuel,
		Amount:        decimal.RequireFromString("120.50"),
		Date:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		PaymentMethod: domain.PaymentCash,
		Description:   "grifo",
	}
}

type expenseFixture struct {
	svc      *service.ExpenseService
	expenses *mockExpenseRepo
	audit    *recordingAuditRepo
	tx       *fakeTx
	blobs    *blob.MockStore
	observer *recordingObserver
}

func newExpenseFixture(t *testing.T, stored domain.Trip) *expenseFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	trips := memTripRepo(&stored)
	expenses := &mockExpenseRepo{
		create: func(_ context.Context, e domain.ExpenseEntry) (domain.ExpenseEntry, error) {
			e.ID = 1
			return e, nil
		},
	}
	audit := &recordingAuditRepo{}
	tx := &fakeTx{repos: repo.Repos{Trips: trips, Expenses: expenses, Audit: audit}}
	blobs := blob.NewMockStore(ctrl)
	observer := &recordingObserver{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &expenseFixture{
		svc:      service.NewExpenseService(trips, expenses, tx, blobs, observer, logger),
		expenses: expenses,
		audit:    audit,
		tx:       tx,
		blobs:    blobs,
		observer: observer,
	}
}

func TestExpenseService_AddExpense_NoReceipt(t *testing.T) {
	f := newExpenseFixture(t, storedTrip(domain.TripInProgress))

	got, err := f.svc.AddExpense(context.Background(), admin, 10, validNewExpense(), nil)

	require.NoError(t, err)
	assert.EqualValues(t, 10, got.TripID)
	assert.Nil(t, got.Receipt)
	assert.True(t, f.tx.committed)
	require.Len(t, f.audit.records, 1)
	assert.Equal(t, domain.EntityExpense, f.audit.records[0].Entity)
	assert.Equal(t, domain.AuditCreate, f.audit.records[0].Action)
	assert.Equal(t, []domain.ExpenseType{domain.ExpenseFuel}, f.observer.expenses)
}

func TestExpenseService_AddExpense_WithReceipt(t *testing.T) {
	f := newExpenseFixture(t, storedTrip(domain.TripPlanned))
	body := []byte("%PDF")
	f.blobs.EXPECT().
		Put(gomock.Any(), body, "gastos", "boleta.pdf").
		Return(domain.Receipt{URL: "http://x/gastos/k.pdf", StorageID: "gastos/k.pdf"}, nil)

	got, err := f.svc.AddExpense(context.Background(), admin, 10, validNewExpense(),
		&domain.ReceiptUpload{Filename: "boleta.pdf", Body: body})

	require.NoError(t, err)
	require.NotNil(t, got.Receipt)
	assert.Equal(t, "gastos/k.pdf", got.Receipt.StorageID)
	assert.Contains(t, string(f.audit.records[0].After), `"storageId":"gastos/k.pdf"`)
}

func TestExpenseService_AddExpense_FailedWriteDiscardsReceipt(t *testing.T) {
	f := newExpenseFixture(t, storedTrip(domain.TripPlanned))
	f.expenses.create = func(context.Context, domain.ExpenseEntry) (domain.ExpenseEntry, error) {
		return domain.ExpenseEntry{}, errors.New("connection reset")
	}
	gomock.InOrder(
		f.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(domain.Receipt{URL: "http://x/k.jpg", StorageID: "k.jpg"}, nil),
		f.blobs.EXPECT().Delete(gomock.Any(), "k.jpg").Return(nil),
	)

	_, err := f.svc.AddExpense(context.Background(), admin, 10, validNewExpense(),
		&domain.ReceiptUpload{Filename: "k.jpg", Body: []byte{0xff}})

	assert.ErrorIs(t, err, domain.ErrInfrastructure)
	assert.Empty(t, f.observer.expenses)
}

func TestExpenseService_AddExpense_ReceiptStoreDown(t *testing.T) {
	f := newExpenseFixture(t, storedTrip(domain.TripPlanned))
	f.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.Receipt{}, errors.New("quota exceeded"))

	_, err := f.svc.AddExpense(context.Background(), admin, 10, validNewExpense(),
		&domain.ReceiptUpload{Filename: "a.png", Body: []byte{1}})

	assert.ErrorIs(t, err, domain.ErrInfrastructure)
	assert.Zero(t, f.tx.calls, "no entry without its receipt")
}

func TestExpenseService_AddExpense_TripNotFound(t *testing.T) {
	f := newExpenseFixture(t, storedTrip(domain.TripPlanned))

	_, err := f.svc.AddExpense(context.Background(), admin, 404, validNewExpense(), nil)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExpenseService_AddExpense_TerminalTrip(t *testing.T) {
	for _, state := range []domain.TripState{domain.TripCompleted, domain.TripCancelled} {
		t.Run(string(state), func(t *testing.T) {
			f := newExpenseFixture(t, storedTrip(state))

			_, err := f.svc.AddExpense(context.Background(), admin, 10, validNewExpense(), nil)

			assert.ErrorIs(t, err, domain.ErrInvalidState)
			assert.Zero(t, f.tx.calls)
		})
	}
}

func TestExpenseService_AddExpense_Invalid(t *testing.T) {
	f := newExpenseFixture(t, storedTrip(domain.TripPlanned))
	in := validNewExpense()
	in.Amount = decimal.NewFromInt(-1)
	in.Type = "GIFT"

	_, err := f.svc.AddExpense(context.Background(), admin, 10, in, &domain.ReceiptUpload{Filename: "x.pdf"})

	problems := validationProblems(t, err)
	assert.Len(t, problems, 3)
}

func TestExpenseService_SumExpensesForTrip(t *testing.T) {
	f := newExpenseFixture(t, storedTrip(domain.TripPlanned))
	f.expenses.sumByTripID = func(context.Context, int64) (decimal.Decimal, error) {
		return decimal.Zero, nil
	}

	sum, err := f.svc.SumExpensesForTrip(context.Background(), 10)

	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

func TestExpenseService_ListByTrip(t *testing.T) {
	f := newExpenseFixture(t, storedTrip(domain.TripCompleted))
	f.expenses.listByTripID = func(context.Context, int64) ([]domain.ExpenseEntry, error) {
		return nil, nil
	}

	entries, err := f.svc.ListByTrip(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)

	_, err = f.svc.ListByTrip(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/repo"
)

// SummaryService derives the economic figures of trips and months.
// Nothing it computes is stored.
type SummaryService struct {
	trips    repo.TripRepo
	expenses repo.ExpenseRepo
}

// NewSummaryService constructs a SummaryService backed by the provided repos.
func NewSummaryService(trips repo.TripRepo, expenses repo.ExpenseRepo) *SummaryService {
	return &SummaryService{trips: trips, expenses: expenses}
}

// GetTripDetail returns a trip, its expenses and its income/expenses/margin.
func (s *SummaryService) GetTripDetail(ctx context.Context, id int64) (domain.TripDetail, error) {
	const op = "service.SummaryService.GetTripDetail"

	var (
		trip    domain.Trip
		entries []domain.ExpenseEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trip, err = s.trips.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.expenses.ListByTripID(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.TripDetail{}, classify(op, err)
	}

	if entries == nil {
		entries = []domain.ExpenseEntry{}
	}
	return domain.TripDetail{
		Trip:     trip,
		Expenses: entries,
		Summary:  domain.Summarize(trip.Tariff, entries),
	}, nil
}

// GetMonthlyStatistics aggregates the trips whose scheduled departure falls
// in the given UTC calendar month. month is 1-indexed.
func (s *SummaryService) GetMonthlyStatistics(ctx context.Context, year, month int) (domain.MonthlyStatistics, error) {
	const op = "service.SummaryService.GetMonthlyStatistics"

	from, to, err := domain.MonthRange(year, month)
	if err != nil {
		return domain.MonthlyStatistics{}, classify(op, err)
	}

	var (
		totals   domain.MonthlyTotals
		expenses decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.trips.MonthlyTotals(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.expenses.SumForDepartureRange(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.MonthlyStatistics{}, classify(op, err)
	}

	return domain.NewMonthlyStatistics(year, month, totals, expenses), nil
}

// CurrentMonth returns the statistics of the UTC month containing now.
func (s *SummaryService) CurrentMonth(ctx context.Context, now time.Time) (domain.MonthlyStatistics, error) {
	now = now.UTC()
	return s.GetMonthlyStatistics(ctx, now.Year(), int(now.Month()))
}

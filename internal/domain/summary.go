package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EconomicSummary is the derived profitability of one trip.
// Margin may be negative; it is never clamped.
type EconomicSummary struct {
	Income   decimal.Decimal `json:"ingreso"`
	Expenses decimal.Decimal `json:"gastos"`
	Margin   decimal.Decimal `json:"ganancia"`
}

// Summarize computes income, expenses and margin from the trip tariff and its
// expense entries. It is recomputed on every read and never stored.
func Summarize(tariff decimal.Decimal, entries []ExpenseEntry) EconomicSummary {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return EconomicSummary{
		Income:   tariff,
		Expenses: total,
		Margin:   tariff.Sub(total),
	}
}

// TripDetail is a trip together with its expenses and economic summary.
type TripDetail struct {
	Trip     Trip            `json:"viaje"`
	Expenses []ExpenseEntry  `json:"gastos"`
	Summary  EconomicSummary `json:"resumenEconomico"`
}

// MonthlyTotals is what the trip table yields for a departure window.
type MonthlyTotals struct {
	TotalTrips      int64
	CompletedTrips  int64
	CompletedIncome decimal.Decimal
}

// MonthlyStatistics aggregates every trip whose scheduled departure falls in
// one calendar month (UTC).
type MonthlyStatistics struct {
	Year           int             `json:"anio"`
	Month          int             `json:"mes"`
	TotalTrips     int64           `json:"totalViajes"`
	CompletedTrips int64           `json:"viajesCompletados"`
	Income         decimal.Decimal `json:"ingresosTotales"`
	Expenses       decimal.Decimal `json:"gastosTotales"`
	EstimatedGain  decimal.Decimal `json:"gananciaEstimada"`
}

// NewMonthlyStatistics derives the gain from the trip totals and the sum of
// expenses booked on the same trips.
func NewMonthlyStatistics(year, month int, totals MonthlyTotals, expenses decimal.Decimal) MonthlyStatistics {
	return MonthlyStatistics{
		Year:           year,
		Month:          month,
		TotalTrips:     totals.TotalTrips,
		CompletedTrips: totals.CompletedTrips,
		Income:         totals.CompletedIncome,
		Expenses:       expenses,
		EstimatedGain:  totals.CompletedIncome.Sub(expenses),
	}
}

// MonthRange returns the half-open UTC interval [from, to) covering the
// given 1-indexed month.
func MonthRange(year, month int) (from, to time.Time, err error) {
	var problems []string
	if year < 1 || year > 9999 {
		problems = append(problems, fmt.Sprintf("year %d out of range", year))
	}
	if month < 1 || month > 12 {
		problems = append(problems, fmt.Sprintf("month %d out of range (1-12)", month))
	}
	if err := NewValidationError(problems); err != nil {
		return time.Time{}, time.Time{}, err
	}
	from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/handler"
	"github.com/fleetledger/backoffice/internal/middleware"
)

var testSecret = []byte("handler-test-secret")

var (
	adminActor   = domain.Actor{UserID: 1, Username: "admin", Role: domain.RoleAdmin}
	auditorActor = domain.Actor{UserID: 2, Username: "auditor", Role: domain.RoleAuditor}
)

// ---- mocks -----------------------------------------------------------------

// mockTripServicer is a test double for handler.TripServicer.
// Set only the method fields your test needs.
type mockTripServicer struct {
	create      func(ctx context.Context, actor domain.Actor, in domain.NewTrip) (domain.Trip, error)
	list        func(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) (domain.Page[domain.Trip], error)
	update      func(ctx context.Context, actor domain.Actor, id int64, patch domain.TripPatch) (domain.Trip, error)
	changeState func(ctx context.Context, actor domain.Actor, id int64, target domain.TripState, c domain.CompletionData) (domain.Trip, error)
	delete      func(ctx context.Context, actor domain.Actor, id int64) error
}

func (m *mockTripServicer) Create(ctx context.Context, a domain.Actor, in domain.NewTrip) (domain.Trip, error) {
	return m.create(ctx, a, in)
}
func (m *mockTripServicer) List(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) (domain.Page[domain.Trip], error) {
	return m.list(ctx, f, p)
}
func (m *mockTripServicer) Update(ctx context.Context, a domain.Actor, id int64, patch domain.TripPatch) (domain.Trip, error) {
	return m.update(ctx, a, id, patch)
}
func (m *mockTripServicer) ChangeState(ctx context.Context, a domain.Actor, id int64, target domain.TripState, c domain.CompletionData) (domain.Trip, error) {
	return m.changeState(ctx, a, id, target, c)
}
func (m *mockTripServicer) Delete(ctx context.Context, a domain.Actor, id int64) error {
	return m.delete(ctx, a, id)
}

// compile-time check: mockTripServicer must satisfy handler.TripServicer.
var _ handler.TripServicer = (*mockTripServicer)(nil)

type mockExpenseServicer struct {
	add  func(ctx context.Context, actor domain.Actor, tripID int64, in domain.NewExpense, receipt *domain.ReceiptUpload) (domain.ExpenseEntry, error)
	list func(ctx context.Context, tripID int64) ([]domain.ExpenseEntry, error)
}

func (m *mockExpenseServicer) AddExpense(ctx context.Context, a domain.Actor, tripID int64, in domain.NewExpense, receipt *domain.ReceiptUpload) (domain.ExpenseEntry, error) {
	return m.add(ctx, a, tripID, in, receipt)
}
func (m *mockExpenseServicer) ListByTrip(ctx context.Context, tripID int64) ([]domain.ExpenseEntry, error) {
	return m.list(ctx, tripID)
}

var _ handler.ExpenseServicer = (*mockExpenseServicer)(nil)

type mockSummaryServicer struct {
	detail  func(ctx context.Context, id int64) (domain.TripDetail, error)
	monthly func(ctx context.Context, year, month int) (domain.MonthlyStatistics, error)
}

func (m *mockSummaryServicer) GetTripDetail(ctx context.Context, id int64) (domain.TripDetail, error) {
	return m.detail(ctx, id)
}
func (m *mockSummaryServicer) GetMonthlyStatistics(ctx context.Context, year, month int) (domain.MonthlyStatistics, error) {
	return m.monthly(ctx, year, month)
}

var _ handler.SummaryServicer = (*mockSummaryServicer)(nil)

type dashboardFunc func(ctx context.Context, now time.Time) (domain.Dashboard, error)

func (f dashboardFunc) Summary(ctx context.Context, now time.Time) (domain.Dashboard, error) {
	return f(ctx, now)
}

type auditFunc func(ctx context.Context, f domain.AuditFilter) ([]domain.AuditRecord, error)

func (f auditFunc) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	return f(ctx, filter)
}

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mocks behind the real
// authenticator. This mirrors how main.go wires it in production.
func newHTTPHandler(svc handler.Services) http.Handler {
	srv := handler.NewServer(svc, nil)
	return srv.Routes(handler.RouteOptions{
		Authenticate: middleware.NewAuthenticator(testSecret),
	})
}

func token(t *testing.T, a domain.Actor) string {
	t.Helper()
	tok, err := middleware.SignToken(testSecret, a, time.Hour)
	require.NoError(t, err)
	return tok
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

// do sends a request as actor (nil means anonymous) and returns the recorder.
func do(t *testing.T, h http.Handler, actor *domain.Actor, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, *actor))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// doLimited sends body without a Content-Length through the body size
// middleware, so the limit is only hit while the handler reads.
func doLimited(t *testing.T, h http.Handler, limit int64, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.ContentLength = -1
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token(t, adminActor))
	rec := httptest.NewRecorder()
	middleware.NewMaxBodySizeHandler(limit)(h).ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func tripFixture() domain.Trip {
	dep := time.Date(2031, 3, 10, 8, 0, 0, 0, time.UTC)
	return domain.Trip{
		ID:          7,
		VehicleID:   1,
		DriverID:    2,
		ClientID:    3,
		MaterialID:  4,
		Origin:      "Arequipa",
		Destination: "Juliaca",
		DepartureAt: dep,
		Tariff:      decimal.RequireFromString("1500.00"),
		State:       domain.TripPlanned,
		CreatedAt:   dep.Add(-24 * time.Hour),
		UpdatedAt:   dep.Add(-24 * time.Hour),
	}
}

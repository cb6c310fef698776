// Package handler implements the HTTP handlers for the back office API.
// All handlers are methods on Server. Methods are split into resource files
// (trips.go, expenses.go, etc.) but share the same Server struct so they can
// reach its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/middleware"
)

// TripServicer defines the trip operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type TripServicer interface {
	Create(ctx context.Context, actor domain.Actor, in domain.NewTrip) (domain.Trip, error)
	List(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) (domain.Page[domain.Trip], error)
	Update(ctx context.Context, actor domain.Actor, id int64, patch domain.TripPatch) (domain.Trip, error)
	ChangeState(ctx context.Context, actor domain.Actor, id int64, target domain.TripState, completion domain.CompletionData) (domain.Trip, error)
	Delete(ctx context.Context, actor domain.Actor, id int64) error
}

// ExpenseServicer defines the expense operations the handlers depend on.
type ExpenseServicer interface {
	AddExpense(ctx context.Context, actor domain.Actor, tripID int64, in domain.NewExpense, receipt *domain.ReceiptUpload) (domain.ExpenseEntry, error)
	ListByTrip(ctx context.Context, tripID int64) ([]domain.ExpenseEntry, error)
}

// SummaryServicer defines the read-only economic views.
type SummaryServicer interface {
	GetTripDetail(ctx context.Context, id int64) (domain.TripDetail, error)
	GetMonthlyStatistics(ctx context.Context, year, month int) (domain.MonthlyStatistics, error)
}

// DashboardServicer builds the landing page summary.
type DashboardServicer interface {
	Summary(ctx context.Context, now time.Time) (domain.Dashboard, error)
}

// AuditServicer lists audit records.
type AuditServicer interface {
	List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditRecord, error)
}

// Services bundles every servicer a Server needs. Nil members are allowed in
// tests that never reach the corresponding routes.
type Services struct {
	Trips     TripServicer
	Expenses  ExpenseServicer
	Summary   SummaryServicer
	Dashboard DashboardServicer
	Audit     AuditServicer
}

// Server serves the /api routes.
type Server struct {
	trips     TripServicer
	expenses  ExpenseServicer
	summary   SummaryServicer
	dashboard DashboardServicer
	audit     AuditServicer

	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

// NewServer constructs the Server with all its dependencies.
func NewServer(svc Services, log *slog.Logger) *Server {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report field names the way clients spell them.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		trips:     svc.Trips,
		expenses:  svc.Expenses,
		summary:   svc.Summary,
		dashboard: svc.Dashboard,
		audit:     svc.Audit,
		validate:  v,
		log:       log,
		now:       time.Now,
	}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(Services{}, nil)
}

// RouteOptions carries the middleware that guards /api.
type RouteOptions struct {
	// Authenticate resolves the bearer token into an actor. Required.
	Authenticate func(http.Handler) http.Handler
	// Idempotency deduplicates retried POSTs. Optional.
	Idempotency func(http.Handler) http.Handler
}

// Routes returns the router for /healthz and everything under /api.
// Any authenticated role may read; only ADMIN may mutate.
func (s *Server) Routes(opts RouteOptions) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(opts.Authenticate)
		if opts.Idempotency != nil {
			r.Use(opts.Idempotency)
		}

		r.Get("/viajes", s.ListTrips)
		r.Get("/viajes/{id}", s.GetTrip)
		r.Get("/viajes/{id}/gastos", s.ListExpenses)
		r.Get("/estadisticas/mensuales", s.GetMonthlyStatistics)
		r.Get("/dashboard", s.GetDashboard)
		r.Get("/auditoria", s.ListAudit)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Post("/viajes", s.CreateTrip)
			r.Put("/viajes/{id}", s.UpdateTrip)
			r.Patch("/viajes/{id}/estado", s.ChangeTripState)
			r.Delete("/viajes/{id}", s.DeleteTrip)
			r.Post("/viajes/{id}/gastos", s.AddExpense)
		})
	})
	return r
}

// actorFrom returns the authenticated caller. The routes are mounted behind
// the authenticator, so a missing actor is a wiring bug.
func actorFrom(r *http.Request) domain.Actor {
	actor, _ := middleware.ActorFrom(r.Context())
	return actor
}

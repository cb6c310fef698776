// Package domain contains the core data types for the fleet back office.
// This package only depends on decimal arithmetic and is imported by every
// other internal package (repo, service, handler).
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TripState is the lifecycle state of a trip.
type TripState string

const (
	TripPlanned    TripState = "PLANNED"
	TripInProgress TripState = "IN_PROGRESS"
	TripCompleted  TripState = "COMPLETED"
	TripCancelled  TripState = "CANCELLED"
)

// tripTransitions lists the forward edges of the trip state machine.
// COMPLETED and CANCELLED are terminal.
var tripTransitions = map[TripState][]TripState{
	TripPlanned:    {TripInProgress, TripCancelled},
	TripInProgress: {TripCompleted, TripCancelled},
	TripCompleted:  nil,
	TripCancelled:  nil,
}

// legacyTripStates maps the values stored by the previous system onto the
// canonical ones. Requests from older clients still send them.
var legacyTripStates = map[string]TripState{
	"PLANIFICADO": TripPlanned,
	"EN_CURSO":    TripInProgress,
	"COMPLETADO":  TripCompleted,
	"CANCELADO":   TripCancelled,
}

// ParseTripState converts s (case-insensitive, canonical or legacy spelling)
// into a TripState. Unknown values are a validation error.
func ParseTripState(s string) (TripState, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if st := TripState(v); st.IsValid() {
		return st, nil
	}
	if st, ok := legacyTripStates[v]; ok {
		return st, nil
	}
	return "", &ValidationError{Problems: []string{
		fmt.Sprintf("unknown trip state %q (allowed: PLANNED, IN_PROGRESS, COMPLETED, CANCELLED)", s),
	}}
}

// IsValid reports whether s is one of the four known states.
func (s TripState) IsValid() bool {
	_, ok := tripTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s TripState) IsTerminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// CanEdit reports whether trip fields (and expenses) may still change.
func (s TripState) CanEdit() bool {
	return s == TripPlanned || s == TripInProgress
}

// CanDelete reports whether a trip in this state may be physically removed.
// Only trips that never started carry no financial history.
func (s TripState) CanDelete() bool {
	return s == TripPlanned
}

// CanTransitionTo reports whether to is an allowed next state.
func (s TripState) CanTransitionTo(to TripState) bool {
	for _, next := range tripTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Trip is a single transport job: who drives what, for whom, carrying which
// material, and for how much.
//
// Vehicle, driver, client and material are weak references into the
// reference data tables. ActualArrivalAt and ActualKm are only ever set when
// the trip is completed.
type Trip struct {
	ID                 int64           `json:"id"`
	VehicleID          int64           `json:"vehiculoId"`
	DriverID           int64           `json:"choferId"`
	ClientID           int64           `json:"clienteId"`
	MaterialID         int64           `json:"materialId"`
	Origin             string          `json:"origen"`
	Destination        string          `json:"destino"`
	DepartureAt        time.Time       `json:"fechaSalida"`
	EstimatedArrivalAt *time.Time      `json:"fechaLlegadaEstimada,omitempty"`
	ActualArrivalAt    *time.Time      `json:"fechaLlegadaReal,omitempty"`
	EstimatedKm        *int            `json:"kilometrosEstimados,omitempty"`
	ActualKm           *int            `json:"kilometrosReales,omitempty"`
	Tariff             decimal.Decimal `json:"tarifa"`
	Notes              string          `json:"observaciones,omitempty"`
	State              TripState       `json:"estado"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// NewTrip carries the fields accepted when a trip is created.
type NewTrip struct {
	VehicleID          int64
	DriverID           int64
	ClientID           int64
	MaterialID         int64
	Origin             string
	Destination        string
	DepartureAt        time.Time
	EstimatedArrivalAt *time.Time
	EstimatedKm        *int
	Tariff             decimal.Decimal
	Notes              string
}

// Trip builds the PLANNED trip that will be persisted.
func (n NewTrip) Trip() Trip {
	return Trip{
		VehicleID:          n.VehicleID,
		DriverID:           n.DriverID,
		ClientID:           n.ClientID,
		MaterialID:         n.MaterialID,
		Origin:             strings.TrimSpace(n.Origin),
		Destination:        strings.TrimSpace(n.Destination),
		DepartureAt:        n.DepartureAt,
		EstimatedArrivalAt: n.EstimatedArrivalAt,
		EstimatedKm:        n.EstimatedKm,
		Tariff:             n.Tariff,
		Notes:              n.Notes,
		State:              TripPlanned,
	}
}

// TripPatch is a partial update. Nil fields are left untouched.
// State and the actual arrival/distance are not part of it: they only change
// through a state transition.
type TripPatch struct {
	VehicleID          *int64
	DriverID           *int64
	ClientID           *int64
	MaterialID         *int64
	Origin             *string
	Destination        *string
	DepartureAt        *time.Time
	EstimatedArrivalAt *time.Time
	EstimatedKm        *int
	Tariff             *decimal.Decimal
	Notes              *string
}

// IsEmpty reports whether the patch would change nothing.
func (p TripPatch) IsEmpty() bool {
	return p.VehicleID == nil && p.DriverID == nil && p.ClientID == nil && p.MaterialID == nil &&
		p.Origin == nil && p.Destination == nil && p.DepartureAt == nil &&
		p.EstimatedArrivalAt == nil && p.EstimatedKm == nil && p.Tariff == nil && p.Notes == nil
}

// Apply returns a copy of t with every supplied field replaced.
func (p TripPatch) Apply(t Trip) Trip {
	if p.VehicleID != nil {
		t.VehicleID = *p.VehicleID
	}
	if p.DriverID != nil {
		t.DriverID = *p.DriverID
	}
	if p.ClientID != nil {
		t.ClientID = *p.ClientID
	}
	if p.MaterialID != nil {
		t.MaterialID = *p.MaterialID
	}
	if p.Origin != nil {
		t.Origin = strings.TrimSpace(*p.Origin)
	}
	if p.Destination != nil {
		t.Destination = strings.TrimSpace(*p.Destination)
	}
	if p.DepartureAt != nil {
		t.DepartureAt = *p.DepartureAt
	}
	if p.EstimatedArrivalAt != nil {
		ea := *p.EstimatedArrivalAt
		t.EstimatedArrivalAt = &ea
	}
	if p.EstimatedKm != nil {
		km := *p.EstimatedKm
		t.EstimatedKm = &km
	}
	if p.Tariff != nil {
		t.Tariff = *p.Tariff
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	return t
}

// CompletionData is optionally supplied when a trip moves to COMPLETED.
type CompletionData struct {
	ActualArrivalAt *time.Time
	ActualKm        *int
}

// ScheduleProblems returns the violated trip invariants that do not need the
// reference data store: schedule order, tariff sign and precision, and
// required text fields.
func (t Trip) ScheduleProblems() []string {
	var problems []string
	if t.Origin == "" {
		problems = append(problems, "origin is required")
	}
	if t.Destination == "" {
		problems = append(problems, "destination is required")
	}
	if t.DepartureAt.IsZero() {
		problems = append(problems, "scheduled departure is required")
	}
	if t.EstimatedArrivalAt != nil && !t.EstimatedArrivalAt.After(t.DepartureAt) {
		problems = append(problems, "estimated arrival must be after scheduled departure")
	}
	if !t.Tariff.IsPositive() {
		problems = append(problems, "tariff must be greater than 0")
	}
	problems = append(problems, moneyProblems("tariff", t.Tariff)...)
	if t.EstimatedKm != nil && *t.EstimatedKm < 0 {
		problems = append(problems, "estimated distance must not be negative")
	}
	return problems
}

// TripFilter narrows a trip listing. Zero values mean "no filter".
type TripFilter struct {
	State         TripState
	VehicleID     int64
	DriverID      int64
	ClientID      int64
	DepartureFrom *time.Time
	DepartureTo   *time.Time
}

// Package service contains the business logic of the fleet back office.
// Services validate inputs, enforce the trip lifecycle rules, and orchestrate
// repo calls inside transactions. No SQL lives here: services depend on repo
// interfaces, not implementations.
package service

import (
	"errors"
	"fmt"

	"github.com/fleetledger/backoffice/internal/domain"
)

// TransitionObserver is told about every committed trip state change.
type TransitionObserver interface {
	TripTransitioned(from, to domain.TripState)
}

// ExpenseObserver is told about every committed expense entry.
type ExpenseObserver interface {
	ExpenseRecorded(t domain.ExpenseType)
}

type noopObserver struct{}

func (noopObserver) TripTransitioned(domain.TripState, domain.TripState) {}
func (noopObserver) ExpenseRecorded(domain.ExpenseType)                  {}

// classify prefixes err with op. Anything outside the caller-error taxonomy
// is additionally marked as domain.ErrInfrastructure.
func classify(op string, err error) error {
	if domain.IsCallerError(err) || errors.Is(err, domain.ErrInfrastructure) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrInfrastructure, err)
}

// auditRecord builds an audit entry for actor. before and after are
// marshalled as JSON snapshots; nil means "no snapshot".
func auditRecord(actor domain.Actor, action domain.AuditAction, entity string, id int64, before, after any) (domain.AuditRecord, error) {
	b, err := domain.Snapshot(before)
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("snapshot before: %w", err)
	}
	a, err := domain.Snapshot(after)
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("snapshot after: %w", err)
	}
	return domain.AuditRecord{
		ActorID:       actor.UserID,
		Action:        action,
		Entity:        entity,
		EntityID:      id,
		Before:        b,
		After:         a,
		SourceAddress: actor.SourceAddress,
	}, nil
}

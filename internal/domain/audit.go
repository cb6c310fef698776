package domain

import (
	"encoding/json"
	"time"
)

// AuditAction is the kind of mutation recorded in the audit log.
type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditEdit   AuditAction = "EDIT"
	AuditDelete AuditAction = "DELETE"
)

// Entity names used in audit records.
const (
	EntityTrip    = "Viaje"
	EntityExpense = "Gasto"
)

// AuditRecord is one before/after snapshot of a mutation, tagged to the user
// who performed it. Before and After hold JSON documents.
type AuditRecord struct {
	ID            int64           `json:"id"`
	ActorID       int64           `json:"usuarioId"`
	Action        AuditAction     `json:"accion"`
	Entity        string          `json:"entidad"`
	EntityID      int64           `json:"entidadId"`
	Before        json.RawMessage `json:"datosAnteriores,omitempty"`
	After         json.RawMessage `json:"datosNuevos,omitempty"`
	SourceAddress string          `json:"ipAddress,omitempty"`
	At            time.Time       `json:"fechaHora"`
}

// AuditFilter narrows the audit listing. Empty fields mean "any".
type AuditFilter struct {
	Entity string
	Action AuditAction
	Limit  int
}

// Snapshot marshals v for an audit record. A nil v yields a nil document.
func Snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

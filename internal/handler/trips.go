package handler

import (
	"net/http"
	"strconv"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/shopspring/decimal"

	"github.com/fleetledger/backoffice/internal/domain"
)

// CreateTripRequest is the body of POST /api/viajes.
// Missing references and schedule rules are reported by the service, so the
// tags here only bound the shape of the input.
type CreateTripRequest struct {
	VehicleID          int64           `json:"vehiculoId" validate:"gte=0"`
	DriverID           int64           `json:"choferId" validate:"gte=0"`
	ClientID           int64           `json:"clienteId" validate:"gte=0"`
	MaterialID         int64           `json:"materialId" validate:"gte=0"`
	Origin             string          `json:"origen" validate:"max=255"`
	Destination        string          `json:"destino" validate:"max=255"`
	DepartureAt        time.Time       `json:"fechaSalida"`
	EstimatedArrivalAt *time.Time      `json:"fechaLlegadaEstimada"`
	EstimatedKm        *int            `json:"kilometrosEstimados" validate:"omitempty,gte=0"`
	Tariff             decimal.Decimal `json:"tarifa"`
	Notes              string          `json:"observaciones" validate:"max=2000"`
}

func (req CreateTripRequest) toNewTrip() domain.NewTrip {
	return domain.NewTrip{
		VehicleID:          req.VehicleID,
		DriverID:           req.DriverID,
		ClientID:           req.ClientID,
		MaterialID:         req.MaterialID,
		Origin:             req.Origin,
		Destination:        req.Destination,
		DepartureAt:        req.DepartureAt.UTC(),
		EstimatedArrivalAt: utcPtr(req.EstimatedArrivalAt),
		EstimatedKm:        req.EstimatedKm,
		Tariff:             req.Tariff,
		Notes:              req.Notes,
	}
}

// UpdateTripRequest is the body of PUT /api/viajes/{id}. Absent and null
// fields are left unchanged, so fechaLlegadaEstimada and kilometrosEstimados
// cannot be cleared once set. observaciones is cleared with "".
type UpdateTripRequest struct {
	VehicleID          *int64           `json:"vehiculoId" validate:"omitempty,gt=0"`
	DriverID           *int64           `json:"choferId" validate:"omitempty,gt=0"`
	ClientID           *int64           `json:"clienteId" validate:"omitempty,gt=0"`
	MaterialID         *int64           `json:"materialId" validate:"omitempty,gt=0"`
	Origin             *string          `json:"origen" validate:"omitempty,max=255"`
	Destination        *string          `json:"destino" validate:"omitempty,max=255"`
	DepartureAt        *time.Time       `json:"fechaSalida"`
	EstimatedArrivalAt *time.Time       `json:"fechaLlegadaEstimada"`
	EstimatedKm        *int             `json:"kilometrosEstimados" validate:"omitempty,gte=0"`
	Tariff             *decimal.Decimal `json:"tarifa"`
	Notes              *string          `json:"observaciones" validate:"omitempty,max=2000"`
}

func (req UpdateTripRequest) toPatch() domain.TripPatch {
	return domain.TripPatch{
		VehicleID:          req.VehicleID,
		DriverID:           req.DriverID,
		ClientID:           req.ClientID,
		MaterialID:         req.MaterialID,
		Origin:             req.Origin,
		Destination:        req.Destination,
		DepartureAt:        utcPtr(req.DepartureAt),
		EstimatedArrivalAt: utcPtr(req.EstimatedArrivalAt),
		EstimatedKm:        req.EstimatedKm,
		Tariff:             req.Tariff,
		Notes:              req.Notes,
	}
}

// ChangeStateRequest is the body of PATCH /api/viajes/{id}/estado.
// The completion fields are only read when the target is COMPLETED.
type ChangeStateRequest struct {
	State           string     `json:"estado" validate:"required"`
	ActualArrivalAt *time.Time `json:"fechaLlegadaReal"`
	ActualKm        *int       `json:"kilometrosReales" validate:"omitempty,gte=0"`
}

// Pagination describes where a page sits in the full listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// TripListResponse is the body of GET /api/viajes.
type TripListResponse struct {
	Data       []domain.Trip `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// CreateTrip handles POST /api/viajes.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req CreateTripRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBodyError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondInvalid(w, err)
		return
	}

	created, err := s.trips.Create(r.Context(), actorFrom(r), req.toNewTrip())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/viajes/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, http.StatusCreated, created)
}

// ListTrips handles GET /api/viajes.
// Supports estado, vehiculoId, choferId, clienteId, fechaDesde and fechaHasta
// filters plus ?page= and ?limit= (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	var (
		state                         *string
		vehicleID, driverID, clientID *int64
		from, to                      *openapi_types.Date
		page, limit                   *int
	)
	for _, p := range []struct {
		name string
		dest any
	}{
		{"estado", &state},
		{"vehiculoId", &vehicleID},
		{"choferId", &driverID},
		{"clienteId", &clientID},
		{"fechaDesde", &from},
		{"fechaHasta", &to},
		{"page", &page},
		{"limit", &limit},
	} {
		if err := queryParam(r, p.name, p.dest); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
			return
		}
	}

	filter := domain.TripFilter{
		VehicleID:     deref(vehicleID),
		DriverID:      deref(driverID),
		ClientID:      deref(clientID),
		DepartureFrom: startOfDay(from),
		DepartureTo:   endOfDay(to),
	}
	if state != nil && *state != "" {
		parsed, err := domain.ParseTripState(*state)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		filter.State = parsed
	}

	result, err := s.trips.List(r.Context(), filter, domain.NewPaginationParams(page, limit))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	writeJSON(w, http.StatusOK, TripListResponse{
		Data: result.Items,
		Pagination: Pagination{
			Page:       result.Page,
			Limit:      result.Limit,
			Total:      result.Total,
			TotalPages: result.TotalPages(),
		},
	})
}

// GetTrip handles GET /api/viajes/{id}. The trip comes with its expenses and
// economic summary.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	detail, err := s.summary.GetTripDetail(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateTrip handles PUT /api/viajes/{id}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	var req UpdateTripRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBodyError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondInvalid(w, err)
		return
	}

	updated, err := s.trips.Update(r.Context(), actorFrom(r), id, req.toPatch())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ChangeTripState handles PATCH /api/viajes/{id}/estado.
func (s *Server) ChangeTripState(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	var req ChangeStateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBodyError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondInvalid(w, err)
		return
	}
	target, err := domain.ParseTripState(req.State)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	updated, err := s.trips.ChangeState(r.Context(), actorFrom(r), id, target, domain.CompletionData{
		ActualArrivalAt: utcPtr(req.ActualArrivalAt),
		ActualKm:        req.ActualKm,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTrip handles DELETE /api/viajes/{id}. Only PLANNED trips can go.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	if err := s.trips.Delete(r.Context(), actorFrom(r), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

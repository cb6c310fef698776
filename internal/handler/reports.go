package handler

import (
	"net/http"
	"strings"

	"github.com/fleetledger/backoffice/internal/domain"
)

// AuditListResponse is the body of GET /api/auditoria.
type AuditListResponse struct {
	Data []domain.AuditRecord `json:"data"`
}

// GetMonthlyStatistics handles GET /api/estadisticas/mensuales?anio=&mes=.
func (s *Server) GetMonthlyStatistics(w http.ResponseWriter, r *http.Request) {
	var year, month int
	if err := requiredQueryParam(r, "anio", &year); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	if err := requiredQueryParam(r, "mes", &month); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	stats, err := s.summary.GetMonthlyStatistics(r.Context(), year, month)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetDashboard handles GET /api/dashboard.
func (s *Server) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.dashboard.Summary(r.Context(), s.now())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// ListAudit handles GET /api/auditoria?entidad=&accion=&limit=.
func (s *Server) ListAudit(w http.ResponseWriter, r *http.Request) {
	var (
		entity, action *string
		limit          *int
	)
	for _, p := range []struct {
		name string
		dest any
	}{
		{"entidad", &entity},
		{"accion", &action},
		{"limit", &limit},
	} {
		if err := queryParam(r, p.name, p.dest); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
			return
		}
	}

	records, err := s.audit.List(r.Context(), domain.AuditFilter{
		Entity: strings.TrimSpace(deref(entity)),
		Action: domain.AuditAction(strings.ToUpper(strings.TrimSpace(deref(action)))),
		Limit:  deref(limit),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuditListResponse{Data: records})
}

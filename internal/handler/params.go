package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// pathID binds the {id} path segment. Ids are positive integers.
func pathID(r *http.Request) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return id, nil
}

// queryParam binds an optional form-style query parameter into dest.
func queryParam(r *http.Request, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		return fmt.Errorf("invalid query parameter %s", name)
	}
	return nil
}

// requiredQueryParam is queryParam for parameters the route cannot do without.
func requiredQueryParam(r *http.Request, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, true, name, r.URL.Query(), dest); err != nil {
		return fmt.Errorf("query parameter %s is required and must be valid", name)
	}
	return nil
}

// startOfDay returns midnight UTC of d, or nil.
func startOfDay(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}

// endOfDay returns the last representable instant of d in UTC, or nil.
// Postgres keeps microseconds, so that is the step used.
func endOfDay(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1).Add(-time.Microsecond)
	return &t
}

// parseDate accepts a calendar date (2006-01-02) or a full RFC 3339 timestamp
// and returns the date at midnight UTC.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(openapi_types.DateFormat, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD or RFC 3339", s)
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

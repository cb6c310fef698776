package middleware

import (
	"log/slog"
	"net/http"

	"github.com/unrolled/secure"
)

// NewSecureHeaders sets the usual security headers on every response. In
// production plain-HTTP requests are redirected to HTTPS.
func NewSecureHeaders(production bool, log *slog.Logger) func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				log.WarnContext(r.Context(), "secure headers blocked request", slog.String("error", err.Error()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

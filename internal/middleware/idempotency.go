package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client-chosen key of a retryable POST.
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// NewIdempotency returns a middleware that makes POST requests carrying an
// Idempotency-Key header run at most once per key within ttl. A repeated key
// is answered with 409. Keys are scoped to the authenticated user and path,
// so mount it after NewAuthenticator.
//
// A key is released again when the handler fails with a 5xx, so the client
// may retry. If redis is unreachable requests pass through unguarded.
func NewIdempotency(client redis.Cmdable, ttl time.Duration, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				writeError(w, http.StatusBadRequest, "invalid_idempotency_key", "Idempotency-Key is too long")
				return
			}

			scope := "anonymous"
			if actor, ok := ActorFrom(r.Context()); ok {
				scope = strconv.FormatInt(actor.UserID, 10)
			}
			redisKey := "idempotency:" + scope + ":" + r.URL.Path + ":" + key

			ctx := r.Context()
			fresh, err := client.SetNX(ctx, redisKey, chimiddleware.GetReqID(ctx), ttl).Result()
			if err != nil {
				log.WarnContext(ctx, "idempotency store unavailable", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if !fresh {
				writeError(w, http.StatusConflict, "duplicate_request", "a request with this Idempotency-Key was already processed")
				return
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if ww.Status() >= http.StatusInternalServerError {
				if err := client.Del(ctx, redisKey).Err(); err != nil {
					log.WarnContext(ctx, "idempotency key release failed", slog.String("error", err.Error()))
				}
			}
		})
	}
}

package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rinkcenter/internal/domain"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	ActorKey     contextKey = "actor"
)

// Headers the identity gateway sets on proxied requests. Authentication
// itself happens upstream; we only read the asserted identity.
const (
	HeaderRoles = "X-User-Roles"
	HeaderClub  = "X-User-Club"
)

func RequestID(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)

			loggerWithID := logger.With().Str("request_id", requestID).Logger()
			ctx = loggerWithID.WithContext(ctx)

			loggerWithID.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("request started")

			next.ServeHTTP(w, r.WithContext(ctx))

			duration := time.Since(start)
			loggerWithID.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int64("duration_ms", duration.Milliseconds()).
				Dur("duration", duration).
				Msg("request completed")
		})
	}
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// Identity reads the gateway identity headers into a domain.Actor and
// stores it on the request context. Missing headers yield an anonymous
// actor, not an error.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromHeaders(r)
			ctx := context.WithValue(r.Context(), ActorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ActorFromHeaders(r *http.Request) domain.Actor {
	actor := domain.Actor{ClubID: strings.TrimSpace(r.Header.Get(HeaderClub))}
	raw := r.Header.Get(HeaderRoles)
	if raw == "" {
		return actor
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		actor.Roles = append(actor.Roles, domain.Role(strings.ToUpper(part)))
	}
	return actor
}

func GetActor(ctx context.Context) domain.Actor {
	if actor, ok := ctx.Value(ActorKey).(domain.Actor); ok {
		return actor
	}
	return domain.Actor{}
}

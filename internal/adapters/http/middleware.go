package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/application"
)

type contextKey string

const (
	actorKey     contextKey = "actor"
	requestIDKey contextKey = "request_id"
)

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func actorFrom(ctx context.Context) application.Actor {
	if actor, ok := ctx.Value(actorKey).(application.Actor); ok {
		return actor
	}
	return application.Actor{}
}

// RequestID attaches an id to every request, honoring an upstream X-Request-ID
// so traces join across mesh hops.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// Authenticate resolves the caller into an Actor. JWT bearer tokens carry
// subject and role claims; opaque tokens fall back to the X-Actor-Role header
// used by internal mesh callers.
func Authenticate(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := application.Actor{
				Role:           strings.TrimSpace(r.Header.Get("X-Actor-Role")),
				RequestID:      requestIDFrom(r.Context()),
				IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
			}
			header := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(header, "Bearer "); ok {
				token = strings.TrimSpace(token)
				if strings.Count(token, ".") == 2 && len(jwtSecret) > 0 {
					if subject, role, ok := parseJWT(token, jwtSecret); ok {
						actor.SubjectID = subject
						if role != "" {
							actor.Role = role
						}
					}
				} else if token != "" {
					actor.SubjectID = token
				}
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
		})
	}
}

func parseJWT(token string, secret []byte) (subject, role string, ok bool) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, isHMAC := t.Method.(*jwt.SigningMethodHMAC); !isHMAC {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", false
	}
	if sub, err := claims.GetSubject(); err == nil {
		subject = sub
	}
	if r, exists := claims["role"].(string); exists {
		role = r
	}
	return subject, role, true
}

// RequestLogger records one line per request with latency and status.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			logger.InfoContext(r.Context(), "http request",
				"module", "http.middleware",
				"layer", "adapter",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestIDFrom(r.Context()),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/platform/httpx"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// Middleware turns the bearer token into an authorization context for
// downstream handlers.
type Middleware struct {
	Gate    *auth.Gate
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Authenticate requires a valid token and stores the authorization
// context in the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, err := m.Gate.Authorize(r.Context(), BearerToken(r))
		if err != nil {
			m.deny(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithAuth(r.Context(), ac)))
	})
}

// Optional authorizes when a token is present and passes through
// anonymously otherwise. Used by open registration.
func (m Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		ac, err := m.Gate.Authorize(r.Context(), token)
		if err != nil {
			m.deny(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithAuth(r.Context(), ac)))
	})
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, err error) {
	if m.Logger != nil {
		m.Logger.Warn("authorization denied", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	m.Metrics.CountDenial(denialKind(err))
	httpx.RespondError(w, err)
}

func denialKind(err error) string {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, shared.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, shared.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

// BearerToken extracts the token from the Authorization header, empty
// when absent.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

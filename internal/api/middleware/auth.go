package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/sendline/internal/api/response"
	"github.com/edvin/sendline/internal/core"
)

type contextKey string

const accountIDKey contextKey = "account_id"

// Authenticator resolves a raw API key to an account id.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (string, error)
}

// Auth returns a middleware that validates the X-API-Key header and stores
// the owning account id in the request context.
func Auth(keys Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			accountID, err := keys.Authenticate(r.Context(), key)
			if errors.Is(err, core.ErrUnauthorized) {
				response.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("authenticate api key")
				response.WriteError(w, http.StatusInternalServerError, "authentication unavailable")
				return
			}

			logger := zerolog.Ctx(r.Context()).With().Str("account_id", accountID).Logger()
			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			ctx = logger.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountID returns the authenticated account id, or "" outside Auth.
func AccountID(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey).(string)
	return id
}

// WithAccountID returns a context carrying accountID as if it had passed Auth.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

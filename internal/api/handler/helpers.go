package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/sendline/internal/api/response"
	"github.com/edvin/sendline/internal/core"
)

// writeServiceError maps a core error to a status code. Unexpected errors
// are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrQuotaExceeded):
		response.WriteError(w, http.StatusTooManyRequests, "monthly quota exceeded")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		response.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

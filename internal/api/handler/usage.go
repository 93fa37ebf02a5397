package handler

import (
	"context"
	"net/http"
	"time"

	mw "github.com/edvin/sendline/internal/api/middleware"
	"github.com/edvin/sendline/internal/api/response"
	"github.com/edvin/sendline/internal/model"
)

// UsageService is the part of core.UsageService used by the handlers.
type UsageService interface {
	MonthlyUsage(ctx context.Context, accountID string, t time.Time) (*model.MonthlyUsage, error)
}

type Usage struct {
	svc UsageService
	now func() time.Time
}

func NewUsage(svc UsageService) *Usage {
	return &Usage{svc: svc, now: time.Now}
}

// Get returns the caller's billed sends for ?month=YYYY-MM, defaulting to
// the current month.
func (h *Usage) Get(w http.ResponseWriter, r *http.Request) {
	t := h.now()
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := time.Parse("2006-01", m)
		if err != nil {
			response.WriteError(w, http.StatusBadRequest, "month must be formatted as YYYY-MM")
			return
		}
		t = parsed
	}

	usage, err := h.svc.MonthlyUsage(r.Context(), mw.AccountID(r.Context()), t)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, usage)
}

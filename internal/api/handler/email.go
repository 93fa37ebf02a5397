package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	mw "github.com/edvin/sendline/internal/api/middleware"
	"github.com/edvin/sendline/internal/api/request"
	"github.com/edvin/sendline/internal/api/response"
	"github.com/edvin/sendline/internal/core"
	"github.com/edvin/sendline/internal/model"
)

// EmailService is the part of core.EmailService used by the handlers.
type EmailService interface {
	Submit(ctx context.Context, req core.SubmitEmail) (*model.Email, bool, error)
	Get(ctx context.Context, accountID string, id int64) (*model.Email, error)
	ListByAccount(ctx context.Context, accountID string, limit int, cursor int64, status string) ([]model.Email, bool, error)
}

type Email struct {
	svc EmailService
}

func NewEmail(svc EmailService) *Email {
	return &Email{svc: svc}
}

// Submit accepts a send request. A new email is answered with 202; a replay
// of an idempotency key already used by the account returns the existing
// email with 200.
func (h *Email) Submit(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitEmail
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := req.IdempotencyKey
	if key == "" {
		key = r.Header.Get("Idempotency-Key")
	}
	if key == "" {
		response.WriteError(w, http.StatusBadRequest, "idempotency_key or Idempotency-Key header is required")
		return
	}
	if len(key) > 255 {
		response.WriteError(w, http.StatusBadRequest, "idempotency key is longer than 255 characters")
		return
	}

	email, created, err := h.svc.Submit(r.Context(), core.SubmitEmail{
		AccountID:      mw.AccountID(r.Context()),
		IdempotencyKey: key,
		To:             req.To,
		From:           req.From,
		Subject:        req.Subject,
		HTML:           req.HTML,
		Text:           req.Text,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	response.WriteJSON(w, status, email)
}

// Get returns one of the caller's emails.
func (h *Email) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	email, err := h.svc.Get(r.Context(), mw.AccountID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, email)
}

// List returns the caller's emails newest first, optionally filtered by status.
func (h *Email) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)
	status := r.URL.Query().Get("status")
	if status != "" && !model.IsValidStatus(status) {
		response.WriteError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	emails, hasMore, err := h.svc.ListByAccount(r.Context(), mw.AccountID(r.Context()), p.Limit, p.Cursor, status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var nextCursor string
	if hasMore && len(emails) > 0 {
		nextCursor = strconv.FormatInt(emails[len(emails)-1].ID, 10)
	}
	response.WritePaginated(w, http.StatusOK, emails, nextCursor, hasMore)
}

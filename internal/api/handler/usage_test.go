package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/sendline/internal/model"
)

func TestUsageGet_DefaultsToCurrentMonth(t *testing.T) {
	svc := &mockUsageService{}
	h := NewUsage(svc)
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }
	rec := httptest.NewRecorder()

	svc.On("MonthlyUsage", mock.Anything, testAccountID, now).Return(&model.MonthlyUsage{
		AccountID: testAccountID, Month: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Sent: 12, MonthlyQuota: 1000,
	}, nil)

	h.Get(rec, newRequest(http.MethodGet, "/usage", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body model.MonthlyUsage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(12), body.Sent)
	svc.AssertExpectations(t)
}

func TestUsageGet_ExplicitMonth(t *testing.T) {
	svc := &mockUsageService{}
	h := NewUsage(svc)
	rec := httptest.NewRecorder()

	svc.On("MonthlyUsage", mock.Anything, testAccountID, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)).
		Return(&model.MonthlyUsage{}, nil)

	h.Get(rec, newRequest(http.MethodGet, "/usage?month=2025-12", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestUsageGet_BadMonth(t *testing.T) {
	h := NewUsage(nil)
	rec := httptest.NewRecorder()

	h.Get(rec, newRequest(http.MethodGet, "/usage?month=march", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalclient "go.temporal.io/sdk/client"
	temporalmocks "go.temporal.io/sdk/mocks"
)

// fakeDB answers Ping and fails every query; routing tests never reach SQL.
type fakeDB struct {
	pingErr error
}

func (f *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected query")
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{}
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }

type errRow struct{}

func (errRow) Scan(...any) error { return pgx.ErrNoRows }

func newTestServer(db *fakeDB, tc *temporalmocks.Client) *Server {
	return NewServer(zerolog.Nop(), db, tc, "email-delivery")
}

func TestServer_Healthz(t *testing.T) {
	s := newTestServer(&fakeDB{}, &temporalmocks.Client{})
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Readyz(t *testing.T) {
	tc := &temporalmocks.Client{}
	tc.On("CheckHealth", mock.Anything, mock.Anything).Return(&temporalclient.CheckHealthResponse{}, nil)
	s := newTestServer(&fakeDB{}, tc)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Readyz_DatabaseDown(t *testing.T) {
	tc := &temporalmocks.Client{}
	tc.On("CheckHealth", mock.Anything, mock.Anything).Return(&temporalclient.CheckHealthResponse{}, nil)
	s := newTestServer(&fakeDB{pingErr: errors.New("connection refused")}, tc)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "connection refused", body.Checks["core_db"])
	assert.Equal(t, "ok", body.Checks["temporal"])
}

func TestServer_APIRequiresKey(t *testing.T) {
	s := newTestServer(&fakeDB{}, &temporalmocks.Client{})

	for _, target := range []string{"/api/v1/emails", "/api/v1/emails/7", "/api/v1/usage"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestServer_UnknownKeyRejected(t *testing.T) {
	s := newTestServer(&fakeDB{}, &temporalmocks.Client{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/emails", nil)
	req.Header.Set("X-API-Key", "sl_nope")
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

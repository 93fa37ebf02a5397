package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() Message {
	return Message{
		From:           "billing@example.com",
		To:             "user@example.com",
		Subject:        "Your invoice",
		HTML:           "<p>Thanks</p>",
		IdempotencyKey: "email-7",
	}
}

func TestResendClient_Send_Success(t *testing.T) {
	var received sendEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.Equal(t, "email-7", r.Header.Get("Idempotency-Key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	c := NewResendClient(srv.URL+"/", "re_test", 5*time.Second)
	id, err := c.Send(context.Background(), testMessage())

	require.NoError(t, err)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "billing@example.com", received.From)
	assert.Equal(t, []string{"user@example.com"}, received.To)
	assert.Equal(t, "Your invoice", received.Subject)
	assert.Equal(t, "<p>Thanks</p>", received.HTML)
	assert.Empty(t, received.Text)
}

func TestResendClient_Send_MissingIDIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewResendClient(srv.URL, "re_test", 5*time.Second)
	id, err := c.Send(context.Background(), testMessage())

	require.Error(t, err)
	assert.Empty(t, id)
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusOK, perr.StatusCode)
	assert.Contains(t, perr.Message, "message id")
}

func TestResendClient_Send_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"statusCode":422,"message":"The 'to' field is required.","name":"validation_error"}`))
	}))
	defer srv.Close()

	c := NewResendClient(srv.URL, "re_test", 5*time.Second)
	_, err := c.Send(context.Background(), testMessage())

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnprocessableEntity, perr.StatusCode)
	assert.Equal(t, "validation_error: The 'to' field is required.", perr.Message)
}

func TestResendClient_Send_ServerErrorPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	c := NewResendClient(srv.URL, "re_test", 5*time.Second)
	_, err := c.Send(context.Background(), testMessage())

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadGateway, perr.StatusCode)
	assert.Equal(t, "upstream unavailable", perr.Message)
}

func TestResendClient_Send_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewResendClient(srv.URL, "re_test", 50*time.Millisecond)
	_, err := c.Send(context.Background(), testMessage())

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 0, perr.StatusCode)
	assert.NotNil(t, perr.Unwrap())
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "provider: boom (status 500)", (&Error{StatusCode: 500, Message: "boom"}).Error())
	assert.Equal(t, "provider: dial tcp: refused", (&Error{Message: "dial tcp: refused"}).Error())
}

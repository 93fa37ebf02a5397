package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ResendClient talks to a Resend-compatible HTTP API (POST /emails).
type ResendClient struct {
	http *resty.Client
}

// NewResendClient creates a client for baseURL authenticated with apiKey.
// timeout bounds each send attempt.
func NewResendClient(baseURL, apiKey string, timeout time.Duration) *ResendClient {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "sendline/1")
	return &ResendClient{http: c}
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type sendEmailResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Name       string `json:"name"`
}

// Send implements Client.
func (c *ResendClient) Send(ctx context.Context, msg Message) (string, error) {
	var ok sendEmailResponse
	var apiErr errorResponse

	req := c.http.R().
		SetContext(ctx).
		SetBody(sendEmailRequest{
			From:    msg.From,
			To:      []string{msg.To},
			Subject: msg.Subject,
			HTML:    msg.HTML,
			Text:    msg.Text,
		}).
		SetResult(&ok).
		SetError(&apiErr)
	if msg.IdempotencyKey != "" {
		req.SetHeader("Idempotency-Key", msg.IdempotencyKey)
	}

	resp, err := req.Post("/emails")
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("send request: %v", err), Err: err}
	}

	if resp.IsError() {
		text := apiErr.Message
		if text == "" {
			text = strings.TrimSpace(string(resp.Body()))
		}
		if text == "" {
			text = resp.Status()
		}
		if apiErr.Name != "" {
			text = apiErr.Name + ": " + text
		}
		return "", &Error{StatusCode: resp.StatusCode(), Message: text}
	}

	if ok.ID == "" {
		return "", &Error{StatusCode: resp.StatusCode(), Message: "response did not include a message id"}
	}

	return ok.ID, nil
}

package request

// SubmitEmail is the body of POST /emails. At least one of html or text is
// required. The idempotency key may also come from the Idempotency-Key header.
type SubmitEmail struct {
	IdempotencyKey string  `json:"idempotency_key" validate:"omitempty,max=255"`
	To             string  `json:"to" validate:"required,email"`
	From           string  `json:"from" validate:"required,email"`
	Subject        string  `json:"subject" validate:"required,max=998"`
	HTML           *string `json:"html" validate:"required_without=Text"`
	Text           *string `json:"text" validate:"required_without=HTML"`
}

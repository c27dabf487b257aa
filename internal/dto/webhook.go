package dto

// TestWebhookRequest sends a probe event to a destination URL.
type TestWebhookRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// TestWebhookResponse reports the probe outcome.
type TestWebhookResponse struct {
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

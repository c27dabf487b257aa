package dto

// CaptureLeadRequest is the public marketing lead form payload.
type CaptureLeadRequest struct {
	Name    string  `json:"name" validate:"required"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   *string `json:"phone"`
	Source  string  `json:"source" validate:"required"`
	Message *string `json:"message"`
}

package dto

import (
	"time"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

// AuthenticatePreviewRequest carries the claimed client email for a code.
type AuthenticatePreviewRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SubmitFeedbackRequest carries the client's free-text feedback.
type SubmitFeedbackRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Feedback string `json:"feedback" validate:"required"`
}

// ApproveRequest optionally carries final remarks alongside approval.
type ApproveRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Feedback string `json:"feedback"`
}

// PreviewVersion is the client-facing view of a project version.
type PreviewVersion struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AudioURL    string    `json:"audio_url"`
	Recommended bool      `json:"recommended"`
	Final       bool      `json:"final"`
	CreatedAt   time.Time `json:"created_at"`
}

// PreviewPayload is what an authenticated client sees for their project.
type PreviewPayload struct {
	ProjectID   string               `json:"project_id"`
	Title       string               `json:"title"`
	ClientName  string               `json:"client_name"`
	PackageTier models.PackageTier   `json:"package_tier"`
	Status      models.ProjectStatus `json:"status"`
	Feedback    string               `json:"feedback,omitempty"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
	Expired     bool                 `json:"expired"`
	Versions    []PreviewVersion     `json:"versions"`
}

// GrantInfo reports the active preview session after authentication.
type GrantInfo struct {
	ProjectID string    `json:"project_id"`
	GrantedAt time.Time `json:"granted_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthenticatePreviewResponse bundles the grant and the preview payload.
type AuthenticatePreviewResponse struct {
	Grant   GrantInfo      `json:"grant"`
	Preview PreviewPayload `json:"preview"`
}

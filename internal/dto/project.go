package dto

import (
	"time"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

// CreateProjectRequest creates a project directly from the back office.
type CreateProjectRequest struct {
	Title       string  `json:"title" validate:"required"`
	ClientName  string  `json:"client_name" validate:"required"`
	ClientEmail string  `json:"client_email" validate:"required,email"`
	ClientPhone *string `json:"client_phone"`
	PackageTier string  `json:"package_tier" validate:"required,oneof=essential professional premium"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// UpdateProjectRequest mutates admin-editable project fields.
type UpdateProjectRequest struct {
	Title       string  `json:"title" validate:"required"`
	ClientName  string  `json:"client_name" validate:"required"`
	ClientEmail string  `json:"client_email" validate:"required,email"`
	ClientPhone *string `json:"client_phone"`
	PackageTier string  `json:"package_tier" validate:"required,oneof=essential professional premium"`
}

// AddVersionRequest registers a new audio rendering for review.
type AddVersionRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	AudioURL    string  `json:"audio_url" validate:"required,url"`
	Recommended bool    `json:"recommended"`
	Final       bool    `json:"final"`
}

// ExtendDeadlineRequest pushes the preview expiration forward.
type ExtendDeadlineRequest struct {
	Days int `json:"days" validate:"required,min=1,max=365"`
}

// ProjectDetail is the back-office view of a project with its children.
type ProjectDetail struct {
	models.Project
	Expired  bool                    `json:"expired"`
	Versions []models.ProjectVersion `json:"versions,omitempty"`
	History  []models.HistoryEntry   `json:"history,omitempty"`
}

// AccessCodeResponse returns a freshly generated preview code.
type AccessCodeResponse struct {
	ProjectID  string `json:"project_id"`
	AccessCode string `json:"access_code"`
	PreviewURL string `json:"preview_url"`
}

package models

import (
	"encoding/json"
	"time"
)

// PackageTier identifies the commissioned package level.
type PackageTier string

const (
	TierEssential    PackageTier = "essential"
	TierProfessional PackageTier = "professional"
	TierPremium      PackageTier = "premium"
)

// ProjectStatus tracks the client review state of a project.
// "expired" is never stored; it is derived from ExpiresAt at read time.
type ProjectStatus string

const (
	StatusWaiting  ProjectStatus = "waiting"
	StatusFeedback ProjectStatus = "feedback"
	StatusApproved ProjectStatus = "approved"
)

// Project is a commissioned music project under client review.
type Project struct {
	ID          string        `db:"id" json:"id"`
	Title       string        `db:"title" json:"title"`
	ClientName  string        `db:"client_name" json:"client_name"`
	ClientEmail string        `db:"client_email" json:"client_email"`
	ClientPhone *string       `db:"client_phone" json:"client_phone,omitempty"`
	PackageTier PackageTier   `db:"package_tier" json:"package_tier"`
	Status      ProjectStatus `db:"status" json:"status"`
	Feedback    *string       `db:"feedback" json:"feedback,omitempty"`
	AccessCode  *string       `db:"access_code" json:"access_code,omitempty"`
	ExpiresAt   *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the preview window has passed at the given instant.
func (p *Project) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// ProjectVersion is one candidate audio rendering presented for review.
// Versions are immutable after creation.
type ProjectVersion struct {
	ID          string    `db:"id" json:"id"`
	ProjectID   string    `db:"project_id" json:"project_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	AudioURL    string    `db:"audio_url" json:"audio_url"`
	FilePath    *string   `db:"file_path" json:"-"`
	Recommended bool      `db:"recommended" json:"recommended"`
	Final       bool      `db:"final" json:"final"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// History action labels written per significant project event.
const (
	HistoryProjectCreated   = "project_created"
	HistoryCodeGenerated    = "code_generated"
	HistoryVersionAdded     = "version_added"
	HistoryDeadlineExtended = "deadline_extended"
	HistoryFeedbackReceived = "feedback_received"
	HistoryProjectApproved  = "project_approved"
)

// HistoryEntry is an append-only log record owned by a project.
type HistoryEntry struct {
	ID        string          `db:"id" json:"id"`
	ProjectID string          `db:"project_id" json:"project_id"`
	Action    string          `db:"action" json:"action"`
	Detail    json.RawMessage `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ProjectFilter captures listing criteria for the back office.
type ProjectFilter struct {
	Status    *ProjectStatus
	Tier      *PackageTier
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

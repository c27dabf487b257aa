package models

import "time"

// BriefingStatus tracks intake processing in the back office.
type BriefingStatus string

const (
	BriefingReceived  BriefingStatus = "received"
	BriefingInReview  BriefingStatus = "in_review"
	BriefingConverted BriefingStatus = "converted"
	BriefingRejected  BriefingStatus = "rejected"
)

// Briefing is the client-submitted questionnaire describing the desired song.
type Briefing struct {
	ID          string         `db:"id" json:"id"`
	ClientID    *string        `db:"client_id" json:"client_id,omitempty"`
	ContactName string         `db:"contact_name" json:"contact_name"`
	Email       string         `db:"email" json:"email"`
	Phone       *string        `db:"phone" json:"phone,omitempty"`
	Occasion    string         `db:"occasion" json:"occasion"`
	Recipient   string         `db:"recipient" json:"recipient"`
	Style       string         `db:"style" json:"style"`
	Mood        string         `db:"mood" json:"mood"`
	Story       string         `db:"story" json:"story"`
	PackageTier PackageTier    `db:"package_tier" json:"package_tier"`
	Status      BriefingStatus `db:"status" json:"status"`
	ProjectID   *string        `db:"project_id" json:"project_id,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// BriefingFilter captures listing criteria.
type BriefingFilter struct {
	Status   *BriefingStatus
	Search   string
	Page     int
	PageSize int
}

package models

import "time"

// MarketingLead is a contact captured from the marketing site.
type MarketingLead struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Source    string    `db:"source" json:"source"`
	Message   *string   `db:"message" json:"message,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LeadFilter captures listing criteria for the back office.
type LeadFilter struct {
	Source   string
	Search   string
	Page     int
	PageSize int
}

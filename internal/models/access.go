package models

import "time"

// AccessOutcome classifies a preview access attempt.
type AccessOutcome string

const (
	AccessGranted       AccessOutcome = "granted"
	AccessEmailMismatch AccessOutcome = "email_mismatch"
	AccessNotFound      AccessOutcome = "not_found"
	AccessExpired       AccessOutcome = "expired"
)

// AccessLog is an append-only record of a preview authentication attempt.
type AccessLog struct {
	ID         string        `db:"id" json:"id"`
	ProjectID  *string       `db:"project_id" json:"project_id,omitempty"`
	AccessCode string        `db:"access_code" json:"access_code"`
	Email      string        `db:"email" json:"email"`
	Outcome    AccessOutcome `db:"outcome" json:"outcome"`
	IPAddress  string        `db:"ip_address" json:"ip_address"`
	UserAgent  string        `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// AccessGrant is a verified preview session. Grants live in the grant store
// (Redis in production) under the project id, never in a database table.
type AccessGrant struct {
	ProjectID string    `json:"project_id"`
	Email     string    `json:"email"`
	GrantedAt time.Time `json:"granted_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the grant covers the given project at the given time.
func (g *AccessGrant) Valid(projectID string, now time.Time) bool {
	if g == nil {
		return false
	}
	return g.ProjectID == projectID && now.Before(g.ExpiresAt)
}

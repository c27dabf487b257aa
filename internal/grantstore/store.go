// Package grantstore holds short-lived preview access grants. A grant records
// that a client authenticated against a project with a matching email; it is
// deliberately kept out of the relational schema because it is ephemeral state
// with a TTL, not business data.
package grantstore

import (
	"context"
	"time"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

// Store is the capability handed to services that need to create, check, or
// revoke preview grants.
type Store interface {
	// Put records a grant for the project, replacing any existing one.
	Put(ctx context.Context, projectID, email string, ttl time.Duration) (*models.AccessGrant, error)

	// Get returns the grant for the project, or errors.ErrGrantRequired when
	// none exists or it has lapsed.
	Get(ctx context.Context, projectID string) (*models.AccessGrant, error)

	// Clear revokes the grant for the project. Clearing a missing grant is
	// not an error.
	Clear(ctx context.Context, projectID string) error
}

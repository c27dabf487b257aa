package grantstore

import (
	"context"
	"sync"
	"time"

	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

// MemoryStore is an in-process grant store. It serves tests and single-node
// deployments without Redis; expiry is checked lazily on Get.
type MemoryStore struct {
	mu     sync.RWMutex
	grants map[string]*models.AccessGrant
	now    func() time.Time
}

// NewMemoryStore constructs an in-memory grant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		grants: make(map[string]*models.AccessGrant),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the store's notion of current time.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Put(_ context.Context, projectID, email string, ttl time.Duration) (*models.AccessGrant, error) {
	now := s.now()
	grant := &models.AccessGrant{
		ProjectID: projectID,
		Email:     email,
		GrantedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	s.mu.Lock()
	s.grants[projectID] = grant
	s.mu.Unlock()

	return grant, nil
}

func (s *MemoryStore) Get(_ context.Context, projectID string) (*models.AccessGrant, error) {
	s.mu.RLock()
	grant, ok := s.grants[projectID]
	s.mu.RUnlock()

	if !ok || !grant.Valid(projectID, s.now()) {
		return nil, appErrors.ErrGrantRequired
	}

	copied := *grant
	return &copied, nil
}

func (s *MemoryStore) Clear(_ context.Context, projectID string) error {
	s.mu.Lock()
	delete(s.grants, projectID)
	s.mu.Unlock()
	return nil
}

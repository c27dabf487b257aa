package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

// HistoryRepository appends and reads the per-project audit trail.
// Entries are write-once and never consulted by business logic.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts a history entry.
func (r *HistoryRepository) Append(ctx context.Context, entry *models.HistoryEntry) error {
	prepareHistoryEntry(entry)
	const query = `INSERT INTO project_history (id, project_id, action, detail, created_at)
VALUES (:id, :project_id, :action, :detail, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append project history: %w", err)
	}
	return nil
}

// ListByProject returns the trail newest first.
func (r *HistoryRepository) ListByProject(ctx context.Context, projectID string) ([]models.HistoryEntry, error) {
	const query = `SELECT id, project_id, action, detail, created_at FROM project_history WHERE project_id = $1 ORDER BY created_at DESC`
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, projectID); err != nil {
		return nil, fmt.Errorf("list project history: %w", err)
	}
	return entries, nil
}

// insertHistoryTx appends a history entry inside an existing transaction.
// Used by ProjectRepository.UpdateStatus to keep status and trail atomic.
func insertHistoryTx(ctx context.Context, tx *sqlx.Tx, entry *models.HistoryEntry) error {
	prepareHistoryEntry(entry)
	const query = `INSERT INTO project_history (id, project_id, action, detail, created_at)
VALUES (:id, :project_id, :action, :detail, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append project history: %w", err)
	}
	return nil
}

func prepareHistoryEntry(entry *models.HistoryEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if len(entry.Detail) == 0 {
		entry.Detail = []byte(`{}`)
	}
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

// AccessLogRepository records preview authentication attempts, write-once.
type AccessLogRepository struct {
	db *sqlx.DB
}

// NewAccessLogRepository constructs the repository.
func NewAccessLogRepository(db *sqlx.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

// Append inserts an access attempt record.
func (r *AccessLogRepository) Append(ctx context.Context, log *models.AccessLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO access_logs (id, project_id, access_code, email, outcome, ip_address, user_agent, created_at)
VALUES (:id, :project_id, :access_code, :email, :outcome, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("append access log: %w", err)
	}
	return nil
}

// ListByProject returns access attempts for a project, newest first.
func (r *AccessLogRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]models.AccessLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id, project_id, access_code, email, outcome, ip_address, user_agent, created_at
FROM access_logs WHERE project_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var logs []models.AccessLog
	if err := r.db.SelectContext(ctx, &logs, query, projectID); err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	return logs, nil
}

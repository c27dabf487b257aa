package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

const versionColumns = `id, project_id, name, description, audio_url, file_path, recommended, final, created_at`

// VersionRepository persists audio versions. Rows are write-once.
type VersionRepository struct {
	db *sqlx.DB
}

// NewVersionRepository constructs the repository.
func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Create inserts an immutable version row.
func (r *VersionRepository) Create(ctx context.Context, version *models.ProjectVersion) error {
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO project_versions (id, project_id, name, description, audio_url, file_path, recommended, final, created_at)
VALUES (:id, :project_id, :name, :description, :audio_url, :file_path, :recommended, :final, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, version); err != nil {
		return fmt.Errorf("create project version: %w", err)
	}
	return nil
}

// FindByID returns a single version.
func (r *VersionRepository) FindByID(ctx context.Context, id string) (*models.ProjectVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM project_versions WHERE id = $1 LIMIT 1`, versionColumns)
	var version models.ProjectVersion
	if err := r.db.GetContext(ctx, &version, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find version by id: %w", err)
	}
	return &version, nil
}

// ListByProject returns all versions for a project, oldest first.
func (r *VersionRepository) ListByProject(ctx context.Context, projectID string) ([]models.ProjectVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM project_versions WHERE project_id = $1 ORDER BY created_at ASC`, versionColumns)
	var versions []models.ProjectVersion
	if err := r.db.SelectContext(ctx, &versions, query, projectID); err != nil {
		return nil, fmt.Errorf("list project versions: %w", err)
	}
	return versions, nil
}

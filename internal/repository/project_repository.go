package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

const projectColumns = `id, title, client_name, client_email, client_phone, package_tier, status, feedback, access_code, expires_at, created_at, updated_at`

// ProjectRepository persists commissioned projects.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
	if project.Status == "" {
		project.Status = models.StatusWaiting
	}

	const query = `INSERT INTO projects (id, title, client_name, client_email, client_phone, package_tier, status, feedback, access_code, expires_at, created_at, updated_at)
VALUES (:id, :title, :client_name, :client_email, :client_phone, :package_tier, :status, :feedback, :access_code, :expires_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// FindByID returns a project by identifier.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 LIMIT 1`, projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project by id: %w", err)
	}
	return &project, nil
}

// FindByAccessCode resolves a project from its preview code.
func (r *ProjectRepository) FindByAccessCode(ctx context.Context, code string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE access_code = $1 LIMIT 1`, projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project by access code: %w", err)
	}
	return &project, nil
}

// List returns projects matching the filter with a total count.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	baseQuery := `FROM projects WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Tier != nil {
		conditions = append(conditions, fmt.Sprintf("package_tier = $%d", len(args)+1))
		args = append(args, *filter.Tier)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(client_name) LIKE $%d OR LOWER(client_email) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"title":      true,
		"status":     true,
		"created_at": true,
		"updated_at": true,
		"expires_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", projectColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	return projects, total, nil
}

// Update rewrites admin-editable fields.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	const query = `UPDATE projects SET title = :title, client_name = :client_name, client_email = :client_email,
client_phone = :client_phone, package_tier = :package_tier, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, project)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return requireRowAffected(result, "project")
}

// SetAccessCode stores a freshly generated preview code.
func (r *ProjectRepository) SetAccessCode(ctx context.Context, id, code string) error {
	const query = `UPDATE projects SET access_code = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, code, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set access code: %w", err)
	}
	return requireRowAffected(result, "project")
}

// SetExpiry moves the preview expiration timestamp.
func (r *ProjectRepository) SetExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	const query = `UPDATE projects SET expires_at = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set project expiry: %w", err)
	}
	return requireRowAffected(result, "project")
}

// UpdateStatus writes the review status plus feedback text and appends the
// history entry inside one transaction, so the two writes cannot diverge.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id string, status models.ProjectStatus, feedback *string, entry *models.HistoryEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status tx: %w", err)
	}

	const statusQuery = `UPDATE projects SET status = $2, feedback = COALESCE($3, feedback), updated_at = $4 WHERE id = $1`
	result, err := tx.ExecContext(ctx, statusQuery, id, status, feedback, time.Now().UTC())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update project status: %w", err)
	}
	if err := requireRowAffected(result, "project"); err != nil {
		_ = tx.Rollback()
		return err
	}

	if entry != nil {
		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status tx: %w", err)
	}
	return nil
}

// Delete removes a project. Versions and history cascade at the schema level.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM projects WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireRowAffected(result, "project")
}

func requireRowAffected(result sql.Result, resource string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", resource, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

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

const briefingColumns = `id, client_id, contact_name, email, phone, occasion, recipient, style, mood, story, package_tier, status, project_id, created_at, updated_at`

// BriefingRepository persists client intake questionnaires.
type BriefingRepository struct {
	db *sqlx.DB
}

// NewBriefingRepository constructs the repository.
func NewBriefingRepository(db *sqlx.DB) *BriefingRepository {
	return &BriefingRepository{db: db}
}

// Create inserts a new briefing.
func (r *BriefingRepository) Create(ctx context.Context, briefing *models.Briefing) error {
	if briefing.ID == "" {
		briefing.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if briefing.CreatedAt.IsZero() {
		briefing.CreatedAt = now
	}
	briefing.UpdatedAt = now
	if briefing.Status == "" {
		briefing.Status = models.BriefingReceived
	}

	const query = `INSERT INTO briefings (id, client_id, contact_name, email, phone, occasion, recipient, style, mood, story, package_tier, status, project_id, created_at, updated_at)
VALUES (:id, :client_id, :contact_name, :email, :phone, :occasion, :recipient, :style, :mood, :story, :package_tier, :status, :project_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, briefing); err != nil {
		return fmt.Errorf("create briefing: %w", err)
	}
	return nil
}

// FindByID returns a briefing by identifier.
func (r *BriefingRepository) FindByID(ctx context.Context, id string) (*models.Briefing, error) {
	query := fmt.Sprintf(`SELECT %s FROM briefings WHERE id = $1 LIMIT 1`, briefingColumns)
	var briefing models.Briefing
	if err := r.db.GetContext(ctx, &briefing, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find briefing by id: %w", err)
	}
	return &briefing, nil
}

// List returns briefings matching the filter with a total count.
func (r *BriefingRepository) List(ctx context.Context, filter models.BriefingFilter) ([]models.Briefing, int, error) {
	baseQuery := `FROM briefings WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(contact_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", briefingColumns, baseQuery, pageSize, offset)

	var briefings []models.Briefing
	if err := r.db.SelectContext(ctx, &briefings, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list briefings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count briefings: %w", err)
	}

	return briefings, total, nil
}

// UpdateStatus moves a briefing through intake states.
func (r *BriefingRepository) UpdateStatus(ctx context.Context, id string, status models.BriefingStatus) error {
	const query = `UPDATE briefings SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update briefing status: %w", err)
	}
	return requireRowAffected(result, "briefing")
}

// MarkConverted links the briefing to its project and flips the status.
func (r *BriefingRepository) MarkConverted(ctx context.Context, id, projectID string) error {
	const query = `UPDATE briefings SET status = $2, project_id = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, models.BriefingConverted, projectID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark briefing converted: %w", err)
	}
	return requireRowAffected(result, "briefing")
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

// LeadRepository persists marketing site leads.
type LeadRepository struct {
	db *sqlx.DB
}

// NewLeadRepository constructs the repository.
func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create inserts a captured lead.
func (r *LeadRepository) Create(ctx context.Context, lead *models.MarketingLead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO marketing_leads (id, name, email, phone, source, message, created_at)
VALUES (:id, :name, :email, :phone, :source, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("create marketing lead: %w", err)
	}
	return nil
}

// List returns leads matching the filter with a total count.
func (r *LeadRepository) List(ctx context.Context, filter models.LeadFilter) ([]models.MarketingLead, int, error) {
	baseQuery := `FROM marketing_leads WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Source != "" {
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)+1))
		args = append(args, filter.Source)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
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

	listQuery := fmt.Sprintf("SELECT id, name, email, phone, source, message, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var leads []models.MarketingLead
	if err := r.db.SelectContext(ctx, &leads, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list marketing leads: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count marketing leads: %w", err)
	}

	return leads, total, nil
}

// ListAll returns every lead for CSV export.
func (r *LeadRepository) ListAll(ctx context.Context) ([]models.MarketingLead, error) {
	const query = `SELECT id, name, email, phone, source, message, created_at FROM marketing_leads ORDER BY created_at DESC`
	var leads []models.MarketingLead
	if err := r.db.SelectContext(ctx, &leads, query); err != nil {
		return nil, fmt.Errorf("list all marketing leads: %w", err)
	}
	return leads, nil
}

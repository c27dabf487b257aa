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

// ClientRepository persists commissioning customers keyed by email.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository constructs the repository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Upsert inserts a client or refreshes name/phone for an existing email.
func (r *ClientRepository) Upsert(ctx context.Context, client *models.Client) error {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now
	client.Email = strings.ToLower(strings.TrimSpace(client.Email))

	const query = `INSERT INTO clients (id, name, email, phone, created_at, updated_at)
VALUES (:id, :name, :email, :phone, :created_at, :updated_at)
ON CONFLICT (email)
DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, client); err != nil {
		return fmt.Errorf("upsert client: %w", err)
	}
	return nil
}

// FindByEmail returns a client by normalized email.
func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (*models.Client, error) {
	const query = `SELECT id, name, email, phone, created_at, updated_at FROM clients WHERE email = $1 LIMIT 1`
	var client models.Client
	if err := r.db.GetContext(ctx, &client, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find client by email: %w", err)
	}
	return &client, nil
}

// List returns clients matching the search with a total count.
func (r *ClientRepository) List(ctx context.Context, search string, page, pageSize int) ([]models.Client, int, error) {
	baseQuery := `FROM clients WHERE 1=1`
	var args []interface{}

	if search != "" {
		baseQuery += " AND (LOWER(name) LIKE $1 OR LOWER(email) LIKE $1)"
		args = append(args, "%"+strings.ToLower(search)+"%")
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, name, email, phone, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var clients []models.Client
	if err := r.db.SelectContext(ctx, &clients, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	return clients, total, nil
}

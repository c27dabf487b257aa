package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

const deliveryColumns = `id, event_type, url, payload, attempts, status, last_error, created_at, updated_at`

// WebhookDeliveryRepository persists outbound notifications and their fate.
type WebhookDeliveryRepository struct {
	db *sqlx.DB
}

// NewWebhookDeliveryRepository constructs the repository.
func NewWebhookDeliveryRepository(db *sqlx.DB) *WebhookDeliveryRepository {
	return &WebhookDeliveryRepository{db: db}
}

// Create inserts a pending delivery.
func (r *WebhookDeliveryRepository) Create(ctx context.Context, delivery *models.WebhookDelivery) error {
	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = now
	}
	delivery.UpdatedAt = now
	if delivery.Status == "" {
		delivery.Status = models.DeliveryPending
	}

	const query = `INSERT INTO webhook_deliveries (id, event_type, url, payload, attempts, status, last_error, created_at, updated_at)
VALUES (:id, :event_type, :url, :payload, :attempts, :status, :last_error, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, delivery); err != nil {
		return fmt.Errorf("create webhook delivery: %w", err)
	}
	return nil
}

// RecordOutcome stores the final status, attempt count and last error.
func (r *WebhookDeliveryRepository) RecordOutcome(ctx context.Context, id string, status models.DeliveryStatus, attempts int, lastError *string) error {
	const query = `UPDATE webhook_deliveries SET status = $2, attempts = $3, last_error = $4, updated_at = $5 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, attempts, lastError, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record webhook outcome: %w", err)
	}
	return requireRowAffected(result, "webhook delivery")
}

// List returns recent deliveries, newest first.
func (r *WebhookDeliveryRepository) List(ctx context.Context, status *models.DeliveryStatus, page, pageSize int) ([]models.WebhookDelivery, int, error) {
	baseQuery := `FROM webhook_deliveries WHERE 1=1`
	var args []interface{}

	if status != nil {
		baseQuery += " AND status = $1"
		args = append(args, *status)
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", deliveryColumns, baseQuery, pageSize, offset)

	var deliveries []models.WebhookDelivery
	if err := r.db.SelectContext(ctx, &deliveries, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list webhook deliveries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count webhook deliveries: %w", err)
	}

	return deliveries, total, nil
}

package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

func newDeliveryRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestWebhookDeliveryRepositoryCreateDefaultsPending(t *testing.T) {
	db, mock, cleanup := newDeliveryRepoMock(t)
	defer cleanup()

	repo := NewWebhookDeliveryRepository(db)
	mock.ExpectExec("INSERT INTO webhook_deliveries").
		WillReturnResult(sqlmock.NewResult(1, 1))

	delivery := &models.WebhookDelivery{
		EventType: models.EventProjectApproved,
		URL:       "https://hooks.example.com/harmonia",
		Payload:   []byte(`{"type":"project.approved"}`),
	}
	require.NoError(t, repo.Create(context.Background(), delivery))
	assert.NotEmpty(t, delivery.ID)
	assert.Equal(t, models.DeliveryPending, delivery.Status)
}

func TestWebhookDeliveryRepositoryRecordOutcome(t *testing.T) {
	db, mock, cleanup := newDeliveryRepoMock(t)
	defer cleanup()

	repo := NewWebhookDeliveryRepository(db)
	mock.ExpectExec("UPDATE webhook_deliveries SET status").
		WithArgs("delivery-1", "failed", 3, "request timed out", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecordOutcome(context.Background(), "delivery-1", models.DeliveryFailed, 3, strPtr("request timed out"))
	require.NoError(t, err)
}

func TestWebhookDeliveryRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newDeliveryRepoMock(t)
	defer cleanup()

	repo := NewWebhookDeliveryRepository(db)
	status := models.DeliveryConfirmed
	rows := sqlmock.NewRows([]string{"id", "event_type", "status", "attempts"}).
		AddRow("delivery-1", "project.approved", "confirmed", 1)
	mock.ExpectQuery("SELECT (.+) FROM webhook_deliveries WHERE 1=1 AND status").
		WithArgs("confirmed").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("confirmed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	deliveries, total, err := repo.List(context.Background(), &status, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, deliveries, 1)
	assert.Equal(t, models.DeliveryConfirmed, deliveries[0].Status)
}

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

func newSettingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSettingRepositoryListByKeys(t *testing.T) {
	db, mock, cleanup := newSettingRepoMock(t)
	defer cleanup()

	repo := NewSettingRepository(db)
	rows := sqlmock.NewRows([]string{"key", "value", "type", "description", "updated_by", "updated_at"}).
		AddRow("preview_expiry_days", "30", "INTEGER", "desc", "admin", time.Now()).
		AddRow("webhook_url", "https://hooks.example.com/harmonia", "STRING", "desc", "admin", time.Now())
	mock.ExpectQuery("SELECT key, value").
		WithArgs("preview_expiry_days", "webhook_url").
		WillReturnRows(rows)

	result, err := repo.ListByKeys(context.Background(), []string{"preview_expiry_days", "webhook_url"})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "30", result[0].Value)
}

func TestSettingRepositoryListByKeysEmpty(t *testing.T) {
	db, _, cleanup := newSettingRepoMock(t)
	defer cleanup()

	repo := NewSettingRepository(db)
	result, err := repo.ListByKeys(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestSettingRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newSettingRepoMock(t)
	defer cleanup()

	repo := NewSettingRepository(db)
	mock.ExpectQuery("SELECT key, value").
		WithArgs("unknown_key").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "unknown_key")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSettingRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newSettingRepoMock(t)
	defer cleanup()

	repo := NewSettingRepository(db)
	mock.ExpectExec("INSERT INTO system_settings").
		WithArgs("notifications_enabled", "true", "BOOLEAN", sqlmock.AnyArg(), "admin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	setting := &models.SystemSetting{
		Key:       "notifications_enabled",
		Value:     "true",
		Type:      models.SettingTypeBoolean,
		UpdatedBy: strPtr("admin"),
	}
	require.NoError(t, repo.Upsert(context.Background(), setting))
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type settingRepoStub struct {
	items map[string]models.SystemSetting
	err   error
}

func (s *settingRepoStub) ListByKeys(ctx context.Context, keys []string) ([]models.SystemSetting, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := []models.SystemSetting{}
	for _, key := range keys {
		if setting, ok := s.items[key]; ok {
			result = append(result, setting)
		}
	}
	return result, nil
}

func (s *settingRepoStub) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s.err != nil {
		return nil, s.err
	}
	if setting, ok := s.items[key]; ok {
		return &setting, nil
	}
	return nil, sql.ErrNoRows
}

func (s *settingRepoStub) Upsert(ctx context.Context, setting *models.SystemSetting) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.SystemSetting)
	}
	s.items[setting.Key] = *setting
	return nil
}

type auditLoggerStub struct {
	logs []*models.AuditLog
}

func (a *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestSettingsServiceUpdateBoolean(t *testing.T) {
	repo := &settingRepoStub{}
	audit := &auditLoggerStub{}
	svc := NewSettingsService(repo, audit, validator.New(), nil, SettingsServiceConfig{})

	item, err := svc.Update(context.Background(), "notifications_enabled", "False", &models.JWTClaims{UserID: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "false", item.Value)
	assert.Equal(t, "BOOLEAN", item.Type)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionSettingUpdate, audit.logs[0].Action)
}

func TestSettingsServiceUpdateUnknownKey(t *testing.T) {
	svc := NewSettingsService(&settingRepoStub{}, &auditLoggerStub{}, validator.New(), nil, SettingsServiceConfig{})
	_, err := svc.Update(context.Background(), "unknown_key", "abc", &models.JWTClaims{UserID: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSettingsServiceUpdateRejectsBadURL(t *testing.T) {
	svc := NewSettingsService(&settingRepoStub{}, &auditLoggerStub{}, validator.New(), nil, SettingsServiceConfig{})
	_, err := svc.Update(context.Background(), "webhook_url", "not a url", &models.JWTClaims{UserID: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSettingsServiceUpdateRejectsNonPositiveExpiry(t *testing.T) {
	svc := NewSettingsService(&settingRepoStub{}, &auditLoggerStub{}, validator.New(), nil, SettingsServiceConfig{})
	_, err := svc.Update(context.Background(), "preview_expiry_days", "0", &models.JWTClaims{UserID: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSettingsServiceListFiltersKeys(t *testing.T) {
	repo := &settingRepoStub{
		items: map[string]models.SystemSetting{
			"webhook_url": {Key: "webhook_url", Value: "https://hooks.example.com/x", Type: models.SettingTypeString},
			"other_key":   {Key: "other_key", Value: "secret", Type: models.SettingTypeString},
		},
	}
	svc := NewSettingsService(repo, &auditLoggerStub{}, validator.New(), nil, SettingsServiceConfig{})

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, len(allowedSettingKeys))
	for _, item := range items {
		if item.Key == "other_key" {
			t.Fatalf("unexpected key returned: %s", item.Key)
		}
	}
}

func TestSettingsServiceDefaults(t *testing.T) {
	svc := NewSettingsService(&settingRepoStub{}, &auditLoggerStub{}, validator.New(), nil, SettingsServiceConfig{
		Defaults: map[string]string{"studio_display_name": "Harmonia Studio"},
	})

	item, err := svc.Get(context.Background(), "studio_display_name")
	require.NoError(t, err)
	assert.Equal(t, "Harmonia Studio", item.Value)

	days, err := svc.PreviewExpiryDays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, days)

	enabled, err := svc.NotificationsEnabled(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestSettingsServiceUpdateHandlesRepoError(t *testing.T) {
	repo := &settingRepoStub{err: errors.New("db down")}
	svc := NewSettingsService(repo, &auditLoggerStub{}, validator.New(), nil, SettingsServiceConfig{})
	_, err := svc.Update(context.Background(), "studio_display_name", "Harmonia", &models.JWTClaims{UserID: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

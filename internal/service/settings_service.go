package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type settingRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.SystemSetting, error)
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	Upsert(ctx context.Context, setting *models.SystemSetting) error
}

type settingsAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type allowedSetting struct {
	Key         string
	Type        models.SettingType
	Description string
	RequiresURL bool
}

var allowedSettingKeys = []string{
	"webhook_url",
	"notifications_enabled",
	"preview_expiry_days",
	"studio_display_name",
}

var allowedSettings = map[string]allowedSetting{
	"webhook_url": {
		Key:         "webhook_url",
		Type:        models.SettingTypeString,
		Description: "Destination URL for outbound event notifications",
		RequiresURL: true,
	},
	"notifications_enabled": {
		Key:         "notifications_enabled",
		Type:        models.SettingTypeBoolean,
		Description: "Master toggle for outbound event notifications",
	},
	"preview_expiry_days": {
		Key:         "preview_expiry_days",
		Type:        models.SettingTypeInteger,
		Description: "Days a preview stays reachable after a project is created",
	},
	"studio_display_name": {
		Key:         "studio_display_name",
		Type:        models.SettingTypeString,
		Description: "Studio name shown in client-facing pages and emails",
	},
}

var builtinSettingDefaults = map[string]string{
	"notifications_enabled": "true",
	"preview_expiry_days":   "30",
}

// SettingsServiceConfig tunes runtime behaviour.
type SettingsServiceConfig struct {
	Defaults map[string]string
}

// SettingsService orchestrates the back-office settings workflow. Only a
// fixed set of keys is accepted; unknown keys are rejected outright.
type SettingsService struct {
	repo      settingRepository
	audit     settingsAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
	defaults  map[string]string
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingRepository, audit settingsAuditLogger, validate *validator.Validate, logger *zap.Logger, cfg SettingsServiceConfig) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := make(map[string]string, len(builtinSettingDefaults))
	for key, value := range builtinSettingDefaults {
		defaults[key] = value
	}
	for key, value := range cfg.Defaults {
		if value == "" {
			continue
		}
		defaults[key] = value
	}
	return &SettingsService{
		repo:      repo,
		audit:     audit,
		validator: validate,
		logger:    logger,
		defaults:  defaults,
	}
}

// List returns all settings scoped to the allowed keys, filling defaults for
// keys that have never been written.
func (s *SettingsService) List(ctx context.Context) ([]dto.SettingItem, error) {
	keys := settingKeys()
	rows, err := s.repo.ListByKeys(ctx, keys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	existing := make(map[string]models.SystemSetting, len(rows))
	for _, row := range rows {
		existing[row.Key] = row
	}

	items := make([]dto.SettingItem, 0, len(keys))
	for _, key := range keys {
		meta := allowedSettings[key]
		item := dto.SettingItem{
			Key:         key,
			Type:        string(meta.Type),
			Description: meta.Description,
		}
		if row, ok := existing[key]; ok {
			item.Value = row.Value
		} else if def, ok := s.defaultValue(key); ok {
			item.Value = def
		}
		items = append(items, item)
	}
	return items, nil
}

// Get retrieves a single setting, falling back to its default.
func (s *SettingsService) Get(ctx context.Context, key string) (*dto.SettingItem, error) {
	meta, err := s.requireAllowedKey(key)
	if err != nil {
		return nil, err
	}
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if err == sql.ErrNoRows {
			if def, ok := s.defaultValue(key); ok {
				return &dto.SettingItem{
					Key:         key,
					Value:       def,
					Type:        string(meta.Type),
					Description: meta.Description,
				}, nil
			}
			return nil, appErrors.Clone(appErrors.ErrNotFound, "setting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get setting")
	}
	return &dto.SettingItem{
		Key:         setting.Key,
		Value:       setting.Value,
		Type:        string(setting.Type),
		Description: meta.Description,
	}, nil
}

// Update upserts an allowed setting after normalising its value.
func (s *SettingsService) Update(ctx context.Context, key, value string, actor *models.JWTClaims) (*dto.SettingItem, error) {
	meta, err := s.requireAllowedKey(key)
	if err != nil {
		return nil, err
	}
	value, err = s.validateValue(meta, value)
	if err != nil {
		return nil, err
	}

	prev, err := s.repo.Get(ctx, key)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch setting")
	}

	setting := &models.SystemSetting{
		Key:         key,
		Value:       value,
		Type:        meta.Type,
		Description: descPtr(meta.Description),
		UpdatedBy:   actorIDPtr(actor),
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update setting")
	}

	s.emitAudit(ctx, actor, key, previousValue(prev), value)

	return &dto.SettingItem{
		Key:         key,
		Value:       value,
		Type:        string(meta.Type),
		Description: meta.Description,
	}, nil
}

// WebhookURL returns the configured notification destination, empty when unset.
func (s *SettingsService) WebhookURL(ctx context.Context) (string, error) {
	return s.valueOrDefault(ctx, "webhook_url")
}

// NotificationsEnabled reports whether outbound events should be dispatched.
func (s *SettingsService) NotificationsEnabled(ctx context.Context) (bool, error) {
	value, err := s.valueOrDefault(ctx, "notifications_enabled")
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

// PreviewExpiryDays returns the configured preview window length.
func (s *SettingsService) PreviewExpiryDays(ctx context.Context) (int, error) {
	value, err := s.valueOrDefault(ctx, "preview_expiry_days")
	if err != nil {
		return 0, err
	}
	days, err := strconv.Atoi(value)
	if err != nil || days < 1 {
		return 30, nil
	}
	return days, nil
}

func (s *SettingsService) requireAllowedKey(key string) (allowedSetting, error) {
	meta, ok := allowedSettings[key]
	if !ok {
		return allowedSetting{}, appErrors.Clone(appErrors.ErrValidation, "unsupported setting key")
	}
	return meta, nil
}

func (s *SettingsService) validateValue(meta allowedSetting, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch meta.Type {
	case models.SettingTypeBoolean:
		switch strings.ToLower(value) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		default:
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects boolean value", meta.Key))
		}
	case models.SettingTypeInteger:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects a positive integer", meta.Key))
		}
		return strconv.Itoa(n), nil
	case models.SettingTypeString:
		if meta.RequiresURL && value != "" {
			parsed, err := url.Parse(value)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects an absolute URL", meta.Key))
			}
		}
		return value, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported setting type")
	}
}

func (s *SettingsService) emitAudit(ctx context.Context, actor *models.JWTClaims, key, oldValue, newValue string) {
	if s.audit == nil {
		return
	}
	oldPayload := map[string]string{"key": key, "value": oldValue}
	newPayload := map[string]string{"key": key, "value": newValue}
	oldBytes, _ := json.Marshal(oldPayload)
	newBytes, _ := json.Marshal(newPayload)
	log := &models.AuditLog{
		UserID:     actorIDPtr(actor),
		Action:     models.AuditActionSettingUpdate,
		Resource:   "setting",
		ResourceID: &key,
		OldValues:  oldBytes,
		NewValues:  newBytes,
		IPAddress:  "system",
		UserAgent:  "settings-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record settings audit", zap.Error(err))
	}
}

func (s *SettingsService) defaultValue(key string) (string, bool) {
	if s.defaults == nil {
		return "", false
	}
	value, ok := s.defaults[key]
	return value, ok
}

func (s *SettingsService) valueOrDefault(ctx context.Context, key string) (string, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if err == sql.ErrNoRows {
			if def, ok := s.defaultValue(key); ok {
				return def, nil
			}
			return "", nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get setting")
	}
	return setting.Value, nil
}

func settingKeys() []string {
	keys := make([]string, len(allowedSettingKeys))
	copy(keys, allowedSettingKeys)
	return keys
}

func previousValue(setting *models.SystemSetting) string {
	if setting == nil {
		return ""
	}
	return setting.Value
}

func actorIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	return &actor.UserID
}

func descPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}

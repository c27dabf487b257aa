package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	"github.com/harmonia-studio/harmonia-api/internal/repository"
	"github.com/harmonia-studio/harmonia-api/pkg/config"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type adminProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id string) (*models.Project, error)
	FindByAccessCode(ctx context.Context, code string) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
	Update(ctx context.Context, project *models.Project) error
	SetAccessCode(ctx context.Context, id, code string) error
	SetExpiry(ctx context.Context, id string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type versionWriter interface {
	Create(ctx context.Context, version *models.ProjectVersion) error
	ListByProject(ctx context.Context, projectID string) ([]models.ProjectVersion, error)
}

type historyLogger interface {
	Append(ctx context.Context, entry *models.HistoryEntry) error
	ListByProject(ctx context.Context, projectID string) ([]models.HistoryEntry, error)
}

type accessLogReader interface {
	ListByProject(ctx context.Context, projectID string, limit int) ([]models.AccessLog, error)
}

type clientUpserter interface {
	Upsert(ctx context.Context, client *models.Client) error
}

type expirySettingsReader interface {
	PreviewExpiryDays(ctx context.Context) (int, error)
}

type cacheInvalidator interface {
	Delete(ctx context.Context, key string) error
}

type projectAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ProjectServiceConfig tunes runtime behaviour.
type ProjectServiceConfig struct {
	PreviewBaseURL string
}

// ProjectService is the back-office side of project management.
type ProjectService struct {
	projects  adminProjectRepository
	versions  versionWriter
	history   historyLogger
	logs      accessLogReader
	clients   clientUpserter
	settings  expirySettingsReader
	cache     cacheInvalidator
	webhooks  webhookEmitter
	audit     projectAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
	preview   config.PreviewConfig
	baseURL   string
	now       func() time.Time
}

// NewProjectService constructs a ProjectService.
func NewProjectService(projects adminProjectRepository, versions versionWriter, history historyLogger, logs accessLogReader, clients clientUpserter, settings expirySettingsReader, cache cacheInvalidator, webhooks webhookEmitter, audit projectAuditLogger, validate *validator.Validate, logger *zap.Logger, preview config.PreviewConfig, cfg ProjectServiceConfig) *ProjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		projects:  projects,
		versions:  versions,
		history:   history,
		logs:      logs,
		clients:   clients,
		settings:  settings,
		cache:     cache,
		webhooks:  webhooks,
		audit:     audit,
		validator: validate,
		logger:    logger,
		preview:   preview,
		baseURL:   strings.TrimRight(cfg.PreviewBaseURL, "/"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a new project, upserts the owning client record, and
// schedules the preview window.
func (s *ProjectService) Create(ctx context.Context, req dto.CreateProjectRequest) (*dto.ProjectDetail, error) {
	req.ClientEmail = normalizeEmail(req.ClientEmail)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	expiresAt := req.ExpiresAt
	if expiresAt == nil {
		days, err := s.settings.PreviewExpiryDays(ctx)
		if err != nil {
			return nil, err
		}
		computed := s.now().AddDate(0, 0, days)
		expiresAt = &computed
	}

	project := &models.Project{
		Title:       strings.TrimSpace(req.Title),
		ClientName:  strings.TrimSpace(req.ClientName),
		ClientEmail: req.ClientEmail,
		ClientPhone: req.ClientPhone,
		PackageTier: models.PackageTier(req.PackageTier),
		Status:      models.StatusWaiting,
		ExpiresAt:   expiresAt,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}

	if err := s.clients.Upsert(ctx, &models.Client{
		Name:  project.ClientName,
		Email: project.ClientEmail,
		Phone: project.ClientPhone,
	}); err != nil {
		s.logger.Warn("failed to upsert client", zap.String("email", project.ClientEmail), zap.Error(err))
	}

	s.appendHistory(ctx, project.ID, models.HistoryProjectCreated, map[string]string{"title": project.Title})
	s.webhooks.Emit(ctx, models.EventProjectCreated, map[string]interface{}{
		"project_id":  project.ID,
		"title":       project.Title,
		"client_name": project.ClientName,
	})

	return s.detail(ctx, project, false)
}

// Get returns a project with its versions and history.
func (s *ProjectService) Get(ctx context.Context, id string) (*dto.ProjectDetail, error) {
	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, project, true)
}

// List returns projects for the back-office table view.
func (s *ProjectService) List(ctx context.Context, filter models.ProjectFilter) ([]dto.ProjectDetail, int, error) {
	projects, total, err := s.projects.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}
	now := s.now()
	items := make([]dto.ProjectDetail, 0, len(projects))
	for i := range projects {
		items = append(items, dto.ProjectDetail{
			Project: projects[i],
			Expired: projects[i].Expired(now),
		})
	}
	return items, total, nil
}

// Update rewrites admin-editable fields.
func (s *ProjectService) Update(ctx context.Context, id string, req dto.UpdateProjectRequest) (*dto.ProjectDetail, error) {
	req.ClientEmail = normalizeEmail(req.ClientEmail)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}

	project.Title = strings.TrimSpace(req.Title)
	project.ClientName = strings.TrimSpace(req.ClientName)
	project.ClientEmail = req.ClientEmail
	project.ClientPhone = req.ClientPhone
	project.PackageTier = models.PackageTier(req.PackageTier)

	if err := s.projects.Update(ctx, project); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project")
	}

	s.invalidatePreview(ctx, project.ID)
	return s.detail(ctx, project, false)
}

// Delete removes a project and records who did it.
func (s *ProjectService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	project, err := s.findProject(ctx, id)
	if err != nil {
		return err
	}

	if err := s.projects.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete project")
	}

	s.invalidatePreview(ctx, id)

	if s.audit != nil {
		oldValues, _ := json.Marshal(map[string]string{"title": project.Title, "client_email": project.ClientEmail})
		log := &models.AuditLog{
			UserID:     actorIDPtr(actor),
			Action:     models.AuditActionProjectDelete,
			Resource:   "project",
			ResourceID: &id,
			OldValues:  oldValues,
			IPAddress:  "system",
			UserAgent:  "project-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to record project delete audit", zap.Error(err))
		}
	}
	return nil
}

// GenerateAccessCode mints a fresh preview code for the project. Codes look
// like P12345 and are unique across live projects.
func (s *ProjectService) GenerateAccessCode(ctx context.Context, id string) (*dto.AccessCodeResponse, error) {
	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}

	attempts := s.preview.CodeAttempts
	if attempts <= 0 {
		attempts = 5
	}

	var code string
	for i := 0; i < attempts; i++ {
		candidate, err := s.randomCode()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate access code")
		}
		_, err = s.projects.FindByAccessCode(ctx, candidate)
		if err == sql.ErrNoRows {
			code = candidate
			break
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check access code")
		}
	}
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique access code")
	}

	if err := s.projects.SetAccessCode(ctx, project.ID, code); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store access code")
	}

	s.appendHistory(ctx, project.ID, models.HistoryCodeGenerated, map[string]string{"access_code": code})

	return &dto.AccessCodeResponse{
		ProjectID:  project.ID,
		AccessCode: code,
		PreviewURL: s.previewURL(code),
	}, nil
}

// ExtendDeadline pushes the preview expiration forward by the given days,
// anchored on the current expiry when one exists and still lies ahead.
func (s *ProjectService) ExtendDeadline(ctx context.Context, id string, req dto.ExtendDeadlineRequest) (*dto.ProjectDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deadline payload")
	}

	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}

	base := s.now()
	if project.ExpiresAt != nil && project.ExpiresAt.After(base) {
		base = *project.ExpiresAt
	}
	newExpiry := base.AddDate(0, 0, req.Days)

	if err := s.projects.SetExpiry(ctx, project.ID, newExpiry); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to extend deadline")
	}

	s.appendHistory(ctx, project.ID, models.HistoryDeadlineExtended, map[string]string{
		"days":       fmt.Sprintf("%d", req.Days),
		"expires_at": newExpiry.Format(time.RFC3339),
	})
	s.invalidatePreview(ctx, project.ID)
	s.webhooks.Emit(ctx, models.EventDeadlineExtended, map[string]interface{}{
		"project_id": project.ID,
		"title":      project.Title,
		"expires_at": newExpiry.Format(time.RFC3339),
	})

	project.ExpiresAt = &newExpiry
	return s.detail(ctx, project, false)
}

// AddVersion registers a new audio rendering for client review.
func (s *ProjectService) AddVersion(ctx context.Context, id string, req dto.AddVersionRequest) (*models.ProjectVersion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid version payload")
	}

	project, err := s.findProject(ctx, id)
	if err != nil {
		return nil, err
	}

	version := &models.ProjectVersion{
		ProjectID:   project.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		AudioURL:    req.AudioURL,
		Recommended: req.Recommended,
		Final:       req.Final,
	}
	if err := s.versions.Create(ctx, version); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add version")
	}

	s.appendHistory(ctx, project.ID, models.HistoryVersionAdded, map[string]string{
		"version_id": version.ID,
		"name":       version.Name,
	})
	s.invalidatePreview(ctx, project.ID)
	s.webhooks.Emit(ctx, models.EventVersionAdded, map[string]interface{}{
		"project_id": project.ID,
		"title":      project.Title,
		"version":    version.Name,
	})

	return version, nil
}

// ListVersions returns the project's audio versions in review order.
func (s *ProjectService) ListVersions(ctx context.Context, id string) ([]models.ProjectVersion, error) {
	if _, err := s.findProject(ctx, id); err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByProject(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load versions")
	}
	return versions, nil
}

// History returns the project's event trail, newest first.
func (s *ProjectService) History(ctx context.Context, id string) ([]models.HistoryEntry, error) {
	if _, err := s.findProject(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByProject(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return entries, nil
}

// AccessLogs returns recent preview authentication attempts for the project.
func (s *ProjectService) AccessLogs(ctx context.Context, id string, limit int) ([]models.AccessLog, error) {
	if _, err := s.findProject(ctx, id); err != nil {
		return nil, err
	}
	logs, err := s.logs.ListByProject(ctx, id, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load access logs")
	}
	return logs, nil
}

func (s *ProjectService) findProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return project, nil
}

func (s *ProjectService) detail(ctx context.Context, project *models.Project, withChildren bool) (*dto.ProjectDetail, error) {
	detail := &dto.ProjectDetail{
		Project: *project,
		Expired: project.Expired(s.now()),
	}
	if !withChildren {
		return detail, nil
	}

	versions, err := s.versions.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load versions")
	}
	detail.Versions = versions

	history, err := s.history.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	detail.History = history
	return detail, nil
}

func (s *ProjectService) appendHistory(ctx context.Context, projectID, action string, detail map[string]string) {
	payload, _ := json.Marshal(detail)
	entry := &models.HistoryEntry{
		ProjectID: projectID,
		Action:    action,
		Detail:    payload,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append history", zap.String("project_id", projectID), zap.String("action", action), zap.Error(err))
	}
}

func (s *ProjectService) randomCode() (string, error) {
	length := s.preview.CodeLength
	if length <= 0 {
		length = 5
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return "P" + string(digits), nil
}

func (s *ProjectService) previewURL(code string) string {
	if s.baseURL == "" {
		return "/preview/" + code
	}
	return s.baseURL + "/preview/" + code
}

func (s *ProjectService) invalidatePreview(ctx context.Context, projectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.PreviewKey(projectID)); err != nil {
		s.logger.Warn("failed to invalidate preview cache", zap.String("project_id", projectID), zap.Error(err))
	}
}

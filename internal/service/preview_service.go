package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/grantstore"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	"github.com/harmonia-studio/harmonia-api/internal/repository"
	"github.com/harmonia-studio/harmonia-api/pkg/config"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type previewProjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
	FindByAccessCode(ctx context.Context, code string) (*models.Project, error)
	UpdateStatus(ctx context.Context, id string, status models.ProjectStatus, feedback *string, entry *models.HistoryEntry) error
}

type previewVersionReader interface {
	ListByProject(ctx context.Context, projectID string) ([]models.ProjectVersion, error)
}

type accessLogAppender interface {
	Append(ctx context.Context, log *models.AccessLog) error
}

type previewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type webhookEmitter interface {
	Emit(ctx context.Context, eventType string, data map[string]interface{})
}

type previewMetricsRecorder interface {
	RecordPreviewAuth(outcome models.AccessOutcome)
	RecordCacheOperation(hit bool)
}

// RequestMeta carries caller details used for access logging.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// PreviewService implements the client-facing preview flow: authenticate by
// access code plus email, browse versions, leave feedback, approve. Every
// authentication attempt is logged with its outcome regardless of success.
type PreviewService struct {
	projects  previewProjectRepository
	versions  previewVersionReader
	logs      accessLogAppender
	grants    grantstore.Store
	cache     previewCache
	webhooks  webhookEmitter
	metrics   previewMetricsRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.PreviewConfig
	now       func() time.Time
}

// SetMetrics attaches an optional metrics recorder.
func (s *PreviewService) SetMetrics(m previewMetricsRecorder) {
	s.metrics = m
}

// NewPreviewService constructs a PreviewService.
func NewPreviewService(projects previewProjectRepository, versions previewVersionReader, logs accessLogAppender, grants grantstore.Store, cache previewCache, webhooks webhookEmitter, validate *validator.Validate, logger *zap.Logger, cfg config.PreviewConfig) *PreviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreviewService{
		projects:  projects,
		versions:  versions,
		logs:      logs,
		grants:    grants,
		cache:     cache,
		webhooks:  webhooks,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate verifies the claimed email against the project resolved from
// the access code and opens a preview grant on success.
func (s *PreviewService) Authenticate(ctx context.Context, code string, req dto.AuthenticatePreviewRequest, meta RequestMeta) (*dto.AuthenticatePreviewResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid authentication payload")
	}

	email := req.Email

	project, err := s.resolveProject(ctx, code)
	if err != nil {
		s.logAccess(ctx, nil, code, email, models.AccessNotFound, meta)
		return nil, err
	}

	if project.Expired(s.now()) {
		s.logAccess(ctx, &project.ID, code, email, models.AccessExpired, meta)
		return nil, appErrors.ErrPreviewExpired
	}

	if normalizeEmail(project.ClientEmail) != email {
		s.logAccess(ctx, &project.ID, code, email, models.AccessEmailMismatch, meta)
		return nil, appErrors.ErrEmailMismatch
	}

	grant, err := s.grants.Put(ctx, project.ID, email, s.cfg.GrantTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open preview session")
	}

	s.logAccess(ctx, &project.ID, code, email, models.AccessGranted, meta)

	payload, err := s.buildPayload(ctx, project)
	if err != nil {
		return nil, err
	}

	return &dto.AuthenticatePreviewResponse{
		Grant: dto.GrantInfo{
			ProjectID: grant.ProjectID,
			GrantedAt: grant.GrantedAt,
			ExpiresAt: grant.ExpiresAt,
		},
		Preview: *payload,
	}, nil
}

// Get returns the preview payload for an authenticated session.
func (s *PreviewService) Get(ctx context.Context, code, email string) (*dto.PreviewPayload, error) {
	project, err := s.requireSession(ctx, code, email)
	if err != nil {
		return nil, err
	}
	return s.buildPayload(ctx, project)
}

// SubmitFeedback records client feedback and moves the project into the
// feedback state. The last write wins: feedback after approval reopens the
// revision cycle rather than being rejected.
func (s *PreviewService) SubmitFeedback(ctx context.Context, code string, req dto.SubmitFeedbackRequest) (*dto.PreviewPayload, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	project, err := s.requireSession(ctx, code, req.Email)
	if err != nil {
		return nil, err
	}

	feedback := strings.TrimSpace(req.Feedback)
	entry := &models.HistoryEntry{
		ProjectID: project.ID,
		Action:    models.HistoryFeedbackReceived,
	}
	if err := s.projects.UpdateStatus(ctx, project.ID, models.StatusFeedback, &feedback, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record feedback")
	}

	s.invalidate(ctx, project.ID)
	s.webhooks.Emit(ctx, models.EventFeedbackReceived, map[string]interface{}{
		"project_id": project.ID,
		"title":      project.Title,
		"feedback":   feedback,
	})

	project.Status = models.StatusFeedback
	project.Feedback = &feedback
	return s.buildPayload(ctx, project)
}

// Approve marks the project approved. Approving an already approved project
// succeeds without writing a duplicate history entry or notification.
func (s *PreviewService) Approve(ctx context.Context, code string, req dto.ApproveRequest) (*dto.PreviewPayload, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}

	project, err := s.requireSession(ctx, code, req.Email)
	if err != nil {
		return nil, err
	}

	if project.Status == models.StatusApproved {
		return s.buildPayload(ctx, project)
	}

	var feedback *string
	if trimmed := strings.TrimSpace(req.Feedback); trimmed != "" {
		feedback = &trimmed
	}
	entry := &models.HistoryEntry{
		ProjectID: project.ID,
		Action:    models.HistoryProjectApproved,
	}
	if err := s.projects.UpdateStatus(ctx, project.ID, models.StatusApproved, feedback, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve project")
	}

	s.invalidate(ctx, project.ID)
	s.webhooks.Emit(ctx, models.EventProjectApproved, map[string]interface{}{
		"project_id": project.ID,
		"title":      project.Title,
	})

	project.Status = models.StatusApproved
	if feedback != nil {
		project.Feedback = feedback
	}
	return s.buildPayload(ctx, project)
}

// RevokeGrant ends the preview session for the project behind the code.
func (s *PreviewService) RevokeGrant(ctx context.Context, code string) error {
	project, err := s.resolveProject(ctx, code)
	if err != nil {
		return err
	}
	if err := s.grants.Clear(ctx, project.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end preview session")
	}
	return nil
}

// resolveProject finds the project for an access code. Legacy share links
// carry a base64url encoded project id instead of a short code; those are
// resolved by decoding and looking the project up directly.
func (s *PreviewService) resolveProject(ctx context.Context, code string) (*models.Project, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
	}

	project, err := s.projects.FindByAccessCode(ctx, code)
	if err == nil {
		return project, nil
	}
	if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve access code")
	}

	if decoded, decodeErr := base64.RawURLEncoding.DecodeString(code); decodeErr == nil {
		project, err = s.projects.FindByID(ctx, string(decoded))
		if err == nil {
			return project, nil
		}
		if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve legacy link")
		}
	}

	return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
}

// requireSession resolves the project and checks that an unexpired grant for
// the same email is present. Mutating preview operations all pass here.
func (s *PreviewService) requireSession(ctx context.Context, code, email string) (*models.Project, error) {
	project, err := s.resolveProject(ctx, code)
	if err != nil {
		return nil, err
	}
	if project.Expired(s.now()) {
		return nil, appErrors.ErrPreviewExpired
	}
	grant, err := s.grants.Get(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if normalizeEmail(grant.Email) != normalizeEmail(email) {
		return nil, appErrors.ErrEmailMismatch
	}
	return project, nil
}

func (s *PreviewService) buildPayload(ctx context.Context, project *models.Project) (*dto.PreviewPayload, error) {
	key := repository.PreviewKey(project.ID)
	if s.cache != nil {
		var cached dto.PreviewPayload
		if err := s.cache.Get(ctx, key, &cached); err == nil && cached.Status == project.Status {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return &cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	versions, err := s.versions.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load versions")
	}

	payload := &dto.PreviewPayload{
		ProjectID:   project.ID,
		Title:       project.Title,
		ClientName:  project.ClientName,
		PackageTier: project.PackageTier,
		Status:      project.Status,
		ExpiresAt:   project.ExpiresAt,
		Expired:     project.Expired(s.now()),
		Versions:    make([]dto.PreviewVersion, 0, len(versions)),
	}
	if project.Feedback != nil {
		payload.Feedback = *project.Feedback
	}
	for _, v := range versions {
		pv := dto.PreviewVersion{
			ID:          v.ID,
			Name:        v.Name,
			AudioURL:    v.AudioURL,
			Recommended: v.Recommended,
			Final:       v.Final,
			CreatedAt:   v.CreatedAt,
		}
		if v.Description != nil {
			pv.Description = *v.Description
		}
		payload.Versions = append(payload.Versions, pv)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache preview payload", zap.String("project_id", project.ID), zap.Error(err))
		}
	}
	return payload, nil
}

func (s *PreviewService) invalidate(ctx context.Context, projectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.PreviewKey(projectID)); err != nil {
		s.logger.Warn("failed to invalidate preview cache", zap.String("project_id", projectID), zap.Error(err))
	}
}

func (s *PreviewService) logAccess(ctx context.Context, projectID *string, code, email string, outcome models.AccessOutcome, meta RequestMeta) {
	if s.metrics != nil {
		s.metrics.RecordPreviewAuth(outcome)
	}
	log := &models.AccessLog{
		ProjectID:  projectID,
		AccessCode: code,
		Email:      email,
		Outcome:    outcome,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if err := s.logs.Append(ctx, log); err != nil {
		s.logger.Warn("failed to append access log", zap.String("code", code), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

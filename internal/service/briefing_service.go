package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type briefingRepository interface {
	Create(ctx context.Context, briefing *models.Briefing) error
	FindByID(ctx context.Context, id string) (*models.Briefing, error)
	List(ctx context.Context, filter models.BriefingFilter) ([]models.Briefing, int, error)
	UpdateStatus(ctx context.Context, id string, status models.BriefingStatus) error
	MarkConverted(ctx context.Context, id, projectID string) error
}

type projectCreator interface {
	Create(ctx context.Context, req dto.CreateProjectRequest) (*dto.ProjectDetail, error)
	GenerateAccessCode(ctx context.Context, id string) (*dto.AccessCodeResponse, error)
}

// BriefingService handles the public intake questionnaire and its back-office
// processing up to conversion into a project.
type BriefingService struct {
	briefings briefingRepository
	projects  projectCreator
	webhooks  webhookEmitter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBriefingService constructs a BriefingService.
func NewBriefingService(briefings briefingRepository, projects projectCreator, webhooks webhookEmitter, validate *validator.Validate, logger *zap.Logger) *BriefingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BriefingService{
		briefings: briefings,
		projects:  projects,
		webhooks:  webhooks,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a publicly submitted briefing and notifies the studio.
func (s *BriefingService) Submit(ctx context.Context, req dto.SubmitBriefingRequest) (*models.Briefing, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid briefing payload")
	}

	briefing := &models.Briefing{
		ContactName: strings.TrimSpace(req.ContactName),
		Email:       req.Email,
		Phone:       req.Phone,
		Occasion:    strings.TrimSpace(req.Occasion),
		Recipient:   strings.TrimSpace(req.Recipient),
		Style:       strings.TrimSpace(req.Style),
		Mood:        strings.TrimSpace(req.Mood),
		Story:       strings.TrimSpace(req.Story),
		PackageTier: models.PackageTier(req.PackageTier),
		Status:      models.BriefingReceived,
	}
	if err := s.briefings.Create(ctx, briefing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store briefing")
	}

	s.webhooks.Emit(ctx, models.EventBriefingReceived, map[string]interface{}{
		"briefing_id":  briefing.ID,
		"contact_name": briefing.ContactName,
		"occasion":     briefing.Occasion,
		"package_tier": string(briefing.PackageTier),
	})

	return briefing, nil
}

// Get returns a single briefing.
func (s *BriefingService) Get(ctx context.Context, id string) (*models.Briefing, error) {
	return s.findBriefing(ctx, id)
}

// List returns briefings for the back office.
func (s *BriefingService) List(ctx context.Context, filter models.BriefingFilter) ([]models.Briefing, int, error) {
	briefings, total, err := s.briefings.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list briefings")
	}
	return briefings, total, nil
}

// UpdateStatus moves a briefing between intake states. Converted briefings
// are frozen; conversion happens only through Convert.
func (s *BriefingService) UpdateStatus(ctx context.Context, id string, req dto.UpdateBriefingStatusRequest) (*models.Briefing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	briefing, err := s.findBriefing(ctx, id)
	if err != nil {
		return nil, err
	}
	if briefing.Status == models.BriefingConverted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "briefing already converted")
	}

	status := models.BriefingStatus(req.Status)
	if err := s.briefings.UpdateStatus(ctx, id, status); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "briefing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update briefing")
	}

	briefing.Status = status
	return briefing, nil
}

// Convert turns a briefing into a reviewable project and links the two.
func (s *BriefingService) Convert(ctx context.Context, id string, req dto.ConvertBriefingRequest) (*dto.ProjectDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conversion payload")
	}

	briefing, err := s.findBriefing(ctx, id)
	if err != nil {
		return nil, err
	}
	if briefing.Status == models.BriefingConverted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "briefing already converted")
	}
	if briefing.Status == models.BriefingRejected {
		return nil, appErrors.Clone(appErrors.ErrConflict, "briefing was rejected")
	}

	createReq := dto.CreateProjectRequest{
		Title:       strings.TrimSpace(req.Title),
		ClientName:  briefing.ContactName,
		ClientEmail: briefing.Email,
		ClientPhone: briefing.Phone,
		PackageTier: string(briefing.PackageTier),
	}
	if req.ExpiryDays > 0 {
		expiresAt := s.now().AddDate(0, 0, req.ExpiryDays)
		createReq.ExpiresAt = &expiresAt
	}

	detail, err := s.projects.Create(ctx, createReq)
	if err != nil {
		return nil, err
	}

	// The client reaches the preview only through an access code, so a
	// converted project gets one immediately.
	codeResp, err := s.projects.GenerateAccessCode(ctx, detail.ID)
	if err != nil {
		return nil, err
	}
	detail.AccessCode = &codeResp.AccessCode

	if err := s.briefings.MarkConverted(ctx, briefing.ID, detail.ID); err != nil {
		// The project exists but the link back failed; surface it rather
		// than leave the operator guessing.
		s.logger.Error("failed to mark briefing converted",
			zap.String("briefing_id", briefing.ID),
			zap.String("project_id", detail.ID),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "project created but briefing link failed")
	}

	return detail, nil
}

func (s *BriefingService) findBriefing(ctx context.Context, id string) (*models.Briefing, error) {
	briefing, err := s.briefings.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "briefing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load briefing")
	}
	return briefing, nil
}

package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type leadRepository interface {
	Create(ctx context.Context, lead *models.MarketingLead) error
	List(ctx context.Context, filter models.LeadFilter) ([]models.MarketingLead, int, error)
}

// LeadService captures and lists marketing site leads.
type LeadService struct {
	leads     leadRepository
	validator *validator.Validate
	logger    *zap.Logger
	enabled   bool
}

// NewLeadService constructs a LeadService.
func NewLeadService(leads leadRepository, validate *validator.Validate, logger *zap.Logger, enabled bool) *LeadService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadService{leads: leads, validator: validate, logger: logger, enabled: enabled}
}

// Capture stores a lead from the public marketing form.
func (s *LeadService) Capture(ctx context.Context, req dto.CaptureLeadRequest) (*models.MarketingLead, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lead capture is disabled")
	}
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lead payload")
	}

	lead := &models.MarketingLead{
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Phone:   req.Phone,
		Source:  strings.TrimSpace(req.Source),
		Message: req.Message,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store lead")
	}
	return lead, nil
}

// List returns leads for the back office.
func (s *LeadService) List(ctx context.Context, filter models.LeadFilter) ([]models.MarketingLead, int, error) {
	leads, total, err := s.leads.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leads")
	}
	return leads, total, nil
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
	"github.com/harmonia-studio/harmonia-api/pkg/response"
)

type leadService interface {
	Capture(ctx context.Context, req dto.CaptureLeadRequest) (*models.MarketingLead, error)
	List(ctx context.Context, filter models.LeadFilter) ([]models.MarketingLead, int, error)
}

// LeadHandler exposes the marketing lead capture form and its admin listing.
type LeadHandler struct {
	service leadService
}

// NewLeadHandler builds a new handler.
func NewLeadHandler(service leadService) *LeadHandler {
	return &LeadHandler{service: service}
}

// Capture godoc
// @Summary Capture a marketing lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param payload body dto.CaptureLeadRequest true "Lead payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leads [post]
func (h *LeadHandler) Capture(c *gin.Context) {
	var req dto.CaptureLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lead payload"))
		return
	}

	lead, err := h.service.Capture(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, lead)
}

// List godoc
// @Summary List marketing leads
// @Tags Leads
// @Produce json
// @Param source query string false "Filter by source"
// @Param search query string false "Search name or email"
// @Success 200 {object} response.Envelope
// @Router /admin/leads [get]
func (h *LeadHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := models.LeadFilter{
		Source:   c.Query("source"),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	}

	leads, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leads, paginationMeta(page, pageSize, total))
}

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

type briefingService interface {
	Submit(ctx context.Context, req dto.SubmitBriefingRequest) (*models.Briefing, error)
	Get(ctx context.Context, id string) (*models.Briefing, error)
	List(ctx context.Context, filter models.BriefingFilter) ([]models.Briefing, int, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateBriefingStatusRequest) (*models.Briefing, error)
	Convert(ctx context.Context, id string, req dto.ConvertBriefingRequest) (*dto.ProjectDetail, error)
}

// BriefingHandler exposes the public intake form and its back-office side.
type BriefingHandler struct {
	service briefingService
}

// NewBriefingHandler builds a new handler.
func NewBriefingHandler(service briefingService) *BriefingHandler {
	return &BriefingHandler{service: service}
}

// Submit godoc
// @Summary Submit a briefing
// @Description Store a publicly submitted commission questionnaire
// @Tags Briefings
// @Accept json
// @Produce json
// @Param payload body dto.SubmitBriefingRequest true "Briefing payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /briefings [post]
func (h *BriefingHandler) Submit(c *gin.Context) {
	var req dto.SubmitBriefingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid briefing payload"))
		return
	}

	briefing, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, briefing)
}

// List godoc
// @Summary List briefings
// @Tags Briefings
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search contact name or email"
// @Success 200 {object} response.Envelope
// @Router /admin/briefings [get]
func (h *BriefingHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := models.BriefingFilter{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	}
	if status := c.Query("status"); status != "" {
		s := models.BriefingStatus(status)
		filter.Status = &s
	}

	briefings, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, briefings, paginationMeta(page, pageSize, total))
}

// Get godoc
// @Summary Get briefing by id
// @Tags Briefings
// @Produce json
// @Param id path string true "Briefing id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/briefings/{id} [get]
func (h *BriefingHandler) Get(c *gin.Context) {
	briefing, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, briefing, nil)
}

// UpdateStatus godoc
// @Summary Update briefing status
// @Tags Briefings
// @Accept json
// @Produce json
// @Param id path string true "Briefing id"
// @Param payload body dto.UpdateBriefingStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/briefings/{id}/status [put]
func (h *BriefingHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateBriefingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	briefing, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, briefing, nil)
}

// Convert godoc
// @Summary Convert briefing to project
// @Description Create a project from the briefing and link the two
// @Tags Briefings
// @Accept json
// @Produce json
// @Param id path string true "Briefing id"
// @Param payload body dto.ConvertBriefingRequest true "Conversion payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/briefings/{id}/convert [post]
func (h *BriefingHandler) Convert(c *gin.Context) {
	var req dto.ConvertBriefingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conversion payload"))
		return
	}

	detail, err := h.service.Convert(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

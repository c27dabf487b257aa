package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
	"github.com/harmonia-studio/harmonia-api/pkg/response"
)

type projectService interface {
	Create(ctx context.Context, req dto.CreateProjectRequest) (*dto.ProjectDetail, error)
	Get(ctx context.Context, id string) (*dto.ProjectDetail, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]dto.ProjectDetail, int, error)
	Update(ctx context.Context, id string, req dto.UpdateProjectRequest) (*dto.ProjectDetail, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	GenerateAccessCode(ctx context.Context, id string) (*dto.AccessCodeResponse, error)
	ExtendDeadline(ctx context.Context, id string, req dto.ExtendDeadlineRequest) (*dto.ProjectDetail, error)
	AddVersion(ctx context.Context, id string, req dto.AddVersionRequest) (*models.ProjectVersion, error)
	ListVersions(ctx context.Context, id string) ([]models.ProjectVersion, error)
	History(ctx context.Context, id string) ([]models.HistoryEntry, error)
	AccessLogs(ctx context.Context, id string, limit int) ([]models.AccessLog, error)
}

// ProjectHandler exposes the back-office project endpoints.
type ProjectHandler struct {
	service projectService
}

// NewProjectHandler builds a new handler.
func NewProjectHandler(service projectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// Create godoc
// @Summary Create a project
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body dto.CreateProjectRequest true "Project payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid project payload"))
		return
	}

	detail, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// List godoc
// @Summary List projects
// @Tags Projects
// @Produce json
// @Param status query string false "Filter by status"
// @Param tier query string false "Filter by package tier"
// @Param search query string false "Search title or client"
// @Param sort_by query string false "Sort column"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /admin/projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := models.ProjectFilter{
		Search:    c.Query("search"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		s := models.ProjectStatus(status)
		filter.Status = &s
	}
	if tier := c.Query("tier"); tier != "" {
		t := models.PackageTier(tier)
		filter.Tier = &t
	}

	projects, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, projects, paginationMeta(page, pageSize, total))
}

// Get godoc
// @Summary Get project detail
// @Tags Projects
// @Produce json
// @Param id path string true "Project id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Update a project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project id"
// @Param payload body dto.UpdateProjectRequest true "Project payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid project payload"))
		return
	}

	detail, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete a project
// @Tags Projects
// @Produce json
// @Param id path string true "Project id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GenerateAccessCode godoc
// @Summary Generate a preview access code
// @Tags Projects
// @Produce json
// @Param id path string true "Project id"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/projects/{id}/access-code [post]
func (h *ProjectHandler) GenerateAccessCode(c *gin.Context) {
	res, err := h.service.GenerateAccessCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ExtendDeadline godoc
// @Summary Extend the preview deadline
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project id"
// @Param payload body dto.ExtendDeadlineRequest true "Deadline payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/projects/{id}/extend-deadline [post]
func (h *ProjectHandler) ExtendDeadline(c *gin.Context) {
	var req dto.ExtendDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid deadline payload"))
		return
	}

	detail, err := h.service.ExtendDeadline(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// AddVersion godoc
// @Summary Add an audio version
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project id"
// @Param payload body dto.AddVersionRequest true "Version payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/projects/{id}/versions [post]
func (h *ProjectHandler) AddVersion(c *gin.Context) {
	var req dto.AddVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid version payload"))
		return
	}

	version, err := h.service.AddVersion(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, version)
}

// ListVersions godoc
// @Summary List audio versions
// @Tags Projects
// @Produce json
// @Param id path string true "Project id"
// @Success 200 {object} response.Envelope
// @Router /admin/projects/{id}/versions [get]
func (h *ProjectHandler) ListVersions(c *gin.Context) {
	versions, err := h.service.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// History godoc
// @Summary Get project history
// @Tags Projects
// @Produce json
// @Param id path string true "Project id"
// @Success 200 {object} response.Envelope
// @Router /admin/projects/{id}/history [get]
func (h *ProjectHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// AccessLogs godoc
// @Summary Get preview access logs
// @Tags Projects
// @Produce json
// @Param id path string true "Project id"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /admin/projects/{id}/access-logs [get]
func (h *ProjectHandler) AccessLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	logs, err := h.service.AccessLogs(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

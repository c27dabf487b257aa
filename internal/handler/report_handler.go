package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-studio/harmonia-api/internal/models"
	"github.com/harmonia-studio/harmonia-api/internal/service"
	"github.com/harmonia-studio/harmonia-api/pkg/response"
)

type reportService interface {
	ExportLeadsCSV(ctx context.Context) (*service.ReportResult, error)
	ExportProjectsCSV(ctx context.Context, filter models.ProjectFilter) (*service.ReportResult, error)
	ProjectSummaryPDF(ctx context.Context, projectID string) (*service.ReportResult, error)
	OpenExport(token string) (*os.File, string, error)
}

// ReportHandler exposes export generation and signed downloads.
type ReportHandler struct {
	service reportService
}

// NewReportHandler builds a new handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// ExportLeads godoc
// @Summary Export leads as CSV
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/reports/leads [post]
func (h *ReportHandler) ExportLeads(c *gin.Context) {
	result, err := h.service.ExportLeadsCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportProjects godoc
// @Summary Export projects as CSV
// @Tags Reports
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /admin/reports/projects [post]
func (h *ReportHandler) ExportProjects(c *gin.Context) {
	filter := models.ProjectFilter{Search: c.Query("search")}
	if status := c.Query("status"); status != "" {
		s := models.ProjectStatus(status)
		filter.Status = &s
	}

	result, err := h.service.ExportProjectsCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ProjectSummary godoc
// @Summary Render a project summary PDF
// @Tags Reports
// @Produce json
// @Param id path string true "Project id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/reports/projects/{id}/summary [post]
func (h *ReportHandler) ProjectSummary(c *gin.Context) {
	result, err := h.service.ProjectSummaryPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download an export
// @Description Stream a previously generated export using its signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	file, relPath, err := h.service.OpenExport(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "application/octet-stream"
	switch filepath.Ext(relPath) {
	case ".csv":
		contentType = "text/csv"
	case ".pdf":
		contentType = "application/pdf"
	}

	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(relPath)+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}

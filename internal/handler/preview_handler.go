package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/service"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
	"github.com/harmonia-studio/harmonia-api/pkg/response"
)

type previewService interface {
	Authenticate(ctx context.Context, code string, req dto.AuthenticatePreviewRequest, meta service.RequestMeta) (*dto.AuthenticatePreviewResponse, error)
	Get(ctx context.Context, code, email string) (*dto.PreviewPayload, error)
	SubmitFeedback(ctx context.Context, code string, req dto.SubmitFeedbackRequest) (*dto.PreviewPayload, error)
	Approve(ctx context.Context, code string, req dto.ApproveRequest) (*dto.PreviewPayload, error)
	RevokeGrant(ctx context.Context, code string) error
}

// PreviewHandler exposes the public client preview endpoints. These routes
// are protected by access grants, not JWTs.
type PreviewHandler struct {
	service previewService
}

// NewPreviewHandler builds a new handler.
func NewPreviewHandler(service previewService) *PreviewHandler {
	return &PreviewHandler{service: service}
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

// Authenticate godoc
// @Summary Authenticate a preview session
// @Description Validate the access code and client email, opening a preview session
// @Tags Preview
// @Accept json
// @Produce json
// @Param code path string true "Access code"
// @Param payload body dto.AuthenticatePreviewRequest true "Claimed client email"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /preview/{code}/authenticate [post]
func (h *PreviewHandler) Authenticate(c *gin.Context) {
	var req dto.AuthenticatePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preview auth payload"))
		return
	}

	res, err := h.service.Authenticate(c.Request.Context(), c.Param("code"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Get godoc
// @Summary Get the preview payload
// @Description Return the project preview for an open session
// @Tags Preview
// @Produce json
// @Param code path string true "Access code"
// @Param X-Preview-Email header string true "Email the session was opened with"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /preview/{code} [get]
func (h *PreviewHandler) Get(c *gin.Context) {
	payload, err := h.service.Get(c.Request.Context(), c.Param("code"), c.GetHeader("X-Preview-Email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil)
}

// SubmitFeedback godoc
// @Summary Submit revision feedback
// @Description Record client feedback and move the project into revision
// @Tags Preview
// @Accept json
// @Produce json
// @Param code path string true "Access code"
// @Param payload body dto.SubmitFeedbackRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /preview/{code}/feedback [post]
func (h *PreviewHandler) SubmitFeedback(c *gin.Context) {
	var req dto.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}

	payload, err := h.service.SubmitFeedback(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, payload, nil)
}

// Approve godoc
// @Summary Approve the project
// @Description Mark the project approved, optionally with final remarks
// @Tags Preview
// @Accept json
// @Produce json
// @Param code path string true "Access code"
// @Param payload body dto.ApproveRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /preview/{code}/approve [post]
func (h *PreviewHandler) Approve(c *gin.Context) {
	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}

	payload, err := h.service.Approve(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, payload, nil)
}

// Logout godoc
// @Summary Close a preview session
// @Description Revoke the active access grant for the code
// @Tags Preview
// @Produce json
// @Param code path string true "Access code"
// @Success 204 {object} response.Envelope
// @Router /preview/{code}/session [delete]
func (h *PreviewHandler) Logout(c *gin.Context) {
	if err := h.service.RevokeGrant(c.Request.Context(), c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

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

type webhookService interface {
	SendTest(ctx context.Context, url string) (*dto.TestWebhookResponse, error)
	ListDeliveries(ctx context.Context, status *models.DeliveryStatus, page, pageSize int) ([]models.WebhookDelivery, int, error)
}

// WebhookHandler exposes webhook administration endpoints.
type WebhookHandler struct {
	service webhookService
}

// NewWebhookHandler builds a new handler.
func NewWebhookHandler(service webhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// SendTest godoc
// @Summary Send a test webhook
// @Description Post a probe event synchronously to the given URL
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param payload body dto.TestWebhookRequest true "Destination URL"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/webhooks/test [post]
func (h *WebhookHandler) SendTest(c *gin.Context) {
	var req dto.TestWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid webhook payload"))
		return
	}

	res, err := h.service.SendTest(c.Request.Context(), req.URL)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ListDeliveries godoc
// @Summary List webhook deliveries
// @Tags Webhooks
// @Produce json
// @Param status query string false "Filter by delivery status"
// @Success 200 {object} response.Envelope
// @Router /admin/webhooks/deliveries [get]
func (h *WebhookHandler) ListDeliveries(c *gin.Context) {
	page, pageSize := parsePagination(c)

	var status *models.DeliveryStatus
	if value := c.Query("status"); value != "" {
		s := models.DeliveryStatus(value)
		status = &s
	}

	deliveries, total, err := h.service.ListDeliveries(c.Request.Context(), status, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, deliveries, paginationMeta(page, pageSize, total))
}

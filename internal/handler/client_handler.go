package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-studio/harmonia-api/internal/models"
	"github.com/harmonia-studio/harmonia-api/pkg/response"
)

type clientService interface {
	List(ctx context.Context, search string, page, pageSize int) ([]models.Client, int, error)
	GetByEmail(ctx context.Context, email string) (*models.Client, []models.Project, error)
}

// ClientHandler exposes the back-office client directory.
type ClientHandler struct {
	service clientService
}

// NewClientHandler builds a new handler.
func NewClientHandler(service clientService) *ClientHandler {
	return &ClientHandler{service: service}
}

// List godoc
// @Summary List clients
// @Tags Clients
// @Produce json
// @Param search query string false "Search name or email"
// @Success 200 {object} response.Envelope
// @Router /admin/clients [get]
func (h *ClientHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)

	clients, total, err := h.service.List(c.Request.Context(), c.Query("search"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, clients, paginationMeta(page, pageSize, total))
}

// Get godoc
// @Summary Get a client with their projects
// @Tags Clients
// @Produce json
// @Param email path string true "Client email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/clients/{email} [get]
func (h *ClientHandler) Get(c *gin.Context) {
	client, projects, err := h.service.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"client":   client,
		"projects": projects,
	}, nil)
}

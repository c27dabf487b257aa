package handler

import (
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
	"github.com/harmonia-studio/harmonia-api/pkg/response"
)

type mediaService interface {
	Upload(projectID, filename string, size int64, r io.Reader) (*dto.MediaUploadResponse, error)
	Open(token string) (*os.File, string, error)
}

// MediaHandler stores version audio uploads and streams them back through
// signed tokens.
type MediaHandler struct {
	service mediaService
}

// NewMediaHandler builds a new handler.
func NewMediaHandler(service mediaService) *MediaHandler {
	return &MediaHandler{service: service}
}

// Upload godoc
// @Summary Upload an audio file for a project
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Project id"
// @Param file formData file true "Audio file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/projects/{id}/media [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "audio file required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	result, err := h.service.Upload(c.Param("id"), fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Stream godoc
// @Summary Stream an audio file
// @Description Stream a stored audio file using its signed token
// @Tags Media
// @Produce octet-stream
// @Param token path string true "Signed streaming token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /media/{token} [get]
func (h *MediaHandler) Stream(c *gin.Context) {
	file, contentType, err := h.service.Open(c.Param("token"))
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

	c.Header("Accept-Ranges", "bytes")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type briefingServiceMock struct {
	submitErr  error
	convertErr error
}

func (m *briefingServiceMock) Submit(ctx context.Context, req dto.SubmitBriefingRequest) (*models.Briefing, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &models.Briefing{ID: "briefing-1", ContactName: req.ContactName, Status: models.BriefingReceived}, nil
}

func (m *briefingServiceMock) Get(ctx context.Context, id string) (*models.Briefing, error) {
	return &models.Briefing{ID: id}, nil
}

func (m *briefingServiceMock) List(ctx context.Context, filter models.BriefingFilter) ([]models.Briefing, int, error) {
	return []models.Briefing{}, 0, nil
}

func (m *briefingServiceMock) UpdateStatus(ctx context.Context, id string, req dto.UpdateBriefingStatusRequest) (*models.Briefing, error) {
	return &models.Briefing{ID: id, Status: models.BriefingStatus(req.Status)}, nil
}

func (m *briefingServiceMock) Convert(ctx context.Context, id string, req dto.ConvertBriefingRequest) (*dto.ProjectDetail, error) {
	if m.convertErr != nil {
		return nil, m.convertErr
	}
	return &dto.ProjectDetail{Project: models.Project{ID: "project-1", Title: req.Title}}, nil
}

func briefingTestContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "briefing-1"}}
	return c, w
}

func TestBriefingHandlerSubmit(t *testing.T) {
	handler := NewBriefingHandler(&briefingServiceMock{})
	c, w := briefingTestContext(t, http.MethodPost, "/briefings", dto.SubmitBriefingRequest{
		ContactName: "Ana Souza",
		Email:       "ana.souza@example.com",
		Occasion:    "wedding",
		Recipient:   "Pedro",
		Style:       "acoustic",
		Mood:        "romantic",
		Story:       "We met at a small concert ten years ago and have danced ever since.",
		PackageTier: "professional",
	})

	handler.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "briefing-1")
}

func TestBriefingHandlerSubmitBadPayload(t *testing.T) {
	handler := NewBriefingHandler(&briefingServiceMock{})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/briefings", bytes.NewReader([]byte(`nope`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBriefingHandlerConvertConflict(t *testing.T) {
	mock := &briefingServiceMock{convertErr: appErrors.Clone(appErrors.ErrConflict, "briefing already converted")}
	handler := NewBriefingHandler(mock)
	c, w := briefingTestContext(t, http.MethodPost, "/briefings/briefing-1/convert", dto.ConvertBriefingRequest{Title: "Wedding Song"})

	handler.Convert(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CONFLICT")
}

func TestBriefingHandlerConvertSuccess(t *testing.T) {
	handler := NewBriefingHandler(&briefingServiceMock{})
	c, w := briefingTestContext(t, http.MethodPost, "/briefings/briefing-1/convert", dto.ConvertBriefingRequest{Title: "Wedding Song", ExpiryDays: 30})

	handler.Convert(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "project-1")
}

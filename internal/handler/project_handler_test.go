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
	"github.com/harmonia-studio/harmonia-api/internal/middleware"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type projectServiceMock struct {
	getErr     error
	deleteErr  error
	lastActor  *models.JWTClaims
	lastFilter models.ProjectFilter
}

func (m *projectServiceMock) Create(ctx context.Context, req dto.CreateProjectRequest) (*dto.ProjectDetail, error) {
	return &dto.ProjectDetail{Project: models.Project{ID: "project-1", Title: req.Title}}, nil
}

func (m *projectServiceMock) Get(ctx context.Context, id string) (*dto.ProjectDetail, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &dto.ProjectDetail{Project: models.Project{ID: id}}, nil
}

func (m *projectServiceMock) List(ctx context.Context, filter models.ProjectFilter) ([]dto.ProjectDetail, int, error) {
	m.lastFilter = filter
	return []dto.ProjectDetail{}, 0, nil
}

func (m *projectServiceMock) Update(ctx context.Context, id string, req dto.UpdateProjectRequest) (*dto.ProjectDetail, error) {
	return &dto.ProjectDetail{Project: models.Project{ID: id, Title: req.Title}}, nil
}

func (m *projectServiceMock) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	m.lastActor = actor
	return m.deleteErr
}

func (m *projectServiceMock) GenerateAccessCode(ctx context.Context, id string) (*dto.AccessCodeResponse, error) {
	return &dto.AccessCodeResponse{ProjectID: id, AccessCode: "P54321", PreviewURL: "/preview/P54321"}, nil
}

func (m *projectServiceMock) ExtendDeadline(ctx context.Context, id string, req dto.ExtendDeadlineRequest) (*dto.ProjectDetail, error) {
	return &dto.ProjectDetail{Project: models.Project{ID: id}}, nil
}

func (m *projectServiceMock) AddVersion(ctx context.Context, id string, req dto.AddVersionRequest) (*models.ProjectVersion, error) {
	return &models.ProjectVersion{ID: "version-1", ProjectID: id, Name: req.Name}, nil
}

func (m *projectServiceMock) ListVersions(ctx context.Context, id string) ([]models.ProjectVersion, error) {
	return []models.ProjectVersion{}, nil
}

func (m *projectServiceMock) History(ctx context.Context, id string) ([]models.HistoryEntry, error) {
	return []models.HistoryEntry{}, nil
}

func (m *projectServiceMock) AccessLogs(ctx context.Context, id string, limit int) ([]models.AccessLog, error) {
	return []models.AccessLog{}, nil
}

func projectTestContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
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
	c.Params = gin.Params{{Key: "id", Value: "project-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	return c, w
}

func TestProjectHandlerCreate(t *testing.T) {
	handler := NewProjectHandler(&projectServiceMock{})
	c, w := projectTestContext(t, http.MethodPost, "/projects", dto.CreateProjectRequest{
		Title:       "Wedding Song",
		ClientName:  "Ana Souza",
		ClientEmail: "ana.souza@example.com",
		PackageTier: "premium",
	})

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Wedding Song")
}

func TestProjectHandlerCreateBadPayload(t *testing.T) {
	handler := NewProjectHandler(&projectServiceMock{})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/projects", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectHandlerListParsesFilters(t *testing.T) {
	mock := &projectServiceMock{}
	handler := NewProjectHandler(mock)
	c, w := projectTestContext(t, http.MethodGet, "/projects?status=feedback&tier=premium&page=2&page_size=10", nil)
	c.Request.URL.RawQuery = "status=feedback&tier=premium&page=2&page_size=10"

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.lastFilter.Status)
	assert.Equal(t, models.StatusFeedback, *mock.lastFilter.Status)
	require.NotNil(t, mock.lastFilter.Tier)
	assert.Equal(t, 2, mock.lastFilter.Page)
	assert.Equal(t, 10, mock.lastFilter.PageSize)
}

func TestProjectHandlerGetNotFound(t *testing.T) {
	mock := &projectServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "project not found")}
	handler := NewProjectHandler(mock)
	c, w := projectTestContext(t, http.MethodGet, "/projects/project-1", nil)

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjectHandlerDeletePassesActor(t *testing.T) {
	mock := &projectServiceMock{}
	handler := NewProjectHandler(mock)
	c, w := projectTestContext(t, http.MethodDelete, "/projects/project-1", nil)

	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, mock.lastActor)
	assert.Equal(t, "admin", mock.lastActor.UserID)
}

func TestProjectHandlerGenerateAccessCode(t *testing.T) {
	handler := NewProjectHandler(&projectServiceMock{})
	c, w := projectTestContext(t, http.MethodPost, "/projects/project-1/code", nil)

	handler.GenerateAccessCode(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "P54321")
}

func TestProjectHandlerExtendDeadlineBadPayload(t *testing.T) {
	handler := NewProjectHandler(&projectServiceMock{})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/projects/project-1/deadline", bytes.NewReader([]byte(`oops`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.ExtendDeadline(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

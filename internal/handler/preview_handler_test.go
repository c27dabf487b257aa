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
	"github.com/harmonia-studio/harmonia-api/internal/service"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type previewServiceMock struct {
	authErr     error
	getErr      error
	feedbackErr error
	approveErr  error
	lastCode    string
	lastMeta    service.RequestMeta
}

func (m *previewServiceMock) Authenticate(ctx context.Context, code string, req dto.AuthenticatePreviewRequest, meta service.RequestMeta) (*dto.AuthenticatePreviewResponse, error) {
	m.lastCode = code
	m.lastMeta = meta
	if m.authErr != nil {
		return nil, m.authErr
	}
	return &dto.AuthenticatePreviewResponse{
		Preview: dto.PreviewPayload{ProjectID: "project-1", Title: "Wedding Song"},
	}, nil
}

func (m *previewServiceMock) Get(ctx context.Context, code, email string) (*dto.PreviewPayload, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &dto.PreviewPayload{ProjectID: "project-1"}, nil
}

func (m *previewServiceMock) SubmitFeedback(ctx context.Context, code string, req dto.SubmitFeedbackRequest) (*dto.PreviewPayload, error) {
	if m.feedbackErr != nil {
		return nil, m.feedbackErr
	}
	return &dto.PreviewPayload{ProjectID: "project-1", Feedback: req.Feedback}, nil
}

func (m *previewServiceMock) Approve(ctx context.Context, code string, req dto.ApproveRequest) (*dto.PreviewPayload, error) {
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	return &dto.PreviewPayload{ProjectID: "project-1"}, nil
}

func (m *previewServiceMock) RevokeGrant(ctx context.Context, code string) error {
	return nil
}

func previewTestContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
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
	c.Params = gin.Params{{Key: "code", Value: "P12345"}}
	return c, w
}

func TestPreviewHandlerAuthenticateSuccess(t *testing.T) {
	mock := &previewServiceMock{}
	handler := NewPreviewHandler(mock)
	c, w := previewTestContext(t, http.MethodPost, "/preview/P12345/authenticate", dto.AuthenticatePreviewRequest{Email: "ana.souza@example.com"})

	handler.Authenticate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "P12345", mock.lastCode)
	assert.Contains(t, w.Body.String(), "project-1")
}

func TestPreviewHandlerAuthenticateBadPayload(t *testing.T) {
	handler := NewPreviewHandler(&previewServiceMock{})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/preview/P12345/authenticate", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Authenticate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewHandlerAuthenticateEmailMismatch(t *testing.T) {
	mock := &previewServiceMock{authErr: appErrors.ErrEmailMismatch}
	handler := NewPreviewHandler(mock)
	c, w := previewTestContext(t, http.MethodPost, "/preview/P12345/authenticate", dto.AuthenticatePreviewRequest{Email: "other@example.com"})

	handler.Authenticate(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "EMAIL_MISMATCH")
}

func TestPreviewHandlerGetExpired(t *testing.T) {
	mock := &previewServiceMock{getErr: appErrors.ErrPreviewExpired}
	handler := NewPreviewHandler(mock)
	c, w := previewTestContext(t, http.MethodGet, "/preview/P12345", nil)

	handler.Get(c)
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestPreviewHandlerFeedbackWithoutSession(t *testing.T) {
	mock := &previewServiceMock{feedbackErr: appErrors.ErrGrantRequired}
	handler := NewPreviewHandler(mock)
	c, w := previewTestContext(t, http.MethodPost, "/preview/P12345/feedback", dto.SubmitFeedbackRequest{
		Email:    "ana.souza@example.com",
		Feedback: "Trocar o refrão",
	})

	handler.SubmitFeedback(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPreviewHandlerApproveSuccess(t *testing.T) {
	handler := NewPreviewHandler(&previewServiceMock{})
	c, w := previewTestContext(t, http.MethodPost, "/preview/P12345/approve", dto.ApproveRequest{Email: "ana.souza@example.com"})

	handler.Approve(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPreviewHandlerLogout(t *testing.T) {
	handler := NewPreviewHandler(&previewServiceMock{})
	c, w := previewTestContext(t, http.MethodDelete, "/preview/P12345/session", nil)

	handler.Logout(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
}

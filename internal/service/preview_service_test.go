package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/grantstore"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	"github.com/harmonia-studio/harmonia-api/pkg/config"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type previewProjectStub struct {
	projects map[string]*models.Project
	statuses []models.ProjectStatus
	entries  []*models.HistoryEntry
	err      error
}

func (s *previewProjectStub) FindByID(ctx context.Context, id string) (*models.Project, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.projects {
		if p.ID == id {
			copied := *p
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *previewProjectStub) FindByAccessCode(ctx context.Context, code string) (*models.Project, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.projects[code]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *previewProjectStub) UpdateStatus(ctx context.Context, id string, status models.ProjectStatus, feedback *string, entry *models.HistoryEntry) error {
	if s.err != nil {
		return s.err
	}
	s.statuses = append(s.statuses, status)
	s.entries = append(s.entries, entry)
	for _, p := range s.projects {
		if p.ID == id {
			p.Status = status
			if feedback != nil {
				p.Feedback = feedback
			}
		}
	}
	return nil
}

type versionReaderStub struct {
	versions []models.ProjectVersion
}

func (s *versionReaderStub) ListByProject(ctx context.Context, projectID string) ([]models.ProjectVersion, error) {
	return s.versions, nil
}

type accessLogStub struct {
	logs []*models.AccessLog
}

func (s *accessLogStub) Append(ctx context.Context, log *models.AccessLog) error {
	s.logs = append(s.logs, log)
	return nil
}

type emitterStub struct {
	events []string
}

func (s *emitterStub) Emit(ctx context.Context, eventType string, data map[string]interface{}) {
	s.events = append(s.events, eventType)
}

func newPreviewFixture(project *models.Project) (*PreviewService, *previewProjectStub, *accessLogStub, *emitterStub, *grantstore.MemoryStore) {
	code := "P12345"
	if project.AccessCode != nil {
		code = *project.AccessCode
	}
	projects := &previewProjectStub{projects: map[string]*models.Project{code: project}}
	logs := &accessLogStub{}
	emitter := &emitterStub{}
	grants := grantstore.NewMemoryStore()
	svc := NewPreviewService(projects, &versionReaderStub{}, logs, grants, nil, emitter, validator.New(), nil, config.PreviewConfig{GrantTTL: 14 * 24 * time.Hour})
	return svc, projects, logs, emitter, grants
}

func futureTime(d time.Duration) *time.Time {
	t := time.Now().UTC().Add(d)
	return &t
}

func TestPreviewAuthenticateCaseInsensitiveEmail(t *testing.T) {
	project := &models.Project{
		ID:          "project-1",
		Title:       "Wedding theme",
		ClientEmail: "Ana.Souza@Example.com",
		Status:      models.StatusWaiting,
		ExpiresAt:   futureTime(48 * time.Hour),
	}
	svc, _, logs, _, _ := newPreviewFixture(project)

	resp, err := svc.Authenticate(context.Background(), "P12345", dto.AuthenticatePreviewRequest{Email: "  ANA.SOUZA@example.COM  "}, RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "project-1", resp.Grant.ProjectID)
	require.Len(t, logs.logs, 1)
	assert.Equal(t, models.AccessGranted, logs.logs[0].Outcome)
}

func TestPreviewAuthenticateEmailMismatch(t *testing.T) {
	project := &models.Project{
		ID:          "project-1",
		ClientEmail: "ana@example.com",
		Status:      models.StatusWaiting,
	}
	svc, _, logs, _, _ := newPreviewFixture(project)

	_, err := svc.Authenticate(context.Background(), "P12345", dto.AuthenticatePreviewRequest{Email: "outra@example.com"}, RequestMeta{})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrEmailMismatch)
	assert.Equal(t, "Email não corresponde ao cadastrado para este projeto", appErrors.FromError(err).Message)
	require.Len(t, logs.logs, 1)
	assert.Equal(t, models.AccessEmailMismatch, logs.logs[0].Outcome)
}

func TestPreviewAuthenticateUnknownCode(t *testing.T) {
	svc, _, logs, _, _ := newPreviewFixture(&models.Project{ID: "project-1", ClientEmail: "ana@example.com"})

	_, err := svc.Authenticate(context.Background(), "P99999", dto.AuthenticatePreviewRequest{Email: "ana@example.com"}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.Len(t, logs.logs, 1)
	assert.Equal(t, models.AccessNotFound, logs.logs[0].Outcome)
	assert.Nil(t, logs.logs[0].ProjectID)
}

func TestPreviewAuthenticateExpiredProject(t *testing.T) {
	project := &models.Project{
		ID:          "project-1",
		ClientEmail: "ana@example.com",
		Status:      models.StatusWaiting,
		ExpiresAt:   futureTime(-time.Hour),
	}
	svc, _, logs, _, _ := newPreviewFixture(project)

	_, err := svc.Authenticate(context.Background(), "P12345", dto.AuthenticatePreviewRequest{Email: "ana@example.com"}, RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrPreviewExpired)
	require.Len(t, logs.logs, 1)
	assert.Equal(t, models.AccessExpired, logs.logs[0].Outcome)
}

func TestPreviewAuthenticateLegacyEncodedLink(t *testing.T) {
	project := &models.Project{
		ID:          "project-1",
		ClientEmail: "ana@example.com",
		Status:      models.StatusWaiting,
	}
	svc, _, _, _, _ := newPreviewFixture(project)

	encoded := base64.RawURLEncoding.EncodeToString([]byte("project-1"))
	resp, err := svc.Authenticate(context.Background(), encoded, dto.AuthenticatePreviewRequest{Email: "ana@example.com"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "project-1", resp.Grant.ProjectID)
}

func TestPreviewFeedbackRequiresGrant(t *testing.T) {
	project := &models.Project{
		ID:          "project-1",
		ClientEmail: "ana@example.com",
		Status:      models.StatusWaiting,
	}
	svc, projects, _, emitter, _ := newPreviewFixture(project)

	_, err := svc.SubmitFeedback(context.Background(), "P12345", dto.SubmitFeedbackRequest{Email: "ana@example.com", Feedback: "Trocar o refrão"})
	assert.ErrorIs(t, err, appErrors.ErrGrantRequired)
	assert.Empty(t, projects.statuses)
	assert.Empty(t, emitter.events)
}

func TestPreviewFeedbackMovesStatusAndNotifies(t *testing.T) {
	project := &models.Project{
		ID:          "project-1",
		Title:       "Wedding theme",
		ClientEmail: "ana@example.com",
		Status:      models.StatusWaiting,
	}
	svc, projects, _, emitter, grants := newPreviewFixture(project)
	_, err := grants.Put(context.Background(), "project-1", "ana@example.com", time.Hour)
	require.NoError(t, err)

	payload, err := svc.SubmitFeedback(context.Background(), "P12345", dto.SubmitFeedbackRequest{Email: "ana@example.com", Feedback: "Trocar o refrão"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFeedback, payload.Status)
	assert.Equal(t, "Trocar o refrão", payload.Feedback)
	require.Len(t, projects.statuses, 1)
	assert.Equal(t, models.StatusFeedback, projects.statuses[0])
	require.Len(t, projects.entries, 1)
	assert.Equal(t, models.HistoryFeedbackReceived, projects.entries[0].Action)
	assert.Equal(t, []string{models.EventFeedbackReceived}, emitter.events)
}

func TestPreviewFeedbackAfterApprovalLastWriteWins(t *testing.T) {
	project := &models.Project{
		ID:          "project-1",
		Title:       "Wedding theme",
		ClientEmail: "ana@example.com",
		Status:      models.StatusApproved,
	}
	svc, projects, _, emitter, grants := newPreviewFixture(project)
	_, err := grants.Put(context.Background(), "project-1", "ana@example.com", time.Hour)
	require.NoError(t, err)

	payload, err := svc.SubmitFeedback(context.Background(), "P12345", dto.SubmitFeedbackRequest{Email: "ana@example.com", Feedback: "Afinal, trocar a ponte"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFeedback, payload.Status)
	require.Len(t, projects.statuses, 1)
	assert.Equal(t, models.StatusFeedback, projects.statuses[0])
	assert.Equal(t, []string{models.EventFeedbackReceived}, emitter.events)
}

func TestPreviewApproveIsIdempotent(t *testing.T) {
	project := &models.Project{
		ID:          "project-1",
		Title:       "Wedding theme",
		ClientEmail: "ana@example.com",
		Status:      models.StatusFeedback,
	}
	svc, projects, _, emitter, grants := newPreviewFixture(project)
	_, err := grants.Put(context.Background(), "project-1", "ana@example.com", time.Hour)
	require.NoError(t, err)

	payload, err := svc.Approve(context.Background(), "P12345", dto.ApproveRequest{Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, payload.Status)

	payload, err = svc.Approve(context.Background(), "P12345", dto.ApproveRequest{Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, payload.Status)

	assert.Len(t, projects.statuses, 1)
	assert.Equal(t, []string{models.EventProjectApproved}, emitter.events)
}

func TestPreviewGetRequiresGrant(t *testing.T) {
	project := &models.Project{
		ID:          "project-1",
		ClientEmail: "ana@example.com",
		Status:      models.StatusWaiting,
	}
	svc, _, _, _, grants := newPreviewFixture(project)

	_, err := svc.Get(context.Background(), "P12345", "ana@example.com")
	assert.ErrorIs(t, err, appErrors.ErrGrantRequired)

	_, err = grants.Put(context.Background(), "project-1", "ana@example.com", time.Hour)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "P12345", "someone-else@example.com")
	assert.ErrorIs(t, err, appErrors.ErrEmailMismatch)

	payload, err := svc.Get(context.Background(), "P12345", "Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "project-1", payload.ProjectID)
}

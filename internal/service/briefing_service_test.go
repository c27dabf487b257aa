package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type briefingRepoStub struct {
	briefings map[string]*models.Briefing
	err       error
	converted map[string]string
}

func newBriefingRepoStub(briefings ...*models.Briefing) *briefingRepoStub {
	stub := &briefingRepoStub{
		briefings: make(map[string]*models.Briefing),
		converted: make(map[string]string),
	}
	for _, b := range briefings {
		stub.briefings[b.ID] = b
	}
	return stub
}

func (s *briefingRepoStub) Create(ctx context.Context, briefing *models.Briefing) error {
	if s.err != nil {
		return s.err
	}
	if briefing.ID == "" {
		briefing.ID = "briefing-1"
	}
	s.briefings[briefing.ID] = briefing
	return nil
}

func (s *briefingRepoStub) FindByID(ctx context.Context, id string) (*models.Briefing, error) {
	if s.err != nil {
		return nil, s.err
	}
	briefing, ok := s.briefings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return briefing, nil
}

func (s *briefingRepoStub) List(ctx context.Context, filter models.BriefingFilter) ([]models.Briefing, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	result := make([]models.Briefing, 0, len(s.briefings))
	for _, b := range s.briefings {
		result = append(result, *b)
	}
	return result, len(result), nil
}

func (s *briefingRepoStub) UpdateStatus(ctx context.Context, id string, status models.BriefingStatus) error {
	if s.err != nil {
		return s.err
	}
	briefing, ok := s.briefings[id]
	if !ok {
		return sql.ErrNoRows
	}
	briefing.Status = status
	return nil
}

func (s *briefingRepoStub) MarkConverted(ctx context.Context, id, projectID string) error {
	if s.err != nil {
		return s.err
	}
	briefing, ok := s.briefings[id]
	if !ok {
		return sql.ErrNoRows
	}
	briefing.Status = models.BriefingConverted
	briefing.ProjectID = &projectID
	s.converted[id] = projectID
	return nil
}

type projectCreatorStub struct {
	created  []dto.CreateProjectRequest
	codesFor []string
	err      error
}

func (s *projectCreatorStub) Create(ctx context.Context, req dto.CreateProjectRequest) (*dto.ProjectDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, req)
	return &dto.ProjectDetail{Project: models.Project{ID: "project-1", Title: req.Title, ClientEmail: req.ClientEmail}}, nil
}

func (s *projectCreatorStub) GenerateAccessCode(ctx context.Context, id string) (*dto.AccessCodeResponse, error) {
	s.codesFor = append(s.codesFor, id)
	return &dto.AccessCodeResponse{ProjectID: id, AccessCode: "P98765"}, nil
}

func validBriefingSubmission() dto.SubmitBriefingRequest {
	return dto.SubmitBriefingRequest{
		ContactName: "  Ana Souza ",
		Email:       " Ana.Souza@Example.COM ",
		Occasion:    "wedding",
		Recipient:   "Pedro",
		Style:       "acoustic",
		Mood:        "romantic",
		Story:       "We met at a small concert ten years ago and have danced ever since.",
		PackageTier: "professional",
	}
}

func TestBriefingSubmitNormalizesAndNotifies(t *testing.T) {
	repo := newBriefingRepoStub()
	emitter := &emitterStub{}
	svc := NewBriefingService(repo, &projectCreatorStub{}, emitter, nil, nil)

	briefing, err := svc.Submit(context.Background(), validBriefingSubmission())
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", briefing.ContactName)
	assert.Equal(t, "ana.souza@example.com", briefing.Email)
	assert.Equal(t, models.BriefingReceived, briefing.Status)
	require.Len(t, emitter.events, 1)
	assert.Equal(t, models.EventBriefingReceived, emitter.events[0])
}

func TestBriefingSubmitRejectsShortStory(t *testing.T) {
	req := validBriefingSubmission()
	req.Story = "too short"
	svc := NewBriefingService(newBriefingRepoStub(), &projectCreatorStub{}, &emitterStub{}, nil, nil)

	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBriefingConvertCreatesProjectAndLinks(t *testing.T) {
	briefing := &models.Briefing{
		ID:          "briefing-1",
		ContactName: "Ana Souza",
		Email:       "ana.souza@example.com",
		PackageTier: models.PackageTier("professional"),
		Status:      models.BriefingInReview,
	}
	repo := newBriefingRepoStub(briefing)
	creator := &projectCreatorStub{}
	svc := NewBriefingService(repo, creator, &emitterStub{}, nil, nil)

	detail, err := svc.Convert(context.Background(), "briefing-1", dto.ConvertBriefingRequest{Title: "Wedding Song", ExpiryDays: 45})
	require.NoError(t, err)
	assert.Equal(t, "project-1", detail.ID)
	assert.Equal(t, []string{"project-1"}, creator.codesFor)
	require.NotNil(t, detail.AccessCode)
	assert.Equal(t, "P98765", *detail.AccessCode)

	require.Len(t, creator.created, 1)
	created := creator.created[0]
	assert.Equal(t, "Wedding Song", created.Title)
	assert.Equal(t, "ana.souza@example.com", created.ClientEmail)
	assert.Equal(t, "professional", created.PackageTier)
	require.NotNil(t, created.ExpiresAt)

	assert.Equal(t, models.BriefingConverted, briefing.Status)
	assert.Equal(t, "project-1", repo.converted["briefing-1"])
}

func TestBriefingConvertRejectsAlreadyConverted(t *testing.T) {
	briefing := &models.Briefing{ID: "briefing-1", Status: models.BriefingConverted}
	creator := &projectCreatorStub{}
	svc := NewBriefingService(newBriefingRepoStub(briefing), creator, &emitterStub{}, nil, nil)

	_, err := svc.Convert(context.Background(), "briefing-1", dto.ConvertBriefingRequest{Title: "Again"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, creator.created)
}

func TestBriefingUpdateStatusFreezesConverted(t *testing.T) {
	briefing := &models.Briefing{ID: "briefing-1", Status: models.BriefingConverted}
	svc := NewBriefingService(newBriefingRepoStub(briefing), &projectCreatorStub{}, &emitterStub{}, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "briefing-1", dto.UpdateBriefingStatusRequest{Status: "in_review"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestBriefingConvertMissingBriefing(t *testing.T) {
	svc := NewBriefingService(newBriefingRepoStub(), &projectCreatorStub{}, &emitterStub{}, nil, nil)

	_, err := svc.Convert(context.Background(), "nope", dto.ConvertBriefingRequest{Title: "Ghost"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

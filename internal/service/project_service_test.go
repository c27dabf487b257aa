package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	"github.com/harmonia-studio/harmonia-api/pkg/config"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

type adminProjectRepoStub struct {
	projects    map[string]*models.Project
	byCode      map[string]*models.Project
	accessCodes map[string]string
	expiries    map[string]time.Time
	err         error
}

func newAdminProjectRepoStub(projects ...*models.Project) *adminProjectRepoStub {
	stub := &adminProjectRepoStub{
		projects:    make(map[string]*models.Project),
		byCode:      make(map[string]*models.Project),
		accessCodes: make(map[string]string),
		expiries:    make(map[string]time.Time),
	}
	for _, p := range projects {
		stub.projects[p.ID] = p
		if p.AccessCode != nil {
			stub.byCode[*p.AccessCode] = p
		}
	}
	return stub
}

func (s *adminProjectRepoStub) Create(ctx context.Context, project *models.Project) error {
	if s.err != nil {
		return s.err
	}
	if project.ID == "" {
		project.ID = "project-1"
	}
	s.projects[project.ID] = project
	return nil
}

func (s *adminProjectRepoStub) FindByID(ctx context.Context, id string) (*models.Project, error) {
	if s.err != nil {
		return nil, s.err
	}
	project, ok := s.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return project, nil
}

func (s *adminProjectRepoStub) FindByAccessCode(ctx context.Context, code string) (*models.Project, error) {
	if s.err != nil {
		return nil, s.err
	}
	project, ok := s.byCode[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return project, nil
}

func (s *adminProjectRepoStub) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	result := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		result = append(result, *p)
	}
	return result, len(result), nil
}

func (s *adminProjectRepoStub) Update(ctx context.Context, project *models.Project) error {
	if _, ok := s.projects[project.ID]; !ok {
		return sql.ErrNoRows
	}
	s.projects[project.ID] = project
	return nil
}

func (s *adminProjectRepoStub) SetAccessCode(ctx context.Context, id, code string) error {
	project, ok := s.projects[id]
	if !ok {
		return sql.ErrNoRows
	}
	project.AccessCode = &code
	s.byCode[code] = project
	s.accessCodes[id] = code
	return nil
}

func (s *adminProjectRepoStub) SetExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	if _, ok := s.projects[id]; !ok {
		return sql.ErrNoRows
	}
	s.expiries[id] = expiresAt
	return nil
}

func (s *adminProjectRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.projects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.projects, id)
	return nil
}

type versionWriterStub struct {
	versions []*models.ProjectVersion
	err      error
}

func (s *versionWriterStub) Create(ctx context.Context, version *models.ProjectVersion) error {
	if s.err != nil {
		return s.err
	}
	if version.ID == "" {
		version.ID = "version-1"
	}
	s.versions = append(s.versions, version)
	return nil
}

func (s *versionWriterStub) ListByProject(ctx context.Context, projectID string) ([]models.ProjectVersion, error) {
	result := make([]models.ProjectVersion, 0, len(s.versions))
	for _, v := range s.versions {
		if v.ProjectID == projectID {
			result = append(result, *v)
		}
	}
	return result, nil
}

type historyLoggerStub struct {
	entries []*models.HistoryEntry
}

func (s *historyLoggerStub) Append(ctx context.Context, entry *models.HistoryEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *historyLoggerStub) ListByProject(ctx context.Context, projectID string) ([]models.HistoryEntry, error) {
	result := make([]models.HistoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.ProjectID == projectID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (s *historyLoggerStub) actions() []string {
	actions := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

type accessLogReaderStub struct {
	logs []models.AccessLog
}

func (s *accessLogReaderStub) ListByProject(ctx context.Context, projectID string, limit int) ([]models.AccessLog, error) {
	return s.logs, nil
}

type clientUpserterStub struct {
	upserted []*models.Client
	err      error
}

func (s *clientUpserterStub) Upsert(ctx context.Context, client *models.Client) error {
	if s.err != nil {
		return s.err
	}
	s.upserted = append(s.upserted, client)
	return nil
}

type expirySettingsStub struct {
	days int
}

func (s *expirySettingsStub) PreviewExpiryDays(ctx context.Context) (int, error) {
	return s.days, nil
}

type projectFixture struct {
	svc      *ProjectService
	projects *adminProjectRepoStub
	versions *versionWriterStub
	history  *historyLoggerStub
	clients  *clientUpserterStub
	emitter  *emitterStub
}

func newProjectFixture(projects ...*models.Project) *projectFixture {
	f := &projectFixture{
		projects: newAdminProjectRepoStub(projects...),
		versions: &versionWriterStub{},
		history:  &historyLoggerStub{},
		clients:  &clientUpserterStub{},
		emitter:  &emitterStub{},
	}
	f.svc = NewProjectService(
		f.projects, f.versions, f.history, &accessLogReaderStub{},
		f.clients, &expirySettingsStub{days: 30}, nil, f.emitter, nil,
		nil, nil,
		config.PreviewConfig{CodeLength: 5, CodeAttempts: 5},
		ProjectServiceConfig{PreviewBaseURL: "https://harmonia.example.com"},
	)
	return f
}

func TestProjectCreateComputesExpiryFromSettings(t *testing.T) {
	f := newProjectFixture()

	detail, err := f.svc.Create(context.Background(), dto.CreateProjectRequest{
		Title:       "Wedding Song",
		ClientName:  "Ana Souza",
		ClientEmail: " Ana.Souza@Example.com ",
		PackageTier: "premium",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusWaiting, detail.Status)
	assert.Equal(t, "ana.souza@example.com", detail.ClientEmail)
	require.NotNil(t, detail.ExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), *detail.ExpiresAt, time.Minute)

	require.Len(t, f.clients.upserted, 1)
	assert.Equal(t, "ana.souza@example.com", f.clients.upserted[0].Email)
	assert.Equal(t, []string{models.HistoryProjectCreated}, f.history.actions())
	assert.Equal(t, []string{models.EventProjectCreated}, f.emitter.events)
}

func TestProjectCreateHonorsExplicitExpiry(t *testing.T) {
	f := newProjectFixture()
	explicit := time.Now().UTC().AddDate(0, 0, 90)

	detail, err := f.svc.Create(context.Background(), dto.CreateProjectRequest{
		Title:       "Anniversary Song",
		ClientName:  "Ana Souza",
		ClientEmail: "ana.souza@example.com",
		PackageTier: "essential",
		ExpiresAt:   &explicit,
	})
	require.NoError(t, err)
	require.NotNil(t, detail.ExpiresAt)
	assert.Equal(t, explicit, *detail.ExpiresAt)
}

func TestProjectGenerateAccessCodeFormat(t *testing.T) {
	project := &models.Project{ID: "project-1", Title: "Wedding Song"}
	f := newProjectFixture(project)

	resp, err := f.svc.GenerateAccessCode(context.Background(), "project-1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^P\d{5}$`), resp.AccessCode)
	assert.Equal(t, "https://harmonia.example.com/preview/"+resp.AccessCode, resp.PreviewURL)
	assert.Equal(t, resp.AccessCode, f.projects.accessCodes["project-1"])
	assert.Equal(t, []string{models.HistoryCodeGenerated}, f.history.actions())
}

func TestProjectExtendDeadlineAnchorsOnCurrentExpiry(t *testing.T) {
	current := time.Now().UTC().AddDate(0, 0, 10)
	project := &models.Project{ID: "project-1", Title: "Wedding Song", ExpiresAt: &current}
	f := newProjectFixture(project)

	detail, err := f.svc.ExtendDeadline(context.Background(), "project-1", dto.ExtendDeadlineRequest{Days: 5})
	require.NoError(t, err)

	want := current.AddDate(0, 0, 5)
	require.NotNil(t, detail.ExpiresAt)
	assert.Equal(t, want, *detail.ExpiresAt)
	assert.Equal(t, want, f.projects.expiries["project-1"])
	assert.Equal(t, []string{models.EventDeadlineExtended}, f.emitter.events)
}

func TestProjectExtendDeadlineAnchorsOnNowWhenLapsed(t *testing.T) {
	past := time.Now().UTC().AddDate(0, 0, -10)
	project := &models.Project{ID: "project-1", Title: "Wedding Song", ExpiresAt: &past}
	f := newProjectFixture(project)

	detail, err := f.svc.ExtendDeadline(context.Background(), "project-1", dto.ExtendDeadlineRequest{Days: 7})
	require.NoError(t, err)
	require.NotNil(t, detail.ExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 7), *detail.ExpiresAt, time.Minute)
}

func TestProjectAddVersionRecordsHistoryAndEvent(t *testing.T) {
	project := &models.Project{ID: "project-1", Title: "Wedding Song"}
	f := newProjectFixture(project)

	version, err := f.svc.AddVersion(context.Background(), "project-1", dto.AddVersionRequest{
		Name:        "Versão 2 - refrão novo",
		AudioURL:    "https://cdn.example.com/audio/v2.mp3",
		Recommended: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "project-1", version.ProjectID)
	assert.True(t, version.Recommended)
	assert.Equal(t, []string{models.HistoryVersionAdded}, f.history.actions())
	assert.Equal(t, []string{models.EventVersionAdded}, f.emitter.events)
}

func TestProjectGetMissing(t *testing.T) {
	f := newProjectFixture()

	_, err := f.svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProjectDeleteWritesAudit(t *testing.T) {
	project := &models.Project{ID: "project-1", Title: "Wedding Song", ClientEmail: "ana.souza@example.com"}
	f := newProjectFixture(project)
	audit := &auditLoggerStub{}
	f.svc.audit = audit

	actorID := "user-1"
	err := f.svc.Delete(context.Background(), "project-1", &models.JWTClaims{UserID: actorID})
	require.NoError(t, err)
	assert.NotContains(t, f.projects.projects, "project-1")
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionProjectDelete, audit.logs[0].Action)
	require.NotNil(t, audit.logs[0].UserID)
	assert.Equal(t, actorID, *audit.logs[0].UserID)
}

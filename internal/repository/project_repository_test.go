package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

func newProjectRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func strPtr(value string) *string {
	return &value
}

func TestProjectRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()

	repo := NewProjectRepository(db)
	mock.ExpectExec("INSERT INTO projects").
		WillReturnResult(sqlmock.NewResult(1, 1))

	project := &models.Project{
		Title:       "Wedding theme",
		ClientName:  "Ana Souza",
		ClientEmail: "ana@example.com",
		PackageTier: models.TierProfessional,
	}
	require.NoError(t, repo.Create(context.Background(), project))
	assert.NotEmpty(t, project.ID)
	assert.Equal(t, models.StatusWaiting, project.Status)
}

func TestProjectRepositoryFindByAccessCode(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()

	repo := NewProjectRepository(db)
	rows := sqlmock.NewRows([]string{"id", "title", "client_email", "status", "access_code"}).
		AddRow("project-1", "Wedding theme", "ana@example.com", "waiting", "P12345")
	mock.ExpectQuery("SELECT (.+) FROM projects WHERE access_code").
		WithArgs("P12345").
		WillReturnRows(rows)

	project, err := repo.FindByAccessCode(context.Background(), "P12345")
	require.NoError(t, err)
	assert.Equal(t, "project-1", project.ID)
	assert.Equal(t, "ana@example.com", project.ClientEmail)
}

func TestProjectRepositoryFindByAccessCodeNotFound(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()

	repo := NewProjectRepository(db)
	mock.ExpectQuery("SELECT (.+) FROM projects WHERE access_code").
		WithArgs("P99999").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByAccessCode(context.Background(), "P99999")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestProjectRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()

	repo := NewProjectRepository(db)
	status := models.StatusFeedback
	rows := sqlmock.NewRows([]string{"id", "title", "status"}).
		AddRow("project-1", "Wedding theme", "feedback")
	mock.ExpectQuery("SELECT (.+) FROM projects WHERE 1=1 AND status").
		WithArgs("feedback").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("feedback").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	projects, total, err := repo.List(context.Background(), models.ProjectFilter{Status: &status, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, projects, 1)
	assert.Equal(t, models.StatusFeedback, projects[0].Status)
}

func TestProjectRepositoryUpdateStatusWritesHistoryAtomically(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()

	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE projects SET status").
		WithArgs("project-1", "feedback", "Trocar o refrão", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO project_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry := &models.HistoryEntry{ProjectID: "project-1", Action: models.HistoryFeedbackReceived}
	err := repo.UpdateStatus(context.Background(), "project-1", models.StatusFeedback, strPtr("Trocar o refrão"), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepositoryUpdateStatusRollsBackOnMissingProject(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()

	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE projects SET status").
		WithArgs("absent", "approved", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), "absent", models.StatusApproved, nil, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepositorySetExpiry(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()

	repo := NewProjectRepository(db)
	expiresAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE projects SET expires_at").
		WithArgs("project-1", expiresAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetExpiry(context.Background(), "project-1", expiresAt))
}

package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-studio/harmonia-api/internal/models"
)

func newBriefingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestBriefingRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newBriefingRepoMock(t)
	defer cleanup()

	repo := NewBriefingRepository(db)
	mock.ExpectExec("INSERT INTO briefings").
		WillReturnResult(sqlmock.NewResult(1, 1))

	briefing := &models.Briefing{
		ContactName: "Ana Souza",
		Email:       "ana@example.com",
		Occasion:    "casamento",
		Recipient:   "noivos",
		Style:       "MPB",
		Mood:        "emotivo",
		Story:       "Nos conhecemos em um show de bossa nova em 2019.",
		PackageTier: models.TierEssential,
	}
	require.NoError(t, repo.Create(context.Background(), briefing))
	assert.NotEmpty(t, briefing.ID)
	assert.Equal(t, models.BriefingReceived, briefing.Status)
}

func TestBriefingRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newBriefingRepoMock(t)
	defer cleanup()

	repo := NewBriefingRepository(db)
	status := models.BriefingInReview
	rows := sqlmock.NewRows([]string{"id", "contact_name", "email", "status"}).
		AddRow("briefing-1", "Ana Souza", "ana@example.com", "in_review")
	mock.ExpectQuery("SELECT (.+) FROM briefings WHERE 1=1 AND status").
		WithArgs("in_review").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("in_review").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	briefings, total, err := repo.List(context.Background(), models.BriefingFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, briefings, 1)
	assert.Equal(t, models.BriefingInReview, briefings[0].Status)
}

func TestBriefingRepositoryMarkConverted(t *testing.T) {
	db, mock, cleanup := newBriefingRepoMock(t)
	defer cleanup()

	repo := NewBriefingRepository(db)
	mock.ExpectExec("UPDATE briefings SET status").
		WithArgs("briefing-1", "converted", "project-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkConverted(context.Background(), "briefing-1", "project-1"))
}

func TestBriefingRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newBriefingRepoMock(t)
	defer cleanup()

	repo := NewBriefingRepository(db)
	mock.ExpectExec("UPDATE briefings SET status").
		WithArgs("absent", "rejected", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "absent", models.BriefingRejected)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboard/classboard-api/internal/models"
)

func TestActivityRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec("INSERT INTO activities").
		WithArgs(sqlmock.AnyArg(), "c1", "Fractions worksheet", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil, models.ActivityStatusOpen, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	activity := &models.Activity{ClassID: "c1", Title: "Fractions worksheet"}
	require.NoError(t, repo.Create(context.Background(), activity))
	assert.NotEmpty(t, activity.ID)
	assert.Equal(t, models.ActivityStatusOpen, activity.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE activities SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("a1", models.ActivityStatusPastDue, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "a1", models.ActivityStatusPastDue))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListOpenPastDue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now().UTC()
	due := now.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "class_id", "title", "instructions", "topic", "points", "due_date", "status", "attachment", "created_at", "updated_at"}).
		AddRow("a1", "c1", "Fractions worksheet", "", "", 0.0, due, "open", nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM activities WHERE status = (.+) AND due_date IS NOT NULL AND due_date < (.+)").
		WithArgs(models.ActivityStatusOpen, now).
		WillReturnRows(rows)

	activities, err := repo.ListOpenPastDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "a1", activities[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

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

func TestSubmissionRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("INSERT INTO submissions").
		WithArgs(sqlmock.AnyArg(), "a1", "s1", sqlmock.AnyArg(), "my answer", nil, nil, nil, models.SubmissionStatusSubmitted).
		WillReturnResult(sqlmock.NewResult(1, 1))

	submission := &models.Submission{ActivityID: "a1", StudentID: "s1", Content: "my answer"}
	require.NoError(t, repo.Create(context.Background(), submission))
	assert.NotEmpty(t, submission.ID)
	assert.Equal(t, models.SubmissionStatusSubmitted, submission.Status)
	assert.False(t, submission.SubmittedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET grade = $2, feedback = $3, status = $4 WHERE id = $1")).
		WithArgs("sub-1", 8.5, "well done", models.SubmissionStatusGraded).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Grade(context.Background(), "sub-1", 8.5, "well done"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListByActivity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	name := "Ana Souza"
	rows := sqlmock.NewRows([]string{"id", "activity_id", "student_id", "submitted_at", "content", "attachment", "grade", "feedback", "status", "student_name", "student_email"}).
		AddRow("sub-1", "a1", "s1", time.Now(), "my answer", nil, 8.5, "well done", "graded", name, "ana@example.com")
	mock.ExpectQuery("SELECT s.id, s.activity_id, s.student_id, s.submitted_at, s.content, s.attachment, s.grade, s.feedback, s.status, u.full_name AS student_name, u.email AS student_email FROM submissions s LEFT JOIN users u ON u.id = s.student_id WHERE s.activity_id = (.+) ORDER BY s.submitted_at DESC").
		WithArgs("a1").
		WillReturnRows(rows)

	submissions, err := repo.ListByActivity(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, submissions, 1)
	require.NotNil(t, submissions[0].Grade)
	assert.Equal(t, 8.5, *submissions[0].Grade)
	assert.Equal(t, "Ana Souza", *submissions[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryExistsForStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM submissions WHERE activity_id = $1 AND student_id = $2 LIMIT 1")).
		WithArgs("a1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err := repo.ExistsForStudent(context.Background(), "a1", "s1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

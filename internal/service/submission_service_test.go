package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
)

type mockSubmissionRepo struct {
	items     map[string]*models.Submission
	existing  map[string]bool
	graded    []string
	gradeErr  error
	createErr error
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if submission, ok := m.items[id]; ok {
		cp := *submission
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) ListByActivity(ctx context.Context, activityID string) ([]models.SubmissionDetail, error) {
	var out []models.SubmissionDetail
	for _, s := range m.items {
		if s.ActivityID == activityID {
			out = append(out, models.SubmissionDetail{Submission: *s})
		}
	}
	return out, nil
}

func (m *mockSubmissionRepo) ExistsForStudent(ctx context.Context, activityID, studentID string) (bool, error) {
	return m.existing[activityID+"/"+studentID], nil
}

func (m *mockSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.items == nil {
		m.items = make(map[string]*models.Submission)
	}
	if submission.ID == "" {
		submission.ID = "generated"
	}
	cp := *submission
	m.items[submission.ID] = &cp
	return nil
}

func (m *mockSubmissionRepo) Grade(ctx context.Context, id string, grade float64, feedback string) error {
	if m.gradeErr != nil {
		return m.gradeErr
	}
	m.graded = append(m.graded, id)
	if s, ok := m.items[id]; ok {
		s.Grade = &grade
		s.Feedback = &feedback
		s.Status = models.SubmissionStatusGraded
	}
	return nil
}

type mockActivityReader struct {
	items map[string]*models.Activity
}

func (m *mockActivityReader) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	if a, ok := m.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockRecomputer struct {
	recomputed []string
	result     models.ActivityStatus
	err        error
}

func (m *mockRecomputer) RecomputeStatus(ctx context.Context, activityID string) (models.ActivityStatus, error) {
	m.recomputed = append(m.recomputed, activityID)
	return m.result, m.err
}

func newSubmissionService(repo *mockSubmissionRepo, recomputer *mockRecomputer) *SubmissionService {
	activities := &mockActivityReader{items: map[string]*models.Activity{"a1": {ID: "a1", ClassID: "c1"}}}
	users := &mockUserReader{users: map[string]*models.User{
		"s1": {ID: "s1", Role: models.RoleStudent},
		"t1": {ID: "t1", Role: models.RoleTeacher},
	}}
	return NewSubmissionService(repo, activities, users, recomputer, validator.New(), zap.NewNop())
}

func TestSubmissionGrade(t *testing.T) {
	repo := &mockSubmissionRepo{items: map[string]*models.Submission{
		"sub1": {ID: "sub1", ActivityID: "a1", StudentID: "s1", Status: models.SubmissionStatusSubmitted},
	}}
	recomputer := &mockRecomputer{result: models.ActivityStatusGraded}
	svc := newSubmissionService(repo, recomputer)

	submission, err := svc.Grade(context.Background(), "sub1", GradeSubmissionRequest{Grade: 8.5, Feedback: "well done"})
	require.NoError(t, err)
	require.NotNil(t, submission.Grade)
	assert.Equal(t, 8.5, *submission.Grade)
	assert.Equal(t, "well done", *submission.Feedback)
	assert.Equal(t, models.SubmissionStatusGraded, submission.Status)
	assert.Equal(t, []string{"a1"}, recomputer.recomputed, "grading re-resolves the owning activity")
}

func TestSubmissionGradeOverwrites(t *testing.T) {
	previous := 4.0
	repo := &mockSubmissionRepo{items: map[string]*models.Submission{
		"sub1": {ID: "sub1", ActivityID: "a1", StudentID: "s1", Grade: &previous, Status: models.SubmissionStatusGraded},
	}}
	svc := newSubmissionService(repo, &mockRecomputer{})

	submission, err := svc.Grade(context.Background(), "sub1", GradeSubmissionRequest{Grade: 9.0})
	require.NoError(t, err)
	assert.Equal(t, 9.0, *submission.Grade, "re-grading replaces the previous grade")
}

func TestSubmissionGradeNumericString(t *testing.T) {
	repo := &mockSubmissionRepo{items: map[string]*models.Submission{
		"sub1": {ID: "sub1", ActivityID: "a1", StudentID: "s1"},
	}}
	svc := newSubmissionService(repo, &mockRecomputer{})

	submission, err := svc.Grade(context.Background(), "sub1", GradeSubmissionRequest{Grade: "7.25"})
	require.NoError(t, err)
	assert.Equal(t, 7.25, *submission.Grade)
}

func TestSubmissionGradeRejectsInvalid(t *testing.T) {
	cases := []struct {
		name  string
		grade interface{}
	}{
		{"missing", nil},
		{"non numeric string", "abc"},
		{"boolean", true},
		{"object", map[string]interface{}{"value": 5}},
		{"nan", math.NaN()},
		{"infinity", math.Inf(1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockSubmissionRepo{items: map[string]*models.Submission{
				"sub1": {ID: "sub1", ActivityID: "a1", StudentID: "s1"},
			}}
			recomputer := &mockRecomputer{}
			svc := newSubmissionService(repo, recomputer)

			_, err := svc.Grade(context.Background(), "sub1", GradeSubmissionRequest{Grade: tc.grade})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
			assert.Empty(t, repo.graded, "invalid grades must be rejected before any write")
			assert.Empty(t, recomputer.recomputed)
		})
	}
}

func TestSubmissionGradeUnknown(t *testing.T) {
	svc := newSubmissionService(&mockSubmissionRepo{}, &mockRecomputer{})

	_, err := svc.Grade(context.Background(), "ghost", GradeSubmissionRequest{Grade: 5.0})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubmissionGradeSurvivesRecomputeFailure(t *testing.T) {
	repo := &mockSubmissionRepo{items: map[string]*models.Submission{
		"sub1": {ID: "sub1", ActivityID: "a1", StudentID: "s1"},
	}}
	recomputer := &mockRecomputer{err: appErrors.ErrInternal}
	svc := newSubmissionService(repo, recomputer)

	submission, err := svc.Grade(context.Background(), "sub1", GradeSubmissionRequest{Grade: 6.0})
	require.NoError(t, err, "a failed recomputation must not fail the grading itself")
	assert.Equal(t, models.SubmissionStatusGraded, submission.Status)
}

func TestParseGrade(t *testing.T) {
	grade, err := parseGrade(json.Number("3.5"))
	require.NoError(t, err)
	assert.Equal(t, 3.5, grade)

	grade, err = parseGrade(float64(0))
	require.NoError(t, err)
	assert.Zero(t, grade, "zero is a valid grade")

	grade, err = parseGrade(-1.5)
	require.NoError(t, err)
	assert.Equal(t, -1.5, grade)
}

func TestSubmissionSubmit(t *testing.T) {
	repo := &mockSubmissionRepo{}
	svc := newSubmissionService(repo, &mockRecomputer{})

	submission, err := svc.Submit(context.Background(), SubmitRequest{ActivityID: "a1", StudentID: "s1", Content: "answer"})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, submission.Status)
	assert.Nil(t, submission.Grade)
}

func TestSubmissionSubmitDuplicate(t *testing.T) {
	repo := &mockSubmissionRepo{existing: map[string]bool{"a1/s1": true}}
	svc := newSubmissionService(repo, &mockRecomputer{})

	_, err := svc.Submit(context.Background(), SubmitRequest{ActivityID: "a1", StudentID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubmissionSubmitTeacherRejected(t *testing.T) {
	svc := newSubmissionService(&mockSubmissionRepo{}, &mockRecomputer{})

	_, err := svc.Submit(context.Background(), SubmitRequest{ActivityID: "a1", StudentID: "t1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRole.Code, appErrors.FromError(err).Code)
}

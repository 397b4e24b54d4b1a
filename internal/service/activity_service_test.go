package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
)

type mockActivityRepo struct {
	items          map[string]*models.Activity
	statusWrites   map[string]models.ActivityStatus
	deleted        []string
	openPastDue    []models.Activity
	updateStatusEr error
}

func (m *mockActivityRepo) ListByClass(ctx context.Context, classID string) ([]models.Activity, error) {
	var out []models.Activity
	for _, a := range m.items {
		if a.ClassID == classID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockActivityRepo) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	if a, ok := m.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockActivityRepo) Create(ctx context.Context, activity *models.Activity) error {
	if m.items == nil {
		m.items = make(map[string]*models.Activity)
	}
	if activity.ID == "" {
		activity.ID = "generated"
	}
	cp := *activity
	m.items[activity.ID] = &cp
	return nil
}

func (m *mockActivityRepo) Update(ctx context.Context, activity *models.Activity) error {
	cp := *activity
	m.items[activity.ID] = &cp
	return nil
}

func (m *mockActivityRepo) UpdateStatus(ctx context.Context, id string, status models.ActivityStatus) error {
	if m.updateStatusEr != nil {
		return m.updateStatusEr
	}
	if m.statusWrites == nil {
		m.statusWrites = make(map[string]models.ActivityStatus)
	}
	m.statusWrites[id] = status
	if a, ok := m.items[id]; ok {
		a.Status = status
	}
	return nil
}

func (m *mockActivityRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockActivityRepo) ListOpenPastDue(ctx context.Context, now time.Time) ([]models.Activity, error) {
	return m.openPastDue, nil
}

type mockSubmissionReader struct {
	byActivity map[string][]models.SubmissionDetail
}

func (m *mockSubmissionReader) ListByActivity(ctx context.Context, activityID string) ([]models.SubmissionDetail, error) {
	return m.byActivity[activityID], nil
}

type mockRosterReader struct {
	students []models.ClassMemberDetail
}

func (m *mockRosterReader) ListStudentsByClass(ctx context.Context, classID string) ([]models.ClassMemberDetail, error) {
	return m.students, nil
}

func submissionBy(studentID string, status models.SubmissionStatus) models.SubmissionDetail {
	return models.SubmissionDetail{Submission: models.Submission{ID: "sub-" + studentID, StudentID: studentID, Status: status}}
}

func TestResolveActivityStatusGradedWins(t *testing.T) {
	due := time.Now().Add(-time.Hour)
	activity := &models.Activity{DueDate: &due}
	submissions := []models.Submission{
		{Status: models.SubmissionStatusSubmitted},
		{Status: models.SubmissionStatusGraded},
	}

	status := ResolveActivityStatus(activity, submissions, time.Now())
	assert.Equal(t, models.ActivityStatusGraded, status, "a graded submission outranks an expired due date")
}

func TestResolveActivityStatusPastDue(t *testing.T) {
	due := time.Now().Add(-time.Minute)
	activity := &models.Activity{DueDate: &due}

	status := ResolveActivityStatus(activity, nil, time.Now())
	assert.Equal(t, models.ActivityStatusPastDue, status)
}

func TestResolveActivityStatusOpenBeforeDue(t *testing.T) {
	due := time.Now().Add(time.Hour)
	activity := &models.Activity{DueDate: &due}
	submissions := []models.Submission{{Status: models.SubmissionStatusSubmitted}}

	status := ResolveActivityStatus(activity, submissions, time.Now())
	assert.Equal(t, models.ActivityStatusOpen, status, "ungraded submissions do not close an activity")
}

func TestResolveActivityStatusNoDueDate(t *testing.T) {
	activity := &models.Activity{}

	status := ResolveActivityStatus(activity, nil, time.Now().Add(1000*time.Hour))
	assert.Equal(t, models.ActivityStatusOpen, status, "no due date means never past-due")
}

func TestResolveActivityStatusExactlyAtDue(t *testing.T) {
	due := time.Now()
	activity := &models.Activity{DueDate: &due}

	status := ResolveActivityStatus(activity, nil, due)
	assert.Equal(t, models.ActivityStatusOpen, status, "the deadline instant itself is still open")
}

func newActivityService(repo *mockActivityRepo, subs *mockSubmissionReader, roster *mockRosterReader) *ActivityService {
	classes := &mockClassReader{classes: map[string]*models.Class{"c1": {ID: "c1", Name: "Math", CreatedBy: "t1"}}}
	if subs == nil {
		subs = &mockSubmissionReader{}
	}
	if roster == nil {
		roster = &mockRosterReader{}
	}
	return NewActivityService(repo, subs, classes, roster, nil, validator.New(), zap.NewNop())
}

func TestActivityGetWritesBackStaleStatus(t *testing.T) {
	due := time.Now().UTC().Add(-time.Hour)
	repo := &mockActivityRepo{items: map[string]*models.Activity{
		"a1": {ID: "a1", ClassID: "c1", Status: models.ActivityStatusOpen, DueDate: &due},
	}}
	svc := newActivityService(repo, nil, nil)

	detail, err := svc.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, models.ActivityStatusPastDue, repo.statusWrites["a1"])
	assert.Equal(t, models.ActivityStatusPastDue, detail.Activity.Status, "the response carries the refreshed status")
}

func TestActivityGetSkipsWriteWhenFresh(t *testing.T) {
	repo := &mockActivityRepo{items: map[string]*models.Activity{
		"a1": {ID: "a1", ClassID: "c1", Status: models.ActivityStatusOpen},
	}}
	svc := newActivityService(repo, nil, nil)

	_, err := svc.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Empty(t, repo.statusWrites, "no write when the stored status already matches")
}

func TestActivityGetNotSubmittedRoster(t *testing.T) {
	repo := &mockActivityRepo{items: map[string]*models.Activity{
		"a1": {ID: "a1", ClassID: "c1", Status: models.ActivityStatusOpen},
	}}
	subs := &mockSubmissionReader{byActivity: map[string][]models.SubmissionDetail{
		"a1": {submissionBy("s1", models.SubmissionStatusSubmitted)},
	}}
	roster := &mockRosterReader{students: []models.ClassMemberDetail{
		member("c1", "s1"),
		member("c1", "s2"),
		member("c1", "s3"),
	}}
	svc := newActivityService(repo, subs, roster)

	detail, err := svc.Get(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, detail.NotSubmitted, 2)
	assert.Equal(t, "s2", detail.NotSubmitted[0].UserID)
	assert.Equal(t, "s3", detail.NotSubmitted[1].UserID)
}

func TestActivityRecomputeStatusToGraded(t *testing.T) {
	repo := &mockActivityRepo{items: map[string]*models.Activity{
		"a1": {ID: "a1", ClassID: "c1", Status: models.ActivityStatusOpen},
	}}
	subs := &mockSubmissionReader{byActivity: map[string][]models.SubmissionDetail{
		"a1": {submissionBy("s1", models.SubmissionStatusGraded)},
	}}
	svc := newActivityService(repo, subs, nil)

	status, err := svc.RecomputeStatus(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, models.ActivityStatusGraded, status)
	assert.Equal(t, models.ActivityStatusGraded, repo.statusWrites["a1"])
}

func TestActivityRecomputeStatusUnknown(t *testing.T) {
	svc := newActivityService(&mockActivityRepo{}, nil, nil)

	_, err := svc.RecomputeStatus(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestActivityCreateDefaultsToOpen(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := newActivityService(repo, nil, nil)

	activity, err := svc.Create(context.Background(), CreateActivityRequest{ClassID: "c1", Title: "Homework 1"})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityStatusOpen, activity.Status)
}

func TestActivityCreateUnknownClass(t *testing.T) {
	svc := newActivityService(&mockActivityRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateActivityRequest{ClassID: "ghost", Title: "Homework 1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

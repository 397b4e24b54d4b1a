package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
)

type mockMembershipRepo struct {
	byClass  map[string][]models.ClassMemberDetail
	students []models.ClassMemberDetail
}

func (m *mockMembershipRepo) ListByClass(ctx context.Context, classID string) ([]models.ClassMemberDetail, error) {
	return m.byClass[classID], nil
}

func (m *mockMembershipRepo) ListStudentMemberships(ctx context.Context) ([]models.ClassMemberDetail, error) {
	return m.students, nil
}

type mockAnalyticsSessionRepo struct {
	sessions   []models.Session
	studentIDs []string
	teacherID  string
}

func (m *mockAnalyticsSessionRepo) ListCompleted(ctx context.Context, studentIDs []string, teacherID string) ([]models.Session, error) {
	m.studentIDs = studentIDs
	m.teacherID = teacherID
	return m.sessions, nil
}

type mockClassReader struct {
	classes map[string]*models.Class
}

func (m *mockClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := m.classes[id]; ok {
		cp := *class
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func member(classID, userID string) models.ClassMemberDetail {
	return models.ClassMemberDetail{ClassMembership: models.ClassMembership{ClassID: classID, UserID: userID}}
}

func studentOf(className string) models.ClassMemberDetail {
	detail := models.ClassMemberDetail{ClassMembership: models.ClassMembership{Role: models.RoleStudent}}
	if className != "" {
		detail.ClassName = &className
	}
	return detail
}

func TestAverageSessionTime(t *testing.T) {
	memberships := &mockMembershipRepo{byClass: map[string][]models.ClassMemberDetail{
		"c1": {member("c1", "s1"), member("c1", "s2"), member("c1", "t1")},
	}}
	sessions := &mockAnalyticsSessionRepo{sessions: []models.Session{
		{ID: "x1", DurationSeconds: 600},
		{ID: "x2", DurationSeconds: 1200},
	}}
	classes := &mockClassReader{classes: map[string]*models.Class{
		"c1": {ID: "c1", Name: "Math", CreatedBy: "t1"},
	}}
	svc := NewAnalyticsService(memberships, sessions, classes, nil, nil, zap.NewNop())

	avg, err := svc.AverageSessionTime(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "0h 15m", avg.Formatted)
	assert.Equal(t, int64(900), avg.AverageSeconds)
	assert.Equal(t, 2, avg.SessionsCount)
	assert.Equal(t, []string{"s1", "s2", "t1"}, sessions.studentIDs)
	assert.Equal(t, "t1", sessions.teacherID)
}

func TestAverageSessionTimeRoundsMean(t *testing.T) {
	memberships := &mockMembershipRepo{byClass: map[string][]models.ClassMemberDetail{
		"c1": {member("c1", "s1")},
	}}
	sessions := &mockAnalyticsSessionRepo{sessions: []models.Session{
		{DurationSeconds: 1},
		{DurationSeconds: 2},
	}}
	classes := &mockClassReader{classes: map[string]*models.Class{
		"c1": {ID: "c1", CreatedBy: "t1"},
	}}
	svc := NewAnalyticsService(memberships, sessions, classes, nil, nil, zap.NewNop())

	avg, err := svc.AverageSessionTime(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), avg.AverageSeconds, "1.5 rounds half away from zero")
	assert.Equal(t, "0h 0m", avg.Formatted)
}

func TestAverageSessionTimeFormatsHours(t *testing.T) {
	memberships := &mockMembershipRepo{byClass: map[string][]models.ClassMemberDetail{
		"c1": {member("c1", "s1")},
	}}
	sessions := &mockAnalyticsSessionRepo{sessions: []models.Session{
		{DurationSeconds: 3*3600 + 59*60 + 59},
	}}
	classes := &mockClassReader{classes: map[string]*models.Class{
		"c1": {ID: "c1", CreatedBy: "t1"},
	}}
	svc := NewAnalyticsService(memberships, sessions, classes, nil, nil, zap.NewNop())

	avg, err := svc.AverageSessionTime(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "3h 59m", avg.Formatted)
}

func TestAverageSessionTimeEmptyRoster(t *testing.T) {
	svc := NewAnalyticsService(&mockMembershipRepo{}, &mockAnalyticsSessionRepo{}, &mockClassReader{}, nil, nil, zap.NewNop())

	avg, err := svc.AverageSessionTime(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "0h 0m", avg.Formatted)
	assert.Zero(t, avg.AverageSeconds)
	assert.Zero(t, avg.SessionsCount)
}

func TestAverageSessionTimeNoSessions(t *testing.T) {
	memberships := &mockMembershipRepo{byClass: map[string][]models.ClassMemberDetail{
		"c1": {member("c1", "s1")},
	}}
	classes := &mockClassReader{classes: map[string]*models.Class{
		"c1": {ID: "c1", CreatedBy: "t1"},
	}}
	svc := NewAnalyticsService(memberships, &mockAnalyticsSessionRepo{}, classes, nil, nil, zap.NewNop())

	avg, err := svc.AverageSessionTime(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "0h 0m", avg.Formatted)
	assert.Zero(t, avg.SessionsCount)
}

func TestAverageSessionTimeMissingClassID(t *testing.T) {
	svc := NewAnalyticsService(&mockMembershipRepo{}, &mockAnalyticsSessionRepo{}, &mockClassReader{}, nil, nil, zap.NewNop())

	_, err := svc.AverageSessionTime(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestClassSummaryGroupsInInsertionOrder(t *testing.T) {
	memberships := &mockMembershipRepo{students: []models.ClassMemberDetail{
		studentOf("Math"),
		studentOf("Science"),
		studentOf("Math"),
		studentOf(""),
		studentOf("Math"),
	}}
	svc := NewAnalyticsService(memberships, &mockAnalyticsSessionRepo{}, &mockClassReader{}, nil, nil, zap.NewNop())

	summary, err := svc.ClassSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, models.ClassSummary{Class: "Math", TotalStudents: 3}, summary[0])
	assert.Equal(t, models.ClassSummary{Class: "Science", TotalStudents: 1}, summary[1])
	assert.Equal(t, models.ClassSummary{Class: UnnamedClassPlaceholder, TotalStudents: 1}, summary[2])
}

func TestClassSummaryEmpty(t *testing.T) {
	svc := NewAnalyticsService(&mockMembershipRepo{}, &mockAnalyticsSessionRepo{}, &mockClassReader{}, nil, nil, zap.NewNop())

	summary, err := svc.ClassSummary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.NotNil(t, summary)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
)

type activityRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Activity, error)
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, activity *models.Activity) error
	UpdateStatus(ctx context.Context, id string, status models.ActivityStatus) error
	Delete(ctx context.Context, id string) error
	ListOpenPastDue(ctx context.Context, now time.Time) ([]models.Activity, error)
}

type activitySubmissionReader interface {
	ListByActivity(ctx context.Context, activityID string) ([]models.SubmissionDetail, error)
}

type activityClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type activityRosterReader interface {
	ListStudentsByClass(ctx context.Context, classID string) ([]models.ClassMemberDetail, error)
}

// ResolveActivityStatus derives the lifecycle status of an activity from its
// submissions and due date. A single graded submission marks the whole
// activity graded regardless of the due date. An activity without a due date
// never becomes past-due.
func ResolveActivityStatus(activity *models.Activity, submissions []models.Submission, now time.Time) models.ActivityStatus {
	for _, submission := range submissions {
		if submission.Status == models.SubmissionStatusGraded {
			return models.ActivityStatusGraded
		}
	}
	if activity.DueDate != nil && now.After(*activity.DueDate) {
		return models.ActivityStatusPastDue
	}
	return models.ActivityStatusOpen
}

// CreateActivityRequest describes activity creation.
type CreateActivityRequest struct {
	ClassID      string     `json:"class_id" validate:"required"`
	Title        string     `json:"title" validate:"required"`
	Instructions string     `json:"instructions"`
	Topic        string     `json:"topic"`
	Points       float64    `json:"points" validate:"gte=0"`
	DueDate      *time.Time `json:"due_date"`
	Attachment   *string    `json:"attachment"`
}

// UpdateActivityRequest describes activity updates.
type UpdateActivityRequest struct {
	Title        string     `json:"title" validate:"required"`
	Instructions string     `json:"instructions"`
	Topic        string     `json:"topic"`
	Points       float64    `json:"points" validate:"gte=0"`
	DueDate      *time.Time `json:"due_date"`
	Attachment   *string    `json:"attachment"`
}

// ActivityService manages activities and keeps their stored status column in
// step with the resolver output.
type ActivityService struct {
	repo        activityRepository
	submissions activitySubmissionReader
	classes     activityClassReader
	roster      activityRosterReader
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewActivityService constructs ActivityService.
func NewActivityService(repo activityRepository, submissions activitySubmissionReader, classes activityClassReader, roster activityRosterReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, submissions: submissions, classes: classes, roster: roster, metrics: metrics, validator: validate, logger: logger}
}

// ListByClass returns the activities published to a class.
func (s *ActivityService) ListByClass(ctx context.Context, classID string) ([]models.Activity, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	activities, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	return activities, nil
}

// Get returns the activity with its submissions and the roster slice that
// has not submitted yet. The stored status is lazily rewritten when the
// resolver disagrees with it.
func (s *ActivityService) Get(ctx context.Context, id string) (*models.ActivityDetail, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}

	submissions, err := s.submissions.ListByActivity(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}

	if _, err := s.writeBackStatus(ctx, activity, submissions); err != nil {
		return nil, err
	}

	students, err := s.roster.ListStudentsByClass(ctx, activity.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}

	submitted := make(map[string]struct{}, len(submissions))
	for _, submission := range submissions {
		submitted[submission.StudentID] = struct{}{}
	}
	notSubmitted := make([]models.ClassMemberDetail, 0)
	for _, member := range students {
		if _, ok := submitted[member.UserID]; !ok {
			notSubmitted = append(notSubmitted, member)
		}
	}

	return &models.ActivityDetail{Activity: *activity, Submissions: submissions, NotSubmitted: notSubmitted}, nil
}

// Create publishes a new activity to a class.
func (s *ActivityService) Create(ctx context.Context, req CreateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	activity := &models.Activity{
		ClassID:      req.ClassID,
		Title:        req.Title,
		Instructions: req.Instructions,
		Topic:        req.Topic,
		Points:       req.Points,
		DueDate:      req.DueDate,
		Status:       models.ActivityStatusOpen,
		Attachment:   req.Attachment,
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
	}
	return activity, nil
}

// Update modifies an activity and recomputes its status against the new due
// date.
func (s *ActivityService) Update(ctx context.Context, id string, req UpdateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}

	activity.Title = req.Title
	activity.Instructions = req.Instructions
	activity.Topic = req.Topic
	activity.Points = req.Points
	activity.DueDate = req.DueDate
	activity.Attachment = req.Attachment

	submissions, err := s.submissions.ListByActivity(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}
	activity.Status = ResolveActivityStatus(activity, submissionRecords(submissions), time.Now().UTC())

	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity")
	}
	return activity, nil
}

// Delete removes an activity.
func (s *ActivityService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete activity")
	}
	return nil
}

// RecomputeStatus re-resolves the status of one activity and persists it when
// it differs from the stored value. Grading and the background sweep both
// funnel through here.
func (s *ActivityService) RecomputeStatus(ctx context.Context, id string) (models.ActivityStatus, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	submissions, err := s.submissions.ListByActivity(ctx, id)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}
	return s.writeBackStatus(ctx, activity, submissions)
}

// ListStale returns activities whose stored status predates their due date
// passing. Used by the status sweep to schedule recomputations.
func (s *ActivityService) ListStale(ctx context.Context, now time.Time) ([]models.Activity, error) {
	activities, err := s.repo.ListOpenPastDue(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stale activities")
	}
	return activities, nil
}

func (s *ActivityService) writeBackStatus(ctx context.Context, activity *models.Activity, submissions []models.SubmissionDetail) (models.ActivityStatus, error) {
	status := ResolveActivityStatus(activity, submissionRecords(submissions), time.Now().UTC())
	if status == activity.Status {
		return status, nil
	}
	if err := s.repo.UpdateStatus(ctx, activity.ID, status); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist activity status")
	}
	if s.metrics != nil {
		s.metrics.RecordStatusRewrite()
	}
	s.logger.Info("activity status updated",
		zap.String("activity_id", activity.ID),
		zap.String("from", string(activity.Status)),
		zap.String("to", string(status)),
	)
	activity.Status = status
	return status, nil
}

func submissionRecords(details []models.SubmissionDetail) []models.Submission {
	records := make([]models.Submission, len(details))
	for i, detail := range details {
		records[i] = detail.Submission
	}
	return records
}

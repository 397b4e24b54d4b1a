package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
)

type submissionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	ListByActivity(ctx context.Context, activityID string) ([]models.SubmissionDetail, error)
	ExistsForStudent(ctx context.Context, activityID, studentID string) (bool, error)
	Create(ctx context.Context, submission *models.Submission) error
	Grade(ctx context.Context, id string, grade float64, feedback string) error
}

type submissionActivityReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

type submissionUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type activityStatusRecomputer interface {
	RecomputeStatus(ctx context.Context, activityID string) (models.ActivityStatus, error)
}

// SubmitRequest records a student's answer to an activity.
type SubmitRequest struct {
	ActivityID string  `json:"activity_id" validate:"required"`
	StudentID  string  `json:"student_id" validate:"required"`
	Content    string  `json:"content"`
	Attachment *string `json:"attachment"`
}

// GradeSubmissionRequest carries the evaluation of one submission. Grade is
// accepted as a JSON number or a numeric string and must parse to a finite
// number.
type GradeSubmissionRequest struct {
	Grade    interface{} `json:"grade"`
	Feedback string      `json:"feedback"`
}

// SubmissionService implements the grading workflow. Grading overwrites any
// previous grade and feedback in place; re-grading is therefore always safe.
type SubmissionService struct {
	repo       submissionRepository
	activities submissionActivityReader
	users      submissionUserReader
	recomputer activityStatusRecomputer
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(repo submissionRepository, activities submissionActivityReader, users submissionUserReader, recomputer activityStatusRecomputer, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{repo: repo, activities: activities, users: users, recomputer: recomputer, validator: validate, logger: logger}
}

// ListByActivity returns submissions for an activity, newest first.
func (s *SubmissionService) ListByActivity(ctx context.Context, activityID string) ([]models.SubmissionDetail, error) {
	if activityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "activityId is required")
	}
	submissions, err := s.repo.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// Submit records a student's submission for an activity.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if _, err := s.activities.FindByID(ctx, req.ActivityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil || student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "invalid student")
	}

	exists, err := s.repo.ExistsForStudent(ctx, req.ActivityID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check submission")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already submitted to this activity")
	}

	submission := &models.Submission{
		ActivityID: req.ActivityID,
		StudentID:  req.StudentID,
		Content:    req.Content,
		Attachment: req.Attachment,
		Status:     models.SubmissionStatusSubmitted,
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}
	return submission, nil
}

// Grade validates and records a grade plus feedback on a submission, marks it
// graded and re-resolves the owning activity's status. Invalid grades are
// rejected before any write.
func (s *SubmissionService) Grade(ctx context.Context, id string, req GradeSubmissionRequest) (*models.Submission, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submission id is required")
	}
	grade, err := parseGrade(req.Grade)
	if err != nil {
		return nil, err
	}

	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	if err := s.repo.Grade(ctx, submission.ID, grade, req.Feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}
	submission.Grade = &grade
	feedback := req.Feedback
	submission.Feedback = &feedback
	submission.Status = models.SubmissionStatusGraded

	if s.recomputer != nil {
		if _, err := s.recomputer.RecomputeStatus(ctx, submission.ActivityID); err != nil {
			s.logger.Warn("recompute activity status after grading",
				zap.String("activity_id", submission.ActivityID),
				zap.Error(err),
			)
		}
	}
	return submission, nil
}

// parseGrade accepts a JSON number, json.Number or numeric string and
// rejects anything that does not parse to a finite number.
func parseGrade(raw interface{}) (float64, error) {
	var (
		grade float64
		err   error
	)
	switch v := raw.(type) {
	case nil:
		return 0, appErrors.Clone(appErrors.ErrValidation, "grade is required")
	case float64:
		grade = v
	case json.Number:
		grade, err = v.Float64()
	case string:
		grade, err = strconv.ParseFloat(v, 64)
	default:
		return 0, appErrors.Clone(appErrors.ErrValidation, "grade must be a number")
	}
	if err != nil || math.IsNaN(grade) || math.IsInf(grade, 0) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "grade must be a finite number")
	}
	return grade, nil
}

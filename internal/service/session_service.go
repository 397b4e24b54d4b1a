package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
)

type sessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	End(ctx context.Context, id string, endTime time.Time, durationSeconds int64) error
}

type sessionUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// StartSessionRequest begins a tutoring session between a student and a teacher.
type StartSessionRequest struct {
	User    string `json:"user" validate:"required"`
	Teacher string `json:"teacher" validate:"required"`
}

// EndSessionRequest closes an open session.
type EndSessionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// EndSessionResult carries the closed session plus display-only duration fields.
type EndSessionResult struct {
	Session         *models.Session `json:"data"`
	DurationSeconds int64           `json:"duration_seconds"`
	DurationMinutes string          `json:"duration_minutes"`
	AlreadyEnded    bool            `json:"-"`
}

// SessionService implements the tutoring session lifecycle. A session is
// created open, closed at most once, and closing an already closed session
// returns the stored record unchanged so retries are safe.
type SessionService struct {
	repo      sessionRepository
	users     sessionUserReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs SessionService.
func NewSessionService(repo sessionRepository, users sessionUserReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, users: users, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Start validates the (student, teacher) pair and creates an open session.
func (s *SessionService) Start(ctx context.Context, req StartSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "user and teacher are required")
	}

	student, err := s.users.FindByID(ctx, req.User)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil || student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "invalid student")
	}

	teacher, err := s.users.FindByID(ctx, req.Teacher)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher == nil || teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "invalid teacher")
	}

	session := &models.Session{
		StudentID:       student.ID,
		TeacherID:       teacher.ID,
		StartTime:       time.Now().UTC(),
		DurationSeconds: 0,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	if s.metrics != nil {
		s.metrics.RecordSessionStarted()
	}
	return session, nil
}

// End closes the session, computing duration as whole seconds elapsed since
// start and never below zero. Ending a closed session is a no-op that
// returns the session as stored.
func (s *SessionService) End(ctx context.Context, req EndSessionRequest) (*EndSessionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "sessionId is required")
	}

	session, err := s.repo.FindByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if session.Ended() {
		return &EndSessionResult{
			Session:         session,
			DurationSeconds: session.DurationSeconds,
			DurationMinutes: formatMinutes(session.DurationSeconds),
			AlreadyEnded:    true,
		}, nil
	}

	end := time.Now().UTC()
	duration := int64(end.Sub(session.StartTime).Seconds())
	if duration < 0 {
		duration = 0
	}

	if err := s.repo.End(ctx, session.ID, end, duration); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end session")
	}
	session.EndTime = &end
	session.DurationSeconds = duration

	if s.metrics != nil {
		s.metrics.RecordSessionEnded(duration)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "metrics:*"); err != nil {
			s.logger.Warn("invalidate metrics cache", zap.Error(err))
		}
	}

	return &EndSessionResult{
		Session:         session,
		DurationSeconds: duration,
		DurationMinutes: formatMinutes(duration),
	}, nil
}

// formatMinutes renders a duration in minutes with two decimal places, as
// shown on the dashboard next to an ended session.
func formatMinutes(durationSeconds int64) string {
	return fmt.Sprintf("%.2f", float64(durationSeconds)/60)
}

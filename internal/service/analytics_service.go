package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
)

type analyticsMembershipRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.ClassMemberDetail, error)
	ListStudentMemberships(ctx context.Context) ([]models.ClassMemberDetail, error)
}

type analyticsSessionRepository interface {
	ListCompleted(ctx context.Context, studentIDs []string, teacherID string) ([]models.Session, error)
}

type analyticsClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// UnnamedClassPlaceholder is reported when a membership points at a class
// whose record cannot be joined.
const UnnamedClassPlaceholder = "Unnamed class"

// AnalyticsService computes engagement metrics over sessions and rosters.
type AnalyticsService struct {
	memberships analyticsMembershipRepository
	sessions    analyticsSessionRepository
	classes     analyticsClassReader
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(memberships analyticsMembershipRepository, sessions analyticsSessionRepository, classes analyticsClassReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{memberships: memberships, sessions: sessions, classes: classes, cache: cache, metrics: metrics, logger: logger}
}

var zeroAverage = models.SessionAverage{Formatted: "0h 0m", AverageSeconds: 0, SessionsCount: 0}

// AverageSessionTime computes the mean duration of completed tutoring
// sessions between the class roster and the class's owning teacher. Open
// sessions carry no signal and are excluded; so are sessions the same
// students had with unrelated teachers. An empty roster or an empty session
// set yields the zero result rather than an error.
func (s *AnalyticsService) AverageSessionTime(ctx context.Context, classID string) (*models.SessionAverage, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}

	cacheKey := fmt.Sprintf("metrics:avg_session_time:%s", classID)
	var cached models.SessionAverage
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	members, err := s.memberships.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class members")
	}
	if len(members) == 0 {
		result := zeroAverage
		return &result, nil
	}

	memberIDs := make([]string, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.UserID)
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.CreatedBy == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class has no owning teacher")
	}

	start := time.Now()
	sessions, err := s.sessions.ListCompleted(ctx, memberIDs, class.CreatedBy)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("sessions_completed", time.Since(start))
	}
	if len(sessions) == 0 {
		result := zeroAverage
		return &result, nil
	}

	var total int64
	for _, session := range sessions {
		total += session.DurationSeconds
	}
	avgSeconds := float64(total) / float64(len(sessions))

	result := &models.SessionAverage{
		Formatted:      formatHoursMinutes(avgSeconds),
		AverageSeconds: int64(math.Round(avgSeconds)),
		SessionsCount:  len(sessions),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, 0); err != nil {
			s.logger.Warn("cache average session time", zap.Error(err))
		}
	}
	return result, nil
}

// ClassSummary groups student memberships per class display name. Output
// order follows the first occurrence of each class name, not a sort.
func (s *AnalyticsService) ClassSummary(ctx context.Context) ([]models.ClassSummary, error) {
	cacheKey := "metrics:class_summary"
	var cached []models.ClassSummary
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	memberships, err := s.memberships.ListStudentMemberships(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load memberships")
	}

	summary := make([]models.ClassSummary, 0)
	index := make(map[string]int)
	for _, m := range memberships {
		name := UnnamedClassPlaceholder
		if m.ClassName != nil && *m.ClassName != "" {
			name = *m.ClassName
		}
		if i, ok := index[name]; ok {
			summary[i].TotalStudents++
			continue
		}
		index[name] = len(summary)
		summary = append(summary, models.ClassSummary{Class: name, TotalStudents: 1})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, 0); err != nil {
			s.logger.Warn("cache class summary", zap.Error(err))
		}
	}
	return summary, nil
}

// formatHoursMinutes renders an average in seconds as "{hours}h {minutes}m"
// using integer floor division.
func formatHoursMinutes(avgSeconds float64) string {
	hours := int64(avgSeconds) / 3600
	minutes := (int64(avgSeconds) % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

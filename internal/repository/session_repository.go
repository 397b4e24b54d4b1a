package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classboard/classboard-api/internal/models"
)

// SessionRepository manages persistence for tutoring sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = "id, student_id, teacher_id, start_time, end_time, duration_seconds"

// FindByID returns a session record by ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create persists a session record.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.StartTime.IsZero() {
		session.StartTime = time.Now().UTC()
	}

	const query = `INSERT INTO sessions (id, student_id, teacher_id, start_time, end_time, duration_seconds) VALUES (:id, :student_id, :teacher_id, :start_time, :end_time, :duration_seconds)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// End closes a session by setting the end timestamp and computed duration.
func (r *SessionRepository) End(ctx context.Context, id string, endTime time.Time, durationSeconds int64) error {
	const query = `UPDATE sessions SET end_time = $2, duration_seconds = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, endTime, durationSeconds); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// ListCompleted returns ended sessions between any of the given students and
// the given teacher, newest first. Open sessions (duration 0) are excluded.
func (r *SessionRepository) ListCompleted(ctx context.Context, studentIDs []string, teacherID string) ([]models.Session, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM sessions WHERE student_id IN (?) AND teacher_id = ? AND duration_seconds > 0 ORDER BY start_time DESC", sessionColumns), studentIDs, teacherID)
	if err != nil {
		return nil, fmt.Errorf("build completed sessions query: %w", err)
	}
	query = r.db.Rebind(query)

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}
	return sessions, nil
}

// CountOpen returns the number of sessions that have not been ended yet.
func (r *SessionRepository) CountOpen(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE end_time IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count open sessions: %w", err)
	}
	return count, nil
}

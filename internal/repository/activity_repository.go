package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classboard/classboard-api/internal/models"
)

// ActivityRepository manages persistence for class activities.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs a new activity repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = "id, class_id, title, instructions, topic, points, due_date, status, attachment, created_at, updated_at"

// ListByClass returns activities for a class, newest first.
func (r *ActivityRepository) ListByClass(ctx context.Context, classID string) ([]models.Activity, error) {
	query := fmt.Sprintf("SELECT %s FROM activities WHERE class_id = $1 ORDER BY created_at DESC", activityColumns)
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, classID); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// FindByID returns an activity record by ID.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	query := fmt.Sprintf("SELECT %s FROM activities WHERE id = $1", activityColumns)
	var activity models.Activity
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, err
	}
	return &activity, nil
}

// Create persists an activity record.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = now
	if activity.Status == "" {
		activity.Status = models.ActivityStatusOpen
	}

	const query = `INSERT INTO activities (id, class_id, title, instructions, topic, points, due_date, status, attachment, created_at, updated_at) VALUES (:id, :class_id, :title, :instructions, :topic, :points, :due_date, :status, :attachment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// Update modifies an activity record.
func (r *ActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	activity.UpdatedAt = time.Now().UTC()
	const query = `UPDATE activities SET title = :title, instructions = :instructions, topic = :topic, points = :points, due_date = :due_date, status = :status, attachment = :attachment, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return nil
}

// UpdateStatus rewrites only the cached status column.
func (r *ActivityRepository) UpdateStatus(ctx context.Context, id string, status models.ActivityStatus) error {
	const query = `UPDATE activities SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update activity status: %w", err)
	}
	return nil
}

// Delete removes an activity record.
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}

// ListOpenPastDue returns activities still marked open whose due date has
// already passed. The status sweep uses this to find stale cached statuses.
func (r *ActivityRepository) ListOpenPastDue(ctx context.Context, now time.Time) ([]models.Activity, error) {
	query := fmt.Sprintf("SELECT %s FROM activities WHERE status = $1 AND due_date IS NOT NULL AND due_date < $2", activityColumns)
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, models.ActivityStatusOpen, now); err != nil {
		return nil, fmt.Errorf("list open past-due activities: %w", err)
	}
	return activities, nil
}

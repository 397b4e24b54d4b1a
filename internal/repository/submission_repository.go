package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classboard/classboard-api/internal/models"
)

// SubmissionRepository manages persistence for activity submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a new submission repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = "id, activity_id, student_id, submitted_at, content, attachment, grade, feedback, status"

// FindByID returns a submission record by ID.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE id = $1", submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListByActivity returns submissions for an activity with joined student
// info, newest first.
func (r *SubmissionRepository) ListByActivity(ctx context.Context, activityID string) ([]models.SubmissionDetail, error) {
	const query = `SELECT s.id, s.activity_id, s.student_id, s.submitted_at, s.content, s.attachment, s.grade, s.feedback, s.status, u.full_name AS student_name, u.email AS student_email FROM submissions s LEFT JOIN users u ON u.id = s.student_id WHERE s.activity_id = $1 ORDER BY s.submitted_at DESC`
	var submissions []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &submissions, query, activityID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// ExistsForStudent checks whether the student already submitted to the activity.
func (r *SubmissionRepository) ExistsForStudent(ctx context.Context, activityID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM submissions WHERE activity_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, activityID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check submission: %w", err)
	}
	return true, nil
}

// Create persists a submission record.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	if submission.Status == "" {
		submission.Status = models.SubmissionStatusSubmitted
	}

	const query = `INSERT INTO submissions (id, activity_id, student_id, submitted_at, content, attachment, grade, feedback, status) VALUES (:id, :activity_id, :student_id, :submitted_at, :content, :attachment, :grade, :feedback, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// UpdateAttachment rewrites only the stored attachment path.
func (r *SubmissionRepository) UpdateAttachment(ctx context.Context, id, path string) error {
	const query = `UPDATE submissions SET attachment = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, path); err != nil {
		return fmt.Errorf("update submission attachment: %w", err)
	}
	return nil
}

// Grade overwrites the grade, feedback and status of a submission.
func (r *SubmissionRepository) Grade(ctx context.Context, id string, grade float64, feedback string) error {
	const query = `UPDATE submissions SET grade = $2, feedback = $3, status = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, grade, feedback, models.SubmissionStatusGraded); err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return nil
}

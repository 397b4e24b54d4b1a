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

// MembershipRepository manages the class_members join table.
type MembershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository constructs a new membership repository.
func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// FindByID returns a membership record by ID.
func (r *MembershipRepository) FindByID(ctx context.Context, id string) (*models.ClassMembership, error) {
	const query = `SELECT id, class_id, user_id, role, created_at FROM class_members WHERE id = $1`
	var membership models.ClassMembership
	if err := r.db.GetContext(ctx, &membership, query, id); err != nil {
		return nil, err
	}
	return &membership, nil
}

// ListByClass returns memberships for a class with joined user info.
func (r *MembershipRepository) ListByClass(ctx context.Context, classID string) ([]models.ClassMemberDetail, error) {
	const query = `SELECT m.id, m.class_id, m.user_id, m.role, m.created_at, u.full_name AS user_name, u.email AS user_email FROM class_members m LEFT JOIN users u ON u.id = m.user_id WHERE m.class_id = $1 ORDER BY m.created_at ASC`
	var members []models.ClassMemberDetail
	if err := r.db.SelectContext(ctx, &members, query, classID); err != nil {
		return nil, fmt.Errorf("list class members: %w", err)
	}
	return members, nil
}

// ListStudentsByClass returns memberships with role student for a class.
func (r *MembershipRepository) ListStudentsByClass(ctx context.Context, classID string) ([]models.ClassMemberDetail, error) {
	const query = `SELECT m.id, m.class_id, m.user_id, m.role, m.created_at, u.full_name AS user_name, u.email AS user_email FROM class_members m LEFT JOIN users u ON u.id = m.user_id WHERE m.class_id = $1 AND m.role = $2 ORDER BY m.created_at ASC`
	var members []models.ClassMemberDetail
	if err := r.db.SelectContext(ctx, &members, query, classID, models.RoleStudent); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return members, nil
}

// ListStudentMemberships returns every student membership across all classes
// with the joined class name, ordered by creation so callers can group rows
// in first-encountered order.
func (r *MembershipRepository) ListStudentMemberships(ctx context.Context) ([]models.ClassMemberDetail, error) {
	const query = `SELECT m.id, m.class_id, m.user_id, m.role, m.created_at, c.name AS class_name FROM class_members m LEFT JOIN classes c ON c.id = m.class_id WHERE m.role = $1 ORDER BY m.created_at ASC`
	var members []models.ClassMemberDetail
	if err := r.db.SelectContext(ctx, &members, query, models.RoleStudent); err != nil {
		return nil, fmt.Errorf("list student memberships: %w", err)
	}
	return members, nil
}

// Exists checks whether the user already belongs to the class.
func (r *MembershipRepository) Exists(ctx context.Context, classID, userID string) (bool, error) {
	const query = `SELECT 1 FROM class_members WHERE class_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

// Create persists a membership record.
func (r *MembershipRepository) Create(ctx context.Context, membership *models.ClassMembership) error {
	if membership.ID == "" {
		membership.ID = uuid.NewString()
	}
	if membership.CreatedAt.IsZero() {
		membership.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO class_members (id, class_id, user_id, role, created_at) VALUES (:id, :class_id, :user_id, :role, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, membership); err != nil {
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

// Delete removes a membership record.
func (r *MembershipRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_members WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

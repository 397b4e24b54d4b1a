package models

import "time"

// Class represents a class (turma) owned by the teacher that created it.
type Class struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Subject     string    `db:"subject" json:"subject"`
	Description string    `db:"description" json:"description"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClassMembership joins a user to a class with the role they hold inside it.
type ClassMembership struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      UserRole  `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClassMemberDetail extends a membership with the joined user and class names.
type ClassMemberDetail struct {
	ClassMembership
	UserName  *string `db:"user_name" json:"user_name,omitempty"`
	UserEmail *string `db:"user_email" json:"user_email,omitempty"`
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
}

// ClassSummary is one row of the per-class student count listing.
type ClassSummary struct {
	Class         string `json:"class"`
	TotalStudents int    `json:"total_students"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	CreatedBy string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

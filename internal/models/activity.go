package models

import "time"

// ActivityStatus is the derived lifecycle state of an activity. The stored
// column is a cache of ResolveActivityStatus and is rewritten whenever the
// recomputed value differs.
type ActivityStatus string

const (
	ActivityStatusOpen    ActivityStatus = "open"
	ActivityStatusPastDue ActivityStatus = "past-due"
	ActivityStatusGraded  ActivityStatus = "graded"
)

// Activity represents an assignment published to a class.
type Activity struct {
	ID           string         `db:"id" json:"id"`
	ClassID      string         `db:"class_id" json:"class_id"`
	Title        string         `db:"title" json:"title"`
	Instructions string         `db:"instructions" json:"instructions"`
	Topic        string         `db:"topic" json:"topic"`
	Points       float64        `db:"points" json:"points"`
	DueDate      *time.Time     `db:"due_date" json:"due_date,omitempty"`
	Status       ActivityStatus `db:"status" json:"status"`
	Attachment   *string        `db:"attachment" json:"attachment,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// ActivityDetail bundles an activity with its submissions and the roster
// slice that has not submitted yet, mirroring the grading screen.
type ActivityDetail struct {
	Activity     Activity            `json:"activity"`
	Submissions  []SubmissionDetail  `json:"submissions"`
	NotSubmitted []ClassMemberDetail `json:"not_submitted"`
}

// ActivityReportRow summarises one activity inside a class report.
type ActivityReportRow struct {
	Title            string         `json:"title"`
	Status           ActivityStatus `json:"status"`
	SubmissionsCount int            `json:"submissions_count"`
	GradedCount      int            `json:"graded_count"`
}

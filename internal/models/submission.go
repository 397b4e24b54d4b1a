package models

import "time"

// SubmissionStatus tracks whether a submission has been graded.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusGraded    SubmissionStatus = "graded"
)

// Submission is a student's answer to an activity. Grading overwrites grade
// and feedback in place; there is no history of previous evaluations.
type Submission struct {
	ID          string           `db:"id" json:"id"`
	ActivityID  string           `db:"activity_id" json:"activity_id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	SubmittedAt time.Time        `db:"submitted_at" json:"submitted_at"`
	Content     string           `db:"content" json:"content"`
	Attachment  *string          `db:"attachment" json:"attachment,omitempty"`
	Grade       *float64         `db:"grade" json:"grade,omitempty"`
	Feedback    *string          `db:"feedback" json:"feedback,omitempty"`
	Status      SubmissionStatus `db:"status" json:"status"`
}

// SubmissionDetail extends a submission with the joined student name.
type SubmissionDetail struct {
	Submission
	StudentName  *string `db:"student_name" json:"student_name,omitempty"`
	StudentEmail *string `db:"student_email" json:"student_email,omitempty"`
}

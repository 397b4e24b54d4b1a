package models

import "time"

// Session records one tutoring interaction between a student and a teacher.
// A session is Open while EndTime is nil and Closed once it is set; the
// transition happens at most once and DurationSeconds stays 0 while open.
type Session struct {
	ID              string     `db:"id" json:"id"`
	StudentID       string     `db:"student_id" json:"student_id"`
	TeacherID       string     `db:"teacher_id" json:"teacher_id"`
	StartTime       time.Time  `db:"start_time" json:"start_time"`
	EndTime         *time.Time `db:"end_time" json:"end_time,omitempty"`
	DurationSeconds int64      `db:"duration_seconds" json:"duration_seconds"`
}

// Ended reports whether the session has been closed.
func (s *Session) Ended() bool {
	return s != nil && s.EndTime != nil
}

// SessionAverage is the aggregate returned by the class metrics endpoint.
type SessionAverage struct {
	Formatted      string `json:"formatted"`
	AverageSeconds int64  `json:"average_seconds"`
	SessionsCount  int    `json:"sessions_count"`
}

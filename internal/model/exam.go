package model

import "time"

// Exam represents a scheduled school exam.
type Exam struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Subject            string    `json:"subject,omitempty"`
	ExamDate           time.Time `json:"exam_date"`
	Location           string    `json:"location,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	ReminderDaysBefore int       `json:"reminder_days_before"`
	CreatedAt          time.Time `json:"created_at"`
}

// ReminderAt returns when a reminder for the exam becomes due.
func (e *Exam) ReminderAt() time.Time {
	return e.ExamDate.AddDate(0, 0, -e.ReminderDaysBefore)
}

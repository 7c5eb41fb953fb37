package repository

import (
	"context"
	"errors"
	"time"

	"lifedash-api/internal/model"
)

// ErrNotFound is returned when a record to delete does not exist.
var ErrNotFound = errors.New("record not found")

// TrackerRepository defines tracker data access methods.
type TrackerRepository interface {
	// CreateEvent inserts an event and returns it with ID and CreatedAt set.
	CreateEvent(ctx context.Context, event model.Event) (*model.Event, error)

	// ListEvents returns events newest first.
	ListEvents(ctx context.Context, filter model.EventFilter) (model.List[model.Event], error)

	// DeleteEvent removes an event by ID.
	DeleteEvent(ctx context.Context, id int64) error

	// CreateExam inserts an exam.
	CreateExam(ctx context.Context, exam model.Exam) (*model.Exam, error)

	// ListExams returns exams ordered by date. When upcomingOnly is set,
	// exams before the day of now are skipped.
	ListExams(ctx context.Context, upcomingOnly bool, now time.Time, page model.Page) (model.List[model.Exam], error)

	// DeleteExam removes an exam by ID.
	DeleteExam(ctx context.Context, id int64) error

	// CreateNote inserts a note.
	CreateNote(ctx context.Context, note model.Note) (*model.Note, error)

	// ListNotes returns notes most recently updated first.
	ListNotes(ctx context.Context, filter model.NoteFilter) (model.List[model.Note], error)

	// DeleteNote removes a note by ID.
	DeleteNote(ctx context.Context, id int64) error

	// GetStats returns statistics about the store.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

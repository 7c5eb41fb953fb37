package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"lifedash-api/internal/model"

	"go.uber.org/zap"
)

// SQLTrackerRepository implements TrackerRepository over database/sql.
// Timestamps are stored as UTC unix seconds so every engine compares them
// the same way.
type SQLTrackerRepository struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
	now     func() time.Time
}

func newSQLTrackerRepository(db *sql.DB, d dialect, logger *zap.Logger) (*SQLTrackerRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return &SQLTrackerRepository{
		db:      db,
		dialect: d,
		logger:  logger.Named("repository").With(zap.String("driver", d.name)),
		now:     time.Now,
	}, nil
}

func toUnix(t time.Time) int64 {
	return t.UTC().Unix()
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func (r *SQLTrackerRepository) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if r.dialect.returning {
		var id int64
		err := r.db.QueryRowContext(ctx, r.dialect.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}

	res, err := r.db.ExecContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLTrackerRepository) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLTrackerRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), args...).Scan(&total)
	return total, err
}

// CreateEvent inserts an event.
func (r *SQLTrackerRepository) CreateEvent(ctx context.Context, event model.Event) (*model.Event, error) {
	event.CreatedAt = r.now().UTC().Truncate(time.Second)
	event.OccurredAt = event.OccurredAt.UTC().Truncate(time.Second)

	id, err := r.insert(ctx, `
		INSERT INTO events (type, name, occurred_at, duration_minutes, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(event.Type), event.Name, toUnix(event.OccurredAt), event.DurationMinutes, event.Notes, toUnix(event.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	event.ID = id
	return &event, nil
}

// ListEvents returns events newest first.
func (r *SQLTrackerRepository) ListEvents(ctx context.Context, filter model.EventFilter) (model.List[model.Event], error) {
	page := filter.Page.Normalize()
	result := model.List[model.Event]{Items: []model.Event{}, Page: page}

	where := " WHERE 1=1"
	var args []any
	if filter.Type != "" {
		where += " AND type = ?"
		args = append(args, string(filter.Type))
	}
	if !filter.From.IsZero() {
		where += " AND occurred_at >= ?"
		args = append(args, toUnix(filter.From))
	}
	if !filter.To.IsZero() {
		where += " AND occurred_at <= ?"
		args = append(args, toUnix(filter.To))
	}

	total, err := r.count(ctx, "SELECT COUNT(*) FROM events"+where, args...)
	if err != nil {
		return result, fmt.Errorf("failed to count events: %w", err)
	}
	result.Total = total

	query := "SELECT id, type, name, occurred_at, duration_minutes, notes, created_at FROM events" +
		where + " ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return result, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e                     model.Event
			eventType             string
			occurredAt, createdAt int64
		)
		if err := rows.Scan(&e.ID, &eventType, &e.Name, &occurredAt, &e.DurationMinutes, &e.Notes, &createdAt); err != nil {
			return result, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = model.EventType(eventType)
		e.OccurredAt = fromUnix(occurredAt)
		e.CreatedAt = fromUnix(createdAt)
		result.Items = append(result.Items, e)
	}
	return result, rows.Err()
}

// DeleteEvent removes an event by ID.
func (r *SQLTrackerRepository) DeleteEvent(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "events", id)
}

// CreateExam inserts an exam.
func (r *SQLTrackerRepository) CreateExam(ctx context.Context, exam model.Exam) (*model.Exam, error) {
	exam.CreatedAt = r.now().UTC().Truncate(time.Second)
	exam.ExamDate = exam.ExamDate.UTC().Truncate(time.Second)

	id, err := r.insert(ctx, `
		INSERT INTO exams (name, subject, exam_date, location, notes, reminder_days_before, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exam.Name, exam.Subject, toUnix(exam.ExamDate), exam.Location, exam.Notes, exam.ReminderDaysBefore, toUnix(exam.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert exam: %w", err)
	}

	exam.ID = id
	return &exam, nil
}

// ListExams returns exams ordered by date.
func (r *SQLTrackerRepository) ListExams(ctx context.Context, upcomingOnly bool, now time.Time, page model.Page) (model.List[model.Exam], error) {
	page = page.Normalize()
	result := model.List[model.Exam]{Items: []model.Exam{}, Page: page}

	where := ""
	var args []any
	if upcomingOnly {
		y, m, d := now.UTC().Date()
		where = " WHERE exam_date >= ?"
		args = append(args, toUnix(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)))
	}

	total, err := r.count(ctx, "SELECT COUNT(*) FROM exams"+where, args...)
	if err != nil {
		return result, fmt.Errorf("failed to count exams: %w", err)
	}
	result.Total = total

	query := "SELECT id, name, subject, exam_date, location, notes, reminder_days_before, created_at FROM exams" +
		where + " ORDER BY exam_date ASC, id ASC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return result, fmt.Errorf("failed to list exams: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e                   model.Exam
			examDate, createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Subject, &examDate, &e.Location, &e.Notes, &e.ReminderDaysBefore, &createdAt); err != nil {
			return result, fmt.Errorf("failed to scan exam: %w", err)
		}
		e.ExamDate = fromUnix(examDate)
		e.CreatedAt = fromUnix(createdAt)
		result.Items = append(result.Items, e)
	}
	return result, rows.Err()
}

// DeleteExam removes an exam by ID.
func (r *SQLTrackerRepository) DeleteExam(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "exams", id)
}

// CreateNote inserts a note.
func (r *SQLTrackerRepository) CreateNote(ctx context.Context, note model.Note) (*model.Note, error) {
	now := r.now().UTC().Truncate(time.Second)
	note.CreatedAt = now
	note.UpdatedAt = now
	if note.Tags == nil {
		note.Tags = []string{}
	}

	id, err := r.insert(ctx, `
		INSERT INTO notes (title, content, category, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		note.Title, note.Content, note.Category, strings.Join(note.Tags, ","), toUnix(now), toUnix(now))
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}

	note.ID = id
	return &note, nil
}

// ListNotes returns notes most recently updated first.
func (r *SQLTrackerRepository) ListNotes(ctx context.Context, filter model.NoteFilter) (model.List[model.Note], error) {
	page := filter.Page.Normalize()
	result := model.List[model.Note]{Items: []model.Note{}, Page: page}

	where := " WHERE 1=1"
	var args []any
	if filter.Category != "" {
		where += " AND category = ?"
		args = append(args, filter.Category)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		where += " AND (LOWER(title) LIKE ? OR LOWER(content) LIKE ?)"
		args = append(args, pattern, pattern)
	}

	total, err := r.count(ctx, "SELECT COUNT(*) FROM notes"+where, args...)
	if err != nil {
		return result, fmt.Errorf("failed to count notes: %w", err)
	}
	result.Total = total

	query := "SELECT id, title, content, category, tags, created_at, updated_at FROM notes" +
		where + " ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return result, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n                    model.Note
			tags                 string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.Category, &tags, &createdAt, &updatedAt); err != nil {
			return result, fmt.Errorf("failed to scan note: %w", err)
		}
		n.Tags = splitTags(tags)
		n.CreatedAt = fromUnix(createdAt)
		n.UpdatedAt = fromUnix(updatedAt)
		result.Items = append(result.Items, n)
	}
	return result, rows.Err()
}

func splitTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// DeleteNote removes a note by ID.
func (r *SQLTrackerRepository) DeleteNote(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "notes", id)
}

// GetStats returns row counts per table and connection pool stats.
func (r *SQLTrackerRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["driver"] = r.dialect.name

	for _, table := range []string{"events", "exams", "notes"} {
		total, err := r.count(ctx, "SELECT COUNT(*) FROM "+table)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats["total_"+table] = total
	}

	dbStats := r.db.Stats()
	stats["connections"] = map[string]interface{}{
		"open":     dbStats.OpenConnections,
		"in_use":   dbStats.InUse,
		"idle":     dbStats.Idle,
		"max_open": dbStats.MaxOpenConnections,
	}

	return stats, nil
}

// Close closes the database connection pool.
func (r *SQLTrackerRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLTrackerRepository implements TrackerRepository
var _ TrackerRepository = (*SQLTrackerRepository)(nil)

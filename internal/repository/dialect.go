package repository

import (
	"strconv"
	"strings"
)

// dialect captures what differs between the supported SQL engines.
type dialect struct {
	name string

	// schema statements, executed one at a time
	schema []string

	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool

	// INSERT ... RETURNING id instead of LastInsertId
	returning bool
}

// rebind rewrites ? placeholders for engines that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			occurred_at INTEGER NOT NULL,
			duration_minutes INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events(occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
		`CREATE TABLE IF NOT EXISTS exams (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			exam_date INTEGER NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			reminder_days_before INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exams_exam_date ON exams(exam_date)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_category ON notes(category)`,
	},
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS events (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			type VARCHAR(32) NOT NULL,
			name VARCHAR(255) NOT NULL,
			occurred_at BIGINT NOT NULL,
			duration_minutes INT NOT NULL DEFAULT 0,
			notes TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			INDEX idx_events_occurred_at (occurred_at),
			INDEX idx_events_type (type)
		)`,
		`CREATE TABLE IF NOT EXISTS exams (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			subject VARCHAR(255) NOT NULL DEFAULT '',
			exam_date BIGINT NOT NULL,
			location VARCHAR(255) NOT NULL DEFAULT '',
			notes TEXT NOT NULL,
			reminder_days_before INT NOT NULL DEFAULT 1,
			created_at BIGINT NOT NULL,
			INDEX idx_exams_exam_date (exam_date)
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			category VARCHAR(128) NOT NULL DEFAULT '',
			tags TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			INDEX idx_notes_category (category)
		)`,
	},
}

var postgresDialect = dialect{
	name:      "postgres",
	numbered:  true,
	returning: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			occurred_at BIGINT NOT NULL,
			duration_minutes INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events(occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
		`CREATE TABLE IF NOT EXISTS exams (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			exam_date BIGINT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			reminder_days_before INTEGER NOT NULL DEFAULT 1,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exams_exam_date ON exams(exam_date)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_category ON notes(category)`,
	},
}

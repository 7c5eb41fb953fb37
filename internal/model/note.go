package model

import "time"

// Note is a second-brain knowledge entry.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteFilter narrows ListNotes.
type NoteFilter struct {
	Category string
	Query    string // matched against title and content
	Page     Page
}

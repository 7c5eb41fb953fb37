package model

import "time"

// EventType enumerates the activity kinds tracked by the dashboard.
type EventType string

const (
	EventSport     EventType = "sport"
	EventWork      EventType = "work"
	EventMeal      EventType = "meal"
	EventSleep     EventType = "sleep"
	EventStudy     EventType = "study"
	EventLeisure   EventType = "leisure"
	EventSocial    EventType = "social"
	EventWeight    EventType = "weight"
	EventHydration EventType = "hydration"
	EventOther     EventType = "other"
)

// Event represents a timestamped activity record.
type Event struct {
	ID              int64     `json:"id"`
	Type            EventType `json:"type"`
	Name            string    `json:"name"`
	OccurredAt      time.Time `json:"occurred_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// EventFilter narrows ListEvents. Zero values mean "no constraint".
type EventFilter struct {
	Type EventType
	From time.Time
	To   time.Time
	Page Page
}

// EventTypes lists every known event type.
func EventTypes() []EventType {
	return []EventType{
		EventSport, EventWork, EventMeal, EventSleep, EventStudy,
		EventLeisure, EventSocial, EventWeight, EventHydration, EventOther,
	}
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, known := range EventTypes() {
		if t == known {
			return true
		}
	}
	return false
}

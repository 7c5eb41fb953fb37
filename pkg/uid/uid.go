package uid

import (
	"sync"

	"github.com/google/uuid"
)

var (
	instanceID   string
	instanceOnce sync.Once
)

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Instance returns an identifier that is fixed for the lifetime of the process.
func Instance() string {
	instanceOnce.Do(func() {
		instanceID = New()
	})
	return instanceID
}

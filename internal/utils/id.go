package utils

import "github.com/google/uuid"

// NewID returns a random instance identifier.
func NewID() string {
	return uuid.NewString()
}

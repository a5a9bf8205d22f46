package id

import "github.com/google/uuid"

// GenerateID returns a time-ordered UUID string for session handles.
// It falls back to a random v4 UUID if the v7 generator fails.
func GenerateID() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

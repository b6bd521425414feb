package utils

import "github.com/google/uuid"

// GenerateID returns a new random document record ID.
func GenerateID() string {
	return uuid.NewString()
}

package core

import "github.com/google/uuid"

// NewIdentifier returns a fresh random identifier for views, objects, jobs
// and event subscriptions.
func NewIdentifier() uuid.UUID {
	return uuid.New()
}

// ShortIdentifier is the first block of an identifier, handy in log lines.
func ShortIdentifier(id uuid.UUID) string {
	return id.String()[:8]
}

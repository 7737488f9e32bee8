package room

import "github.com/google/uuid"

// newPlayerID mints an opaque player id (≥10 chars, per spec.md §3).
func newPlayerID() string {
	return uuid.New().String()
}

// NewHostSecret mints an opaque host secret (≥10 chars, URL-safe alphabet).
// Exported for the registry, which synthesizes it at room creation time.
func NewHostSecret() string {
	return uuid.New().String()
}

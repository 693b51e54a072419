package utils

import "github.com/google/uuid"

// NewLocalID returns an identifier for a newly stored local entity. UUIDv7 is
// used so that local ids sort in creation order.
func NewLocalID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}

// NewRequestID returns an identifier used to correlate an asynchronous
// request with its completion.
func NewRequestID() uuid.UUID {
	return uuid.New()
}

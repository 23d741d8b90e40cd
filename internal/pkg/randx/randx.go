/*
Package randx provides functions for generating unique identifiers.

It is primarily used to generate connection and record identifiers for the
real-time layer and the persistence layer.
*/
package randx

import (
	"github.com/google/uuid"
)

// ConnectionID generates a transport-assigned identifier for a live connection.
// Connection identifiers are unique per connection instance; a reconnect always
// produces a new one.
func ConnectionID() string {
	return uuid.New().String()
}

// NotificationID generates a unique identifier for a notification record.
func NotificationID() string {
	return uuid.New().String()
}

// MessageID generates a unique identifier for a message record.
func MessageID() string {
	return uuid.New().String()
}

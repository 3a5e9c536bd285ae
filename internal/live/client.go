package live

import "civicwatch/backend/internal/models"

// Client is one realtime connection of an authenticated user.
type Client interface {
	// GetUserID returns the user the connection belongs to.
	GetUserID() string
	// GetSendChannel returns the channel the hub writes outgoing messages to.
	GetSendChannel() chan<- models.SignalMessage
	// Run starts the read and write pumps.
	Run()
	// Close stops the write pump; the read pump ends with the connection.
	Close()
}

package messaging

import "errors"

var (
	// ErrServiceStopped is returned when sending through a stopped service.
	ErrServiceStopped = errors.New("messaging service stopped")
	// ErrRichUnsupported is returned when a transport cannot send interactive list messages.
	ErrRichUnsupported = errors.New("interactive messages not supported by transport")
)

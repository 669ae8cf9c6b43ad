package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// Constants for service channel configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for inbound message channels
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations
	DefaultChannelTimeout = 1 * time.Second
	// MinPhoneDigits is the shortest phone number accepted as a recipient
	MinPhoneDigits = 6
)

var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient identifier.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a plain text message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing (e.g., listening for events).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Responses returns a channel of inbound messages for push-based transports.
	// Webhook transports deliver through the HTTP layer and never write to it.
	Responses() <-chan models.InboundMessage
}

// ListSender is implemented by services able to send interactive list messages.
type ListSender interface {
	SendList(ctx context.Context, to string, list models.ListMessage) error
}

// CanonicalizePhone strips every non-digit from recipient and checks the result is long enough.
func CanonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < MinPhoneDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, MinPhoneDigits)
	}
	return canonical, nil
}

// lifecycle carries the stop flag and inbound channel shared by every service.
type lifecycle struct {
	name      string
	mu        sync.RWMutex
	stopped   bool
	responses chan models.InboundMessage
}

func newLifecycle(name string) *lifecycle {
	return &lifecycle{name: name, responses: make(chan models.InboundMessage, DefaultChannelBufferSize)}
}

func (l *lifecycle) checkRunning() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		return ErrServiceStopped
	}
	return nil
}

// Stop marks the service stopped and closes the inbound channel. Calling it twice is safe.
func (l *lifecycle) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return nil
	}
	l.stopped = true
	close(l.responses)
	slog.Info(l.name+" stopped and channels closed")
	return nil
}

// Responses returns the inbound message channel.
func (l *lifecycle) Responses() <-chan models.InboundMessage {
	return l.responses
}

// emit forwards msg to the inbound channel, dropping it when the channel stays full.
func (l *lifecycle) emit(msg models.InboundMessage) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		slog.Warn(l.name+" dropping inbound message (service stopped)", "from", msg.From)
		return
	}
	select {
	case l.responses <- msg:
		slog.Debug(l.name+" inbound message forwarded", "from", msg.From)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn(l.name+" responses channel blocked, dropping message", "from", msg.From, "timeout", DefaultChannelTimeout)
	}
}

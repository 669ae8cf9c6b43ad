package messaging

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/SivetachiBot/internal/twiliowhatsapp"
)

// TwilioService implements the Service interface using the Twilio API.
// Twilio WhatsApp sessions only carry plain text, so list replies fall back to text.
type TwilioService struct {
	*lifecycle
	client twiliowhatsapp.Sender // Could be real Twilio client or MockClient
}

// Compile-time check that TwilioService implements Service.
var _ Service = (*TwilioService)(nil)

// NewTwilioService creates a new TwilioService.
func NewTwilioService(client twiliowhatsapp.Sender) *TwilioService {
	return &TwilioService{lifecycle: newLifecycle("TwilioService"), client: client}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp phone number.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical, err := CanonicalizePhone(recipient)
	if err == nil && canonical != recipient {
		slog.Debug("TwilioService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, err
}

// Start is a no-op for Twilio; inbound messages arrive through the form webhook.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// SendMessage sends a message via Twilio.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	if err := s.checkRunning(); err != nil {
		return err
	}
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService.SendMessage: invalid recipient", "error", err, "to", to)
		return err
	}
	if err := s.client.SendMessage(ctx, canonicalTo, body); err != nil {
		slog.Error("TwilioService.SendMessage: send failed", "error", err, "to", canonicalTo)
		return err
	}
	return nil
}

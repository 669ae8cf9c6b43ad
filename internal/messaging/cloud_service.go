package messaging

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/SivetachiBot/internal/cloudapi"
	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// CloudService implements Service and ListSender on top of the WhatsApp Cloud API.
type CloudService struct {
	*lifecycle
	client cloudapi.Sender
}

// Compile-time checks for CloudService.
var (
	_ Service    = (*CloudService)(nil)
	_ ListSender = (*CloudService)(nil)
)

// NewCloudService creates a CloudService wrapping client, which may be a real client or a MockClient.
func NewCloudService(client cloudapi.Sender) *CloudService {
	return &CloudService{lifecycle: newLifecycle("CloudService"), client: client}
}

// ValidateAndCanonicalizeRecipient returns the digits-only phone number.
func (s *CloudService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

// Start is a no-op; inbound messages arrive through the webhook.
func (s *CloudService) Start(ctx context.Context) error {
	return nil
}

// SendMessage sends a text message.
func (s *CloudService) SendMessage(ctx context.Context, to string, body string) error {
	if err := s.checkRunning(); err != nil {
		return err
	}
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("CloudService.SendMessage: invalid recipient", "error", err, "to", to)
		return err
	}
	if err := s.client.SendText(ctx, canonicalTo, body); err != nil {
		slog.Error("CloudService.SendMessage: send failed", "error", err, "to", canonicalTo)
		return err
	}
	slog.Debug("CloudService.SendMessage: sent", "to", canonicalTo, "body_length", len(body))
	return nil
}

// SendList sends an interactive list message.
func (s *CloudService) SendList(ctx context.Context, to string, list models.ListMessage) error {
	if err := s.checkRunning(); err != nil {
		return err
	}
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}
	if err := s.client.SendList(ctx, canonicalTo, list); err != nil {
		slog.Warn("CloudService.SendList: send failed", "error", err, "to", canonicalTo)
		return err
	}
	slog.Debug("CloudService.SendList: sent", "to", canonicalTo, "sections", len(list.Sections))
	return nil
}

package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// SendReply delivers reply to the recipient. When the reply has a list rendering the
// list is tried first; if the transport lacks list support or the send fails, the plain
// text is sent exactly once instead. usedFallback reports that the text path replaced a list.
func SendReply(ctx context.Context, svc Service, to string, reply models.Reply) (usedFallback bool, err error) {
	if reply.List == nil {
		return false, svc.SendMessage(ctx, to, reply.Text)
	}

	listErr := sendList(ctx, svc, to, *reply.List)
	if listErr == nil {
		return false, nil
	}
	if errors.Is(listErr, ErrRichUnsupported) {
		slog.Debug("SendReply: transport has no list support, sending text", "to", to)
	} else {
		slog.Warn("SendReply: list send failed, falling back to text", "error", listErr, "to", to)
	}

	if err := svc.SendMessage(ctx, to, reply.Text); err != nil {
		return true, fmt.Errorf("text fallback after list failure: %w", err)
	}
	return true, nil
}

func sendList(ctx context.Context, svc Service, to string, list models.ListMessage) error {
	ls, ok := svc.(ListSender)
	if !ok {
		return ErrRichUnsupported
	}
	return ls.SendList(ctx, to, list)
}

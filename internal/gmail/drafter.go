package gmail

import (
	"context"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"
	gmailapi "google.golang.org/api/gmail/v1"
)

// Drafter creates drafts in the authenticated user's mailbox.
type Drafter struct {
	svc    *gmailapi.Service
	logger *zap.Logger
}

func NewDrafter(svc *gmailapi.Service, logger *zap.Logger) *Drafter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Drafter{svc: svc, logger: logger}
}

// CreateDraft encodes the email and saves it as a draft. The draft id comes
// back so a caller can report it.
func (d *Drafter) CreateDraft(ctx context.Context, email Email) (string, error) {
	raw, err := email.Encode()
	if err != nil {
		return "", err
	}

	draft := &gmailapi.Draft{
		Message: &gmailapi.Message{
			Raw: base64.URLEncoding.EncodeToString(raw),
		},
	}
	created, err := d.svc.Users.Drafts.Create("me", draft).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create gmail draft: %w", err)
	}

	d.logger.Info("draft created",
		zap.String("draft_id", created.Id), zap.String("to", email.To),
		zap.String("subject", email.Subject))
	return created.Id, nil
}

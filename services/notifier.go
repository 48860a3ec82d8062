package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/markovtsev/ladder-system/repositories"
)

// Notifier delivers per-player notifications. Delivery is strictly
// best-effort: a failure is logged and must never fail or roll back the
// operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, userID int, subject, body string)
}

type emailNotifier struct {
	userRepo repositories.UserRepository
	sender   *EmailSender
	logger   *slog.Logger
}

func NewEmailNotifier(userRepo repositories.UserRepository, sender *EmailSender, logger *slog.Logger) Notifier {
	return &emailNotifier{userRepo: userRepo, sender: sender, logger: logger}
}

func (n *emailNotifier) Notify(ctx context.Context, userID int, subject, body string) {
	user, err := n.userRepo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			n.logger.Error("notification lookup failed", slog.Int("user_id", userID), slog.Any("error", err))
		}
		return
	}
	if err := n.sender.Send(user.Email, subject, body); err != nil {
		n.logger.Error("notification delivery failed",
			slog.Int("user_id", userID), slog.String("subject", subject), slog.Any("error", err))
	}
}

// NopNotifier discards notifications; used in tests and when SMTP is not
// configured.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, userID int, subject, body string) {}

package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxMessageLength bounds a feedback message, in runes.
const MaxMessageLength = 4000

var (
	ErrEmptyMessage   = errors.New("feedback message is empty")
	ErrMessageTooLong = errors.New("feedback message is too long")
)

// Notifier forwards feedback to a human channel.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Service interface {
	Submit(ctx context.Context, username, message string) (*Feedback, error)
	Recent(ctx context.Context, limit int) ([]Feedback, error)
}

type service struct {
	repo     Repository
	notifier Notifier
	chatID   int64
	logger   *zap.Logger
}

// NewService stores feedback in repo. When notifier is non-nil and chatID is
// set, each submission is also forwarded there.
func NewService(repo Repository, notifier Notifier, chatID int64, logger *zap.Logger) Service {
	return &service{repo: repo, notifier: notifier, chatID: chatID, logger: logger}
}

func (s *service) Submit(ctx context.Context, username, message string) (*Feedback, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	f := &Feedback{ID: uuid.New(), Username: username, Message: message}
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}

	if s.notifier != nil && s.chatID != 0 {
		text := fmt.Sprintf("New feedback from %s:\n%s", username, message)
		if err := s.notifier.SendMessage(ctx, s.chatID, text); err != nil {
			// stored already; forwarding is best effort
			s.logger.Warn("failed to forward feedback", zap.String("id", f.ID.String()), zap.Error(err))
		}
	}
	return f, nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]Feedback, error) {
	return s.repo.List(ctx, limit)
}

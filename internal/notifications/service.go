package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"neurolearn-backend/internal/shared/email"
	"neurolearn-backend/internal/shared/logging"
)

// EmailLookup resolves a user's email address, typically backed by the
// profiles service.
type EmailLookup interface {
	EmailByUser(ctx context.Context, userID string) (string, error)
}

// Service contains business logic for in-app notifications and optional
// email delivery.
type Service struct {
	Repo       Repo
	Email      email.Sender
	Emails     EmailLookup
	EmailKinds map[string]bool
	Log        *logging.Logger
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Log: logging.Nop()}
}

// ParseKinds splits a comma-separated kind list into a lookup set.
func ParseKinds(csv string) map[string]bool {
	kinds := make(map[string]bool)
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			kinds[part] = true
		}
	}
	return kinds
}

// Notify records a notification and, for configured kinds, sends an email in
// the background. Guests cannot list notifications, so no row is written for
// guest principals.
func (s *Service) Notify(ctx context.Context, userID, kind, title, body string) (Notification, error) {
	if s == nil || s.Repo == nil {
		return Notification{}, errors.New("notifications service not configured")
	}
	if userID == "" || kind == "" || title == "" {
		return Notification{}, errors.New("userID, kind and title are required")
	}
	if strings.HasPrefix(userID, "guest:") {
		return Notification{}, nil
	}

	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		return Notification{}, err
	}

	if s.Email != nil && s.EmailKinds[kind] {
		go s.sendEmail(userID, title, body)
	}
	return n, nil
}

func (s *Service) sendEmail(userID, title, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := s.Log
	if log == nil {
		log = logging.Nop()
	}

	if s.Emails == nil {
		return
	}
	to, err := s.Emails.EmailByUser(ctx, userID)
	if err != nil || strings.TrimSpace(to) == "" {
		return
	}
	if err := s.Email.Send(ctx, to, title, body); err != nil {
		log.Warn("notify.email_failed", "user_id", userID, "error", err.Error())
		return
	}
	log.Debug("notify.email_sent", "user_id", userID, "title", title)
}

func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Notification, int, error) {
	if s == nil || s.Repo == nil {
		return nil, 0, errors.New("notifications service not configured")
	}
	if userID == "" {
		return nil, 0, errors.New("userID is required")
	}
	items, err := s.Repo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.Repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return items, unread, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	if s == nil || s.Repo == nil {
		return errors.New("notifications service not configured")
	}
	if userID == "" || id == "" {
		return errors.New("userID and id are required")
	}
	return s.Repo.MarkRead(ctx, userID, id, time.Now().UTC())
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	if s == nil || s.Repo == nil {
		return errors.New("notifications service not configured")
	}
	if userID == "" {
		return errors.New("userID is required")
	}
	return s.Repo.MarkAllRead(ctx, userID, time.Now().UTC())
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if s == nil || s.Repo == nil {
		return errors.New("notifications service not configured")
	}
	if userID == "" || id == "" {
		return errors.New("userID and id are required")
	}
	return s.Repo.Delete(ctx, userID, id)
}

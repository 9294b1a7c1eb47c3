package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingSender struct {
	sent chan string
}

func (s *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	s.sent <- to + "|" + subject
	return nil
}

type staticEmails struct {
	email string
	err   error
}

func (s staticEmails) EmailByUser(ctx context.Context, userID string) (string, error) {
	return s.email, s.err
}

func TestNotifyCreatesRow(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	n, err := svc.Notify(context.Background(), "user-1", KindWelcome, "Welcome", "Glad to have you.")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected generated id")
	}
	if n.ReadAt != nil {
		t.Fatal("new notification must be unread")
	}

	items, unread, err := svc.List(context.Background(), "user-1", ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || unread != 1 {
		t.Fatalf("expected 1 item 1 unread, got %d/%d", len(items), unread)
	}
}

func TestNotifySkipsGuests(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	n, err := svc.Notify(context.Background(), "guest:abc", KindSummaryReady, "Summary ready", "")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n.ID != "" {
		t.Fatal("expected no row for guest principal")
	}
}

func TestNotifySendsEmailForConfiguredKinds(t *testing.T) {
	repo := NewMemoryRepo()
	sender := &recordingSender{sent: make(chan string, 1)}

	svc := NewService(repo)
	svc.Email = sender
	svc.Emails = staticEmails{email: "student@example.com"}
	svc.EmailKinds = ParseKinds("summary_ready, quiz_ready")

	if _, err := svc.Notify(context.Background(), "user-1", KindSummaryReady, "Summary ready", "Done."); err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case got := <-sender.sent:
		if got != "student@example.com|Summary ready" {
			t.Fatalf("unexpected email: %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected email send")
	}

	// Unconfigured kind must not email.
	if _, err := svc.Notify(context.Background(), "user-1", KindWelcome, "Welcome", ""); err != nil {
		t.Fatalf("notify: %v", err)
	}
	select {
	case got := <-sender.sent:
		t.Fatalf("unexpected email for welcome kind: %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifySkipsEmailWhenLookupFails(t *testing.T) {
	repo := NewMemoryRepo()
	sender := &recordingSender{sent: make(chan string, 1)}

	svc := NewService(repo)
	svc.Email = sender
	svc.Emails = staticEmails{err: errors.New("no profile")}
	svc.EmailKinds = ParseKinds("summary_ready")

	if _, err := svc.Notify(context.Background(), "user-1", KindSummaryReady, "Summary ready", ""); err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case got := <-sender.sent:
		t.Fatalf("unexpected email: %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	first, err := svc.Notify(context.Background(), "user-1", KindWelcome, "Welcome", "")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if _, err := svc.Notify(context.Background(), "user-1", KindOnboarding, "All set", ""); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if err := svc.MarkRead(context.Background(), "user-1", first.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	_, unread, err := svc.List(context.Background(), "user-1", ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if unread != 1 {
		t.Fatalf("expected 1 unread, got %d", unread)
	}

	// Marking an already-read row again stays idempotent.
	if err := svc.MarkRead(context.Background(), "user-1", first.ID); err != nil {
		t.Fatalf("second mark read: %v", err)
	}

	if err := svc.MarkAllRead(context.Background(), "user-1"); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	_, unread, err = svc.List(context.Background(), "user-1", ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if unread != 0 {
		t.Fatalf("expected 0 unread, got %d", unread)
	}
}

func TestMarkReadWrongOwner(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	n, err := svc.Notify(context.Background(), "user-1", KindWelcome, "Welcome", "")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if err := svc.MarkRead(context.Background(), "user-2", n.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), "user-2", n.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUnreadFilterAndPagination(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		n := Notification{
			ID:        "n-" + string(rune('a'+i)),
			UserID:    "user-1",
			Kind:      KindSummaryReady,
			Title:     "Summary ready",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if i < 2 {
			read := base
			n.ReadAt = &read
		}
		if err := repo.Create(context.Background(), n); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	unreadOnly, _, err := svc.List(context.Background(), "user-1", ListFilter{UnreadOnly: true, Limit: 10})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unreadOnly) != 3 {
		t.Fatalf("expected 3 unread, got %d", len(unreadOnly))
	}

	page, _, err := svc.List(context.Background(), "user-1", ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	// Newest first.
	if !page[0].CreatedAt.After(page[1].CreatedAt) {
		t.Fatal("expected newest-first ordering")
	}

	empty, _, err := svc.List(context.Background(), "user-1", ListFilter{Limit: 10, Offset: 99})
	if err != nil {
		t.Fatalf("list out of range: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d", len(empty))
	}
}

func TestParseKinds(t *testing.T) {
	kinds := ParseKinds(" summary_ready,, quiz_failed ")
	if len(kinds) != 2 || !kinds["summary_ready"] || !kinds["quiz_failed"] {
		t.Fatalf("unexpected kinds: %v", kinds)
	}
	if len(ParseKinds("")) != 0 {
		t.Fatal("expected empty set")
	}
}

package email

import (
	"context"
	"os"
	"testing"
)

func TestConsoleSendLogs(t *testing.T) {
	var gotMsg string
	var gotKVs []any
	s := &Console{Logf: func(msg string, keysAndValues ...any) {
		gotMsg = msg
		gotKVs = keysAndValues
	}}

	if err := s.Send(context.Background(), "student@example.com", "Summary ready", "Your summary is done."); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotMsg != "email.console" {
		t.Fatalf("log msg = %q", gotMsg)
	}
	if len(gotKVs) != 6 {
		t.Fatalf("expected 6 kv entries, got %d", len(gotKVs))
	}
	if gotKVs[1] != "student@example.com" {
		t.Fatalf("to = %v", gotKVs[1])
	}
}

func TestConsoleSendCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Console{}
	if err := s.Send(ctx, "a@b.c", "s", "b"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestFromEnvDefaultsToConsole(t *testing.T) {
	t.Setenv("SENDGRID_API_KEY", "")

	if _, ok := FromEnv(nil).(*Console); !ok {
		t.Fatal("expected console sender without an API key")
	}
}

func TestFromEnvPicksSendGrid(t *testing.T) {
	t.Setenv("SENDGRID_API_KEY", "SG.test")
	t.Setenv("SENDGRID_FROM_EMAIL", "")
	t.Setenv("SENDGRID_FROM_NAME", "")

	sender, ok := FromEnv(nil).(*SendGrid)
	if !ok {
		t.Fatal("expected sendgrid sender when API key is set")
	}
	if sender.FromEmail == "" || sender.FromName == "" {
		t.Fatalf("expected from defaults, got %q %q", sender.FromEmail, sender.FromName)
	}
	_ = os.Unsetenv("SENDGRID_API_KEY")
}

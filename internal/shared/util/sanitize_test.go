package util

import (
	"errors"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "notes.pdf", want: "notes.pdf"},
		{name: "trimmed", in: "  notes.pdf  ", want: "notes.pdf"},
		{name: "separators replaced", in: "a/b\\c.txt", want: "a_b_c.txt"},
		{name: "control chars replaced", in: "a\x00b\tc.txt", want: "a_b_c.txt"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFileName(tt.in)
			if err != nil {
				t.Fatalf("SanitizeFileName(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	for _, in := range []string{"", "   ", "../../etc/passwd", "a..b"} {
		if _, err := SanitizeFileName(in); !errors.Is(err, ErrInvalidFileName) {
			t.Fatalf("SanitizeFileName(%q) expected ErrInvalidFileName, got %v", in, err)
		}
	}
}

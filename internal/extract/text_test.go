package extract

import (
	"strings"
	"testing"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "collapse spaces", in: "a   b\t\tc", want: "a b c"},
		{name: "crlf", in: "a\r\nb\rc", want: "a\nb\nc"},
		{name: "trailing spaces on lines", in: "a  \n  b", want: "a\nb"},
		{name: "cap blank lines", in: "a\n\n\n\n\nb", want: "a\n\nb"},
		{name: "nbsp and zero width", in: "a ​b", want: "a b"},
		{name: "control chars stripped", in: "chapter one\x0c\x00\x08 ends here", want: "chapter one ends here"},
		{name: "vertical tab and escape", in: "a\x0bb\x1bc", want: "abc"},
		{name: "trim", in: "  \n a \n ", want: "a"},
		{name: "empty", in: "   \n\t ", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeWhitespace(tt.in); got != tt.want {
				t.Fatalf("NormalizeWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{name: "plain utf8", in: []byte("héllo"), want: "héllo"},
		{name: "utf8 bom", in: []byte{0xef, 0xbb, 0xbf, 'h', 'i'}, want: "hi"},
		{name: "utf16 le", in: []byte{0xff, 0xfe, 'h', 0x00, 'i', 0x00}, want: "hi"},
		{name: "utf16 be", in: []byte{0xfe, 0xff, 0x00, 'h', 0x00, 'i'}, want: "hi"},
		{name: "latin1 fallback", in: []byte{'c', 'a', 'f', 0xe9}, want: "café"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeText(tt.in); got != tt.want {
				t.Fatalf("decodeText(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestChunkShortTextSinglePiece(t *testing.T) {
	got := Chunk("short text.", 4000)
	if len(got) != 1 || got[0] != "short text." {
		t.Fatalf("Chunk = %v, want single piece", got)
	}
}

func TestChunkEmpty(t *testing.T) {
	if got := Chunk("   ", 4000); got != nil {
		t.Fatalf("Chunk on blank text = %v, want nil", got)
	}
}

func TestChunkSplitsAtSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence follows! Third one ends it?"
	got := Chunk(text, 30)

	want := []string{"First sentence here.", "Second sentence follows!", "Third one ends it?"}
	if len(got) != len(want) {
		t.Fatalf("Chunk = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChunkSplitsAtNewline(t *testing.T) {
	text := "heading without punctuation\nanother line of notes\nthird line"
	got := Chunk(text, 30)

	if len(got) < 2 {
		t.Fatalf("Chunk = %v, want multiple pieces", got)
	}
	if got[0] != "heading without punctuation" {
		t.Fatalf("chunk 0 = %q", got[0])
	}
}

func TestChunkFallsBackToSpaces(t *testing.T) {
	text := strings.Repeat("word ", 20) + "tail"
	got := Chunk(text, 25)

	for i, piece := range got {
		if len(piece) > 25 {
			t.Fatalf("chunk %d = %q exceeds limit", i, piece)
		}
		if piece == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
	if rejoined := strings.Join(got, " "); rejoined != strings.TrimSpace(text) {
		t.Fatalf("rejoined = %q, want original text", rejoined)
	}
}

func TestChunkHardCutsUnbrokenRun(t *testing.T) {
	text := strings.Repeat("x", 95)
	got := Chunk(text, 40)

	if len(got) != 3 {
		t.Fatalf("Chunk = %d pieces, want 3", len(got))
	}
	for i, piece := range got {
		if len(piece) > 40 {
			t.Fatalf("chunk %d len %d exceeds limit", i, len(piece))
		}
	}
	if strings.Join(got, "") != text {
		t.Fatalf("rejoined text differs from input")
	}
}

func TestChunkNeverSplitsRunes(t *testing.T) {
	text := strings.Repeat("ноучение", 20)
	got := Chunk(text, 33)

	for i, piece := range got {
		if !utf8ValidString(piece) {
			t.Fatalf("chunk %d is not valid utf8: %q", i, piece)
		}
	}
	if strings.Join(got, "") != text {
		t.Fatalf("rejoined text differs from input")
	}
}

func utf8ValidString(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

func TestChunkRespectsSizeWithSentences(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("This is a fairly ordinary sentence about neurons and synapses. ")
	}
	got := Chunk(b.String(), DefaultChunkSize)

	if len(got) < 2 {
		t.Fatalf("Chunk = %d pieces, want several", len(got))
	}
	for i, piece := range got {
		if len(piece) > DefaultChunkSize {
			t.Fatalf("chunk %d len %d exceeds %d", i, len(piece), DefaultChunkSize)
		}
		if !strings.HasSuffix(piece, ".") {
			t.Fatalf("chunk %d does not end at a sentence boundary: %q", i, piece[len(piece)-20:])
		}
	}
}

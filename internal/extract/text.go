package extract

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// DefaultChunkSize is the target size for pieces fed to the model.
const DefaultChunkSize = 4000

var (
	horizontalWS = regexp.MustCompile("[ \t ​]+")
	aroundNL     = regexp.MustCompile(" ?\n ?")
	excessNL     = regexp.MustCompile("\n{3,}")
)

// NormalizeWhitespace collapses runs of spaces and tabs, normalizes line
// endings, strips control characters and caps consecutive blank lines at
// one.
func NormalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(dropControl, s)
	s = horizontalWS.ReplaceAllString(s, " ")
	s = aroundNL.ReplaceAllString(s, "\n")
	s = excessNL.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// dropControl removes control characters that PDF and OCR extractors leak
// into text, such as form feeds and NULs. Newlines and tabs survive for
// the collapsing passes.
func dropControl(r rune) rune {
	if r == '\n' || r == '\t' {
		return r
	}
	if unicode.IsControl(r) {
		return -1
	}
	return r
}

// decodeText converts a plain-text payload to UTF-8. It strips byte order
// marks, decodes UTF-16 payloads and treats remaining invalid UTF-8 as
// Latin-1.
func decodeText(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xef, 0xbb, 0xbf}):
		data = data[3:]
	case bytes.HasPrefix(data, []byte{0xff, 0xfe}):
		return decodeUTF16(data[2:], false)
	case bytes.HasPrefix(data, []byte{0xfe, 0xff}):
		return decodeUTF16(data[2:], true)
	}
	if utf8.Valid(data) {
		return string(data)
	}

	// Latin-1: every byte maps to the code point of the same value.
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return b.String()
}

func decodeUTF16(data []byte, bigEndian bool) string {
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		if bigEndian {
			units = append(units, uint16(data[i])<<8|uint16(data[i+1]))
		} else {
			units = append(units, uint16(data[i+1])<<8|uint16(data[i]))
		}
	}
	return string(utf16.Decode(units))
}

// Chunk splits text into pieces of at most size characters, cutting at the
// sentence boundary nearest below the limit. A run with no boundary is cut at
// the nearest space, then hard at the limit.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	for len(text) > size {
		cut := lastSentenceEnd(text, size)
		if cut <= 0 {
			cut = lastSpace(text, size)
		}
		if cut <= 0 {
			cut = runeSafeCut(text, size)
		}
		piece := strings.TrimSpace(text[:cut])
		if piece != "" {
			chunks = append(chunks, piece)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// lastSentenceEnd finds the end of the last complete sentence within
// text[:limit]. A sentence ends at '.', '!' or '?' followed by whitespace, or
// at a newline.
func lastSentenceEnd(text string, limit int) int {
	for i := limit - 1; i > 0; i-- {
		c := text[i]
		if c == '\n' {
			return i + 1
		}
		if c != ' ' && c != '\t' {
			continue
		}
		switch text[i-1] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return 0
}

func lastSpace(text string, limit int) int {
	for i := limit - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\t' || text[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

// runeSafeCut backs the cut up so it never splits a multi-byte rune.
func runeSafeCut(text string, limit int) int {
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	if limit == 0 {
		return len(text)
	}
	return limit
}

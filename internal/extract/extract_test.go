package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const docxFixture = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>` +
	`<w:tbl>` +
	`<w:tr><w:tc><w:p><w:r><w:t>Term</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Definition</w:t></w:r></w:p></w:tc></w:tr>` +
	`<w:tr><w:tc><w:p><w:r><w:t>Neuron</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>A nerve cell.</w:t></w:r></w:p></w:tc></w:tr>` +
	`</w:tbl>` +
	`</w:body></w:document>`

func slideFixture(lines ...string) string {
	var b strings.Builder
	b.WriteString(`<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><p:cSld><p:spTree>`)
	for _, line := range lines {
		b.WriteString(`<p:sp><p:txBody><a:p><a:r><a:t>`)
		b.WriteString(line)
		b.WriteString(`</a:t></a:r></a:p></p:txBody></p:sp>`)
	}
	b.WriteString(`</p:spTree></p:cSld></p:sld>`)
	return b.String()
}

func TestExtractTextFromBytes_DOCX(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": docxFixture})

	got, err := ExtractTextFromBytes(context.Background(), data,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "notes.docx")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}

	want := "First paragraph.\nSecond paragraph.\nTerm | Definition\nNeuron | A nerve cell."
	if got != want {
		t.Fatalf("extracted = %q, want %q", got, want)
	}
}

func TestExtractTextFromBytes_DOCXFromZipMime(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": docxFixture})

	got, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "notes.docx")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if !strings.Contains(got, "First paragraph.") {
		t.Fatalf("extracted = %q, want docx content", got)
	}
}

func TestExtractTextFromBytes_PPTXOrdersSlides(t *testing.T) {
	data := buildZip(t, map[string]string{
		"ppt/presentation.xml":     `<p:presentation/>`,
		"ppt/slides/slide10.xml":   slideFixture("Tenth slide"),
		"ppt/slides/slide2.xml":    slideFixture("Second slide"),
		"ppt/slides/slide1.xml":    slideFixture("Title slide", "Subtitle line"),
		"ppt/slides/_rels/sl.rels": `<Relationships/>`,
	})

	got, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "deck.pptx")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}

	want := "Title slide\nSubtitle line\n\nSecond slide\n\nTenth slide"
	if got != want {
		t.Fatalf("extracted = %q, want %q", got, want)
	}
}

func TestExtractTextFromBytes_PlainText(t *testing.T) {
	got, err := ExtractTextFromBytes(context.Background(),
		[]byte("line one\r\n\r\n\r\nline   two\t\tend"), "text/plain", "notes.txt")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	want := "line one\n\nline two end"
	if got != want {
		t.Fatalf("extracted = %q, want %q", got, want)
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	data := buildZip(t, map[string]string{"notes.txt": "hello"})

	_, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("error = %v, want ErrUnsupported", err)
	}
}

func TestExtractTextFromBytes_EmptyDocument(t *testing.T) {
	data := buildZip(t, map[string]string{
		"word/document.xml": `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body></w:body></w:document>`,
	})

	_, err := ExtractTextFromBytes(context.Background(), data,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "empty.docx")
	if err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		fileName string
		want     bool
	}{
		{name: "pdf", mimeType: "application/pdf", fileName: "a.pdf", want: true},
		{name: "docx", mimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", fileName: "a.docx", want: true},
		{name: "pptx", mimeType: "application/vnd.openxmlformats-officedocument.presentationml.presentation", fileName: "a.pptx", want: true},
		{name: "txt", mimeType: "text/plain", fileName: "a.txt", want: true},
		{name: "markdown by extension", mimeType: "", fileName: "a.md", want: true},
		{name: "octet stream pdf name", mimeType: "application/octet-stream", fileName: "a.pdf", want: true},
		{name: "png", mimeType: "image/png", fileName: "a.png", want: false},
		{name: "xlsx", mimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", fileName: "a.xlsx", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Supported(tt.mimeType, tt.fileName); got != tt.want {
				t.Fatalf("Supported(%q, %q) = %v, want %v", tt.mimeType, tt.fileName, got, tt.want)
			}
		})
	}
}

func TestExtractedKey(t *testing.T) {
	if got := ExtractedKey("uploads/abc.pdf"); got != "uploads/abc.pdf.extracted.txt" {
		t.Fatalf("ExtractedKey = %q", got)
	}
}

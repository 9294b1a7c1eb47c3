package documents

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"neurolearn-backend/internal/media"
)

// DetectKind resolves the document kind from the file name, the declared
// mime type and the payload itself. The extension and the content sniff must
// agree; a .pdf that does not start with a PDF header is rejected rather
// than handed to the wrong extractor.
func DetectKind(fileName, mimeType string, data []byte) (string, error) {
	byName := kindFromExtension(fileName)
	byContent := kindFromContent(mimeType, data)

	switch {
	case byName == "" && byContent == "":
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(fileName))
	case byName == "":
		return byContent, nil
	case byContent == "":
		return byName, nil
	case byName != byContent:
		return "", fmt.Errorf("%w: extension says %s but content looks like %s", ErrInvalidInput, byName, byContent)
	}
	return byName, nil
}

func kindFromExtension(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	case ".pptx":
		return KindPPTX
	case ".txt", ".md", ".markdown":
		return KindText
	case ".mp3", ".wav", ".ogg", ".flac", ".m4a", ".aac":
		return KindAudio
	case ".mp4", ".mov", ".webm", ".mkv", ".avi":
		return KindVideo
	default:
		return ""
	}
}

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// kindFromContent inspects the payload, falling back to the declared mime
// type for formats without an unambiguous magic header. OOXML containers are
// all zips; they are told apart later by their inner entries, so a zip only
// rules in the office kinds, it does not pick between them.
func kindFromContent(mimeType string, data []byte) string {
	if bytes.HasPrefix(data, pdfMagic) {
		return KindPDF
	}

	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if media.IsAudio(clean) {
		return KindAudio
	}
	if media.IsVideo(clean) {
		return KindVideo
	}

	if bytes.HasPrefix(data, zipMagic) {
		switch clean {
		case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
			return KindDOCX
		case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
			return KindPPTX
		}
		// Generic zip: defer to the extension.
		return ""
	}

	switch clean {
	case "application/pdf":
		return KindPDF
	case "text/plain", "text/markdown":
		return KindText
	}
	if looksLikeText(data) {
		return KindText
	}
	return ""
}

// looksLikeText accepts payloads with no NUL bytes in the leading window.
// UTF-16 files carry a BOM and are handled by the text decoder.
func looksLikeText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		return true
	}
	window := data
	if len(window) > 512 {
		window = window[:512]
	}
	return !bytes.ContainsRune(window, 0)
}

// IsMediaKind reports whether the kind needs a transcriber instead of a
// document extractor.
func IsMediaKind(kind string) bool {
	return kind == KindAudio || kind == KindVideo
}

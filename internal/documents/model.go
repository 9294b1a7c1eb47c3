package documents

import "time"

// Document kinds. Text covers .txt and markdown uploads.
const (
	KindPDF   = "pdf"
	KindDOCX  = "docx"
	KindPPTX  = "pptx"
	KindText  = "text"
	KindAudio = "audio"
	KindVideo = "video"
)

// Document statuses. Extraction runs asynchronously after upload.
const (
	StatusUploaded   = "uploaded"
	StatusExtracting = "extracting"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Document is an uploaded study source owned by a user. Storage keys are
// internal and never serialized to clients.
type Document struct {
	ID               string     `json:"id"`
	UserID           string     `json:"-"`
	FileName         string     `json:"fileName"`
	OriginalFilename string     `json:"originalFilename,omitempty"`
	MimeType         string     `json:"mimeType"`
	Kind             string     `json:"kind"`
	SizeBytes        int64      `json:"sizeBytes"`
	StorageProvider  string     `json:"-"`
	StorageKey       string     `json:"-"`
	ExtractedTextKey string     `json:"-"`
	ExtractedAt      *time.Time `json:"extractedAt,omitempty"`
	CharCount        int        `json:"charCount"`
	Status           string     `json:"status"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
	DeletedAt        *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// ValidKind reports whether k names a supported document kind.
func ValidKind(k string) bool {
	switch k {
	case KindPDF, KindDOCX, KindPPTX, KindText, KindAudio, KindVideo:
		return true
	}
	return false
}

// ValidStatus reports whether s names a document lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusUploaded, StatusExtracting, StatusReady, StatusFailed:
		return true
	}
	return false
}

package media

import (
	"context"
	"errors"
	"strings"
)

// ErrNotConfigured means no transcription backend is available. Uploads of
// audio and video are rejected while this is the active transcriber.
var ErrNotConfigured = errors.New("media transcription is not configured")

// Transcriber converts spoken content of uploaded media into plain text.
type Transcriber interface {
	TranscribeAudio(ctx context.Context, data []byte, mimeType string) (string, error)
	TranscribeVideo(ctx context.Context, data []byte, mimeType string) (string, error)
	Close() error
}

// IsAudio reports whether the mime type is an audio payload.
func IsAudio(mimeType string) bool {
	return strings.HasPrefix(normalizeMime(mimeType), "audio/")
}

// IsVideo reports whether the mime type is a video payload.
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(normalizeMime(mimeType), "video/")
}

// IsMedia reports whether the mime type needs a transcriber instead of a
// document extractor.
func IsMedia(mimeType string) bool {
	return IsAudio(mimeType) || IsVideo(mimeType)
}

func normalizeMime(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

// Disabled is the transcriber used when no credentials are configured.
type Disabled struct{}

func (Disabled) TranscribeAudio(ctx context.Context, data []byte, mimeType string) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) TranscribeVideo(ctx context.Context, data []byte, mimeType string) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) Close() error { return nil }

var _ Transcriber = Disabled{}

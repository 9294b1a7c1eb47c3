package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"neurolearn-backend/internal/extract"
	"neurolearn-backend/internal/media"
	"neurolearn-backend/internal/shared/logging"
	"neurolearn-backend/internal/shared/storage/object"
)

// Service contains business logic for documents: upload, extraction and
// soft deletion.
type Service struct {
	Repo        Repo
	Store       object.ObjectStore
	Provider    string
	Transcriber media.Transcriber
	MaxBytes    int64
	Log         *logging.Logger
}

func NewService(repo Repo, store object.ObjectStore, provider string, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		Repo:        repo,
		Store:       store,
		Provider:    provider,
		Transcriber: media.Disabled{},
		MaxBytes:    25 << 20,
		Log:         log,
	}
}

// Upload stores the file, records the document row and kicks off asynchronous
// text extraction. The returned document is in the uploaded status; clients
// poll it until extraction finishes.
func (s *Service) Upload(ctx context.Context, userID, fileName, declaredMime string, r io.Reader) (Document, error) {
	fileName = strings.TrimSpace(fileName)
	if userID == "" {
		return Document{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if fileName == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return Document{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, s.MaxBytes)
	}

	kind, err := DetectKind(fileName, declaredMime, data)
	if err != nil {
		return Document{}, err
	}

	storageKey, size, sniffedMime, err := s.Store.Save(ctx, userID, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("store upload: %w", err)
	}

	mimeType := strings.TrimSpace(strings.Split(declaredMime, ";")[0])
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = sniffedMime
	}

	doc := Document{
		ID:               uuid.NewString(),
		UserID:           userID,
		FileName:         fileName,
		OriginalFilename: fileName,
		MimeType:         mimeType,
		Kind:             kind,
		SizeBytes:        size,
		StorageProvider:  s.Provider,
		StorageKey:       storageKey,
		Status:           StatusUploaded,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	go s.extractAsync(doc.UserID, doc.ID)

	return doc, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Document, error) {
	if userID == "" || id == "" {
		return Document{}, fmt.Errorf("%w: user id and document id are required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Document, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if filter.Kind != "" && !ValidKind(filter.Kind) {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, filter.Kind)
	}
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	return s.Repo.ListByUser(ctx, userID, filter)
}

// Text returns the extracted text of a ready document.
func (s *Service) Text(ctx context.Context, userID, id string) (Document, string, error) {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return Document{}, "", err
	}
	if doc.ExtractedTextKey == "" {
		if doc.Status == StatusFailed {
			return doc, "", fmt.Errorf("%w: %s", ErrExtractionFailed, doc.ErrorMessage)
		}
		return doc, "", ErrNotReady
	}
	text, err := s.loadText(ctx, doc.ExtractedTextKey)
	if err != nil {
		return doc, "", err
	}
	return doc, text, nil
}

// EnsureExtracted returns the extracted text, running extraction inline when
// the upload-time run has not happened yet. The generation pipelines call
// this so a summary request never waits on a poll cycle.
func (s *Service) EnsureExtracted(ctx context.Context, userID, id string) (Document, string, error) {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return Document{}, "", err
	}
	if doc.ExtractedTextKey != "" {
		text, err := s.loadText(ctx, doc.ExtractedTextKey)
		if err != nil {
			return doc, "", err
		}
		return doc, text, nil
	}

	claimed, err := s.Repo.MarkExtracting(ctx, userID, id)
	if err != nil {
		return doc, "", err
	}
	if !claimed {
		// A concurrent run got there first; reread its result.
		doc, err = s.Get(ctx, userID, id)
		if err != nil {
			return Document{}, "", err
		}
		if doc.ExtractedTextKey == "" {
			return doc, "", ErrNotReady
		}
		text, err := s.loadText(ctx, doc.ExtractedTextKey)
		if err != nil {
			return doc, "", err
		}
		return doc, text, nil
	}

	text, err := s.runExtraction(ctx, doc)
	if err != nil {
		s.markFailed(ctx, doc, err)
		return doc, "", err
	}
	return doc, text, nil
}

// Delete soft-deletes the row. Object removal is best-effort; a stranded
// blob is preferable to a delete that fails on storage hiccups.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.SoftDelete(ctx, userID, id, time.Now().UTC()); err != nil {
		return err
	}

	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
		s.Log.Warn("documents.delete_object_failed", "document_id", id, "error", err.Error())
	}
	if doc.ExtractedTextKey != "" {
		if err := s.Store.Delete(ctx, doc.ExtractedTextKey); err != nil {
			s.Log.Warn("documents.delete_object_failed", "document_id", id, "error", err.Error())
		}
	}
	return nil
}

// extractAsync is the upload-time extraction path. It runs on a detached
// context so a closed upload request does not cancel it.
func (s *Service) extractAsync(userID, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error("documents.extract_panic", "document_id", id, "panic", fmt.Sprint(r))
			_ = s.Repo.SetFailed(ctx, userID, id, "internal extraction error")
		}
	}()

	claimed, err := s.Repo.MarkExtracting(ctx, userID, id)
	if err != nil || !claimed {
		return
	}
	doc, err := s.Repo.GetByID(ctx, userID, id)
	if err != nil {
		return
	}
	if _, err := s.runExtraction(ctx, doc); err != nil {
		s.markFailed(ctx, doc, err)
	}
}

// runExtraction produces the extracted text, stores the derived copy and
// marks the document ready. Callers must have claimed the document first.
func (s *Service) runExtraction(ctx context.Context, doc Document) (string, error) {
	var (
		text string
		err  error
	)
	if IsMediaKind(doc.Kind) {
		text, err = s.transcribe(ctx, doc)
	} else {
		text, err = extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName)
	}
	if err != nil {
		return "", err
	}

	if err := s.Repo.SetExtracted(ctx, doc.UserID, doc.ID, extract.ExtractedKey(doc.StorageKey), len(text), time.Now().UTC()); err != nil {
		return "", fmt.Errorf("record extraction: %w", err)
	}
	s.Log.Info("documents.extracted",
		"document_id", doc.ID,
		"kind", doc.Kind,
		"char_count", len(text),
	)
	return text, nil
}

// transcribe runs audio and video uploads through the media provider and
// persists the transcript at the usual extracted-text key.
func (s *Service) transcribe(ctx context.Context, doc Document) (string, error) {
	transcriber := s.Transcriber
	if transcriber == nil {
		transcriber = media.Disabled{}
	}

	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return "", fmt.Errorf("open media key=%s: %w", doc.StorageKey, err)
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return "", fmt.Errorf("read media key=%s: %w", doc.StorageKey, err)
	}

	var transcript string
	if doc.Kind == KindAudio {
		transcript, err = transcriber.TranscribeAudio(ctx, data, doc.MimeType)
	} else {
		transcript, err = transcriber.TranscribeVideo(ctx, data, doc.MimeType)
	}
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}

	transcript = extract.NormalizeWhitespace(transcript)
	if transcript == "" {
		return "", errors.New("transcription: no speech recognized")
	}

	key := extract.ExtractedKey(doc.StorageKey)
	if _, err := s.Store.SaveWithKey(ctx, key, "text/plain; charset=utf-8", strings.NewReader(transcript)); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	return transcript, nil
}

func (s *Service) markFailed(ctx context.Context, doc Document, cause error) {
	msg := strings.TrimSpace(strings.ReplaceAll(cause.Error(), "\n", " "))
	if len(msg) > 500 {
		msg = msg[:500]
	}
	if err := s.Repo.SetFailed(ctx, doc.UserID, doc.ID, msg); err != nil {
		s.Log.Error("documents.mark_failed_error", "document_id", doc.ID, "error", err.Error())
	}
	s.Log.Warn("documents.extract_failed", "document_id", doc.ID, "kind", doc.Kind, "error", msg)
}

func (s *Service) loadText(ctx context.Context, key string) (string, error) {
	body, err := s.Store.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("load text key=%s: %w", key, err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("load text key=%s: %w", key, err)
	}
	return string(data), nil
}

package summaries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"neurolearn-backend/internal/ai"
	"neurolearn-backend/internal/documents"
	"neurolearn-backend/internal/extract"
	"neurolearn-backend/internal/generation"
	"neurolearn-backend/internal/notifications"
	"neurolearn-backend/internal/shared/logging"
	"neurolearn-backend/internal/shared/metrics"
	"neurolearn-backend/internal/usage"
)

const (
	defaultChunkSize     = 4000
	defaultChunkParallel = 3
	pipelineTimeout      = 15 * time.Minute
	generationKind       = "summary"
)

// Service owns the summary generation pipeline: quota check, queued row,
// chunked model calls, combination and completion.
type Service struct {
	Repo  Repo
	Docs  *documents.Service
	Usage *usage.Service
	Notif *notifications.Service
	Gen   *ai.Generator
	Log   *logging.Logger

	ChunkSize     int
	ChunkParallel int
}

func NewService(repo Repo, docs *documents.Service, gen *ai.Generator, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		Repo:          repo,
		Docs:          docs,
		Gen:           gen,
		Log:           log,
		ChunkSize:     defaultChunkSize,
		ChunkParallel: defaultChunkParallel,
	}
}

// Create enqueues a summary and kicks off asynchronous generation. The
// returned row is in the queued status; clients poll GET /summaries/:id.
func (s *Service) Create(ctx context.Context, userID, documentID, format, title string) (Summary, error) {
	if userID == "" || documentID == "" {
		return Summary{}, fmt.Errorf("%w: user id and document id are required", ErrInvalidInput)
	}
	normalized, ok := ai.SummaryFormat(format)
	if !ok {
		return Summary{}, fmt.Errorf("%w: unknown format %q", ErrInvalidInput, format)
	}

	doc, err := s.Docs.Get(ctx, userID, documentID)
	if err != nil {
		return Summary{}, err
	}

	if s.Usage != nil {
		ok, _, err := s.Usage.CanConsume(ctx, userID, 1)
		if err != nil {
			return Summary{}, err
		}
		if !ok {
			return Summary{}, usage.ErrLimitReached
		}
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = doc.FileName
	}

	row := Summary{
		ID:         uuid.NewString(),
		UserID:     userID,
		DocumentID: documentID,
		Title:      title,
		Format:     normalized,
		Status:     generation.StatusQueued,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, row); err != nil {
		return Summary{}, err
	}
	if s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, userID, 1); err != nil {
			// The worker must not pick up a request the client was told
			// failed.
			if delErr := s.Repo.Delete(ctx, userID, row.ID); delErr != nil {
				s.Log.Warn("summaries.rollback_failed", "summary_id", row.ID, "error", delErr.Error())
			}
			return Summary{}, err
		}
	}
	metrics.IncGenerationStarted(generationKind)

	go s.processAsync(row.ID)

	return row, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Summary, error) {
	if userID == "" || id == "" {
		return Summary{}, fmt.Errorf("%w: user id and summary id are required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Summary, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, filter)
}

func (s *Service) UpdateMeta(ctx context.Context, userID, id string, update MetaUpdate) (Summary, error) {
	if userID == "" || id == "" {
		return Summary{}, fmt.Errorf("%w: user id and summary id are required", ErrInvalidInput)
	}
	if update.Title == nil && update.IsFavorite == nil {
		return Summary{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" || len(title) > 300 {
			return Summary{}, fmt.Errorf("%w: title must be 1-300 characters", ErrInvalidInput)
		}
		update.Title = &title
	}
	return s.Repo.UpdateMeta(ctx, userID, id, update)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return fmt.Errorf("%w: user id and summary id are required", ErrInvalidInput)
	}
	return s.Repo.Delete(ctx, userID, id)
}

// processAsync claims and runs the pipeline on a detached context so the
// upload request finishing does not cancel generation.
func (s *Service) processAsync(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()
	if err := s.Process(ctx, id); err != nil && !errors.Is(err, errAlreadyClaimed) {
		s.Log.Warn("summaries.process_failed", "summary_id", id, "error", err.Error())
	}
}

var errAlreadyClaimed = errors.New("summary already claimed")

// Process claims the row and runs the pipeline. The background worker calls
// this for queued rows it finds; losing a claim race is not an error.
func (s *Service) Process(ctx context.Context, id string) error {
	row, ok, err := s.Repo.Claim(ctx, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return errAlreadyClaimed
	}
	return s.ProcessClaimed(ctx, row)
}

// ProcessClaimed runs the pipeline on a row already flipped to processing.
func (s *Service) ProcessClaimed(ctx context.Context, row Summary) error {
	defer func() {
		if r := recover(); r != nil {
			s.fail(row, fmt.Errorf("panic: %v", r))
		}
	}()

	start := time.Now().UTC()
	content, err := s.generate(ctx, row)
	if err != nil {
		s.fail(row, err)
		return err
	}

	wordCount := len(strings.Fields(content))
	completedAt := time.Now().UTC()
	if err := s.Repo.Complete(ctx, row.ID, content, wordCount, s.modelName(), completedAt); err != nil {
		s.fail(row, fmt.Errorf("store summary result: %w", err))
		return err
	}

	metrics.IncGenerationCompleted(generationKind)
	metrics.ObserveGenerationDuration(generationKind, completedAt.Sub(start))
	s.Log.Info("summaries.completed",
		"summary_id", row.ID,
		"document_id", row.DocumentID,
		"word_count", wordCount,
		"duration_ms", completedAt.Sub(start).Milliseconds(),
	)
	s.notify(row, notifications.KindSummaryReady, "Summary ready",
		fmt.Sprintf("Your %s summary of %q is ready.", row.Format, row.Title))
	return nil
}

// generate produces the summary text: one model call for short documents,
// a fan-out over chunks plus a synthesis call for long ones.
func (s *Service) generate(ctx context.Context, row Summary) (string, error) {
	if s.Gen == nil {
		return "", errors.New("model client not configured")
	}

	_, text, err := s.Docs.EnsureExtracted(ctx, row.UserID, row.DocumentID)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}

	chunkSize := s.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	chunks := extract.Chunk(text, chunkSize)
	if len(chunks) == 0 {
		return "", errors.New("extract document: no text content")
	}

	if len(chunks) == 1 {
		resp, err := s.Gen.Generate(ctx, ai.SummaryPrompt(row.Format, row.Title, chunks[0]))
		if err != nil {
			return "", fmt.Errorf("summarize: %w", err)
		}
		return strings.TrimSpace(resp.Text), nil
	}

	parallel := s.ChunkParallel
	if parallel <= 0 {
		parallel = defaultChunkParallel
	}

	parts := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, chunk := range chunks {
		g.Go(func() error {
			resp, err := s.Gen.Generate(gctx, ai.SummaryPrompt(row.Format, row.Title, chunk))
			if err != nil {
				return fmt.Errorf("summarize chunk %d: %w", i+1, err)
			}
			parts[i] = strings.TrimSpace(resp.Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	resp, err := s.Gen.Generate(ctx, ai.CombineSummariesPrompt(row.Format, row.Title, parts))
	if err != nil {
		return "", fmt.Errorf("combine summaries: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// fail records the classified failure on its own context; the pipeline ctx
// may already be dead.
func (s *Service) fail(row Summary, cause error) {
	f := generation.Classify(cause)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Repo.Fail(ctx, row.ID, f, time.Now().UTC()); err != nil {
		s.Log.Error("summaries.fail_update_error", "summary_id", row.ID, "error", err.Error())
	}
	metrics.IncGenerationFailed(generationKind, f.Code)
	s.Log.Warn("summaries.failed",
		"summary_id", row.ID,
		"document_id", row.DocumentID,
		"code", f.Code,
		"retryable", f.Retryable,
		"error", f.Message,
	)
	s.notify(row, notifications.KindSummaryFailed, "Summary failed",
		fmt.Sprintf("Generating a summary of %q failed. Please try again.", row.Title))
}

func (s *Service) notify(row Summary, kind, title, body string) {
	if s.Notif == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.Notif.Notify(ctx, row.UserID, kind, title, body); err != nil {
		s.Log.Warn("summaries.notify_failed", "summary_id", row.ID, "error", err.Error())
	}
}

func (s *Service) modelName() string {
	if s.Gen == nil || s.Gen.Client == nil {
		return ""
	}
	return s.Gen.Client.Model()
}

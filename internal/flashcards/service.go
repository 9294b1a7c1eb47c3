package flashcards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"neurolearn-backend/internal/ai"
	"neurolearn-backend/internal/documents"
	"neurolearn-backend/internal/generation"
	"neurolearn-backend/internal/notifications"
	"neurolearn-backend/internal/shared/logging"
	"neurolearn-backend/internal/shared/metrics"
	"neurolearn-backend/internal/usage"
)

const (
	pipelineTimeout = 15 * time.Minute
	generationKind  = "flashcards"
)

// Service owns the flashcard deck lifecycle: generation, review tracking
// and deletion.
type Service struct {
	Repo  Repo
	Docs  *documents.Service
	Usage *usage.Service
	Notif *notifications.Service
	Gen   *ai.Generator
	Log   *logging.Logger
}

func NewService(repo Repo, docs *documents.Service, gen *ai.Generator, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		Repo: repo,
		Docs: docs,
		Gen:  gen,
		Log:  log,
	}
}

// Create enqueues a deck and kicks off asynchronous generation.
func (s *Service) Create(ctx context.Context, userID, documentID string, count int, title string) (Deck, error) {
	if userID == "" || documentID == "" {
		return Deck{}, fmt.Errorf("%w: user id and document id are required", ErrInvalidInput)
	}
	if count == 0 {
		count = DefaultCardCount
	}
	if count < 1 || count > MaxCardCount {
		return Deck{}, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidInput, MaxCardCount)
	}

	doc, err := s.Docs.Get(ctx, userID, documentID)
	if err != nil {
		return Deck{}, err
	}

	if s.Usage != nil {
		ok, _, err := s.Usage.CanConsume(ctx, userID, 1)
		if err != nil {
			return Deck{}, err
		}
		if !ok {
			return Deck{}, usage.ErrLimitReached
		}
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = doc.FileName
	}

	deck := Deck{
		ID:         uuid.NewString(),
		UserID:     userID,
		DocumentID: documentID,
		Title:      title,
		Status:     generation.StatusQueued,
		CardCount:  count,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.CreateDeck(ctx, deck); err != nil {
		return Deck{}, err
	}
	if s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, userID, 1); err != nil {
			// The worker must not pick up a request the client was told
			// failed.
			if delErr := s.Repo.DeleteDeck(ctx, userID, deck.ID); delErr != nil {
				s.Log.Warn("flashcards.rollback_failed", "deck_id", deck.ID, "error", delErr.Error())
			}
			return Deck{}, err
		}
	}
	metrics.IncGenerationStarted(generationKind)

	go s.processAsync(deck.ID)

	return deck, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Deck, error) {
	if userID == "" || id == "" {
		return Deck{}, fmt.Errorf("%w: user id and deck id are required", ErrInvalidInput)
	}
	return s.Repo.GetDeckWithCards(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Deck, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.ListDecks(ctx, userID, filter)
}

// Review applies one card review. The deck must have finished generating.
func (s *Service) Review(ctx context.Context, userID, deckID, cardID string, correct bool) (Card, error) {
	if userID == "" || deckID == "" || cardID == "" {
		return Card{}, fmt.Errorf("%w: deck id and card id are required", ErrInvalidInput)
	}
	deck, err := s.Repo.GetDeck(ctx, userID, deckID)
	if err != nil {
		return Card{}, err
	}
	if deck.Status != generation.StatusCompleted {
		return Card{}, ErrNotReady
	}
	return s.Repo.ReviewCard(ctx, userID, deckID, cardID, correct, time.Now().UTC())
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return fmt.Errorf("%w: user id and deck id are required", ErrInvalidInput)
	}
	return s.Repo.DeleteDeck(ctx, userID, id)
}

func (s *Service) processAsync(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()
	if err := s.Process(ctx, id); err != nil && !errors.Is(err, errAlreadyClaimed) {
		s.Log.Warn("flashcards.process_failed", "deck_id", id, "error", err.Error())
	}
}

var errAlreadyClaimed = errors.New("deck already claimed")

// Process claims the deck and runs generation. Losing the claim race is not
// an error for the caller that lost.
func (s *Service) Process(ctx context.Context, id string) error {
	deck, ok, err := s.Repo.Claim(ctx, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return errAlreadyClaimed
	}
	return s.ProcessClaimed(ctx, deck)
}

// ProcessClaimed runs generation on a deck already flipped to processing.
func (s *Service) ProcessClaimed(ctx context.Context, deck Deck) error {
	defer func() {
		if r := recover(); r != nil {
			s.fail(deck, fmt.Errorf("panic: %v", r))
		}
	}()

	start := time.Now().UTC()
	cards, err := s.generate(ctx, deck)
	if err != nil {
		s.fail(deck, err)
		return err
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.Complete(ctx, deck.ID, cards, s.modelName(), completedAt); err != nil {
		s.fail(deck, fmt.Errorf("store deck result: %w", err))
		return err
	}

	metrics.IncGenerationCompleted(generationKind)
	metrics.ObserveGenerationDuration(generationKind, completedAt.Sub(start))
	s.Log.Info("flashcards.completed",
		"deck_id", deck.ID,
		"document_id", deck.DocumentID,
		"cards", len(cards),
		"duration_ms", completedAt.Sub(start).Milliseconds(),
	)
	s.notify(deck, notifications.KindFlashcardsReady, "Flashcards ready",
		fmt.Sprintf("Your flashcard deck for %q is ready with %d cards.", deck.Title, len(cards)))
	return nil
}

type cardPayload struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	Hint  string `json:"hint"`
}

// generate asks the model for a JSON card array and validates it into
// positioned cards.
func (s *Service) generate(ctx context.Context, deck Deck) ([]Card, error) {
	if s.Gen == nil {
		return nil, errors.New("model client not configured")
	}

	_, text, err := s.Docs.EnsureExtracted(ctx, deck.UserID, deck.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("extract document: %w", err)
	}

	count := deck.CardCount
	if count <= 0 {
		count = DefaultCardCount
	}

	resp, err := s.Gen.Generate(ctx, ai.FlashcardsPrompt(deck.Title, text, count))
	if err != nil {
		return nil, fmt.Errorf("generate flashcards: %w", err)
	}

	raw, err := decodeCards(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("model reply: %w", err)
	}

	cards := make([]Card, 0, count)
	for _, p := range raw {
		front := strings.TrimSpace(p.Front)
		back := strings.TrimSpace(p.Back)
		if front == "" || back == "" {
			continue
		}
		cards = append(cards, Card{
			ID:       uuid.NewString(),
			DeckID:   deck.ID,
			Position: len(cards),
			Front:    front,
			Back:     back,
			Hint:     strings.TrimSpace(p.Hint),
		})
		if len(cards) == count {
			break
		}
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("model reply: no usable cards")
	}
	return cards, nil
}

// decodeCards accepts the requested {"cards":[...]} envelope and, because
// models drift, a bare card array.
func decodeCards(text string) ([]cardPayload, error) {
	var wrapped struct {
		Cards []cardPayload `json:"cards"`
	}
	if err := ai.DecodeJSON(text, &wrapped); err == nil && len(wrapped.Cards) > 0 {
		return wrapped.Cards, nil
	}
	var list []cardPayload
	if err := ai.DecodeJSON(text, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) fail(deck Deck, cause error) {
	f := generation.Classify(cause)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Repo.Fail(ctx, deck.ID, f, time.Now().UTC()); err != nil {
		s.Log.Error("flashcards.fail_update_error", "deck_id", deck.ID, "error", err.Error())
	}
	metrics.IncGenerationFailed(generationKind, f.Code)
	s.Log.Warn("flashcards.failed",
		"deck_id", deck.ID,
		"document_id", deck.DocumentID,
		"code", f.Code,
		"retryable", f.Retryable,
		"error", f.Message,
	)
	s.notify(deck, notifications.KindFlashcardsFailed, "Flashcards failed",
		fmt.Sprintf("Generating flashcards for %q failed. Please try again.", deck.Title))
}

func (s *Service) notify(deck Deck, kind, title, body string) {
	if s.Notif == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.Notif.Notify(ctx, deck.UserID, kind, title, body); err != nil {
		s.Log.Warn("flashcards.notify_failed", "deck_id", deck.ID, "error", err.Error())
	}
}

func (s *Service) modelName() string {
	if s.Gen == nil || s.Gen.Client == nil {
		return ""
	}
	return s.Gen.Client.Model()
}

package flashcards

import (
	"context"
	"sort"
	"sync"
	"time"

	"neurolearn-backend/internal/generation"
)

// MemoryRepo is the in-memory Repo used when no database is configured.
type MemoryRepo struct {
	mu    sync.Mutex
	decks map[string]*Deck
	cards map[string][]*Card // deck id -> cards in position order
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		decks: make(map[string]*Deck),
		cards: make(map[string][]*Card),
	}
}

var _ Repo = (*MemoryRepo)(nil)

func (r *MemoryRepo) CreateDeck(ctx context.Context, d Deck) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.Cards = nil
	d.UpdatedAt = d.CreatedAt
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decks[d.ID] = &d
	return nil
}

func (r *MemoryRepo) GetDeck(ctx context.Context, userID, id string) (Deck, error) {
	if err := ctx.Err(); err != nil {
		return Deck{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[id]
	if !ok || deck.UserID != userID {
		return Deck{}, ErrNotFound
	}
	return *deck, nil
}

func (r *MemoryRepo) GetDeckWithCards(ctx context.Context, userID, id string) (Deck, error) {
	deck, err := r.GetDeck(ctx, userID, id)
	if err != nil {
		return Deck{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deck.Cards = make([]Card, 0, len(r.cards[id]))
	for _, card := range r.cards[id] {
		deck.Cards = append(deck.Cards, *card)
	}
	return deck, nil
}

func (r *MemoryRepo) ListDecks(ctx context.Context, userID string, filter ListFilter) ([]Deck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	var out []Deck
	for _, deck := range r.decks {
		if deck.UserID != userID {
			continue
		}
		if filter.DocumentID != "" && deck.DocumentID != filter.DocumentID {
			continue
		}
		out = append(out, *deck)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Offset >= len(out) {
		return []Deck{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) Claim(ctx context.Context, id string, at time.Time) (Deck, bool, error) {
	if err := ctx.Err(); err != nil {
		return Deck{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[id]
	if !ok || deck.Status != generation.StatusQueued {
		return Deck{}, false, nil
	}
	deck.Status = generation.StatusProcessing
	deck.StartedAt = &at
	deck.UpdatedAt = at
	return *deck, true, nil
}

func (r *MemoryRepo) ClaimQueued(ctx context.Context, limit int, at time.Time) ([]Deck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var queued []*Deck
	for _, deck := range r.decks {
		if deck.Status == generation.StatusQueued {
			queued = append(queued, deck)
		}
	}
	sort.Slice(queued, func(i, j int) bool {
		return queued[i].CreatedAt.Before(queued[j].CreatedAt)
	})
	if limit > 0 && len(queued) > limit {
		queued = queued[:limit]
	}

	out := make([]Deck, 0, len(queued))
	for _, deck := range queued {
		deck.Status = generation.StatusProcessing
		deck.StartedAt = &at
		deck.UpdatedAt = at
		out = append(out, *deck)
	}
	return out, nil
}

func (r *MemoryRepo) RequeueStale(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, deck := range r.decks {
		if deck.Status == generation.StatusProcessing && deck.UpdatedAt.Before(cutoff) {
			deck.Status = generation.StatusQueued
			deck.StartedAt = nil
			deck.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) Complete(ctx context.Context, deckID string, cards []Card, model string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[deckID]
	if !ok || deck.Status != generation.StatusProcessing {
		return ErrNotFound
	}
	stored := make([]*Card, 0, len(cards))
	for i := range cards {
		card := cards[i]
		card.DeckID = deckID
		stored = append(stored, &card)
	}
	r.cards[deckID] = stored
	deck.Status = generation.StatusCompleted
	deck.CardCount = len(cards)
	deck.Model = model
	deck.ErrorCode = ""
	deck.ErrorMessage = ""
	deck.Retryable = false
	deck.CompletedAt = &at
	deck.UpdatedAt = at
	return nil
}

func (r *MemoryRepo) Fail(ctx context.Context, id string, f generation.Failure, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[id]
	if !ok || deck.Status != generation.StatusProcessing {
		return ErrNotFound
	}
	deck.Status = generation.StatusFailed
	deck.ErrorCode = f.Code
	deck.ErrorMessage = f.Message
	deck.Retryable = f.Retryable
	deck.CompletedAt = &at
	deck.UpdatedAt = at
	return nil
}

func (r *MemoryRepo) ReviewCard(ctx context.Context, userID, deckID, cardID string, correct bool, at time.Time) (Card, error) {
	if err := ctx.Err(); err != nil {
		return Card{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[deckID]
	if !ok || deck.UserID != userID {
		return Card{}, ErrNotFound
	}
	for _, card := range r.cards[deckID] {
		if card.ID != cardID {
			continue
		}
		card.TimesReviewed++
		if correct {
			card.TimesCorrect++
			card.CorrectStreak++
			card.Mastered = card.CorrectStreak >= masteryStreak
		} else {
			card.CorrectStreak = 0
			card.Mastered = false
		}
		card.LastReviewedAt = &at
		return *card, nil
	}
	return Card{}, ErrCardNotFound
}

func (r *MemoryRepo) CompletedByDay(ctx context.Context, userID string, from, to time.Time) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, deck := range r.decks {
		if deck.UserID != userID || deck.Status != generation.StatusCompleted || deck.CompletedAt == nil {
			continue
		}
		at := deck.CompletedAt.UTC()
		if at.Before(from) || !at.Before(to) {
			continue
		}
		out[at.Format("2006-01-02")]++
	}
	return out, nil
}

func (r *MemoryRepo) DeleteDeck(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[id]
	if !ok || deck.UserID != userID {
		return ErrNotFound
	}
	delete(r.decks, id)
	delete(r.cards, id)
	return nil
}

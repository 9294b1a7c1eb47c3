package flashcards

import (
	"context"
	"time"

	"neurolearn-backend/internal/generation"
)

// ListFilter narrows a user's deck listing.
type ListFilter struct {
	DocumentID string
	Limit      int
	Offset     int
}

// Repo defines persistence for decks and their cards. Claim operations flip
// decks from queued to processing atomically so a deck is never generated
// twice.
type Repo interface {
	CreateDeck(ctx context.Context, d Deck) error
	GetDeck(ctx context.Context, userID, id string) (Deck, error)
	GetDeckWithCards(ctx context.Context, userID, id string) (Deck, error)
	ListDecks(ctx context.Context, userID string, filter ListFilter) ([]Deck, error)

	Claim(ctx context.Context, id string, at time.Time) (Deck, bool, error)
	ClaimQueued(ctx context.Context, limit int, at time.Time) ([]Deck, error)
	RequeueStale(ctx context.Context, cutoff time.Time) (int, error)

	// Complete stores the generated cards and marks the deck completed in
	// one transaction.
	Complete(ctx context.Context, deckID string, cards []Card, model string, at time.Time) error
	Fail(ctx context.Context, id string, f generation.Failure, at time.Time) error

	// ReviewCard applies one review outcome and returns the updated card.
	ReviewCard(ctx context.Context, userID, deckID, cardID string, correct bool, at time.Time) (Card, error)
	DeleteDeck(ctx context.Context, userID, id string) error

	// CompletedByDay counts completed decks per UTC day (YYYY-MM-DD keys)
	// within [from, to). Feeds the schedule view.
	CompletedByDay(ctx context.Context, userID string, from, to time.Time) (map[string]int, error)
}

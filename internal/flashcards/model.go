package flashcards

import "time"

// Deck is an AI-generated set of flashcards for one document. Cards is only
// populated on detail reads.
type Deck struct {
	ID           string     `json:"id"`
	UserID       string     `json:"-"`
	DocumentID   string     `json:"documentId"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	CardCount    int        `json:"cardCount"`
	Model        string     `json:"model,omitempty"`
	ErrorCode    string     `json:"errorCode,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	Retryable    bool       `json:"retryable"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	Cards []Card `json:"cards,omitempty"`
}

// Card is one front/back pair with its review progress. A card is mastered
// after three consecutive correct reviews; an incorrect review resets the
// streak and the mastered flag.
type Card struct {
	ID             string     `json:"id"`
	DeckID         string     `json:"-"`
	Position       int        `json:"position"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	Hint           string     `json:"hint,omitempty"`
	TimesReviewed  int        `json:"timesReviewed"`
	TimesCorrect   int        `json:"timesCorrect"`
	CorrectStreak  int        `json:"correctStreak"`
	Mastered       bool       `json:"mastered"`
	LastReviewedAt *time.Time `json:"lastReviewedAt,omitempty"`
}

const (
	DefaultCardCount = 12
	MaxCardCount     = 30
	masteryStreak    = 3
)

package flashcards

import "errors"

var (
	ErrNotFound     = errors.New("flashcard deck not found")
	ErrCardNotFound = errors.New("flashcard not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotReady     = errors.New("flashcard deck is not ready")
)

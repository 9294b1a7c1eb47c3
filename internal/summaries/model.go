package summaries

import "time"

// Summary is an AI-generated condensation of one document. Content is empty
// until the pipeline completes.
type Summary struct {
	ID           string     `json:"id"`
	UserID       string     `json:"-"`
	DocumentID   string     `json:"documentId"`
	Title        string     `json:"title"`
	Format       string     `json:"format"`
	Status       string     `json:"status"`
	Content      string     `json:"content,omitempty"`
	WordCount    int        `json:"wordCount"`
	Model        string     `json:"model,omitempty"`
	ErrorCode    string     `json:"errorCode,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	Retryable    bool       `json:"retryable"`
	IsFavorite   bool       `json:"isFavorite"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

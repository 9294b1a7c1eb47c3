package quizzes

import "time"

// Difficulty levels accepted by the generation endpoint.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const (
	DefaultQuestionCount = 5
	MaxQuestionCount     = 15
	optionCount          = 4
)

// Quiz is an AI-generated multiple-choice assessment for one document.
// Questions is only populated on detail reads.
type Quiz struct {
	ID            string     `json:"id"`
	UserID        string     `json:"-"`
	DocumentID    string     `json:"documentId"`
	Title         string     `json:"title"`
	Difficulty    string     `json:"difficulty"`
	Status        string     `json:"status"`
	QuestionCount int        `json:"questionCount"`
	Model         string     `json:"model,omitempty"`
	ErrorCode     string     `json:"errorCode,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	Retryable     bool       `json:"retryable"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	Questions []Question `json:"questions,omitempty"`
}

// Question is one multiple-choice item with exactly four options. The
// answer fields are stripped from taking-mode responses by the handler.
type Question struct {
	ID           string   `json:"id"`
	QuizID       string   `json:"-"`
	Position     int      `json:"position"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Attempt is one graded submission. Answers align with question positions.
type Attempt struct {
	ID           string    `json:"id"`
	QuizID       string    `json:"quizId"`
	UserID       string    `json:"-"`
	Answers      []int     `json:"answers"`
	Score        int       `json:"score"`
	CorrectCount int       `json:"correctCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ValidDifficulty normalizes a requested difficulty and reports whether it
// was recognized. Empty input falls back to medium.
func ValidDifficulty(d string) (string, bool) {
	switch d {
	case "":
		return DifficultyMedium, true
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	default:
		return DifficultyMedium, false
	}
}

package quizzes

import (
	"context"
	"errors"
	"fmt"
	"math"
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
	generationKind  = "quiz"
	fillerOption    = "None of the above"
)

// Service owns the quiz lifecycle: generation, grading and attempt history.
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

// Create enqueues a quiz and kicks off asynchronous generation.
func (s *Service) Create(ctx context.Context, userID, documentID string, questionCount int, difficulty string) (Quiz, error) {
	if userID == "" || documentID == "" {
		return Quiz{}, fmt.Errorf("%w: user id and document id are required", ErrInvalidInput)
	}
	if questionCount == 0 {
		questionCount = DefaultQuestionCount
	}
	if questionCount < 1 || questionCount > MaxQuestionCount {
		return Quiz{}, fmt.Errorf("%w: questionCount must be between 1 and %d", ErrInvalidInput, MaxQuestionCount)
	}
	difficulty, ok := ValidDifficulty(difficulty)
	if !ok {
		return Quiz{}, fmt.Errorf("%w: difficulty must be easy, medium or hard", ErrInvalidInput)
	}

	doc, err := s.Docs.Get(ctx, userID, documentID)
	if err != nil {
		return Quiz{}, err
	}

	if s.Usage != nil {
		ok, _, err := s.Usage.CanConsume(ctx, userID, 1)
		if err != nil {
			return Quiz{}, err
		}
		if !ok {
			return Quiz{}, usage.ErrLimitReached
		}
	}

	quiz := Quiz{
		ID:            uuid.NewString(),
		UserID:        userID,
		DocumentID:    documentID,
		Title:         doc.FileName,
		Difficulty:    difficulty,
		Status:        generation.StatusQueued,
		QuestionCount: questionCount,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Repo.CreateQuiz(ctx, quiz); err != nil {
		return Quiz{}, err
	}
	if s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, userID, 1); err != nil {
			// The worker must not pick up a request the client was told
			// failed.
			if delErr := s.Repo.DeleteQuiz(ctx, userID, quiz.ID); delErr != nil {
				s.Log.Warn("quizzes.rollback_failed", "quiz_id", quiz.ID, "error", delErr.Error())
			}
			return Quiz{}, err
		}
	}
	metrics.IncGenerationStarted(generationKind)

	go s.processAsync(quiz.ID)

	return quiz, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Quiz, error) {
	if userID == "" || id == "" {
		return Quiz{}, fmt.Errorf("%w: user id and quiz id are required", ErrInvalidInput)
	}
	return s.Repo.GetQuizWithQuestions(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Quiz, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.ListQuizzes(ctx, userID, filter)
}

// AnswerResult is one graded question in an attempt response.
type AnswerResult struct {
	QuestionID   string `json:"questionId"`
	YourAnswer   int    `json:"yourAnswer"`
	CorrectIndex int    `json:"correctIndex"`
	Correct      bool   `json:"correct"`
	Explanation  string `json:"explanation,omitempty"`
}

// SubmitAttempt grades answers against the stored questions and persists the
// attempt. Answers must cover every question in order.
func (s *Service) SubmitAttempt(ctx context.Context, userID, quizID string, answers []int) (Attempt, []AnswerResult, error) {
	if userID == "" || quizID == "" {
		return Attempt{}, nil, fmt.Errorf("%w: user id and quiz id are required", ErrInvalidInput)
	}

	quiz, err := s.Repo.GetQuizWithQuestions(ctx, userID, quizID)
	if err != nil {
		return Attempt{}, nil, err
	}
	if quiz.Status != generation.StatusCompleted {
		return Attempt{}, nil, ErrNotReady
	}
	if len(answers) != len(quiz.Questions) {
		return Attempt{}, nil, fmt.Errorf("%w: expected %d answers, got %d", ErrInvalidInput, len(quiz.Questions), len(answers))
	}

	results := make([]AnswerResult, len(quiz.Questions))
	correct := 0
	for i, q := range quiz.Questions {
		isCorrect := answers[i] == q.CorrectIndex
		if isCorrect {
			correct++
		}
		results[i] = AnswerResult{
			QuestionID:   q.ID,
			YourAnswer:   answers[i],
			CorrectIndex: q.CorrectIndex,
			Correct:      isCorrect,
			Explanation:  q.Explanation,
		}
	}

	score := 0
	if len(quiz.Questions) > 0 {
		score = int(math.Round(100 * float64(correct) / float64(len(quiz.Questions))))
	}

	attempt := Attempt{
		ID:           uuid.NewString(),
		QuizID:       quizID,
		UserID:       userID,
		Answers:      answers,
		Score:        score,
		CorrectCount: correct,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Repo.CreateAttempt(ctx, attempt); err != nil {
		return Attempt{}, nil, err
	}
	return attempt, results, nil
}

func (s *Service) ListAttempts(ctx context.Context, userID, quizID string, limit, offset int) ([]Attempt, error) {
	if userID == "" || quizID == "" {
		return nil, fmt.Errorf("%w: user id and quiz id are required", ErrInvalidInput)
	}
	if _, err := s.Repo.GetQuiz(ctx, userID, quizID); err != nil {
		return nil, err
	}
	return s.Repo.ListAttempts(ctx, userID, quizID, limit, offset)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return fmt.Errorf("%w: user id and quiz id are required", ErrInvalidInput)
	}
	return s.Repo.DeleteQuiz(ctx, userID, id)
}

func (s *Service) processAsync(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()
	if err := s.Process(ctx, id); err != nil && !errors.Is(err, errAlreadyClaimed) {
		s.Log.Warn("quizzes.process_failed", "quiz_id", id, "error", err.Error())
	}
}

var errAlreadyClaimed = errors.New("quiz already claimed")

// Process claims the quiz and runs generation. Losing the claim race is not
// an error for the caller that lost.
func (s *Service) Process(ctx context.Context, id string) error {
	quiz, ok, err := s.Repo.Claim(ctx, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return errAlreadyClaimed
	}
	return s.ProcessClaimed(ctx, quiz)
}

// ProcessClaimed runs generation on a quiz already flipped to processing.
func (s *Service) ProcessClaimed(ctx context.Context, quiz Quiz) error {
	defer func() {
		if r := recover(); r != nil {
			s.fail(quiz, fmt.Errorf("panic: %v", r))
		}
	}()

	start := time.Now().UTC()
	questions, err := s.generate(ctx, quiz)
	if err != nil {
		s.fail(quiz, err)
		return err
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.Complete(ctx, quiz.ID, questions, s.modelName(), completedAt); err != nil {
		s.fail(quiz, fmt.Errorf("store quiz result: %w", err))
		return err
	}

	metrics.IncGenerationCompleted(generationKind)
	metrics.ObserveGenerationDuration(generationKind, completedAt.Sub(start))
	s.Log.Info("quizzes.completed",
		"quiz_id", quiz.ID,
		"document_id", quiz.DocumentID,
		"questions", len(questions),
		"duration_ms", completedAt.Sub(start).Milliseconds(),
	)
	s.notify(quiz, notifications.KindQuizReady, "Quiz ready",
		fmt.Sprintf("Your quiz on %q is ready with %d questions.", quiz.Title, len(questions)))
	return nil
}

type questionPayload struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// generate asks the model for a JSON question array and validates it into
// positioned questions with exactly four options each.
func (s *Service) generate(ctx context.Context, quiz Quiz) ([]Question, error) {
	if s.Gen == nil {
		return nil, errors.New("model client not configured")
	}

	_, text, err := s.Docs.EnsureExtracted(ctx, quiz.UserID, quiz.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("extract document: %w", err)
	}

	count := quiz.QuestionCount
	if count <= 0 {
		count = DefaultQuestionCount
	}

	resp, err := s.Gen.Generate(ctx, ai.QuizPrompt(quiz.Title, text, count, optionCount, quiz.Difficulty))
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	raw, err := decodeQuestions(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("model reply: %w", err)
	}

	questions := make([]Question, 0, count)
	for _, p := range raw {
		q, ok := normalizeQuestion(p)
		if !ok {
			continue
		}
		q.ID = uuid.NewString()
		q.QuizID = quiz.ID
		q.Position = len(questions)
		questions = append(questions, q)
		if len(questions) == count {
			break
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("model reply: no usable questions")
	}
	return questions, nil
}

// decodeQuestions accepts the requested {"questions":[...]} envelope and,
// because models drift, a bare question array.
func decodeQuestions(text string) ([]questionPayload, error) {
	var wrapped struct {
		Questions []questionPayload `json:"questions"`
	}
	if err := ai.DecodeJSON(text, &wrapped); err == nil && len(wrapped.Questions) > 0 {
		return wrapped.Questions, nil
	}
	var list []questionPayload
	if err := ai.DecodeJSON(text, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// normalizeQuestion pads or clamps options to exactly four and drops items
// whose prompt is empty or whose correct index is out of range.
func normalizeQuestion(p questionPayload) (Question, bool) {
	prompt := strings.TrimSpace(p.Question)
	if prompt == "" {
		return Question{}, false
	}

	options := make([]string, 0, optionCount)
	for _, o := range p.Options {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		options = append(options, o)
		if len(options) == optionCount {
			break
		}
	}
	if p.CorrectIndex < 0 || p.CorrectIndex >= len(options) {
		return Question{}, false
	}
	for len(options) < optionCount {
		options = append(options, fillerOption)
	}

	return Question{
		Prompt:       prompt,
		Options:      options,
		CorrectIndex: p.CorrectIndex,
		Explanation:  strings.TrimSpace(p.Explanation),
	}, true
}

func (s *Service) fail(quiz Quiz, cause error) {
	f := generation.Classify(cause)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Repo.Fail(ctx, quiz.ID, f, time.Now().UTC()); err != nil {
		s.Log.Error("quizzes.fail_update_error", "quiz_id", quiz.ID, "error", err.Error())
	}
	metrics.IncGenerationFailed(generationKind, f.Code)
	s.Log.Warn("quizzes.failed",
		"quiz_id", quiz.ID,
		"document_id", quiz.DocumentID,
		"code", f.Code,
		"retryable", f.Retryable,
		"error", f.Message,
	)
	s.notify(quiz, notifications.KindQuizFailed, "Quiz failed",
		fmt.Sprintf("Generating a quiz for %q failed. Please try again.", quiz.Title))
}

func (s *Service) notify(quiz Quiz, kind, title, body string) {
	if s.Notif == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.Notif.Notify(ctx, quiz.UserID, kind, title, body); err != nil {
		s.Log.Warn("quizzes.notify_failed", "quiz_id", quiz.ID, "error", err.Error())
	}
}

func (s *Service) modelName() string {
	if s.Gen == nil || s.Gen.Client == nil {
		return ""
	}
	return s.Gen.Client.Model()
}

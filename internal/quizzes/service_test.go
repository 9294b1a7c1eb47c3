package quizzes_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"neurolearn-backend/internal/ai"
	"neurolearn-backend/internal/documents"
	"neurolearn-backend/internal/generation"
	"neurolearn-backend/internal/notifications"
	"neurolearn-backend/internal/quizzes"
	"neurolearn-backend/internal/shared/logging"
	localstore "neurolearn-backend/internal/shared/storage/object/local"
	"neurolearn-backend/internal/usage"
)

const quizReply = `{"questions":[
	{"question":"What does the Krebs cycle produce?","options":["ATP","Light","Chlorophyll","Nothing"],"correctIndex":0,"explanation":"The cycle yields ATP."},
	{"question":"Where does it happen?","options":["Mitochondria","Nucleus"],"correctIndex":0,"explanation":"It runs in mitochondria."},
	{"question":"Bad one","options":["A","B","C","D"],"correctIndex":9,"explanation":"out of range"}
]}`

type stubClient struct {
	mu    sync.Mutex
	reply func(req ai.Request) (ai.Response, error)
}

func (s *stubClient) Generate(ctx context.Context, req ai.Request) (ai.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reply != nil {
		return s.reply(req)
	}
	return ai.Response{Text: quizReply}, nil
}

func (s *stubClient) Model() string { return "stub-model" }

type fixture struct {
	svc     *quizzes.Service
	repo    *quizzes.MemoryRepo
	docs    *documents.Service
	docRepo *documents.MemoryRepo
	notifs  *notifications.MemoryRepo
	client  *stubClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	docRepo := documents.NewMemoryRepo()
	store := localstore.New(t.TempDir())
	docs := documents.NewService(docRepo, store, "local", logging.Nop())

	client := &stubClient{}
	gen := ai.NewGenerator(client, nil, 1, time.Millisecond, time.Millisecond, logging.Nop())

	repo := quizzes.NewMemoryRepo()
	notifRepo := notifications.NewMemoryRepo()

	svc := quizzes.NewService(repo, docs, gen, logging.Nop())
	svc.Notif = notifications.NewService(notifRepo)

	return &fixture{
		svc:     svc,
		repo:    repo,
		docs:    docs,
		docRepo: docRepo,
		notifs:  notifRepo,
		client:  client,
	}
}

func (f *fixture) seedDocument(t *testing.T, userID, content string) documents.Document {
	t.Helper()
	key, size, _, err := f.docs.Store.Save(context.Background(), userID, "notes.txt", strings.NewReader(content))
	if err != nil {
		t.Fatalf("save object: %v", err)
	}
	doc := documents.Document{
		ID:         "doc-1",
		UserID:     userID,
		FileName:   "notes.txt",
		MimeType:   "text/plain",
		Kind:       documents.KindText,
		SizeBytes:  size,
		StorageKey: key,
		Status:     documents.StatusUploaded,
		CreatedAt:  time.Now().UTC(),
	}
	if err := f.docRepo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create doc: %v", err)
	}
	return doc
}

func (f *fixture) seedQueued(t *testing.T, userID, documentID string, count int) quizzes.Quiz {
	t.Helper()
	quiz := quizzes.Quiz{
		ID:            "quiz-1",
		UserID:        userID,
		DocumentID:    documentID,
		Title:         "Biology notes",
		Difficulty:    quizzes.DifficultyMedium,
		Status:        generation.StatusQueued,
		QuestionCount: count,
		CreatedAt:     time.Now().UTC(),
	}
	if err := f.repo.CreateQuiz(context.Background(), quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func TestCreateRejectsBadDifficulty(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDocument(t, "user-1", "The Krebs cycle produces ATP.")

	_, err := f.svc.Create(context.Background(), "user-1", doc.ID, 5, "impossible")
	if !errors.Is(err, quizzes.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCreateRollsBackQuizWhenConsumeFails(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDocument(t, "user-1", "The Krebs cycle yields ATP.")

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	f.svc.Usage = usage.NewPostgresService(usage.NewPGStore(db))

	resetsAt := time.Now().UTC().Add(10 * 24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT plan, usage_limit, used, resets_at FROM usage").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "usage_limit", "used", "resets_at"}).
			AddRow("free", 20, 0, resetsAt))
	mock.ExpectCommit()
	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))

	_, err = f.svc.Create(context.Background(), "user-1", doc.ID, 0, "")
	if err == nil {
		t.Fatal("expected consume error")
	}

	rows, listErr := f.repo.ListQuizzes(context.Background(), "user-1", quizzes.ListFilter{Limit: 10})
	if listErr != nil {
		t.Fatalf("list: %v", listErr)
	}
	if len(rows) != 0 {
		t.Fatalf("queued quiz must not survive a failed consume, found %d", len(rows))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("usage expectations: %v", err)
	}
}

func TestProcessNormalizesQuestions(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDocument(t, "user-1", "The Krebs cycle produces ATP in mitochondria.")
	quiz := f.seedQueued(t, "user-1", doc.ID, 5)

	if err := f.svc.Process(context.Background(), quiz.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := f.repo.GetQuizWithQuestions(context.Background(), "user-1", quiz.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != generation.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", got.Status, got.ErrorMessage)
	}
	// The out-of-range correctIndex question is dropped.
	if got.QuestionCount != 2 || len(got.Questions) != 2 {
		t.Fatalf("unexpected question count: %d / %d", got.QuestionCount, len(got.Questions))
	}
	for _, q := range got.Questions {
		if len(q.Options) != 4 {
			t.Fatalf("options not normalized to 4: %+v", q)
		}
	}
	// Short option lists are padded, never in front of the correct answer.
	if got.Questions[1].Options[0] != "Mitochondria" || got.Questions[1].CorrectIndex != 0 {
		t.Fatalf("padding shifted the answer: %+v", got.Questions[1])
	}
}

func TestSubmitAttemptGrades(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDocument(t, "user-1", "The Krebs cycle produces ATP in mitochondria.")
	quiz := f.seedQueued(t, "user-1", doc.ID, 5)
	if err := f.svc.Process(context.Background(), quiz.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	attempt, results, err := f.svc.SubmitAttempt(context.Background(), "user-1", quiz.ID, []int{0, 3})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempt.CorrectCount != 1 || attempt.Score != 50 {
		t.Fatalf("grading wrong: %+v", attempt)
	}
	if len(results) != 2 || !results[0].Correct || results[1].Correct {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[1].Explanation == "" {
		t.Fatal("results should carry explanations")
	}

	attempts, err := f.svc.ListAttempts(context.Background(), "user-1", quiz.ID, 20, 0)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 1 || attempts[0].ID != attempt.ID {
		t.Fatalf("attempt not persisted: %+v", attempts)
	}
}

func TestSubmitAttemptAnswerCountMismatch(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDocument(t, "user-1", "The Krebs cycle produces ATP in mitochondria.")
	quiz := f.seedQueued(t, "user-1", doc.ID, 5)
	if err := f.svc.Process(context.Background(), quiz.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	_, _, err := f.svc.SubmitAttempt(context.Background(), "user-1", quiz.ID, []int{0})
	if !errors.Is(err, quizzes.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSubmitAttemptBeforeCompletion(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDocument(t, "user-1", "The Krebs cycle produces ATP in mitochondria.")
	quiz := f.seedQueued(t, "user-1", doc.ID, 5)

	_, _, err := f.svc.SubmitAttempt(context.Background(), "user-1", quiz.ID, nil)
	if !errors.Is(err, quizzes.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestProcessNoUsableQuestionsFails(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDocument(t, "user-1", "The Krebs cycle produces ATP in mitochondria.")
	quiz := f.seedQueued(t, "user-1", doc.ID, 5)

	f.client.reply = func(req ai.Request) (ai.Response, error) {
		return ai.Response{Text: `{"questions":[{"question":"","options":["A","B"],"correctIndex":0}]}`}, nil
	}

	if err := f.svc.Process(context.Background(), quiz.ID); err == nil {
		t.Fatal("expected pipeline error")
	}

	got, _ := f.repo.GetQuiz(context.Background(), "user-1", quiz.ID)
	if got.Status != generation.StatusFailed || got.ErrorCode != generation.CodeSchemaMismatch {
		t.Fatalf("unexpected failure: %+v", got)
	}

	rows, _ := f.notifs.ListByUser(context.Background(), "user-1", notifications.ListFilter{Limit: 10})
	if len(rows) != 1 || rows[0].Kind != notifications.KindQuizFailed {
		t.Fatalf("unexpected notifications: %+v", rows)
	}
}

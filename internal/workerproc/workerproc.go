package workerproc

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"neurolearn-backend/internal/flashcards"
	"neurolearn-backend/internal/quizzes"
	"neurolearn-backend/internal/shared/logging"
	"neurolearn-backend/internal/summaries"
)

// Job runs one claimed generation to completion or failure.
type Job func(ctx context.Context) error

// Source feeds the runner from one generation table. Claim flips up to
// limit queued rows to processing and returns one job per row; Requeue
// returns rows stuck in processing to the queue.
type Source struct {
	Name    string
	Claim   func(ctx context.Context, limit int) ([]Job, error)
	Requeue func(ctx context.Context, cutoff time.Time) (int, error)
}

// Runner polls the generation tables and processes claimed rows with
// bounded concurrency.
type Runner struct {
	Sources      []Source
	PollInterval time.Duration
	StaleAfter   time.Duration
	JobTimeout   time.Duration
	Concurrency  int64
	Log          *logging.Logger

	sem *semaphore.Weighted
}

func NewRunner(sources []Source, pollInterval, staleAfter time.Duration, concurrency int, log *logging.Logger) *Runner {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{
		Sources:      sources,
		PollInterval: pollInterval,
		StaleAfter:   staleAfter,
		JobTimeout:   15 * time.Minute,
		Concurrency:  int64(concurrency),
		Log:          log,
		sem:          semaphore.NewWeighted(int64(concurrency)),
	}
}

// Run polls until the context is canceled, then waits for in-flight jobs.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()

	for {
		r.Tick(ctx)
		select {
		case <-ctx.Done():
			// Draining: acquiring the full weight waits for running jobs.
			_ = r.sem.Acquire(context.Background(), r.Concurrency)
			r.sem.Release(r.Concurrency)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick performs one requeue-and-claim pass. Exported for tests.
func (r *Runner) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cutoff := time.Now().UTC().Add(-r.StaleAfter)
	timeout := r.JobTimeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	for _, src := range r.Sources {
		if src.Requeue != nil {
			if n, err := src.Requeue(ctx, cutoff); err != nil {
				r.Log.Warn("worker.requeue_failed", "source", src.Name, "error", err.Error())
			} else if n > 0 {
				r.Log.Info("worker.requeued_stale", "source", src.Name, "count", n)
			}
		}

		jobs, err := src.Claim(ctx, int(r.Concurrency))
		if err != nil {
			r.Log.Warn("worker.claim_failed", "source", src.Name, "error", err.Error())
			continue
		}
		for _, job := range jobs {
			if err := r.sem.Acquire(ctx, 1); err != nil {
				return
			}
			// Claimed rows run to completion even if polling stops, bounded
			// by the job timeout.
			jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
			go func(name string, job Job, cancel context.CancelFunc) {
				defer cancel()
				defer r.sem.Release(1)
				if err := job(jobCtx); err != nil {
					r.Log.Warn("worker.job_failed", "source", name, "error", err.Error())
				}
			}(src.Name, job, cancel)
		}
	}
}

// SummarySource adapts the summaries service to the runner.
func SummarySource(svc *summaries.Service) Source {
	return Source{
		Name: "summaries",
		Claim: func(ctx context.Context, limit int) ([]Job, error) {
			rows, err := svc.Repo.ClaimQueued(ctx, limit, time.Now().UTC())
			if err != nil {
				return nil, err
			}
			jobs := make([]Job, len(rows))
			for i, row := range rows {
				row := row
				jobs[i] = func(ctx context.Context) error {
					return svc.ProcessClaimed(ctx, row)
				}
			}
			return jobs, nil
		},
		Requeue: svc.Repo.RequeueStale,
	}
}

// FlashcardSource adapts the flashcards service to the runner.
func FlashcardSource(svc *flashcards.Service) Source {
	return Source{
		Name: "flashcards",
		Claim: func(ctx context.Context, limit int) ([]Job, error) {
			decks, err := svc.Repo.ClaimQueued(ctx, limit, time.Now().UTC())
			if err != nil {
				return nil, err
			}
			jobs := make([]Job, len(decks))
			for i, deck := range decks {
				deck := deck
				jobs[i] = func(ctx context.Context) error {
					return svc.ProcessClaimed(ctx, deck)
				}
			}
			return jobs, nil
		},
		Requeue: svc.Repo.RequeueStale,
	}
}

// QuizSource adapts the quizzes service to the runner.
func QuizSource(svc *quizzes.Service) Source {
	return Source{
		Name: "quizzes",
		Claim: func(ctx context.Context, limit int) ([]Job, error) {
			rows, err := svc.Repo.ClaimQueued(ctx, limit, time.Now().UTC())
			if err != nil {
				return nil, err
			}
			jobs := make([]Job, len(rows))
			for i, quiz := range rows {
				quiz := quiz
				jobs[i] = func(ctx context.Context) error {
					return svc.ProcessClaimed(ctx, quiz)
				}
			}
			return jobs, nil
		},
		Requeue: svc.Repo.RequeueStale,
	}
}

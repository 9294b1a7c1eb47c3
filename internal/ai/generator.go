package ai

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"neurolearn-backend/internal/shared/logging"
	"neurolearn-backend/internal/shared/metrics"
)

// Generator wraps a Client with pacing and bounded retries. Every attempt
// waits for a pacer slot first, so retries count against the same per-minute
// quota as fresh calls.
type Generator struct {
	Client     Client
	Pacer      *Pacer
	MaxTries   int
	Backoff    time.Duration
	BackoffCap time.Duration
	Log        *logging.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewGenerator applies the default retry policy around client.
func NewGenerator(client Client, pacer *Pacer, maxTries int, backoff, backoffCap time.Duration, log *logging.Logger) *Generator {
	if maxTries < 1 {
		maxTries = 1
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	if backoffCap <= 0 {
		backoffCap = 30 * time.Second
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Generator{
		Client:     client,
		Pacer:      pacer,
		MaxTries:   maxTries,
		Backoff:    backoff,
		BackoffCap: backoffCap,
		Log:        log,
		sleep:      sleepCtx,
	}
}

// Generate runs req through the client, retrying rate-limit and transient
// failures up to MaxTries attempts total.
func (g *Generator) Generate(ctx context.Context, req Request) (Response, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("ai.model", g.Client.Model()))

	var lastErr error
	for attempt := 1; attempt <= g.MaxTries; attempt++ {
		if g.Pacer != nil {
			if err := g.Pacer.Wait(ctx); err != nil {
				return Response{}, err
			}
		}

		resp, err := g.Client.Generate(ctx, req)
		if err == nil {
			metrics.IncAIRequest("ok")
			span.SetAttributes(attribute.Int("ai.attempts", attempt))
			return resp, nil
		}
		lastErr = err

		if IsRateLimited(err) {
			metrics.IncAIRequest("rate_limited")
		} else {
			metrics.IncAIRequest("error")
		}
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		if attempt == g.MaxTries || !IsRetryable(err) {
			break
		}

		delay := g.retryDelay(attempt, err)
		g.Log.Warn("ai.retry",
			"model", g.Client.Model(),
			"attempt", attempt,
			"max_tries", g.MaxTries,
			"delay_ms", delay.Milliseconds(),
			"error", err.Error(),
		)
		if err := g.sleep(ctx, delay); err != nil {
			return Response{}, err
		}
	}
	return Response{}, lastErr
}

// retryDelay doubles the base per attempt, capped, and defers to the
// provider's Retry-After when it asks for longer.
func (g *Generator) retryDelay(attempt int, err error) time.Duration {
	delay := g.Backoff << (attempt - 1)
	if delay > g.BackoffCap {
		delay = g.BackoffCap
	}
	if hint := RetryAfterHint(err); hint > delay {
		delay = hint
		if delay > g.BackoffCap {
			delay = g.BackoffCap
		}
	}
	return delay
}

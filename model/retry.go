package model

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"screensolver/shared"
)

// RetryPolicy retries transient transport failures with exponential backoff:
// the n-th retry waits 2^n * Base. Parse failures and auth errors never
// enter the loop; they are classified as non-retryable before Do sees them.
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration

	// Sleep waits for d or until ctx is cancelled. Injectable so tests can
	// record the schedule instead of waiting it out.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Base:       2 * time.Second,
		Sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retryable reports whether err is one of the transient transport classes.
func Retryable(err error) bool {
	return shared.IsKind(err, shared.KindRateLimited) ||
		shared.IsKind(err, shared.KindBackendUnavailable)
}

// classifyTransport maps raw client errors onto the workflow taxonomy.
// Anything unrecognized passes through unchanged.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return shared.NewRateLimited(err)
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return shared.NewBackendUnavailable(err)
		}
	}
	if errors.Is(err, context.Canceled) {
		return shared.NewCancelled()
	}
	return err
}

// Do runs op, retrying transient failures up to MaxRetries times. The final
// error keeps its kind so callers surface it unchanged.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !Retryable(err) || attempt >= p.MaxRetries {
			return err
		}
		delay := p.Base << (attempt + 1)
		log.Debug().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Str("kind", string(shared.KindOf(err))).
			Msg("transient model error, backing off")
		if serr := p.Sleep(ctx, delay); serr != nil {
			return shared.NewCancelled()
		}
	}
}

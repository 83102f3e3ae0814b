// Package retry implements the quadratic backoff policy shared by the RDF,
// search, and content-extractor clients: up to 6 attempts, sleeping
// attempt² seconds between them, used for every TransientRemote failure
// per §7's disposition table. The loop shape is grounded on the teacher's
// worker pool retry pattern (sleep-and-retry around a fallible operation),
// generalized here into a single reusable helper instead of being
// duplicated per client.
package retry

import (
	"context"
	"time"

	"github.com/evalgo/semindex/apperr"
)

// MaxAttempts is the number of attempts §4.1/§4.5 prescribe before giving
// up and logging-and-dropping the operation.
const MaxAttempts = 6

// Backoff returns the wait interval before attempt n (1-indexed):
// attempt² seconds.
func Backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
}

// Do calls fn up to MaxAttempts times, sleeping Backoff(attempt) between
// tries, stopping early on a non-transient error or success. It returns the
// last error, wrapped as apperr.Transient, if every attempt is exhausted.
func Do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !shouldRetry(err) {
			return err
		}
		if attempt == MaxAttempts {
			break
		}
		timer := time.NewTimer(Backoff(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return apperr.New(apperr.Transient, op, lastErr)
}

// shouldRetry treats any error not already classified as a non-transient
// apperr.Error as retryable, since the default assumption for network
// calls to the RDF store, search engine, or extractor is that an
// unclassified failure (timeout, connection reset, 5xx) is transient.
func shouldRetry(err error) bool {
	if apperr.Is(err, apperr.BadRequest) || apperr.Is(err, apperr.Unauthorized) ||
		apperr.Is(err, apperr.Config) || apperr.Is(err, apperr.NotFound) {
		return false
	}
	return true
}

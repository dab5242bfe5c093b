package router

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"perpcore/crypto"
	"perpcore/perp/slab"
)

// executor is the subset of Engine that RetryExecute drives; satisfied by
// *Engine in production and a scripted stub in tests, so the conflict/
// backoff bookkeeping below can be exercised without wiring a real Slab
// through concurrent writers.
type executor interface {
	Execute(caller crypto.Pubkey, req ExecuteRequest) (ExecuteResult, error)
}

// RetryExecute wraps Engine.Execute with caller-side retry on
// slab.ErrSequenceConflict, paced by a token-bucket limiter in the style
// of the teacher's gateway rate limiter (gateway/middleware/ratelimit.go).
// A sequence conflict means another caller's instruction landed on the
// same Slab first (spec.md §4.2); the Router itself never retries, since
// each Dispatch call is one transaction, so a client that wants one
// logical order to survive contention reissues it, no different from
// retrying on a blockchain transaction rejected for a stale nonce. maxAttempts
// bounds how many times a single logical call will reissue before giving
// up and returning the last ErrSequenceConflict.
type RetryExecute struct {
	engine      executor
	limiter     *rate.Limiter
	maxAttempts int
}

// NewRetryExecute builds a retrier that allows at most burst immediate
// attempts and refills at ratePerSecond thereafter, rejecting a logical
// call after maxAttempts sequence conflicts.
func NewRetryExecute(engine *Engine, ratePerSecond float64, burst int, maxAttempts int) *RetryExecute {
	return newRetryExecute(engine, ratePerSecond, burst, maxAttempts)
}

func newRetryExecute(engine executor, ratePerSecond float64, burst int, maxAttempts int) *RetryExecute {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &RetryExecute{
		engine:      engine,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		maxAttempts: maxAttempts,
	}
}

// Do calls Execute, retrying while the result is slab.ErrSequenceConflict
// and attempts remain. Every attempt after the first waits on the limiter
// first, so a caller hammering a contended Slab backs off instead of
// resubmitting as fast as the loop can spin.
func (r *RetryExecute) Do(ctx context.Context, caller crypto.Pubkey, req ExecuteRequest) (ExecuteResult, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := r.limiter.Wait(ctx); err != nil {
				return ExecuteResult{}, err
			}
		}

		res, err := r.engine.Execute(caller, req)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, slab.ErrSequenceConflict) {
			return ExecuteResult{}, err
		}
		lastErr = err
	}
	return ExecuteResult{}, lastErr
}

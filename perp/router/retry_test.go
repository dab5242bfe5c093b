package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"perpcore/crypto"
	"perpcore/perp/slab"
	"perpcore/perp/value"
)

// scriptedExecutor replays a fixed sequence of results, one per Do attempt,
// standing in for an Engine whose underlying Slab is under real write
// contention.
type scriptedExecutor struct {
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	res ExecuteResult
	err error
}

func (s *scriptedExecutor) Execute(crypto.Pubkey, ExecuteRequest) (ExecuteResult, error) {
	r := s.results[s.calls]
	s.calls++
	return r.res, r.err
}

// TestRetryExecuteGivesUpAfterMaxAttempts covers the exhaustion path: a
// Slab stuck under contention returns ErrSequenceConflict on every
// attempt, and RetryExecute must surface that error once maxAttempts is
// spent rather than retry forever.
func TestRetryExecuteGivesUpAfterMaxAttempts(t *testing.T) {
	stub := &scriptedExecutor{results: []scriptedResult{
		{err: slab.ErrSequenceConflict},
		{err: slab.ErrSequenceConflict},
		{err: slab.ErrSequenceConflict},
	}}
	retrier := newRetryExecute(stub, 1_000, 3, 3)

	_, err := retrier.Do(context.Background(), crypto.Pubkey{}, ExecuteRequest{})
	require.Error(t, err)
	require.True(t, errors.Is(err, slab.ErrSequenceConflict))
	require.Equal(t, 3, stub.calls)
}

// TestRetryExecuteRecoversAfterConflict covers the common recovery path:
// a conflict on the first attempt, then success once the contending write
// has landed and the retry reissues the same logical request.
func TestRetryExecuteRecoversAfterConflict(t *testing.T) {
	stub := &scriptedExecutor{results: []scriptedResult{
		{err: slab.ErrSequenceConflict},
		{res: ExecuteResult{FillQty: 5}},
	}}
	retrier := newRetryExecute(stub, 1_000, 3, 3)

	res, err := retrier.Do(context.Background(), crypto.Pubkey{}, ExecuteRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(5), res.FillQty)
	require.Equal(t, 2, stub.calls)
}

// TestRetryExecuteStopsOnOtherErrors covers the non-conflict path: any
// error besides ErrSequenceConflict (insufficient_equity, paused, ...) is
// not retryable and must return immediately.
func TestRetryExecuteStopsOnOtherErrors(t *testing.T) {
	stub := &scriptedExecutor{results: []scriptedResult{
		{err: ErrInsufficientEquity},
	}}
	retrier := newRetryExecute(stub, 1_000, 3, 3)

	_, err := retrier.Do(context.Background(), crypto.Pubkey{}, ExecuteRequest{})
	require.ErrorIs(t, err, ErrInsufficientEquity)
	require.Equal(t, 1, stub.calls)
}

// TestRetryExecuteAgainstRealEngine exercises RetryExecute end-to-end
// against a live Engine/fixture with no contention, the common case: the
// first attempt succeeds and the limiter is never consulted.
func TestRetryExecuteAgainstRealEngine(t *testing.T) {
	f := newFixture(t, 50_000_000, 50_000_000)

	retrier := NewRetryExecute(f.engine, 1_000, 3, 3)
	res, err := retrier.Do(context.Background(), f.user, ExecuteRequest{
		NumSplits: 1,
		SlabAddr:  f.slabAddr,
		DlpOwner:  f.dlpOwner,
		Side:      value.SideBuy,
		Qty:       5,
		LimitPx:   200_000000,
		Leverage:  5,
		Oracle:    f.quote(200_000000),
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), res.FillQty)
}

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

var errNotIndexed = errors.New("not indexed yet")

// stepClock advances the fake clock whenever the loop under test is waiting,
// so sleeps resolve instantly without real delays.
func stepClock(t *testing.T, fc *clocktesting.FakeClock, done <-chan struct{}) {
	t.Helper()
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			if fc.HasWaiters() {
				fc.Step(time.Minute)
			}
			time.Sleep(time.Millisecond)
		}
	}()
}

func TestDoSucceedsOnThirdAttempt(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	done := make(chan struct{})
	defer close(done)
	stepClock(t, fc, done)

	calls := 0
	err := Do(context.Background(), Config{
		MaxAttempts: 5,
		Backoff:     Fixed(2 * time.Second),
		Clock:       fc,
	}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errNotIndexed
		}
		return nil
	}, func(err error) bool { return errors.Is(err, errNotIndexed) })

	require.NoError(t, err)
	assert.Equal(t, 3, calls, "should stop retrying once fn succeeds")
}

func TestDoExhaustsAttempts(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	done := make(chan struct{})
	defer close(done)
	stepClock(t, fc, done)

	calls := 0
	err := Do(context.Background(), Config{
		MaxAttempts: 3,
		Backoff:     Fixed(time.Second),
		Clock:       fc,
	}, func(context.Context) error {
		calls++
		return errNotIndexed
	}, nil)

	assert.ErrorIs(t, err, errNotIndexed)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	permanent := errors.New("bad credentials")

	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 5}, func(context.Context) error {
		calls++
		return permanent
	}, func(err error) bool { return errors.Is(err, errNotIndexed) })

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, Config{
		MaxAttempts: 10,
		Backoff:     Fixed(time.Hour),
		Clock:       fc,
	}, func(context.Context) error {
		calls++
		cancel() // deadline passes while waiting for the next attempt
		return errNotIndexed
	}, nil)

	assert.ErrorIs(t, err, errNotIndexed)
	assert.Equal(t, 1, calls, "no further attempts once the context is done")
}

func TestDoRejectsZeroAttempts(t *testing.T) {
	err := Do(context.Background(), Config{MaxAttempts: 0}, func(context.Context) error {
		t.Fatal("fn must not be called")
		return nil
	}, nil)
	assert.Error(t, err)
}

func TestExponentialBackoff(t *testing.T) {
	b := Exponential(time.Second, 10*time.Second)

	assert.Equal(t, time.Second, b(1))
	assert.Equal(t, 2*time.Second, b(2))
	assert.Equal(t, 4*time.Second, b(3))
	assert.Equal(t, 8*time.Second, b(4))
	assert.Equal(t, 10*time.Second, b(5), "capped at max")
	assert.Equal(t, 10*time.Second, b(12), "stays capped")
}

func TestFixedBackoff(t *testing.T) {
	b := Fixed(3 * time.Second)
	assert.Equal(t, 3*time.Second, b(1))
	assert.Equal(t, 3*time.Second, b(7))
}

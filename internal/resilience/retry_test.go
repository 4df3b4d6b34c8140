package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr struct {
	code int
}

func (e *statusErr) Error() string   { return "upstream failure" }
func (e *statusErr) HTTPStatus() int { return e.code }

func quickRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 2, Delay: time.Millisecond}
}

func TestDoVal_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := DoVal(context.Background(), quickRetry(), func(context.Context) (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestDoVal_RetriesTransientOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := DoVal(context.Background(), quickRetry(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &statusErr{code: 503}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	retries := 0
	cfg := quickRetry()
	cfg.OnRetry = func(int, error) { retries++ }

	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, &statusErr{code: 502}
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retries)
}

func TestDoVal_NoRetryOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := DoVal(context.Background(), quickRetry(), func(context.Context) (int, error) {
		calls++
		return 0, eris.New("bad input")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, quickRetry(), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, &statusErr{code: 500}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_CustomShouldRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	cfg := quickRetry()
	cfg.ShouldRetry = func(error) bool { return true }

	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, eris.New("always retried")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

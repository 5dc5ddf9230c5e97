package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := New(2)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))

	blocked, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := l.Acquire(blocked)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	l.Release()
	require.NoError(t, l.Acquire(ctx))
}

func TestLimiterClampsToOneSlot(t *testing.T) {
	l := New(0)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))

	blocked, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Acquire(blocked))

	l.Release()
}

func TestLimiterAcquireHonoursCancelledContext(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Acquire(ctx), context.Canceled)
}

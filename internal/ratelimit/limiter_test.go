package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/emrgen/suggest/internal/store"
	"github.com/emrgen/suggest/internal/tester"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time {
	return c.t
}

func TestLimiter_Cooldown(t *testing.T) {
	s := store.NewGormStore(tester.TestDB(t))
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	limiter := NewLimiter(s, c.Now)
	ctx := context.TODO()
	docID := uuid.NewString()
	cooldown := time.Hour

	decision, err := limiter.Check(ctx, "alice", docID, cooldown)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// checking twice does not consume the window
	decision, err = limiter.Check(ctx, "alice", docID, cooldown)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	require.NoError(t, limiter.Reserve(ctx, "alice", docID))

	c.t = c.t.Add(20*time.Minute + 30*time.Second)
	decision, err = limiter.Check(ctx, "alice", docID, cooldown)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 39*time.Minute+30*time.Second, decision.RetryAfter)
	assert.Equal(t, 40, decision.RetryAfterMinutes())

	// other pairs are independent
	decision, err = limiter.Check(ctx, "bob", docID, cooldown)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	decision, err = limiter.Check(ctx, "alice", uuid.NewString(), cooldown)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	c.t = c.t.Add(40 * time.Minute)
	decision, err = limiter.Check(ctx, "alice", docID, cooldown)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 0, decision.RetryAfterMinutes())
}

func TestLimiter_MissingIdentity(t *testing.T) {
	limiter := NewLimiter(store.NewGormStore(tester.TestDB(t)), nil)

	_, err := limiter.Check(context.TODO(), "", uuid.NewString(), time.Hour)
	assert.ErrorIs(t, err, ErrMissingIdentity)
	assert.ErrorIs(t, limiter.Reserve(context.TODO(), "alice", ""), ErrMissingIdentity)
}

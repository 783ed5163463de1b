package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failing struct {
	calls int
}

func (f *failing) SuggestionApproved(ctx context.Context, event SuggestionApproved) error {
	f.calls++
	return errors.New("smtp down")
}

func (f *failing) AchievementUnlocked(ctx context.Context, event AchievementUnlocked) error {
	f.calls++
	return errors.New("smtp down")
}

func TestMulti_DeliversToAll(t *testing.T) {
	bad := &failing{}
	m := Multi{bad, NewLogNotifier(), bad}

	err := m.SuggestionApproved(context.TODO(), SuggestionApproved{SubmitterID: "alice", DocumentID: "doc"})
	assert.ErrorContains(t, err, "smtp down")
	assert.Equal(t, 2, bad.calls)

	err = m.AchievementUnlocked(context.TODO(), AchievementUnlocked{SubmitterID: "alice", Tier: "bronze"})
	assert.Error(t, err)
	assert.Equal(t, 4, bad.calls)

	assert.NoError(t, Multi{NewLogNotifier()}.SuggestionApproved(context.TODO(), SuggestionApproved{}))
}

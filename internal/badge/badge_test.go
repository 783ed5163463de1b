package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	thresholds := Thresholds{TierBronze: 1, TierSilver: 5, TierGold: 20}

	tests := []struct {
		name     string
		previous int64
		current  int64
		unlocked []Tier
		newly    []Tier
	}{
		{name: "none", previous: 0, current: 0, unlocked: []Tier{}, newly: []Tier{}},
		{name: "first approval", previous: 0, current: 1, unlocked: []Tier{TierBronze}, newly: []Tier{TierBronze}},
		{name: "between tiers", previous: 2, current: 3, unlocked: []Tier{TierBronze}, newly: []Tier{}},
		{name: "silver", previous: 4, current: 5, unlocked: []Tier{TierBronze, TierSilver}, newly: []Tier{TierSilver}},
		{name: "jump", previous: 0, current: 25, unlocked: []Tier{TierBronze, TierSilver, TierGold}, newly: []Tier{TierBronze, TierSilver, TierGold}},
		{name: "no change", previous: 25, current: 25, unlocked: []Tier{TierBronze, TierSilver, TierGold}, newly: []Tier{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.previous, tt.current, thresholds)
			assert.Equal(t, tt.unlocked, res.Unlocked)
			assert.Equal(t, tt.newly, res.NewlyUnlocked)
		})
	}
}

func TestEvaluate_Monotonic(t *testing.T) {
	thresholds := Thresholds{TierBronze: 1, TierGold: 7, TierPlatinum: 30}

	var prev []Tier
	for count := int64(0); count <= 40; count++ {
		unlocked := Evaluate(0, count, thresholds).Unlocked
		assert.Subset(t, unlocked, prev, "count %d", count)
		prev = unlocked
	}
	assert.NotContains(t, prev, TierSilver)
}

func TestParseThresholds(t *testing.T) {
	th, err := ParseThresholds("bronze:1, silver:10,gold:50")
	require.NoError(t, err)
	assert.Equal(t, Thresholds{TierBronze: 1, TierSilver: 10, TierGold: 50}, th)

	th, err = ParseThresholds("")
	require.NoError(t, err)
	assert.Empty(t, th)

	for _, raw := range []string{"bronze", "wood:1", "bronze:0", "bronze:5,silver:5"} {
		_, err := ParseThresholds(raw)
		assert.Error(t, err, raw)
	}
}

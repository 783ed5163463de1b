// Package badge derives achievement tiers from approved suggestion counts.
package badge

import (
	"fmt"
	"strconv"
	"strings"
)

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Tiers is the fixed tier order, lowest first.
var Tiers = []Tier{TierBronze, TierSilver, TierGold, TierPlatinum}

func (t Tier) Description(threshold int64) string {
	if threshold == 1 {
		return fmt.Sprintf("%s contributor: first approved suggestion", t)
	}
	return fmt.Sprintf("%s contributor: %d approved suggestions", t, threshold)
}

// Thresholds maps a tier to the approved count that unlocks it. Tiers missing
// from the map are never unlocked.
type Thresholds map[Tier]int64

// ParseThresholds reads "bronze:1,silver:10,gold:50".
func ParseThresholds(raw string) (Thresholds, error) {
	thresholds := make(Thresholds)
	if strings.TrimSpace(raw) == "" {
		return thresholds, nil
	}

	for _, part := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("invalid badge threshold %q, expected <tier>:<count>", part)
		}

		tier := Tier(strings.ToLower(strings.TrimSpace(name)))
		if !tier.known() {
			return nil, fmt.Errorf("unknown badge tier %q", name)
		}

		count, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || count < 1 {
			return nil, fmt.Errorf("invalid count for badge tier %q: %q", name, value)
		}
		thresholds[tier] = count
	}

	return thresholds, thresholds.Validate()
}

// Validate checks that configured thresholds grow with the tier order.
func (th Thresholds) Validate() error {
	var last int64
	var lastTier Tier
	for _, tier := range Tiers {
		count, ok := th[tier]
		if !ok {
			continue
		}
		if count <= last {
			return fmt.Errorf("badge tier %s threshold %d must be above %s threshold %d", tier, count, lastTier, last)
		}
		last, lastTier = count, tier
	}
	return nil
}

func (t Tier) known() bool {
	for _, tier := range Tiers {
		if tier == t {
			return true
		}
	}
	return false
}

// Result lists tiers in tier order.
type Result struct {
	Unlocked      []Tier
	NewlyUnlocked []Tier
}

// Evaluate returns the tiers unlocked at current, and those whose threshold
// lies in (previous, current].
func Evaluate(previous, current int64, thresholds Thresholds) Result {
	result := Result{
		Unlocked:      make([]Tier, 0, len(thresholds)),
		NewlyUnlocked: make([]Tier, 0),
	}

	for _, tier := range Tiers {
		threshold, ok := thresholds[tier]
		if !ok || threshold > current {
			continue
		}

		result.Unlocked = append(result.Unlocked, tier)
		if threshold > previous {
			result.NewlyUnlocked = append(result.NewlyUnlocked, tier)
		}
	}

	return result
}

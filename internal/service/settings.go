package service

import (
	"context"
	"time"

	"github.com/emrgen/suggest/internal/badge"
)

const DefaultCooldown = 60 * time.Minute

// Settings are the tunables read once per job.
type Settings struct {
	Cooldown   time.Duration
	Thresholds badge.Thresholds
}

// SettingsProvider supplies the current settings.
type SettingsProvider interface {
	Settings(ctx context.Context) (Settings, error)
}

// StaticSettings always returns the same settings.
type StaticSettings Settings

func (s StaticSettings) Settings(ctx context.Context) (Settings, error) {
	settings := Settings(s)
	if settings.Cooldown <= 0 {
		settings.Cooldown = DefaultCooldown
	}
	if settings.Thresholds == nil {
		settings.Thresholds = badge.Thresholds{}
	}
	return settings, nil
}

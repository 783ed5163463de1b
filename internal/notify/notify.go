// Package notify delivers pipeline events on a fire-and-forget side channel.
package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

const (
	EventSuggestionApproved  = "suggestion.approved"
	EventAchievementUnlocked = "achievement.unlocked"
)

// SuggestionApproved is sent when a suggestion has been applied to a document.
type SuggestionApproved struct {
	SubmitterID  string `json:"submitter_id"`
	SuggestionID string `json:"suggestion_id"`
	DocumentID   string `json:"document_id"`
	Title        string `json:"title"`
	Link         string `json:"link"`
}

// AchievementUnlocked is sent once per newly unlocked badge tier.
type AchievementUnlocked struct {
	SubmitterID string `json:"submitter_id"`
	Tier        string `json:"tier"`
	Description string `json:"description"`
}

// Notifier delivers events. Errors are reported to the caller for logging only.
type Notifier interface {
	SuggestionApproved(ctx context.Context, event SuggestionApproved) error
	AchievementUnlocked(ctx context.Context, event AchievementUnlocked) error
}

// LogNotifier writes events to the log.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (l *LogNotifier) SuggestionApproved(ctx context.Context, event SuggestionApproved) error {
	logrus.WithFields(logrus.Fields{
		"event":      EventSuggestionApproved,
		"submitter":  event.SubmitterID,
		"suggestion": event.SuggestionID,
		"document":   event.DocumentID,
	}).Infof("suggestion approved: %s", event.Link)
	return nil
}

func (l *LogNotifier) AchievementUnlocked(ctx context.Context, event AchievementUnlocked) error {
	logrus.WithFields(logrus.Fields{
		"event":     EventAchievementUnlocked,
		"submitter": event.SubmitterID,
		"tier":      event.Tier,
	}).Info(event.Description)
	return nil
}

// Multi sends every event to all notifiers and joins their errors.
type Multi []Notifier

func (m Multi) SuggestionApproved(ctx context.Context, event SuggestionApproved) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.SuggestionApproved(ctx, event))
	}
	return errors.Join(errs...)
}

func (m Multi) AchievementUnlocked(ctx context.Context, event AchievementUnlocked) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.AchievementUnlocked(ctx, event))
	}
	return errors.Join(errs...)
}

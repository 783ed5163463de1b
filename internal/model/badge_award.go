package model

import "time"

// BadgeAward records that a submitter was told about a tier. The primary key
// makes each announcement happen once.
type BadgeAward struct {
	SubmitterID  string `gorm:"primaryKey;not null"`
	Tier         string `gorm:"primaryKey;not null"`
	SuggestionID string `gorm:"uuid;not null"`
	CreatedAt    time.Time
}

func (BadgeAward) TableName() string {
	return "suggestion_badge_awards"
}

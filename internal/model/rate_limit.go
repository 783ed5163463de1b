package model

import "time"

// RateLimitRecord holds the last processed submission time of a
// (submitter, document) pair.
type RateLimitRecord struct {
	SubmitterID      string `gorm:"primaryKey;not null"`
	DocumentID       string `gorm:"primaryKey;uuid;not null"`
	LastSubmissionAt time.Time
	UpdatedAt        time.Time
}

func (RateLimitRecord) TableName() string {
	return "suggestion_rate_limits"
}

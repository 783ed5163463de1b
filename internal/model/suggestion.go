package model

import (
	"time"
)

// Category is the closed set of suggestion kinds accepted at the input boundary.
type Category string

const (
	CategoryContentAddition Category = "content_addition"
	CategoryCorrection      Category = "correction"
	CategoryClarity         Category = "clarity"
	CategoryExample         Category = "example"
	CategoryLinkUpdate      Category = "link_update"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryContentAddition,
	CategoryCorrection,
	CategoryClarity,
	CategoryExample,
	CategoryLinkUpdate,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label is the human name sent to the judge.
func (c Category) Label() string {
	switch c {
	case CategoryContentAddition:
		return "content addition"
	case CategoryCorrection:
		return "correction"
	case CategoryClarity:
		return "clarity improvement"
	case CategoryExample:
		return "example"
	case CategoryLinkUpdate:
		return "link update"
	}
	return string(c)
}

// Approval is the tri-state verdict flag of a suggestion.
type Approval string

const (
	ApprovalPending  Approval = "pending"
	ApprovalApproved Approval = "approved"
	ApprovalRejected Approval = "rejected"
)

// SuggestionStatus is the terminal (or pending) state of a suggestion.
type SuggestionStatus string

const (
	StatusPending SuggestionStatus = "pending"
	// StatusApprovedApplied means the judge approved and the content was written.
	StatusApprovedApplied SuggestionStatus = "approved_applied"
	// StatusApproved means the judge approved but proposed no replacement content.
	StatusApproved SuggestionStatus = "approved"
	// StatusApprovedRejectedOnApply means the judge approved but the write failed,
	// so the approval was downgraded to rejected.
	StatusApprovedRejectedOnApply SuggestionStatus = "approved_rejected_on_apply"
	StatusRejected                SuggestionStatus = "rejected"
)

func (s SuggestionStatus) Terminal() bool {
	return s != StatusPending && s != ""
}

// Suggestion is one user-submitted improvement request. Rows are never deleted.
type Suggestion struct {
	ID              string           `gorm:"primaryKey;uuid;not null" json:"id"`
	DocumentID      string           `gorm:"uuid;not null;index:idx_suggestions_document" json:"document_id"`
	SubmitterID     string           `gorm:"not null;index:idx_suggestions_submitter_approval" json:"submitter_id"`
	Category        Category         `gorm:"not null" json:"category"`
	Details         string           `gorm:"not null" json:"details"`
	Approval        Approval         `gorm:"not null;index:idx_suggestions_submitter_approval" json:"approval"`
	Status          SuggestionStatus `gorm:"not null;index" json:"status"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	// RawResponse is the judge's response as received, kept for audit only.
	RawResponse  string     `json:"raw_response"`
	ProposedDiff *string    `json:"proposed_diff,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Applied      bool       `gorm:"not null" json:"applied"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	AppliedAt    *time.Time `json:"applied_at,omitempty"`
	// ScheduledAt is the last time the suggestion was queued or picked up by a worker.
	ScheduledAt time.Time `gorm:"index" json:"scheduled_at"`
	// DeadLetteredAt is set once its job runs out of attempts. Only an explicit
	// requeue clears it.
	DeadLetteredAt *time.Time `json:"dead_lettered_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Suggestion) TableName() string {
	return "suggestions"
}

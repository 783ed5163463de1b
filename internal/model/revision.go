package model

import "time"

// ChangeKind records what produced a revision.
type ChangeKind string

const (
	ChangeKindSuggestion ChangeKind = "suggestion"
	ChangeKindRollback   ChangeKind = "rollback"
	ChangeKindManual     ChangeKind = "manual"
)

// Revision is one atomic content mutation of a document. Snapshots are stored
// encoded with the codec named in Compression and are never rewritten; only the
// rollback fields change after creation.
type Revision struct {
	ID            string      `gorm:"primaryKey;uuid;not null"`
	DocumentID    string      `gorm:"uuid;not null;uniqueIndex:idx_revisions_document_sequence"`
	Sequence      int64       `gorm:"not null;uniqueIndex:idx_revisions_document_sequence"`
	SuggestionID  *string     `gorm:"uuid;index"`
	Suggestion    *Suggestion `gorm:"foreignKey:SuggestionID;references:ID"`
	ActorID       string      `gorm:"not null"`
	Kind          ChangeKind  `gorm:"not null"`
	Description   string
	Diff          string
	LinesAdded    int32
	LinesRemoved  int32
	BeforeContent []byte
	AfterContent  []byte
	Compression   string
	Active        bool `gorm:"not null;index"`
	// RevertsID points at the revision a rollback revision undid.
	RevertsID    *string `gorm:"uuid"`
	RolledBackAt *time.Time
	RolledBackBy *string
	CreatedAt    time.Time
}

func (Revision) TableName() string {
	return "revisions"
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// Document is the content record the pipeline mutates. Only the suggestion
// apply step, rollback and manual edits write Content, and each of those
// writes bumps Version.
type Document struct {
	ID        string         `gorm:"primaryKey;uuid;not null;" json:"id"`
	Version   int64          `gorm:"not null;default:0" json:"version"`
	Title     string         `gorm:"not null" json:"title"`
	Content   string         `gorm:"not null" json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Document) TableName() string {
	return "documents"
}

func CreateDocument(db *gorm.DB, document *Document) error {
	return db.Create(document).Error
}

// UpdateContent writes content only if the stored version still equals
// expectedVersion. It returns the number of rows changed, zero meaning another
// writer got there first.
func UpdateContent(db *gorm.DB, id string, expectedVersion int64, content string) (int64, error) {
	res := db.Model(&Document{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"content":    content,
			"version":    expectedVersion + 1,
			"updated_at": time.Now(),
		})

	return res.RowsAffected, res.Error
}

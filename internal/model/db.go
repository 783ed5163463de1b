package model

import "gorm.io/gorm"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Suggestion{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Revision{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&RateLimitRecord{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&BadgeAward{}); err != nil {
		return err
	}

	return nil
}

package tester

import (
	"fmt"
	"os"
	"testing"

	"github.com/emrgen/suggest/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Setup prepares the process environment for tests.
func Setup() {
	_ = os.Setenv("ENV", "test")
	logrus.SetLevel(logrus.WarnLevel)
}

// TestDB opens a fresh migrated in-memory sqlite database private to the test.
// A single connection keeps every statement on the same in-memory database and
// serializes writers the way row locks would on postgres.
func TestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := model.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}

// NewDocument inserts a document with the given content.
func NewDocument(t testing.TB, db *gorm.DB, title, content string) *model.Document {
	t.Helper()

	doc := &model.Document{
		ID:      uuid.NewString(),
		Title:   title,
		Content: content,
	}
	if err := model.CreateDocument(db, doc); err != nil {
		t.Fatalf("create document: %v", err)
	}

	return doc
}

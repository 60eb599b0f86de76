package store

import (
	"path/filepath"
	"testing"

	"github.com/wuwenbin0122/studybot/internal/db"
)

func TestCloseGormReleasesPool(t *testing.T) {
	gormDB, err := db.NewSQLite(filepath.Join(t.TempDir(), "close.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	closeGorm(gormDB)

	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := sqlDB.Ping(); err == nil {
		t.Fatalf("expected ping on a closed pool to fail")
	}
}

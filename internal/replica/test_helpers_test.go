package replica

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:replica_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Actor{}, &Account{}, &Channel{}, &Video{}, &VideoRedundancy{}, &VideoPlaylist{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedActor(t *testing.T, db *gorm.DB, actor *Actor) {
	t.Helper()
	if err := db.Create(actor).Error; err != nil {
		t.Fatalf("failed to seed actor: %v", err)
	}
}

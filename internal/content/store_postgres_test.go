package content_test

import (
	"testing"

	"github.com/p-n-ai/pai-solutions/internal/content"
	"github.com/p-n-ai/pai-solutions/internal/platform/database/dbtest"
)

func TestPostgresStore(t *testing.T) {
	db := dbtest.New(t)

	store, err := content.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	testStore(t, store)
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := content.NewPostgresStore(nil); err == nil {
		t.Error("NewPostgresStore(nil) should fail")
	}
}

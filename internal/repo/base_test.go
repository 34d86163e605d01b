package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return conn
}

func TestDBBindsContext(t *testing.T) {
	conn := newTestDB(t)
	base := NewBase(conn)

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")

	bound := base.DB(ctx)
	if bound == nil || bound.Statement == nil {
		t.Fatal("expected a statement-bound session")
	}
	if bound.Statement.Context != ctx {
		t.Fatalf("expected request context to flow through, got %v", bound.Statement.Context)
	}
}

func TestDBNilContextReturnsRawHandle(t *testing.T) {
	conn := newTestDB(t)
	base := NewBase(conn)

	if base.DB(nil) != conn {
		t.Fatal("nil context must return the raw connection")
	}
}

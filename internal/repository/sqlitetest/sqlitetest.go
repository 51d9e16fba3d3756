// Package sqlitetest opens throwaway in-memory databases with the full schema
// applied.
package sqlitetest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/voice-orders/internal/repository"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New returns a migrated in-memory database closed at test cleanup.
func New(t testing.TB) *repository.DB {
	t.Helper()
	ctx := context.Background()
	logger := Logger()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := repository.Open(ctx, repository.Config{Driver: "sqlite", DSN: dsn}, logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close(logger) })
	if err := repository.Migrate(ctx, db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/voice-orders/internal/repository"
)

const (
	// BatchSize is how many articles go into one insert statement.
	BatchSize = 100

	parallelBatches = 4
)

type Result struct {
	Imported int
	Skipped  int
	// AlreadySeeded is set when the user had history and nothing was written.
	AlreadySeeded bool
}

type Seeder struct {
	history repository.HistoryRepository
	logger  *slog.Logger
}

func NewSeeder(history repository.HistoryRepository, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{history: history, logger: logger}
}

// Import inserts articles for userID in batches. Articles the user already
// has are left unchanged.
func (s *Seeder) Import(ctx context.Context, userID string, articles []repository.HistoryArticle) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelBatches)
	for start := 0; start < len(articles); start += BatchSize {
		batch := articles[start:min(start+BatchSize, len(articles))]
		g.Go(func() error {
			return s.history.InsertBatch(gctx, userID, batch)
		})
	}
	return g.Wait()
}

// ImportCatalog loads path and imports it for userID.
func (s *Seeder) ImportCatalog(ctx context.Context, userID, path string) (Result, error) {
	start := time.Now()
	cat, err := LoadCatalog(path)
	if err != nil {
		return Result{}, err
	}
	articles, skipped := cat.HistoryArticles()
	for _, row := range skipped {
		s.logger.Warn("seed.row.skipped", "path", path, "index", row.Index, "reason", row.Reason)
	}
	if err := s.Import(ctx, userID, articles); err != nil {
		s.logger.Error("seed.import.failed", "user_id", userID, "path", path, "error", err)
		return Result{}, fmt.Errorf("import catalog: %w", err)
	}
	s.logger.Info("seed.import.done",
		"user_id", userID,
		"path", path,
		"articles", len(articles),
		"skipped", len(skipped),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Imported: len(articles), Skipped: len(skipped)}, nil
}

// SeedIfEmpty imports the catalog only when userID has no history yet.
func (s *Seeder) SeedIfEmpty(ctx context.Context, userID, path string) (Result, error) {
	n, err := s.history.Count(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if n > 0 {
		s.logger.Info("seed.skip.existing", "user_id", userID, "articles", n)
		return Result{AlreadySeeded: true}, nil
	}
	return s.ImportCatalog(ctx, userID, path)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/voice-orders/internal/common"
	repo "github.com/joseph-ayodele/voice-orders/internal/repository"
	"github.com/joseph-ayodele/voice-orders/internal/seed"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file    = flag.String("file", "", "catalog file, YAML or JSON (required)")
		userID  = flag.String("user", "", "user id to import for (required)")
		ifEmpty = flag.Bool("if-empty", false, "skip users that already have article history")
	)
	flag.Parse()

	if *file == "" || *userID == "" {
		printError("Error: --file and --user are required\n")
		flag.Usage()
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		printError("Error: DB_URL env var is required\n")
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repo.Open(ctx, repo.Config{
		Driver:      cfg.Database.Driver,
		DSN:         cfg.Database.DSN,
		MaxConns:    4,
		DialTimeout: 3 * time.Second,
	}, logger)
	if err != nil {
		printError("Error: opening DB: %v\n", err)
		os.Exit(1)
	}
	defer db.Close(logger)

	if err := repo.Migrate(ctx, db, logger); err != nil {
		printError("Error: migrate: %v\n", err)
		os.Exit(1)
	}

	seeder := seed.NewSeeder(repo.NewHistoryRepository(db, logger), logger)
	var res seed.Result
	if *ifEmpty {
		res, err = seeder.SeedIfEmpty(ctx, *userID, *file)
	} else {
		res, err = seeder.ImportCatalog(ctx, *userID, *file)
	}
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	if res.AlreadySeeded {
		fmt.Printf("%s already has article history, nothing imported\n", *userID)
		return
	}
	fmt.Printf("imported %d articles for %s (%d rows skipped)\n", res.Imported, *userID, res.Skipped)
}

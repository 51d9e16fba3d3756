package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/voice-orders/internal/common"
	llmopenai "github.com/joseph-ayodele/voice-orders/internal/llm/openai"
	"github.com/joseph-ayodele/voice-orders/internal/matcher"
	"github.com/joseph-ayodele/voice-orders/internal/pipeline"
	repo "github.com/joseph-ayodele/voice-orders/internal/repository"
	"github.com/joseph-ayodele/voice-orders/internal/seed"
	"github.com/joseph-ayodele/voice-orders/internal/transcribe"
	tropenai "github.com/joseph-ayodele/voice-orders/internal/transcribe/openai"
)

func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use an in-memory SQLite database instead of DB_URL")
		catalog = flag.String("catalog", "", "article catalog to seed for the user first (YAML or JSON)")
		userID  = flag.String("user", "cli", "user id whose article history is matched against")
		text    = flag.String("text", "", "order text; read from stdin when empty")
		audio   = flag.String("audio", "", "audio file or URL to transcribe instead of text")
	)
	flag.Parse()

	cfg := common.LoadConfig()
	logger := common.NewLogger(common.LogConfig{Level: cfg.Log.Level, Format: "json"})
	slog.SetDefault(logger)

	if cfg.LLM.APIKey == "" {
		logger.Error("OPENAI_API_KEY env var is required")
		os.Exit(2)
	}

	input := strings.TrimSpace(*text)
	if input == "" && *audio == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("read stdin", "error", err)
			os.Exit(2)
		}
		input = strings.TrimSpace(string(b))
	}
	if input == "" && *audio == "" {
		logger.Error("usage: parseorder [-inmem] [-catalog file] [-user id] (-text \"...\" | -audio ref | < order.txt)")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	dbCfg := repo.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN, DialTimeout: 3 * time.Second}
	if *inmem {
		dbCfg = repo.Config{Driver: "sqlite", DSN: "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"}
	}
	db, err := repo.Open(ctx, dbCfg, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)
	if err := repo.Migrate(ctx, db, logger); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}

	orders := repo.NewOrderRepository(db, logger)
	items := repo.NewLineItemRepository(db, logger)
	history := repo.NewHistoryRepository(db, logger)

	if *catalog != "" {
		if _, err := seed.NewSeeder(history, logger).SeedIfEmpty(ctx, *userID, *catalog); err != nil {
			logger.Error("seed catalog", "path", *catalog, "error", err)
			os.Exit(1)
		}
	}

	llmCfg := llmopenai.Config{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Model:           cfg.LLM.Model,
		TranscribeModel: cfg.LLM.TranscribeModel,
		Temperature:     cfg.LLM.Temperature,
		Timeout:         cfg.LLM.Timeout,
	}
	proc := pipeline.NewProcessor(logger, orders, items, history,
		transcribe.NewAudioSource(cfg.LLM.Timeout, logger),
		tropenai.New(llmCfg, logger),
		llmopenai.NewClient(llmCfg, logger),
		matcher.New(history, items, cfg.Matching.HistoryWindow, nil, logger),
		nil,
	)

	start := time.Now()
	var res any
	if *audio != "" {
		o, err := proc.CreateOrder(ctx, *userID, *audio)
		if err == nil {
			res, err = proc.ProcessAudio(ctx, *userID, o.ID)
		}
		if err != nil {
			logger.Error("process audio", "error", err)
			os.Exit(1)
		}
	} else {
		res, err = proc.ProcessText(ctx, *userID, input)
		if err != nil {
			logger.Error("process text", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("parseorder.done", "elapsed_ms", time.Since(start).Milliseconds())

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}

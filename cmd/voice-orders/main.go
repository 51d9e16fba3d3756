package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/voice-orders/internal/async"
	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/export"
	"github.com/joseph-ayodele/voice-orders/internal/ingest"
	llmopenai "github.com/joseph-ayodele/voice-orders/internal/llm/openai"
	"github.com/joseph-ayodele/voice-orders/internal/matcher"
	"github.com/joseph-ayodele/voice-orders/internal/observe"
	"github.com/joseph-ayodele/voice-orders/internal/pipeline"
	repo "github.com/joseph-ayodele/voice-orders/internal/repository"
	"github.com/joseph-ayodele/voice-orders/internal/seed"
	"github.com/joseph-ayodele/voice-orders/internal/server"
	"github.com/joseph-ayodele/voice-orders/internal/transcribe"
	tropenai "github.com/joseph-ayodele/voice-orders/internal/transcribe/openai"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("voice-orders stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *common.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return err
	}
	metrics := observe.DefaultMetrics()

	db, err := repo.Open(ctx, repo.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close(logger)

	if err := db.HealthCheck(ctx, 5*time.Second, logger); err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := repo.Migrate(ctx, db, logger); err != nil {
			return err
		}
	}

	orders := repo.NewOrderRepository(db, logger)
	items := repo.NewLineItemRepository(db, logger)
	history := repo.NewHistoryRepository(db, logger)

	if cfg.Seed.File != "" {
		res, err := seed.NewSeeder(history, logger).SeedIfEmpty(ctx, cfg.Seed.DemoUserID, cfg.Seed.File)
		if err != nil {
			// a broken demo catalog should not keep the service down
			logger.Error("demo seed failed", "user_id", cfg.Seed.DemoUserID, "error", err)
		} else {
			logger.Info("demo seed", "user_id", cfg.Seed.DemoUserID, "imported", res.Imported, "already_seeded", res.AlreadySeeded)
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
		matcher.New(history, items, cfg.Matching.HistoryWindow, metrics, logger),
		metrics,
	)

	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
		async.WithMetrics(metrics),
	)

	gs, hs := server.NewGRPCServer(
		server.NewOrderServer(proc, queue, export.NewService(proc, logger), logger),
		server.NewHistoryServer(proc, logger),
		metrics, logger,
	)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observe.Handler())
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("voice-orders listening", "addr", cfg.Server.GRPCAddr, "version", version)
		return gs.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Inbox.Dir != "" {
		inbox := ingest.NewInbox(ingest.InboxConfig{
			Dir:         cfg.Inbox.Dir,
			UserID:      cfg.Inbox.UserID,
			InitialScan: true,
		}, proc, queue, logger)
		g.Go(func() error { return inbox.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		hs.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		gs.GracefulStop()
		if err := metricsSrv.Shutdown(sctx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
		queue.Shutdown(sctx)
		if err := shutdownMetrics(sctx); err != nil {
			logger.Warn("metrics provider shutdown", "error", err)
		}
		return nil
	})
	return g.Wait()
}

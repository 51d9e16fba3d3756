// Package ingest turns audio files dropped into a directory into queued
// orders.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/voice-orders/internal/async"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
)

// OrderCreator allocates a pending order for an audio reference.
type OrderCreator interface {
	CreateOrder(ctx context.Context, userID, audioRef string) (*entity.Order, error)
}

type InboxConfig struct {
	Dir         string
	UserID      string
	InitialScan bool // queue files already present at start
	Debounce    time.Duration
}

// Inbox creates one order per distinct recording and queues it. A file whose
// content was already queued is skipped, so rewrites and copies of the same
// recording do not produce duplicate orders.
type Inbox struct {
	cfg    InboxConfig
	orders OrderCreator
	queue  async.Queue
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // content hash -> order id
}

func NewInbox(cfg InboxConfig, orders OrderCreator, queue async.Queue, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	return &Inbox{cfg: cfg, orders: orders, queue: queue, logger: logger, seen: map[string]string{}}
}

// Run watches the inbox until ctx is done.
func (in *Inbox) Run(ctx context.Context) error {
	events, errs, err := StartWatcher(ctx, WatchConfig{
		Roots:      []string{in.cfg.Dir},
		SkipHidden: true,
		Debounce:   in.cfg.Debounce,
	}, in.logger)
	if err != nil {
		return err
	}
	in.logger.Info("inbox.start", "dir", in.cfg.Dir, "user_id", in.cfg.UserID)

	if in.cfg.InitialScan {
		paths, stats, err := ScanDirectory(in.cfg.Dir, true)
		if err != nil {
			in.logger.Warn("inbox.scan.failed", "dir", in.cfg.Dir, "error", err)
		}
		in.logger.Info("inbox.scan.done", "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
		for _, p := range paths {
			in.handle(ctx, p)
		}
	}

	for {
		select {
		case p, ok := <-events:
			if !ok {
				in.logger.Info("inbox.stop")
				return nil
			}
			in.handle(ctx, p)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			in.logger.Warn("inbox.watch.error", "error", err)
		}
	}
}

func (in *Inbox) handle(ctx context.Context, path string) {
	if _, err := in.Submit(ctx, path); err != nil {
		in.logger.Error("inbox.submit.failed", "path", path, "error", err)
	}
}

// Submit creates and queues an order for the file at path. It returns the
// empty string when the same content was submitted before.
func (in *Inbox) Submit(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	if !AllowedExt(filepath.Ext(abs)) {
		return "", fmt.Errorf("unsupported audio format: %q", filepath.Ext(abs))
	}
	sum, err := hashFile(abs)
	if err != nil {
		return "", err
	}

	in.mu.Lock()
	if id, dup := in.seen[sum]; dup {
		in.mu.Unlock()
		in.logger.Info("inbox.submit.duplicate", "path", abs, "order_id", id)
		return "", nil
	}
	// reserve before releasing the lock so concurrent events for one file collapse
	in.seen[sum] = ""
	in.mu.Unlock()

	o, err := in.orders.CreateOrder(ctx, in.cfg.UserID, abs)
	if err != nil {
		in.forget(sum)
		return "", err
	}
	if err := in.queue.Enqueue(ctx, async.Job{OrderID: o.ID, UserID: o.UserID, SubmittedAt: time.Now()}); err != nil {
		in.forget(sum)
		return "", err
	}
	in.mu.Lock()
	in.seen[sum] = o.ID
	in.mu.Unlock()
	in.logger.Info("inbox.submit.ok", "path", abs, "order_id", o.ID, "sha256", sum[:12])
	return o.ID, nil
}

func (in *Inbox) forget(sum string) {
	in.mu.Lock()
	delete(in.seen, sum)
	in.mu.Unlock()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

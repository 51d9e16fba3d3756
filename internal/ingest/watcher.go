package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots      []string      // directories to watch (recursive)
	SkipHidden bool          // ignore dot files and dot directories
	Debounce   time.Duration // coalesce rapid create/write bursts per file
}

// StartWatcher emits the path of every audio file created or rewritten under
// cfg.Roots. Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("inbox.watch.failed", "error", "no roots provided")
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("inbox.watch.failed", "error", err)
		return nil, nil, err
	}
	for _, r := range cfg.Roots {
		if err := addTree(w, r, cfg.SkipHidden); err != nil {
			logger.Error("inbox.watch.add_root_failed", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)
	emit := func(p string) {
		select {
		case evCh <- p:
		case <-ctx.Done():
		}
	}

	go func() {
		var (
			mu      sync.Mutex
			timers  = map[string]*time.Timer{}
			pending sync.WaitGroup
		)
		defer func() {
			mu.Lock()
			for p, t := range timers {
				if t.Stop() {
					pending.Done()
				}
				delete(timers, p)
			}
			mu.Unlock()
			pending.Wait()
			_ = w.Close()
			close(evCh)
			close(errCh)
		}()

		schedule := func(p string) {
			if cfg.Debounce <= 0 {
				emit(p)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if t, ok := timers[p]; ok && t.Stop() {
				pending.Done()
			}
			pending.Add(1)
			timers[p] = time.AfterFunc(cfg.Debounce, func() {
				defer pending.Done()
				mu.Lock()
				delete(timers, p)
				mu.Unlock()
				emit(p)
			})
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if cfg.SkipHidden && IsHidden(e.Name) {
					continue
				}
				if e.Has(fsnotify.Create) {
					// new subdirectories are watched too; files fail Add and are ignored
					_ = addTree(w, e.Name, cfg.SkipHidden)
				}
				if AllowedExt(filepath.Ext(e.Name)) && (e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					schedule(e.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("inbox.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func addTree(w *fsnotify.Watcher, root string, skipHidden bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

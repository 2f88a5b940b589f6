// Package watch runs a handler for every report dropped into an inbox
// directory. Writes are debounced per file, so a report copied in several
// chunks is handled once, and handler calls are serialized and rate limited.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/logger"
)

// Handler processes one settled file. Its error is logged, not fatal.
type Handler func(ctx context.Context, path string) error

// Options configures a Watcher
type Options struct {
	// Debounce is the quiet period after the last write before a file is handled
	Debounce time.Duration
	// MinInterval is the minimum spacing between handler calls, 0 for none
	MinInterval time.Duration
	// Extensions limits handled files, e.g. ".pdf"; empty accepts all
	Extensions []string
}

// Watcher watches one directory
type Watcher struct {
	dir     string
	opts    Options
	handle  Handler
	limiter *rate.Limiter
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	pending map[string]*time.Timer
	queued  map[string]bool
	queue   chan string
}

// New creates a watcher for dir. Run starts it.
func New(dir string, opts Options, handle Handler, log *zap.SugaredLogger) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot watch %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Newf("cannot watch %s: not a directory", dir)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	exts := make([]string, 0, len(opts.Extensions))
	for _, e := range opts.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if e != "" {
			exts = append(exts, e)
		}
	}
	opts.Extensions = exts

	return &Watcher{
		dir:     dir,
		opts:    opts,
		handle:  handle,
		limiter: rate.NewLimiter(limit, 1),
		logger:  log,
		pending: make(map[string]*time.Timer),
		queued:  make(map[string]bool),
		queue:   make(chan string, 64),
	}, nil
}

// Run watches until ctx is cancelled. Handler calls run one at a time on a
// single worker goroutine; Run returns after the current call finishes.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", w.dir)
	}
	w.logger.Infow("Watching inbox", logger.FieldPath, w.dir)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx)
	}()
	defer func() {
		w.stopTimers()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.accepts(event.Name) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("Watcher error", logger.FieldError, err)
		}
	}
}

// accepts filters hidden, partial and unwanted files
func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	switch ext {
	case ".tmp", ".part", ".crdownload", ".swp":
		return false
	}
	if len(w.opts.Extensions) == 0 {
		return true
	}
	for _, e := range w.opts.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// schedule restarts the debounce timer of path
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.settle(path)
	})
}

// settle moves a quiet file to the work queue, once
func (w *Watcher) settle(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	if w.queued[path] {
		w.mu.Unlock()
		return
	}
	w.queued[path] = true
	w.mu.Unlock()

	select {
	case w.queue <- path:
	default:
		w.mu.Lock()
		delete(w.queued, path)
		w.mu.Unlock()
		w.logger.Warnw("Inbox queue full, dropping file", logger.FieldPath, path)
	}
}

func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			w.mu.Lock()
			delete(w.queued, path)
			w.mu.Unlock()

			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
			if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
				w.logger.Debugw("Settled file is gone", logger.FieldPath, path)
				continue
			}

			start := time.Now()
			err := w.handle(ctx, path)
			if err != nil {
				w.logger.Warnw("Handler failed",
					logger.FieldPath, path,
					logger.FieldError, err,
					logger.FieldDurationMS, time.Since(start).Milliseconds(),
				)
				continue
			}
			w.logger.Debugw("Handled file",
				logger.FieldPath, path,
				logger.FieldDurationMS, time.Since(start).Milliseconds(),
			)
		}
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

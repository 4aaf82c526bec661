// Package watcher extracts alloy properties from documents dropped into an
// inbox directory and writes the results to an outbox.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dgallion1/patentalloy/internal/parser"
)

// ResultSuffix is appended to a document's base name in the outbox.
const ResultSuffix = ".alloys.txt"

// Handler processes one file found in the inbox.
type Handler func(ctx context.Context, path string) error

// Watcher runs a Handler for each supported file created in a directory.
type Watcher struct {
	dir       string
	handler   Handler
	log       *slog.Logger
	watcher   *fsnotify.Watcher
	semaphore chan struct{}
	settle    time.Duration
	wg        sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]bool
}

// New watches dir. At most maxConcurrent handlers run at once.
func New(dir string, handler Handler, log *slog.Logger, maxConcurrent int) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Watcher{
		dir:       dir,
		handler:   handler,
		log:       log,
		watcher:   fw,
		semaphore: make(chan struct{}, maxConcurrent),
		settle:    500 * time.Millisecond,
		inFlight:  make(map[string]bool),
	}, nil
}

// Start blocks until ctx is canceled, then waits for running handlers.
func (w *Watcher) Start(ctx context.Context) error {
	w.log.Info("inbox watcher started", "dir", w.dir, "max_concurrent", cap(w.semaphore))

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.log.Info("inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !Accepts(event.Name) {
				w.log.Debug("ignoring file", "path", event.Name)
				continue
			}
			if !w.claim(event.Name) {
				continue
			}
			w.log.Info("new document", "path", event.Name)

			select {
			case w.semaphore <- struct{}{}:
			case <-ctx.Done():
				w.release(event.Name)
				continue
			}
			w.wg.Add(1)
			go w.handle(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	defer w.wg.Done()
	defer func() { <-w.semaphore }()
	defer w.release(path)

	// Give the writer a moment to finish.
	select {
	case <-time.After(w.settle):
	case <-ctx.Done():
		return
	}
	if err := w.handler(ctx, path); err != nil {
		w.log.Error("failed to process document", "path", path, "error", err)
	}
}

func (w *Watcher) claim(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight[path] {
		return false
	}
	w.inFlight[path] = true
	return true
}

func (w *Watcher) release(path string) {
	w.mu.Lock()
	delete(w.inFlight, path)
	w.mu.Unlock()
}

// Close stops watching the directory.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Accepts reports whether path is a document the watcher should process.
// Result files are skipped so an inbox that doubles as outbox does not loop.
func Accepts(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ResultSuffix) {
		return false
	}
	return parser.IsSupportedExtension(name)
}

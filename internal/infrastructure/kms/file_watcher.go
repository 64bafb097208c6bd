package kms

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
)

// Applier installs a "{ALG}:..." descriptor, as crypt.Provider.Apply does
type Applier interface {
	Apply(descriptor string) error
}

// DefaultSettleDelay is how long the file must stay quiet before it is re-applied
const DefaultSettleDelay = 250 * time.Millisecond

// FileWatcher applies the descriptors in a file and re-applies them whenever the file
// changes. Each non-empty line not starting with '#' is one descriptor. Reloads wait for
// the file to settle, so a write observed halfway is not applied; writers that can take
// longer than the settle delay should replace the file by rename.
type FileWatcher struct {
	path   string
	target Applier
	logger logger.Logger
	settle time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatcherOption configures a FileWatcher
type WatcherOption func(*FileWatcher)

// WithSettleDelay overrides DefaultSettleDelay
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *FileWatcher) { w.settle = d }
}

// NewFileWatcher creates a watcher for path
func NewFileWatcher(path string, target Applier, log logger.Logger, opts ...WatcherOption) *FileWatcher {
	w := &FileWatcher{
		path:   filepath.Clean(path),
		target: target,
		logger: log.WithComponent("key_file_watcher"),
		settle: DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Load applies the file once. Every line is attempted; the first failure is returned.
func (w *FileWatcher) Load(ctx context.Context) error {
	f, err := os.Open(w.path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		first   error
		applied int
		scanner = bufio.NewScanner(f)
	)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := w.target.Apply(text); err != nil {
			w.logger.Error(ctx, "key file line rejected", err, logger.String("file", w.path), logger.Int("line", line))
			if first == nil {
				first = err
			}
			continue
		}
		applied++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	w.logger.Info(ctx, "key file applied", logger.String("file", w.path), logger.Int("descriptors", applied))
	return first
}

// Start loads the file and watches it until ctx is done or Close is called. The parent
// directory is watched so editors that replace the file by rename are followed.
func (w *FileWatcher) Start(ctx context.Context) error {
	if err := w.Load(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	w.mu.Lock()
	if w.watcher != nil {
		w.mu.Unlock()
		watcher.Close()
		return errors.ErrInvalidConfig.WithMetadata("reason", "watcher already started")
	}
	w.watcher = watcher
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx, watcher, w.done)
	return nil
}

func (w *FileWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			watcher.Close()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			timer.Reset(w.settle)
		case <-timer.C:
			if err := w.Load(ctx); err != nil && !os.IsNotExist(err) {
				w.logger.Error(ctx, "key file reload failed", err, logger.String("file", w.path))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error(ctx, "key file watch error", err, logger.String("file", w.path))
		}
	}
}

// Close stops watching and waits for the loop to exit
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	watcher, done := w.watcher, w.done
	w.watcher = nil
	w.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

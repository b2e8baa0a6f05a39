// Package watch notices when the file-backed note collection is changed by
// another process and reports it once the writes settle. Content this process
// announced through Expect is not reported.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/noteku/internal/checksum"
)

// DefaultDebounce is how long the blob must stay quiet before a change is reported.
const DefaultDebounce = 200 * time.Millisecond

// Watcher observes a single blob file.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	onChange func()

	lastSum string

	mu  sync.Mutex
	own []string // checksums of writes made by this process, oldest first
}

// maxExpected bounds the pending own-write checksums.
const maxExpected = 64

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher for the blob at path. onChange runs on the
// watcher goroutine whenever the blob's content differs from what was
// last seen, including when it is removed, unless the new content was
// passed to Expect first.
func New(path string, onChange func(), opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		onChange: onChange,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the blob's directory until ctx is cancelled. Atomic writes
// replace the file by rename, so the directory is watched rather than the
// file itself.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return err
	}
	w.lastSum = w.currentSum()

	w.logger.Info("watch: started", slog.String("path", w.path))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			fire = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watch: stopped")
			return nil

		case <-fire:
			w.settle()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("watch: event", slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// Expect marks data as written by this process. If the blob settles on it,
// the change is not reported.
func (w *Watcher) Expect(data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.own) == maxExpected {
		w.own = w.own[1:]
	}
	w.own = append(w.own, checksum.Sum(data))
}

func (w *Watcher) settle() {
	sum := w.currentSum()
	if sum == w.lastSum {
		return
	}
	w.lastSum = sum

	// An own write that settled supersedes the ones expected before it.
	w.mu.Lock()
	own := slices.Index(w.own, sum)
	if own >= 0 {
		w.own = w.own[own+1:]
	}
	w.mu.Unlock()
	if own >= 0 {
		w.logger.Debug("watch: own write settled", slog.String("checksum", sum))
		return
	}
	w.logger.Debug("watch: collection changed", slog.String("checksum", sum))
	if w.onChange != nil {
		w.onChange()
	}
}

// currentSum returns the blob's checksum, or "" when it does not exist.
func (w *Watcher) currentSum() string {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("watch: read failed", slog.String("path", w.path), slog.String("error", err.Error()))
		}
		return ""
	}
	return checksum.Sum(data)
}

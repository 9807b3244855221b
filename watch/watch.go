// Package watch re-runs a callback when request files change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must stay quiet before its callback runs.
const DefaultDebounce = 200 * time.Millisecond

// Callback handles one changed file. Its context is cancelled when a newer
// change to the same file arrives or the watcher stops.
type Callback func(ctx context.Context, path string) error

// IsRequestFile reports whether path looks like a request file.
func IsRequestFile(path string) bool {
	return strings.HasSuffix(path, ".chain.yaml") || strings.HasSuffix(path, ".chain.yml")
}

// Watcher debounces file events and runs a callback per changed file.
// When a file changes while its callback is still running, the running
// call is cancelled and a new one is scheduled: the last change wins.
type Watcher struct {
	fsw      *fsnotify.Watcher
	callback Callback
	debounce time.Duration
	match    func(string) bool
	logger   *zap.Logger

	pending map[string]time.Time
	wg      sync.WaitGroup

	mu      sync.Mutex
	running map[string]*run
}

// run is one in-flight callback. Entries are compared by pointer so a
// finished call never removes the entry of the call that replaced it.
type run struct {
	cancel context.CancelFunc
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Zero keeps the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithMatch sets which paths trigger the callback. Defaults to IsRequestFile.
func WithMatch(fn func(string) bool) Option { return func(w *Watcher) { w.match = fn } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(w *Watcher) { w.logger = l } }

// New creates a Watcher. Call Add, then Run.
func New(cb Callback, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		callback: cb,
		debounce: DefaultDebounce,
		match:    IsRequestFile,
		logger:   zap.NewNop(),
		pending:  make(map[string]time.Time),
		running:  make(map[string]*run),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Add watches files and directories. Directories are watched with all of
// their subdirectories, skipping hidden ones.
func (w *Watcher) Add(paths ...string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}

		if !info.IsDir() {
			if err := w.fsw.Add(filepath.Dir(p)); err != nil {
				return err
			}

			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if !d.IsDir() {
				return nil
			}

			if path != p && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}

			return w.fsw.Add(path)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Run processes events until ctx is cancelled. It waits for running
// callbacks to return before closing the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	tick := time.NewTicker(max(w.debounce/4, 10*time.Millisecond))
	defer tick.Stop()

	defer func() {
		w.mu.Lock()
		for _, r := range w.running {
			r.cancel()
		}
		w.mu.Unlock()

		w.wg.Wait()
		_ = w.fsw.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watch: event overflow, some changes may be missed")
				continue
			}

			w.logger.Error("watch error", zap.Error(err))

		case now := <-tick.C:
			w.flush(ctx, now)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !w.match(ev.Name) {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(w.pending, ev.Name)
		w.logger.Debug("watch: file gone", zap.String("path", ev.Name))
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.pending[ev.Name] = time.Now().Add(w.debounce)
	}
}

// flush starts callbacks for files whose quiet period has passed.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	for path, due := range w.pending {
		if now.Before(due) {
			continue
		}

		delete(w.pending, path)

		cctx, cancel := context.WithCancel(ctx)
		r := &run{cancel: cancel}

		w.mu.Lock()
		if prev, ok := w.running[path]; ok {
			prev.cancel()
		}
		w.running[path] = r
		w.mu.Unlock()

		w.logger.Debug("watch: changed", zap.String("path", path))

		w.wg.Add(1)

		go func() {
			defer w.wg.Done()
			defer w.finish(path, r)

			err := w.callback(cctx, path)
			if err != nil && cctx.Err() == nil {
				w.logger.Error("watch: callback failed", zap.String("path", path), zap.Error(err))
			}
		}()
	}
}

// finish releases r and forgets it unless a newer call for path has
// already taken its place.
func (w *Watcher) finish(path string, r *run) {
	r.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running[path] == r {
		delete(w.running, path)
	}
}

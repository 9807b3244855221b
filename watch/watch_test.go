package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rlch/pdchain/watch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	calls []string
	ch    chan string
}

func newRecorder() *recorder { return &recorder{ch: make(chan string, 16)} }

func (r *recorder) callback(_ context.Context, path string) error {
	r.mu.Lock()
	r.calls = append(r.calls, path)
	r.mu.Unlock()

	r.ch <- path

	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.calls)
}

func start(t *testing.T, w *watch.Watcher) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()

	w, err := watch.New(rec.callback, watch.WithDebounce(100*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Add(dir))

	stop := start(t, w)
	defer stop()

	path := filepath.Join(dir, "people.chain.yaml")
	for i := range 5 {
		write(t, path, "variable: df"+string(rune('a'+i)))
		time.Sleep(10 * time.Millisecond)
	}

	write(t, filepath.Join(dir, "notes.txt"), "ignored")

	select {
	case got := <-rec.ch:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("callback never ran")
	}

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "rapid writes collapse into one call")
}

func TestWatcher_LastChangeWins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.chain.yaml")

	var (
		mu        sync.Mutex
		calls     int
		cancelled = make(chan struct{})
		second    = make(chan struct{})
	)

	cb := func(ctx context.Context, _ string) error {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			<-ctx.Done()
			close(cancelled)

			return ctx.Err()
		}

		close(second)

		return nil
	}

	w, err := watch.New(cb, watch.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Add(dir))

	stop := start(t, w)
	defer stop()

	write(t, path, "variable: a")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return calls == 1
	}, 5*time.Second, 10*time.Millisecond)

	write(t, path, "variable: b")

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("first call was not cancelled")
	}

	select {
	case <-second:
	case <-time.After(5 * time.Second):
		t.Fatal("second call never ran")
	}
}

func TestWatcher_StopCancelsRunning(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	started := make(chan struct{})

	var once sync.Once

	w, err := watch.New(func(ctx context.Context, _ string) error {
		once.Do(func() { close(started) })
		<-ctx.Done()

		return nil
	}, watch.WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Add(filepath.Join(dir)))

	stop := start(t, w)

	write(t, filepath.Join(dir, "x.chain.yml"), "variable: x")

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("callback never ran")
	}

	stop()
}

func TestWatcher_ForgetsFinishedCalls(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()

	w, err := watch.New(rec.callback, watch.WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Add(dir))

	stop := start(t, w)
	defer stop()

	for _, name := range []string{"a.chain.yaml", "b.chain.yaml", "c.chain.yaml"} {
		write(t, filepath.Join(dir, name), "variable: df")
	}

	require.Eventually(t, func() bool { return rec.count() >= 3 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return w.Running() == 0 }, 5*time.Second, 10*time.Millisecond,
		"finished callbacks are no longer tracked")
}

func TestWatcher_AddMissing(t *testing.T) {
	t.Parallel()

	w, err := watch.New(func(context.Context, string) error { return nil })
	require.NoError(t, err)

	require.Error(t, w.Add(filepath.Join(t.TempDir(), "nope")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
}

func TestIsRequestFile(t *testing.T) {
	t.Parallel()

	assert.True(t, watch.IsRequestFile("a/b.chain.yaml"))
	assert.True(t, watch.IsRequestFile("b.chain.yml"))
	assert.False(t, watch.IsRequestFile("b.yaml"))
}

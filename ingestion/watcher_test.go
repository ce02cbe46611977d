package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingestRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *ingestRecorder) record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *ingestRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *ingestRecorder) sawPath(path string) bool {
	for _, p := range r.seen() {
		if p == path {
			return true
		}
	}
	return false
}

func TestWatcherIngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &ingestRecorder{}

	w := NewWatcher([]string{dir}, []string{".txt"}, rec.record, WithDebounce(20*time.Millisecond))
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	path := filepath.Join(dir, "dropped.txt")
	require.NoError(t, os.WriteFile(path, []byte("new document"), 0644))

	require.Eventually(t, func() bool {
		return rec.sawPath(path)
	}, 5*time.Second, 20*time.Millisecond, "dropped file never reached the callback")
}

func TestWatcherFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	rec := &ingestRecorder{}

	w := NewWatcher([]string{dir}, []string{".txt"}, rec.record, WithDebounce(20*time.Millisecond))
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	matching := filepath.Join(dir, "keep.txt")
	ignored := filepath.Join(dir, "skip.log")
	require.NoError(t, os.WriteFile(ignored, []byte("log line"), 0644))
	require.NoError(t, os.WriteFile(matching, []byte("document"), 0644))

	require.Eventually(t, func() bool {
		return rec.sawPath(matching)
	}, 5*time.Second, 20*time.Millisecond)

	assert.False(t, rec.sawPath(ignored), "non-matching extension must be ignored")
}

func TestWatcherSyncExisting(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "already-there.md")
	require.NoError(t, os.WriteFile(existing, []byte("old document"), 0644))

	rec := &ingestRecorder{}
	w := NewWatcher([]string{dir}, []string{".md"}, rec.record)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	w.SyncExisting()
	assert.True(t, rec.sawPath(existing))
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher([]string{dir}, nil, func(string) {})
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
}

func TestWatcherContextCancelStops(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher([]string{dir}, nil, func(string) {})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return !w.started
	}, 5*time.Second, 10*time.Millisecond)
}

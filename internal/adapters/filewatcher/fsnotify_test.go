package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

func TestFSNotifyWatcher_DefaultExtensions(t *testing.T) {
	watcher, err := NewFSNotifyWatcher(nil, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.Equal(t, []string{".pdf", ".jpg", ".jpeg", ".png"}, watcher.extensions)
	assert.True(t, watcher.isWatchedExtension("/inbox/SCAN.PNG"))
	assert.False(t, watcher.isWatchedExtension("/inbox/notes.txt"))
}

func TestFSNotifyWatcher_WatchDirectory(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewFSNotifyWatcher([]string{".pdf"}, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := watcher.Watch(ctx, dir)
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("%PDF-1.4"), 0o644)
	}()

	select {
	case event := <-events:
		assert.Equal(t, ports.FileCreated, event.Operation)
		assert.Equal(t, "report.pdf", filepath.Base(event.Path))
	case <-ctx.Done():
		t.Fatal("timeout waiting for event")
	}
}

func TestFSNotifyWatcher_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewFSNotifyWatcher([]string{".pdf"}, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	events, err := watcher.Watch(ctx, dir)
	require.NoError(t, err)

	os.WriteFile(filepath.Join(dir, "test.json"), []byte("{}"), 0o644)

	select {
	case <-events:
		t.Error("should not receive event for .json")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestFSNotifyWatcher_MissingDirectory(t *testing.T) {
	watcher, err := NewFSNotifyWatcher(nil, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	_, err = watcher.Watch(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func fastOptions() Options {
	return Options{
		Pattern:      "*.json",
		Debounce:     50 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
	}
}

func startWatcher(t *testing.T, dir string, opts Options) (*FileWatcher, <-chan string) {
	t.Helper()
	handled := make(chan string, 10)
	fw, err := NewFileWatcher(dir, opts, func(ctx context.Context, path string) error {
		handled <- path
		return nil
	}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, fw.Start(ctx))
	t.Cleanup(func() {
		cancel()
		fw.Stop()
	})
	return fw, handled
}

func TestFileWatcher_HandlesNewInventory(t *testing.T) {
	dir := t.TempDir()
	_, handled := startWatcher(t, dir, fastOptions())

	path := filepath.Join(dir, "pixel7.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"package_name":"com.foo"}]`), 0644))

	select {
	case got := <-handled:
		assert.Equal(t, path, got)
	case <-time.After(3 * time.Second):
		t.Fatal("inventory file was not handled")
	}

	// 多次写入事件合并为一次处理
	select {
	case got := <-handled:
		t.Fatalf("file handled twice: %s", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	_, handled := startWatcher(t, dir, fastOptions())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))

	select {
	case got := <-handled:
		t.Fatalf("unexpected file handled: %s", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestFileWatcher_ScanExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "existing.JSON")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0644))

	opts := fastOptions()
	opts.ScanExisting = true
	_, handled := startWatcher(t, dir, opts)

	select {
	case got := <-handled:
		assert.Equal(t, path, got)
	case <-time.After(3 * time.Second):
		t.Fatal("existing inventory file was not handled")
	}
}

func TestFileWatcher_CreatesDirAndValidatesPattern(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "inbound")

	fw, err := NewFileWatcher(dir, Options{}, func(context.Context, string) error { return nil }, testLogger())
	require.NoError(t, err)
	defer fw.Stop()

	assert.DirExists(t, dir)
	assert.Equal(t, dir, fw.GetWatchDir())
	assert.True(t, fw.matchPattern("device.json"))
	assert.False(t, fw.matchPattern("device.json.tmp"))

	_, err = NewFileWatcher(dir, Options{Pattern: "[bad"}, nil, testLogger())
	assert.Error(t, err)
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	fw, err := NewFileWatcher(t.TempDir(), fastOptions(), func(context.Context, string) error { return nil }, testLogger())
	require.NoError(t, err)

	require.NoError(t, fw.Start(context.Background()))
	assert.NoError(t, fw.Stop())
	assert.NoError(t, fw.Stop())
}

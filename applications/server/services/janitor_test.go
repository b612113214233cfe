package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donmikel/mediashrink/applications/server/adapters/disk"
	"github.com/donmikel/mediashrink/applications/server/adapters/inmemory"
	"github.com/donmikel/mediashrink/applications/server/domain"
)

func TestJanitorSweep(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storage := disk.NewStorage(dir, prefix, log.NewNopLogger())
	jobs := inmemory.NewJobStorage()

	require.NoError(t, jobs.StartJob(ctx, domain.TranscodeJob{ID: "busy.mp4"}))

	old := time.Now().Add(-time.Hour)
	for _, name := range []string{"orphan.mp4", prefix + "orphan.mp4", "busy.mp4"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
		require.NoError(t, os.Chtimes(path, old, old))
	}

	j := NewJanitor(storage, jobs, 15*time.Minute, time.Minute, log.NewNopLogger())
	stats, err := j.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)

	_, err = os.Stat(filepath.Join(dir, "busy.mp4"))
	assert.NoError(t, err)
}

func TestJanitorRunStops(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orphan.mp4")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	j := NewJanitor(disk.NewStorage(dir, prefix, log.NewNopLogger()), inmemory.NewJobStorage(), 0, 10*time.Millisecond, log.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

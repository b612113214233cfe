package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donmikel/mediashrink/applications/server/domain"
)

// fakeTool writes an executable shell script standing in for ffmpeg.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool needs a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	return path
}

func newJob(t *testing.T) domain.TranscodeJob {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mp4")
	require.NoError(t, os.WriteFile(in, []byte("media"), 0o644))

	return domain.TranscodeJob{
		ID:         "in.mp4",
		FileName:   "clip.mp4",
		InputPath:  in,
		OutputPath: filepath.Join(dir, "1M.in.mp4"),
		Bitrate:    "1M",
	}
}

func TestArgs(t *testing.T) {
	job := domain.TranscodeJob{InputPath: "uploads/a b.mp4", OutputPath: "uploads/1M.a b.mp4", Bitrate: "200K"}

	assert.Equal(t, []string{
		"-y", "-threads", "0",
		"-i", "uploads/a b.mp4",
		"-b:v", "200K",
		"-b:a", "44K",
		"uploads/1M.a b.mp4",
	}, Args(job, DefaultAudioBitrate))
}

func TestTranscodeSuccess(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	tool := fakeTool(t, `printf '%s\n' "$@" > "`+argsFile+`"
for a in "$@"; do out="$a"; done
cp "$5" "$out"`)
	job := newJob(t)

	tr := NewTranscoder(Config{Binary: tool}, log.NewNopLogger())
	require.NoError(t, tr.Transcode(context.Background(), job))

	out, err := os.ReadFile(job.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "media", string(out))

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, Args(job, DefaultAudioBitrate), strings.Split(strings.TrimSuffix(string(args), "\n"), "\n"))
}

func TestTranscodeToolError(t *testing.T) {
	tool := fakeTool(t, `echo "in.mp4: Invalid data found when processing input" >&2
exit 3`)

	err := NewTranscoder(Config{Binary: tool}, log.NewNopLogger()).Transcode(context.Background(), newJob(t))

	var toolErr *domain.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, 3, toolErr.ExitCode)
	assert.Equal(t, tool, toolErr.Tool)
	assert.Contains(t, toolErr.Stderr, "Invalid data found when processing input")
}

func TestTranscodeTimeout(t *testing.T) {
	tool := fakeTool(t, "exec sleep 5")

	tr := NewTranscoder(Config{Binary: tool, Timeout: 100 * time.Millisecond}, log.NewNopLogger())

	start := time.Now()
	err := tr.Transcode(context.Background(), newJob(t))

	assert.True(t, errors.Is(err, domain.ErrTranscodeTimeout))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestTranscodeCanceled(t *testing.T) {
	tool := fakeTool(t, "exec sleep 5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTranscoder(Config{Binary: tool}, log.NewNopLogger()).Transcode(ctx, newJob(t))

	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, domain.ErrTranscodeTimeout))
}

func TestTranscodeMissingBinary(t *testing.T) {
	tr := NewTranscoder(Config{Binary: filepath.Join(t.TempDir(), "no-such-tool")}, log.NewNopLogger())

	err := tr.Transcode(context.Background(), newJob(t))

	require.Error(t, err)
	var toolErr *domain.ToolError
	assert.False(t, errors.As(err, &toolErr))
	assert.Contains(t, err.Error(), "can't run")
}

func TestTranscodeWithFFmpeg(t *testing.T) {
	bin, err := exec.LookPath(DefaultBinary)
	if err != nil || testing.Short() {
		t.Skip("ffmpeg not available")
	}

	dir := t.TempDir()
	in := filepath.Join(dir, "in.mp4")
	gen := exec.Command(bin, "-y", "-f", "lavfi", "-i", "testsrc=duration=1:size=64x64:rate=10", in)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Skipf("can't generate fixture: %v: %s", err, out)
	}

	job := domain.TranscodeJob{
		ID:         "in.mp4",
		InputPath:  in,
		OutputPath: filepath.Join(dir, "1M.in.mp4"),
		Bitrate:    "1M",
	}
	require.NoError(t, NewTranscoder(Config{Timeout: time.Minute}, log.NewNopLogger()).Transcode(context.Background(), job))

	info, err := os.Stat(job.OutputPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	bad := job
	bad.InputPath = filepath.Join(dir, "garbage.mp4")
	require.NoError(t, os.WriteFile(bad.InputPath, []byte("not media"), 0o644))
	bad.OutputPath = filepath.Join(dir, "1M.garbage.mp4")

	err = NewTranscoder(Config{}, log.NewNopLogger()).Transcode(context.Background(), bad)
	var toolErr *domain.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.NotEmpty(t, toolErr.Stderr)
}

package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donmikel/mediashrink/applications/server/domain"
)

func TestJobStorage(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobStorage()

	job := domain.TranscodeJob{ID: "a.mp4", FileName: "clip.mp4", Bitrate: "1M"}
	require.NoError(t, jobs.StartJob(ctx, job))
	assert.Error(t, jobs.StartJob(ctx, job))
	assert.True(t, jobs.InProgress("a.mp4"))
	assert.False(t, jobs.InProgress("b.mp4"))

	got, err := jobs.GetJob(ctx, "a.mp4")
	require.NoError(t, err)
	assert.Equal(t, job, got)

	require.NoError(t, jobs.CompleteJob(ctx, "a.mp4"))
	assert.False(t, jobs.InProgress("a.mp4"))
	assert.Error(t, jobs.CompleteJob(ctx, "a.mp4"))

	_, err = jobs.GetJob(ctx, "a.mp4")
	assert.Error(t, err)
}

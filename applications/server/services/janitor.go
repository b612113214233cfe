package services

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/donmikel/mediashrink/applications/server/interfaces"
	"github.com/donmikel/mediashrink/applications/server/metrics"
)

// Janitor periodically removes files left in storage by requests that
// never reached their cleanup step.
type Janitor struct {
	storage   interfaces.Storage
	jobs      interfaces.JobStorage
	retention time.Duration
	interval  time.Duration
	logger    log.Logger
}

func NewJanitor(storage interfaces.Storage, jobs interfaces.JobStorage, retention, interval time.Duration, logger log.Logger) *Janitor {
	return &Janitor{
		storage:   storage,
		jobs:      jobs,
		retention: retention,
		interval:  interval,
		logger:    logger,
	}
}

// Run sweeps every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
				level.Error(j.logger).Log("msg", "janitor sweep failed", "err", err)
			}
		}
	}
}

func (j *Janitor) Sweep(ctx context.Context) (interfaces.SweepStats, error) {
	stats, err := j.storage.Sweep(ctx, time.Now().Add(-j.retention), j.jobs.InProgress)

	metrics.JanitorFilesRemoved.Add(float64(stats.Files))
	metrics.JanitorBytesRemoved.Add(float64(stats.Bytes))

	if stats.Files > 0 {
		level.Info(j.logger).Log("msg", "janitor removed stale files",
			"files", stats.Files,
			"freed", humanize.Bytes(uint64(stats.Bytes)),
		)
	}

	return stats, err
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/donmikel/mediashrink/applications/server"
	"github.com/donmikel/mediashrink/applications/server/domain"
	"github.com/donmikel/mediashrink/applications/server/interfaces"
	"github.com/donmikel/mediashrink/applications/server/metrics"
)

const defaultContentType = "application/octet-stream"

type service struct {
	storage      interfaces.Storage
	jobs         interfaces.JobStorage
	transcoder   interfaces.Transcoder
	outputPrefix string
	logger       log.Logger
}

func NewService(
	storage interfaces.Storage,
	jobs interfaces.JobStorage,
	transcoder interfaces.Transcoder,
	outputPrefix string,
	logger log.Logger,
) server.TranscodeService {
	return &service{
		storage:      storage,
		jobs:         jobs,
		transcoder:   transcoder,
		outputPrefix: outputPrefix,
		logger:       logger,
	}
}

func (s *service) Transcode(ctx context.Context, upload domain.Upload) (domain.Result, error) {
	key := s.storage.NewKey(upload.FileName)
	job := domain.TranscodeJob{
		ID:         key,
		FileName:   upload.FileName,
		InputPath:  s.storage.InputPath(key),
		OutputPath: s.storage.OutputPath(key),
		Bitrate:    upload.Bitrate,
		CreatedAt:  time.Now(),
	}

	if err := s.jobs.StartJob(ctx, job); err != nil {
		return domain.Result{}, fmt.Errorf("can't start job: %w", err)
	}
	defer func() {
		if err := s.jobs.CompleteJob(context.Background(), job.ID); err != nil {
			level.Error(s.logger).Log("msg", "can't complete job", "job", job.ID, "err", err)
		}
	}()

	if err := s.storage.SaveInput(ctx, key, upload.Data); err != nil {
		return domain.Result{}, fmt.Errorf("%w: %w", domain.ErrSaveFile, err)
	}
	metrics.UploadSizeBytes.Observe(float64(len(upload.Data)))

	level.Info(s.logger).Log("msg", "transcoding",
		"job", job.ID,
		"file", upload.FileName,
		"size", humanize.Bytes(uint64(len(upload.Data))),
		"bitrate", upload.Bitrate,
	)

	err := s.run(ctx, job)
	go s.cleanup(job, err != nil)
	if err != nil {
		return domain.Result{}, fmt.Errorf("can't transcode %s: %w", upload.FileName, err)
	}

	data, err := s.storage.ReadOutput(ctx, key)
	if err != nil {
		go s.deleteOutput(job)
		return domain.Result{}, fmt.Errorf("%w: %w", domain.ErrReadOutput, err)
	}
	s.deleteOutput(job)

	contentType := upload.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	return domain.Result{
		FileName:    s.outputPrefix + upload.FileName,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (s *service) run(ctx context.Context, job domain.TranscodeJob) error {
	bitrate := string(job.Bitrate)

	metrics.TranscodesInFlight.Inc()
	start := time.Now()
	err := s.transcoder.Transcode(ctx, job)
	metrics.TranscodesInFlight.Dec()

	metrics.TranscodeDuration.WithLabelValues(bitrate).Observe(time.Since(start).Seconds())
	metrics.TranscodesTotal.WithLabelValues(bitrate, resultLabel(err)).Inc()

	return err
}

// cleanup removes the job's input and, after a failed run, whatever partial
// output the tool left behind. Errors are only logged.
func (s *service) cleanup(job domain.TranscodeJob, failed bool) {
	if err := s.storage.DeleteInput(context.Background(), job.ID); err != nil {
		level.Error(s.logger).Log("msg", "can't delete input", "job", job.ID, "err", err)
	}
	if failed {
		s.deleteOutput(job)
	}
}

func (s *service) deleteOutput(job domain.TranscodeJob) {
	if err := s.storage.DeleteOutput(context.Background(), job.ID); err != nil {
		level.Error(s.logger).Log("msg", "can't delete output", "job", job.ID, "err", err)
	}
}

func resultLabel(err error) string {
	var toolErr *domain.ToolError
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.As(err, &toolErr):
		return metrics.ResultToolError
	case errors.Is(err, domain.ErrTranscodeTimeout):
		return metrics.ResultTimeout
	default:
		return metrics.ResultError
	}
}

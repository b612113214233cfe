package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/donmikel/mediashrink/applications/server/domain"
	"github.com/donmikel/mediashrink/applications/server/interfaces"
)

const (
	DefaultBinary       = "ffmpeg"
	DefaultAudioBitrate = "44K"
)

type Config struct {
	Binary       string
	AudioBitrate string
	// Timeout bounds a single run, zero means no limit.
	Timeout time.Duration
}

type transcoder struct {
	conf Config
	log  log.Logger
}

func NewTranscoder(conf Config, logger log.Logger) interfaces.Transcoder {
	if conf.Binary == "" {
		conf.Binary = DefaultBinary
	}
	if conf.AudioBitrate == "" {
		conf.AudioBitrate = DefaultAudioBitrate
	}

	return &transcoder{
		conf: conf,
		log:  logger,
	}
}

// Args returns the argument vector for a job, without the binary name.
func Args(job domain.TranscodeJob, audioBitrate string) []string {
	return []string{
		"-y",
		"-threads", "0",
		"-i", job.InputPath,
		"-b:v", string(job.Bitrate),
		"-b:a", audioBitrate,
		job.OutputPath,
	}
}

func (t *transcoder) Transcode(ctx context.Context, job domain.TranscodeJob) error {
	if t.conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.conf.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.conf.Binary, Args(job, t.conf.AudioBitrate)...)
	cmd.Stderr = &stderr

	level.Debug(t.log).Log("msg", "starting transcoder",
		"job", job.ID,
		"cmd", cmd.String(),
	)

	start := time.Now()
	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		level.Info(t.log).Log("msg", "transcoding finished",
			"job", job.ID,
			"bitrate", job.Bitrate,
			"took", time.Since(start),
		)
		return nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %v", domain.ErrTranscodeTimeout, t.conf.Timeout)
	case ctx.Err() != nil:
		return fmt.Errorf("transcoding aborted: %w", ctx.Err())
	case errors.As(err, &exitErr):
		return &domain.ToolError{
			Tool:     t.conf.Binary,
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr.String(),
		}
	default:
		return fmt.Errorf("can't run %s: %w", t.conf.Binary, err)
	}
}

package interfaces

import (
	"context"

	"github.com/donmikel/mediashrink/applications/server/domain"
)

// Transcoder converts job.InputPath into job.OutputPath at job.Bitrate.
type Transcoder interface {
	Transcode(ctx context.Context, job domain.TranscodeJob) error
}

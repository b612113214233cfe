package interfaces

import (
	"context"

	"github.com/donmikel/mediashrink/applications/server/domain"
)

type JobStorage interface {
	StartJob(ctx context.Context, job domain.TranscodeJob) error
	CompleteJob(ctx context.Context, id string) error
	GetJob(ctx context.Context, id string) (domain.TranscodeJob, error)
	InProgress(id string) bool
}

package server

import (
	"context"

	"github.com/donmikel/mediashrink/applications/server/domain"
)

type TranscodeService interface {
	Transcode(ctx context.Context, upload domain.Upload) (domain.Result, error)
}

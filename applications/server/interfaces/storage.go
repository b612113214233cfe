package interfaces

import (
	"context"
	"time"
)

// Storage keeps the input and output files of transcode jobs. Files are
// addressed by a request-scoped key, never by a client supplied name.
type Storage interface {
	NewKey(fileName string) string
	InputPath(key string) string
	OutputPath(key string) string
	SaveInput(ctx context.Context, key string, data []byte) error
	ReadOutput(ctx context.Context, key string) ([]byte, error)
	DeleteInput(ctx context.Context, key string) error
	DeleteOutput(ctx context.Context, key string) error
	// Sweep removes files last modified before the given time, skipping
	// keys for which inUse reports true.
	Sweep(ctx context.Context, before time.Time, inUse func(key string) bool) (SweepStats, error)
}

type SweepStats struct {
	Files int
	Bytes int64
}

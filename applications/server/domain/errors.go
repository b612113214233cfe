package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBitrate   = errors.New("invalid bitrate")
	ErrTranscodeTimeout = errors.New("transcoding timed out")
	ErrSaveFile         = errors.New("could not save incoming file")
	ErrReadOutput       = errors.New("could not read transcoded file")
)

// ToolError is returned when the transcoding tool ran but exited with a
// non-zero status. Stderr holds the tool's diagnostics verbatim.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

package domain

import "time"

// Upload is a single file received from a client together with the
// requested bitrate preset.
type Upload struct {
	FileName    string
	ContentType string
	Bitrate     Bitrate
	Data        []byte
}

// TranscodeJob is the request-scoped unit of work handed to a Transcoder.
// ID doubles as the storage key of the input file.
type TranscodeJob struct {
	ID         string
	FileName   string
	InputPath  string
	OutputPath string
	Bitrate    Bitrate
	CreatedAt  time.Time
}

type Result struct {
	FileName    string
	ContentType string
	Data        []byte
}

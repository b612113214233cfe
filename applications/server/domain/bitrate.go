package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Bitrate is a video bitrate preset passed to the transcoding tool unchanged.
type Bitrate string

// DefaultBitrates are the presets accepted when none are configured.
var DefaultBitrates = []string{"200K", "1M"}

// Bitrates is an allow-list of presets.
type Bitrates map[Bitrate]struct{}

func NewBitrates(values ...string) Bitrates {
	b := make(Bitrates, len(values))
	for _, v := range values {
		b[Bitrate(v)] = struct{}{}
	}

	return b
}

// Parse returns raw as a Bitrate if it is an exact member of the allow-list.
func (b Bitrates) Parse(raw string) (Bitrate, error) {
	if _, ok := b[Bitrate(raw)]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidBitrate, raw)
	}

	return Bitrate(raw), nil
}

func (b Bitrates) String() string {
	result := make([]string, 0, len(b))
	for v := range b {
		result = append(result, string(v))
	}
	sort.Strings(result)

	return strings.Join(result, ", ")
}

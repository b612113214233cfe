package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitratesParse(t *testing.T) {
	allowed := NewBitrates(DefaultBitrates...)

	tests := []struct {
		raw     string
		wantErr bool
	}{
		{raw: "200K"},
		{raw: "1M"},
		{raw: "1m", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "1M -f null", wantErr: true},
		{raw: "5M", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := allowed.Parse(tt.raw)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidBitrate))
				assert.Equal(t, Bitrate(""), got)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, Bitrate(tt.raw), got)
		})
	}
}

func TestBitratesString(t *testing.T) {
	assert.Equal(t, "1M, 200K", NewBitrates("200K", "1M").String())
}

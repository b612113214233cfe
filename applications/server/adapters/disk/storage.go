package disk

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/donmikel/mediashrink/applications/server/interfaces"
)

const (
	writeBufferSize = 64 * 1024
	maxExtLen       = 10
)

type diskStorage struct {
	dir          string
	outputPrefix string
	log          log.Logger
}

// NewStorage returns a Storage keeping files flat in dir. Output files are
// named outputPrefix followed by the job key.
func NewStorage(dir, outputPrefix string, logger log.Logger) interfaces.Storage {
	return &diskStorage{
		dir:          dir,
		outputPrefix: outputPrefix,
		log:          logger,
	}
}

// NewKey returns a fresh key carrying the extension of fileName, the
// transcoding tool picks the output container from it.
func (d *diskStorage) NewKey(fileName string) string {
	return uuid.NewString() + safeExt(fileName)
}

func (d *diskStorage) InputPath(key string) string {
	return filepath.Join(d.dir, key)
}

func (d *diskStorage) OutputPath(key string) string {
	return filepath.Join(d.dir, d.outputPrefix+key)
}

func (d *diskStorage) SaveInput(ctx context.Context, key string, data []byte) error {
	path := d.InputPath(key)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("can't create input file: %w", err)
	}

	w := bufio.NewWriterSize(f, writeBufferSize)
	if _, err = w.Write(data); err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("can't write input file: %w", err)
	}

	level.Debug(d.log).Log("msg", "input file saved",
		"path", path,
		"size", humanize.Bytes(uint64(len(data))),
	)

	return nil
}

func (d *diskStorage) ReadOutput(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(d.OutputPath(key))
	if err != nil {
		return nil, fmt.Errorf("can't read output file: %w", err)
	}

	return data, nil
}

func (d *diskStorage) DeleteInput(ctx context.Context, key string) error {
	return remove(d.InputPath(key))
}

func (d *diskStorage) DeleteOutput(ctx context.Context, key string) error {
	return remove(d.OutputPath(key))
}

func (d *diskStorage) Sweep(ctx context.Context, before time.Time, inUse func(key string) bool) (interfaces.SweepStats, error) {
	var stats interfaces.SweepStats

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return stats, fmt.Errorf("can't read uploads dir: %w", err)
	}

	for _, entry := range entries {
		if err = ctx.Err(); err != nil {
			return stats, err
		}
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed concurrently
			continue
		}
		if !info.ModTime().Before(before) {
			continue
		}
		if inUse(strings.TrimPrefix(entry.Name(), d.outputPrefix)) {
			continue
		}

		if err = remove(filepath.Join(d.dir, entry.Name())); err != nil {
			level.Error(d.log).Log("msg", "can't remove stale file",
				"file", entry.Name(),
				"err", err,
			)
			continue
		}

		stats.Files++
		stats.Bytes += info.Size()
	}

	return stats, nil
}

func remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("can't remove file: %w", err)
	}

	return nil
}

// safeExt returns the extension of a client supplied name if it only
// consists of ASCII letters and digits, otherwise an empty string.
func safeExt(fileName string) string {
	if i := strings.LastIndexAny(fileName, `/\`); i >= 0 {
		fileName = fileName[i+1:]
	}

	ext := filepath.Ext(fileName)
	if len(ext) < 2 || len(ext) > maxExtLen+1 {
		return ""
	}

	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}

	return ext
}

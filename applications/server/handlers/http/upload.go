package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donmikel/mediashrink/applications/server"
	"github.com/donmikel/mediashrink/applications/server/domain"
)

var (
	errSingleFile   = errors.New("only single-file uploads")
	errNoFile       = errors.New("no file uploaded")
	errBodyTooLarge = errors.New("request body too large")
)

type UploadConfig struct {
	MaxBodyBytes int64
	Bitrates     domain.Bitrates
}

func NewRouter(svc server.TranscodeService, page []byte, conf UploadConfig, logger log.Logger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", PageHandler(page)).Methods(http.MethodGet)
	r.HandleFunc("/upload", UploadHandler(svc, conf, logger)).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.Use(instrument(logger))
	return r
}

// UploadHandler transcodes the single file of a multipart body at the
// bitrate given in the query and responds with the result.
func UploadHandler(svc server.TranscodeService, conf UploadConfig, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("bitrate")
		bitrate, err := conf.Bitrates.Parse(raw)
		if err != nil {
			level.Info(logger).Log("msg", "invalid bitrate", "bitrate", raw)
			writeErr(w, fmt.Errorf("invalid bitrate %q, expected one of: %s", raw, conf.Bitrates), http.StatusBadRequest)
			return
		}

		if r.ContentLength > conf.MaxBodyBytes {
			level.Info(logger).Log("msg", "request body too large",
				"size", humanize.Bytes(uint64(r.ContentLength)),
			)
			writeErr(w, errBodyTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, conf.MaxBodyBytes)

		upload, err := readUpload(r, logger)
		if err != nil {
			level.Info(logger).Log("msg", "rejected upload", "err", err)
			writeErr(w, err, readStatus(err))
			return
		}
		upload.Bitrate = bitrate

		result, err := svc.Transcode(r.Context(), upload)
		if err != nil {
			level.Error(logger).Log("msg", "Transcode error",
				"err", err,
			)
			status, respErr := transcodeErr(err)
			writeErr(w, respErr, status)
			return
		}

		disposition := mime.FormatMediaType("attachment", map[string]string{"filename": result.FileName})
		if disposition == "" {
			disposition = "attachment"
		}
		w.Header().Set("Content-Type", result.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
		w.Header().Set("Content-Disposition", disposition)
		w.WriteHeader(http.StatusOK)

		if _, err = w.Write(result.Data); err != nil {
			level.Error(logger).Log("msg", "error writing response", "err", err)
		}
	}
}

// readUpload consumes the whole multipart body. The file is kept in memory
// so a rejected request never leaves anything in storage.
func readUpload(r *http.Request, logger log.Logger) (domain.Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return domain.Upload{}, fmt.Errorf("can't read multipart body: %w", err)
	}

	var (
		upload domain.Upload
		files  int
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Upload{}, fmt.Errorf("can't read multipart body: %w", err)
		}

		if part.FileName() == "" {
			n, err := io.Copy(io.Discard, part)
			if err != nil {
				return domain.Upload{}, fmt.Errorf("can't read field %s: %w", part.FormName(), err)
			}
			level.Debug(logger).Log("msg", "discarded form field",
				"field", part.FormName(),
				"size", humanize.Bytes(uint64(n)),
			)
			continue
		}

		files++
		if files == 2 {
			return domain.Upload{}, errSingleFile
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return domain.Upload{}, fmt.Errorf("can't read file %s: %w", part.FileName(), err)
		}

		upload = domain.Upload{
			FileName:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		}

		level.Info(logger).Log("msg", "file received",
			"field", part.FormName(),
			"file", upload.FileName,
			"content_type", upload.ContentType,
			"size", humanize.Bytes(uint64(len(data))),
		)
	}

	if files == 0 {
		return domain.Upload{}, errNoFile
	}

	return upload, nil
}

func readStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}

	return http.StatusBadRequest
}

// transcodeErr maps service errors to a status and a body safe to show
// to the client.
func transcodeErr(err error) (int, error) {
	var toolErr *domain.ToolError
	switch {
	case errors.As(err, &toolErr):
		return http.StatusInternalServerError, fmt.Errorf("error in `%s`: %s", filepath.Base(toolErr.Tool), toolErr.Stderr)
	case errors.Is(err, domain.ErrSaveFile):
		return http.StatusInternalServerError, domain.ErrSaveFile
	case errors.Is(err, domain.ErrReadOutput):
		return http.StatusInternalServerError, domain.ErrReadOutput
	default:
		return http.StatusInternalServerError, err
	}
}

func writeErr(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(err.Error()))
}

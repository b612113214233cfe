package http

import (
	"net/http"
	"time"

	"github.com/go-kit/log"

	"github.com/donmikel/mediashrink/applications/server"
	"github.com/donmikel/mediashrink/applications/server/config"
)

const readHeaderTimeout = 10 * time.Second

func NewHTTPServer(conf config.Api, svc server.TranscodeService, page []byte, upload UploadConfig, logger log.Logger) *http.Server {
	mux := NewRouter(svc, page, upload, logger)
	return &http.Server{
		Addr:              conf.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

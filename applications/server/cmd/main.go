package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/donmikel/mediashrink/applications/server"
	"github.com/donmikel/mediashrink/applications/server/adapters/disk"
	"github.com/donmikel/mediashrink/applications/server/adapters/ffmpeg"
	"github.com/donmikel/mediashrink/applications/server/adapters/inmemory"
	"github.com/donmikel/mediashrink/applications/server/config"
	"github.com/donmikel/mediashrink/applications/server/domain"
	"github.com/donmikel/mediashrink/applications/server/handlers/http"
	"github.com/donmikel/mediashrink/applications/server/interfaces"
	"github.com/donmikel/mediashrink/applications/server/services"
)

// exitCode is a process termination code.
type exitCode int

// Possible process termination codes are listed below.
const (
	// exitSuccess is code for successful program termination.
	exitSuccess exitCode = 0
	// exitFailure is code for unsuccessful program termination.
	exitFailure exitCode = 1
)

// Kubernetes (rolling update) doesn't wait until a pod is out of rotation before sending SIGTERM,
// and external LB could still route traffic to a non-existing pod resulting in a surge of 50x API errors.
// It's recommended to wait for 5 seconds before terminating the program; see references
// https://github.com/kubernetes-retired/contrib/issues/1140, https://youtu.be/me5iyiheOC8?t=1797.
const preStopWait = 5 * time.Second

// Shutdown timeout for http servers. In-flight transcodes get no longer than this.
const shutdownTimeout = 30 * time.Second

var (
	// version is the service version from git tag.
	version = ""
)

func main() {
	os.Exit(int(gracefulMain()))
}

// gracefulMain releases resources gracefully upon termination.
// When we call os.Exit defer statements do not run resulting in unclean process shutdown.
// nolint
func gracefulMain() exitCode {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "path to the config file")
	envPath := fs.String("env", ".env", "path to an optional dotenv file")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	v := fs.Bool("v", false, "Show version")

	var logger log.Logger
	{
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	err := fs.Parse(os.Args[1:])
	if err == flag.ErrHelp {
		return exitSuccess
	}
	if err != nil {
		logger.Log("msg", "parsing cli flags failed", "err", err)
		return exitFailure
	}

	logger = level.NewFilter(logger, levelOption(*logLevel))

	if *v {
		if version == "" {
			level.Error(logger).Log("msg", "version not set")
		} else {
			level.Info(logger).Log("version", version)
		}

		return exitSuccess
	}

	if err = godotenv.Load(*envPath); err != nil && !os.IsNotExist(err) {
		level.Error(logger).Log("msg", "cannot load env file", "path", *envPath, "err", err)
		return exitFailure
	}

	logger.Log("configPath", *configPath)

	cfg, err := config.Parse(*configPath)
	if err != nil {
		logger.Log("msg", "cannot parse service config", "err", err)
		return exitFailure
	}
	cfg.ApplyEnv(os.LookupEnv)

	err = cfg.Validate()
	if err != nil {
		logger.Log("msg", "config validation failed", "err", err)
		return exitFailure
	}

	// It's nice to be able to see panics in Logs, hence we monitor for panics after
	// logger has been bootstrapped.
	defer monitorPanic(logger)
	ctx := context.Background()

	if err = os.MkdirAll(cfg.Storage.UploadsDir, 0o755); err != nil {
		level.Error(logger).Log("msg", "cannot prepare uploads dir", "err", err)
		return exitFailure
	}

	page, err := http.LoadPage(cfg.API.IndexPage)
	if err != nil {
		level.Error(logger).Log("msg", "cannot load upload page", "err", err)
		return exitFailure
	}

	var storage interfaces.Storage
	{
		storage = disk.NewStorage(cfg.Storage.UploadsDir, cfg.Storage.OutputPrefix, logger)
	}

	var jobStorage interfaces.JobStorage
	{
		jobStorage = inmemory.NewJobStorage()
	}

	var transcoder interfaces.Transcoder
	{
		transcoder = ffmpeg.NewTranscoder(ffmpeg.Config{
			Binary:       cfg.Transcoder.Binary,
			AudioBitrate: cfg.Transcoder.AudioBitrate,
			Timeout:      cfg.Transcoder.Timeout,
		}, logger)
	}

	var transcodeService server.TranscodeService
	{
		transcodeService = services.NewService(storage, jobStorage, transcoder, cfg.Storage.OutputPrefix, logger)
	}

	uploadConf := http.UploadConfig{
		MaxBodyBytes: cfg.API.MaxBodyBytes,
		Bitrates:     domain.NewBitrates(cfg.Transcoder.Bitrates...),
	}
	hServer := http.NewHTTPServer(cfg.API, transcodeService, page, uploadConf, logger)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-sig:
			level.Info(logger).Log("msg", fmt.Sprintf("signal received (waiting %v before terminating): %v", preStopWait, s))
			time.Sleep(preStopWait)
			level.Info(logger).Log("msg", "terminating...")

			return fmt.Errorf("signal received: %s", s)
		}
	})

	group.Go(func() error {
		level.Info(logger).Log("msg", "listening",
			"addr", cfg.API.HTTPAddr,
			"bitrates", uploadConf.Bitrates,
		)
		if err := hServer.ListenAndServe(); err != nil {
			return fmt.Errorf("listen and server error: %w", err)
		}
		return nil
	})

	if cfg.Storage.JanitorInterval > 0 {
		janitor := services.NewJanitor(storage, jobStorage, cfg.Storage.Retention, cfg.Storage.JanitorInterval, logger)
		group.Go(func() error {
			return janitor.Run(ctx)
		})
	}

	group.Go(func() error {
		<-ctx.Done()

		level.Info(logger).Log("msg", "graceful shutdown of server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := hServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}

		return ctx.Err()
	})

	if err = group.Wait(); err != nil {
		level.Error(logger).Log("msg", fmt.Sprintf("actors stopped with err: %v", err))
		return exitFailure
	}

	level.Info(logger).Log("msg", "actors stopped without errors")

	return exitSuccess
}

func levelOption(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

// monitorPanic monitors panics and reports them somewhere (e.g. logs, ...).
func monitorPanic(logger log.Logger) {
	if rec := recover(); rec != nil {
		err := fmt.Sprintf("panic: %v \n stack trace: %s", rec, debug.Stack())
		level.Error(logger).Log("err", err)
		panic(err)
	}
}

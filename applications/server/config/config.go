package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/donmikel/mediashrink/applications/server/domain"
)

const (
	DefaultHTTPAddr        = "0.0.0.0:3000"
	DefaultMaxBodyBytes    = 512 * 1024 * 1024 // 512 MiB
	DefaultIndexPage       = "static/index.html"
	DefaultUploadsDir      = "uploads"
	DefaultOutputPrefix    = "1M."
	DefaultRetention       = 15 * time.Minute
	DefaultJanitorInterval = 5 * time.Minute
	DefaultBinary          = "ffmpeg"
	DefaultAudioBitrate    = "44K"
	DefaultTimeout         = 10 * time.Minute
)

// PortEnv overrides the listen port, the service binds all interfaces on it.
const PortEnv = "PORT"

var bitrateRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[KkMmGg]?$`)

type Server struct {
	API        Api        `yaml:"api"`
	Storage    Storage    `yaml:"storage"`
	Transcoder Transcoder `yaml:"transcoder"`
}

type Api struct {
	HTTPAddr     string `yaml:"http_addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
	IndexPage    string `yaml:"index_page"`
}

type Storage struct {
	UploadsDir   string `yaml:"uploads_dir"`
	OutputPrefix string `yaml:"output_prefix"`
	// Retention is the age after which orphaned files are removed.
	Retention time.Duration `yaml:"retention"`
	// JanitorInterval of zero disables the janitor.
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

type Transcoder struct {
	Binary       string `yaml:"binary"`
	AudioBitrate string `yaml:"audio_bitrate"`
	// Timeout of zero lets the tool run unbounded.
	Timeout  time.Duration `yaml:"timeout"`
	Bitrates []string      `yaml:"bitrates"`
}

func Default() Server {
	return Server{
		API: Api{
			HTTPAddr:     DefaultHTTPAddr,
			MaxBodyBytes: DefaultMaxBodyBytes,
			IndexPage:    DefaultIndexPage,
		},
		Storage: Storage{
			UploadsDir:      DefaultUploadsDir,
			OutputPrefix:    DefaultOutputPrefix,
			Retention:       DefaultRetention,
			JanitorInterval: DefaultJanitorInterval,
		},
		Transcoder: Transcoder{
			Binary:       DefaultBinary,
			AudioBitrate: DefaultAudioBitrate,
			Timeout:      DefaultTimeout,
			Bitrates:     append([]string(nil), domain.DefaultBitrates...),
		},
	}
}

// Parse reads the yaml file at path on top of the defaults. An empty path
// yields the defaults.
func Parse(path string) (Server, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Server{}, fmt.Errorf("can't read config file: %w", err)
	}

	if err = yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Server{}, fmt.Errorf("can't unmarshal config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from the process environment.
func (s *Server) ApplyEnv(lookup func(string) (string, bool)) {
	if port, ok := lookup(PortEnv); ok && port != "" {
		s.API.HTTPAddr = net.JoinHostPort("0.0.0.0", port)
	}
}

func (s Server) Validate() error {
	var errs []error

	if _, port, err := net.SplitHostPort(s.API.HTTPAddr); err != nil || port == "" {
		errs = append(errs, fmt.Errorf("api.http_addr %q is not host:port", s.API.HTTPAddr))
	}
	if s.API.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("api.max_body_bytes must be positive"))
	}
	if s.API.IndexPage == "" {
		errs = append(errs, errors.New("api.index_page is required"))
	}
	if s.Storage.UploadsDir == "" {
		errs = append(errs, errors.New("storage.uploads_dir is required"))
	}
	if s.Storage.OutputPrefix == "" || strings.ContainsAny(s.Storage.OutputPrefix, `/\`) {
		errs = append(errs, fmt.Errorf("storage.output_prefix %q must be a non-empty file name prefix", s.Storage.OutputPrefix))
	}
	if s.Storage.JanitorInterval < 0 || s.Storage.Retention < 0 {
		errs = append(errs, errors.New("storage durations must not be negative"))
	}
	if s.Storage.JanitorInterval > 0 && s.Storage.Retention <= s.Transcoder.Timeout {
		errs = append(errs, errors.New("storage.retention must exceed transcoder.timeout"))
	}
	if s.Transcoder.Binary == "" {
		errs = append(errs, errors.New("transcoder.binary is required"))
	}
	if !bitrateRe.MatchString(s.Transcoder.AudioBitrate) {
		errs = append(errs, fmt.Errorf("transcoder.audio_bitrate %q is invalid", s.Transcoder.AudioBitrate))
	}
	if s.Transcoder.Timeout < 0 {
		errs = append(errs, errors.New("transcoder.timeout must not be negative"))
	}
	if len(s.Transcoder.Bitrates) == 0 {
		errs = append(errs, errors.New("transcoder.bitrates must not be empty"))
	}
	for _, b := range s.Transcoder.Bitrates {
		if !bitrateRe.MatchString(b) {
			errs = append(errs, fmt.Errorf("transcoder.bitrates: %q is invalid", b))
		}
	}

	return errors.Join(errs...)
}

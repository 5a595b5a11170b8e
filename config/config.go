package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/xeptore/zvukgrab/redact"
	"github.com/xeptore/zvukgrab/unit"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	DefaultResizeCommand = "magick {source} -define jpeg:extent=1MB {target}"

	// Cover-resize failure policies. The choice is deliberate configuration,
	// never inferred: "abort" fails the track, "embed-original" keeps the
	// unresized bytes.
	ResizeFailureAbort         = "abort"
	ResizeFailureEmbedOriginal = "embed-original"
)

type Config struct {
	Log      Log      `yaml:"log"`
	Output   Output   `yaml:"output"`
	Download Download `yaml:"download"`
	Cover    Cover    `yaml:"cover"`
	Network  Network  `yaml:"network"`
}

func (c *Config) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Dict("log", c.Log.ToDict()).
		Dict("output", c.Output.ToDict()).
		Dict("download", c.Download.ToDict()).
		Dict("cover", c.Cover.ToDict()).
		Dict("network", c.Network.ToDict())
}

func (c *Config) setDefaults() {
	c.Log.setDefaults()
	c.Output.setDefaults()
	c.Download.setDefaults()
	c.Cover.setDefaults()
	c.Network.setDefaults()
}

func (c *Config) validate() error {
	if err := c.Log.validate(); nil != err {
		return fmt.Errorf("log config validation failed: %v", err)
	}

	if err := c.Output.validate(); nil != err {
		return fmt.Errorf("output config validation failed: %v", err)
	}

	if err := c.Download.validate(); nil != err {
		return fmt.Errorf("download config validation failed: %v", err)
	}

	if err := c.Cover.validate(); nil != err {
		return fmt.Errorf("cover config validation failed: %v", err)
	}

	if err := c.Network.validate(); nil != err {
		return fmt.Errorf("network config validation failed: %v", err)
	}

	return nil
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Log) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("level", c.Level).
		Str("format", c.Format)
}

func (c *Log) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Format == "" {
		c.Format = "auto"
	}
}

func (c *Log) validate() error {
	if !slices.Contains([]string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}, c.Level) {
		return fmt.Errorf(
			"level must be one of: trace, debug, info, warn, error, fatal, panic, got: %s",
			c.Level,
		)
	}

	if !slices.Contains([]string{"json", "pretty", "auto"}, c.Format) {
		return fmt.Errorf("format must be 'json', 'pretty' or 'auto', got: %s", c.Format)
	}

	return nil
}

type Output struct {
	Dir string `yaml:"dir"`
}

func (c *Output) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("dir", c.Dir)
}

func (c *Output) setDefaults() {
	if c.Dir == "" {
		c.Dir = "."
	}
}

func (c *Output) validate() error {
	if i, err := os.Stat(c.Dir); nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("output dir %q does not exist", c.Dir)
		}

		return fmt.Errorf("failed to stat output dir: %v", err)
	} else if !i.IsDir() {
		return fmt.Errorf("output dir %q must be a directory", c.Dir)
	}

	return nil
}

type Download struct {
	Quality              string           `yaml:"quality"`
	Concurrency          int              `yaml:"concurrency"`
	MaxAttempts          int              `yaml:"max_attempts"`
	StreamLinkIntervalMS int              `yaml:"stream_link_interval_ms"`
	Lyrics               *bool            `yaml:"lyrics"`
	Timeouts             DownloadTimeouts `yaml:"timeouts"`
}

func (c *Download) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("quality", c.Quality).
		Int("concurrency", c.Concurrency).
		Int("max_attempts", c.MaxAttempts).
		Int("stream_link_interval_ms", c.StreamLinkIntervalMS).
		Bool("lyrics", lo.FromPtr(c.Lyrics)).
		Dict("timeouts", c.Timeouts.ToDict())
}

func (c *Download) setDefaults() {
	if c.Quality == "" {
		c.Quality = "flac"
	}

	if c.Concurrency == 0 {
		c.Concurrency = 4
	}

	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}

	if c.StreamLinkIntervalMS == 0 {
		c.StreamLinkIntervalMS = 1000
	}

	if nil == c.Lyrics {
		c.Lyrics = lo.ToPtr(true)
	}

	c.Timeouts.setDefaults()
}

func (c *Download) validate() error {
	if !slices.Contains([]string{"flac", "high", "mid"}, c.Quality) {
		return fmt.Errorf("quality must be one of: flac, high, mid, got: %s", c.Quality)
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got: %d", c.Concurrency)
	}

	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got: %d", c.MaxAttempts)
	}

	if c.StreamLinkIntervalMS < 0 {
		return fmt.Errorf("stream_link_interval_ms must not be negative, got: %d", c.StreamLinkIntervalMS)
	}

	return nil
}

type DownloadTimeouts struct {
	Metadata   int `yaml:"metadata"`
	StreamLink int `yaml:"stream_link"`
	Download   int `yaml:"download"`
	Cover      int `yaml:"cover"`
	Lyrics     int `yaml:"lyrics"`
}

func (c *DownloadTimeouts) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Int("metadata", c.Metadata).
		Int("stream_link", c.StreamLink).
		Int("download", c.Download).
		Int("cover", c.Cover).
		Int("lyrics", c.Lyrics)
}

func (c *DownloadTimeouts) setDefaults() {
	if c.Metadata == 0 {
		c.Metadata = 15
	}

	if c.StreamLink == 0 {
		c.StreamLink = 10
	}

	if c.Download == 0 {
		c.Download = 120
	}

	if c.Cover == 0 {
		c.Cover = 30
	}

	if c.Lyrics == 0 {
		c.Lyrics = 10
	}
}

type Cover struct {
	Embed           bool   `yaml:"embed"`
	Resize          *bool  `yaml:"resize"`
	ResizeLimit     int64  `yaml:"resize_limit_bytes"`
	ResizeCommand   string `yaml:"resize_command"`
	OnResizeFailure string `yaml:"on_resize_failure"`
}

func (c *Cover) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Bool("embed", c.Embed).
		Bool("resize", lo.FromPtr(c.Resize)).
		Int64("resize_limit_bytes", c.ResizeLimit).
		Str("resize_command", c.ResizeCommand).
		Str("on_resize_failure", c.OnResizeFailure)
}

func (c *Cover) setDefaults() {
	if nil == c.Resize {
		c.Resize = lo.ToPtr(true)
	}

	if c.ResizeLimit == 0 {
		c.ResizeLimit = 2 * unit.Megabyte
	}

	if c.ResizeCommand == "" {
		c.ResizeCommand = DefaultResizeCommand
	}

	if c.OnResizeFailure == "" {
		c.OnResizeFailure = ResizeFailureEmbedOriginal
	}
}

func (c *Cover) validate() error {
	if c.ResizeLimit < 0 {
		return fmt.Errorf("resize_limit_bytes must not be negative, got: %d", c.ResizeLimit)
	}

	if !strings.Contains(c.ResizeCommand, "{source}") || !strings.Contains(c.ResizeCommand, "{target}") {
		return errors.New("resize_command is required to have {source} and {target} placeholders")
	}

	if !slices.Contains([]string{ResizeFailureAbort, ResizeFailureEmbedOriginal}, c.OnResizeFailure) {
		return fmt.Errorf(
			"on_resize_failure must be %q or %q, got: %s",
			ResizeFailureAbort, ResizeFailureEmbedOriginal, c.OnResizeFailure,
		)
	}

	return nil
}

type Network struct {
	Host      string `yaml:"host"`
	UserAgent string `yaml:"user_agent"`
	Token     string `yaml:"-"`
}

func (c *Network) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("host", c.Host).
		Str("user_agent", c.UserAgent).
		Str("token", redact.String(c.Token))
}

func (c *Network) setDefaults() {
	if c.Host == "" {
		c.Host = "https://zvuk.com"
	}

	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

func (c *Network) validate() error {
	if !strings.HasPrefix(c.Host, "http://") && !strings.HasPrefix(c.Host, "https://") {
		return fmt.Errorf("host must be an http(s) URL, got: %s", c.Host)
	}

	if c.Token == "" {
		return errors.New("make sure the ZVUK_TOKEN environment variable is set")
	}

	return nil
}

// FromFile loads the config file at path, or defaults when path is empty.
// The credential token is only ever read from the ZVUK_TOKEN environment
// variable so it never lands in a file on disk.
func FromFile(path string) (*Config, error) {
	var conf Config
	if path != "" {
		content, err := os.ReadFile(path)
		if nil != err {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %q does not exist", path)
			}

			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := yaml.Unmarshal(content, &conf); nil != err {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	conf.Network.Token = os.Getenv("ZVUK_TOKEN")
	conf.setDefaults()

	if err := conf.validate(); nil != err {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &conf, nil
}

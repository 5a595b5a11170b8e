package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xeptore/zvukgrab/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); nil != err {
		t.Fatalf("failed to write config file: %v", err)
	}

	return path
}

func TestFromFileDefaults(t *testing.T) {
	t.Setenv("ZVUK_TOKEN", "secret-token")

	outDir := t.TempDir()
	path := writeConfigFile(t, "output:\n  dir: "+outDir+"\n")

	conf, err := config.FromFile(path)
	assert.NoError(t, err)

	assert.Equal(t, "info", conf.Log.Level)
	assert.Equal(t, "auto", conf.Log.Format)
	assert.Equal(t, outDir, conf.Output.Dir)
	assert.Equal(t, "flac", conf.Download.Quality)
	assert.Equal(t, 4, conf.Download.Concurrency)
	assert.Equal(t, 5, conf.Download.MaxAttempts)
	assert.Equal(t, 1000, conf.Download.StreamLinkIntervalMS)
	assert.True(t, *conf.Download.Lyrics)
	assert.Equal(t, 15, conf.Download.Timeouts.Metadata)
	assert.Equal(t, 10, conf.Download.Timeouts.StreamLink)
	assert.Equal(t, 120, conf.Download.Timeouts.Download)
	assert.Equal(t, 30, conf.Download.Timeouts.Cover)
	assert.Equal(t, 10, conf.Download.Timeouts.Lyrics)
	assert.False(t, conf.Cover.Embed)
	assert.True(t, *conf.Cover.Resize)
	assert.Equal(t, int64(2_000_000), conf.Cover.ResizeLimit)
	assert.Equal(t, config.DefaultResizeCommand, conf.Cover.ResizeCommand)
	assert.Equal(t, config.ResizeFailureEmbedOriginal, conf.Cover.OnResizeFailure)
	assert.Equal(t, "https://zvuk.com", conf.Network.Host)
	assert.Equal(t, config.DefaultUserAgent, conf.Network.UserAgent)
	assert.Equal(t, "secret-token", conf.Network.Token)
}

func TestFromFileOverrides(t *testing.T) {
	t.Setenv("ZVUK_TOKEN", "secret-token")

	outDir := t.TempDir()
	path := writeConfigFile(t, `
log:
  level: debug
  format: json
output:
  dir: `+outDir+`
download:
  quality: mid
  concurrency: 2
  max_attempts: 3
  stream_link_interval_ms: 250
  lyrics: false
  timeouts:
    download: 60
cover:
  embed: true
  resize: false
  resize_limit_bytes: 500000
  on_resize_failure: abort
network:
  host: http://localhost:8080
  user_agent: test-agent
`)

	conf, err := config.FromFile(path)
	assert.NoError(t, err)

	assert.Equal(t, "debug", conf.Log.Level)
	assert.Equal(t, "json", conf.Log.Format)
	assert.Equal(t, "mid", conf.Download.Quality)
	assert.Equal(t, 2, conf.Download.Concurrency)
	assert.Equal(t, 3, conf.Download.MaxAttempts)
	assert.Equal(t, 250, conf.Download.StreamLinkIntervalMS)
	assert.False(t, *conf.Download.Lyrics)
	assert.Equal(t, 60, conf.Download.Timeouts.Download)
	// Untouched timeouts keep their defaults.
	assert.Equal(t, 15, conf.Download.Timeouts.Metadata)
	assert.True(t, conf.Cover.Embed)
	assert.False(t, *conf.Cover.Resize)
	assert.Equal(t, int64(500_000), conf.Cover.ResizeLimit)
	assert.Equal(t, config.ResizeFailureAbort, conf.Cover.OnResizeFailure)
	assert.Equal(t, "http://localhost:8080", conf.Network.Host)
	assert.Equal(t, "test-agent", conf.Network.UserAgent)
}

func TestFromFileRejects(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		token string
	}{
		{
			name:  "missing token",
			yaml:  "",
			token: "",
		},
		{
			name:  "unknown quality",
			yaml:  "download:\n  quality: lossless\n",
			token: "tok",
		},
		{
			name:  "negative stream link interval",
			yaml:  "download:\n  stream_link_interval_ms: -1\n",
			token: "tok",
		},
		{
			name:  "unknown log level",
			yaml:  "log:\n  level: verbose\n",
			token: "tok",
		},
		{
			name:  "resize command without placeholders",
			yaml:  "cover:\n  resize_command: convert in.jpg out.jpg\n",
			token: "tok",
		},
		{
			name:  "unknown resize failure policy",
			yaml:  "cover:\n  on_resize_failure: retry\n",
			token: "tok",
		},
		{
			name:  "non-http host",
			yaml:  "network:\n  host: zvuk.com\n",
			token: "tok",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv("ZVUK_TOKEN", test.token)

			outDir := t.TempDir()
			path := writeConfigFile(t, "output:\n  dir: "+outDir+"\n"+test.yaml)

			_, err := config.FromFile(path)
			assert.Error(t, err)
		})
	}
}

func TestFromFileMissingFile(t *testing.T) {
	t.Setenv("ZVUK_TOKEN", "tok")

	_, err := config.FromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFromFileNonexistentOutputDir(t *testing.T) {
	t.Setenv("ZVUK_TOKEN", "tok")

	path := writeConfigFile(t, "output:\n  dir: "+filepath.Join(t.TempDir(), "missing")+"\n")

	_, err := config.FromFile(path)
	assert.Error(t, err)
}

package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Staging is a run-scoped scratch directory under the output root. Keeping it
// on the same filesystem as the destinations makes finalization a plain
// rename. Each track gets its own unique subdirectory, so workers never
// contend on the same file.
type Staging struct {
	Path string
}

func NewStaging(outputRoot string) (Staging, error) {
	path, err := os.MkdirTemp(outputRoot, ".zvukgrab-staging-*")
	if nil != err {
		return Staging{}, fmt.Errorf("failed to create staging directory: %v", err)
	}

	return Staging{Path: path}, nil
}

// Track allocates a per-track staging slot.
func (s Staging) Track(trackID string) (TrackStaging, error) {
	path, err := os.MkdirTemp(s.Path, trackID+"-*")
	if nil != err {
		return TrackStaging{}, fmt.Errorf("failed to create track staging directory: %v", err)
	}

	return TrackStaging{Path: path}, nil
}

// Remove deletes the staging tree. Files deliberately left behind (e.g. a
// downloaded but mistagged artifact) go with it; nothing is ever promoted
// from here implicitly.
func (s Staging) Remove() error {
	if err := os.RemoveAll(s.Path); nil != err {
		return fmt.Errorf("failed to remove staging directory: %v", err)
	}

	return nil
}

type TrackStaging struct {
	Path string
}

// AudioFile is the staging location of the downloaded stream bytes.
func (t TrackStaging) AudioFile(ext string) string {
	return filepath.Join(t.Path, "audio."+ext)
}

// CoverFile is the staging location for cover art handed to the external
// resize command.
func (t TrackStaging) CoverFile() string {
	return filepath.Join(t.Path, "cover.jpg")
}

// ResizedCoverFile is the resize command's target path.
func (t TrackStaging) ResizedCoverFile() string {
	return filepath.Join(t.Path, "cover-resized.jpg")
}

func (t TrackStaging) Remove() error {
	if err := os.RemoveAll(t.Path); nil != err {
		return fmt.Errorf("failed to remove track staging directory: %v", err)
	}

	return nil
}

// Promote atomically moves a fully downloaded and tagged artifact to its
// final destination. The destination directory is created idempotently;
// concurrent creation by sibling workers is not an error. This rename is the
// only point at which the file becomes visible under its real name.
func Promote(stagingPath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); nil != err {
		return fmt.Errorf("failed to create destination directory: %v", err)
	}

	if err := os.Rename(stagingPath, destPath); nil != err {
		return fmt.Errorf("failed to move artifact to destination: %v", err)
	}

	return nil
}

// Exists reports whether a destination file is already present under its
// final name.
func Exists(path string) (bool, error) {
	if _, err := os.Stat(path); nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat %s: %v", path, err)
	}

	return true, nil
}

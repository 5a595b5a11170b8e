package fs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xeptore/zvukgrab/zvuk/fs"
)

func TestStagingLifecycle(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	staging, err := fs.NewStaging(root)
	assert.NoError(t, err)

	// The staging directory lives under the output root, hidden by name.
	assert.Equal(t, root, filepath.Dir(staging.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(staging.Path), "."))

	slotA, err := staging.Track("11")
	assert.NoError(t, err)
	slotB, err := staging.Track("11")
	assert.NoError(t, err)
	assert.NotEqual(t, slotA.Path, slotB.Path)

	assert.NoError(t, slotA.Remove())
	_, err = os.Stat(slotA.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.NoError(t, staging.Remove())
	_, err = os.Stat(staging.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPromote(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	staging, err := fs.NewStaging(root)
	assert.NoError(t, err)

	slot, err := staging.Track("11")
	assert.NoError(t, err)

	src := slot.AudioFile("flac")
	assert.NoError(t, os.WriteFile(src, []byte("audio"), 0o600))

	dest := filepath.Join(root, "Artist - Album (2021)", "01 - Song.flac")
	assert.NoError(t, fs.Promote(src, dest))

	got, err := os.ReadFile(dest)
	assert.NoError(t, err)
	assert.Equal(t, []byte("audio"), got)

	// The staging copy is gone; promote moves, never copies.
	_, err = os.Stat(src)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Promoting a sibling into the now-existing directory works.
	src2 := slot.AudioFile("mp3")
	assert.NoError(t, os.WriteFile(src2, []byte("more audio"), 0o600))
	assert.NoError(t, fs.Promote(src2, filepath.Join(root, "Artist - Album (2021)", "02 - Next.mp3")))
}

func TestExists(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	path := filepath.Join(root, "file.flac")

	exists, err := fs.Exists(path)
	assert.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	exists, err = fs.Exists(path)
	assert.NoError(t, err)
	assert.True(t, exists)
}

package downloader

import (
	"errors"
	"fmt"

	"github.com/xeptore/zvukgrab/zvuk/types"
)

var ErrUnsupportedContainer = errors.New("no tag writer registered for container format")

// tagAttrs carries everything a format-specific writer embeds into the
// artifact: catalog metadata, optional lyrics, optional cover art.
type tagAttrs struct {
	Meta   types.TrackMeta
	Lyrics *types.Lyrics
	Cover  *types.CoverImage
}

// embedTags dispatches on the artifact's container format. Writers only add
// or replace metadata blocks; audio frame data is never re-encoded.
func embedTags(path string, container types.Container, attrs tagAttrs) error {
	switch container {
	case types.ContainerFLAC:
		if err := embedFLACTags(path, attrs); nil != err {
			return fmt.Errorf("failed to write flac tags: %w", err)
		}

		return nil
	case types.ContainerMP3:
		if err := embedMP3Tags(path, attrs); nil != err {
			return fmt.Errorf("failed to write mp3 tags: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedContainer, container)
	}
}

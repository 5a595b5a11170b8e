package downloader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xeptore/zvukgrab/zvuk/types"
)

// reservedPathChars are replaced in every path segment regardless of the host
// platform, so a library synced to a Windows share stays intact.
const reservedPathChars = `<>:"/\|?*`

// SanitizeSegment makes a single path segment safe on every supported
// platform: reserved and control characters become underscores and
// surrounding whitespace is trimmed. Idempotent.
func SanitizeSegment(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(reservedPathChars, r) {
			return '_'
		}

		return r
	}, s)

	return strings.TrimSpace(mapped)
}

// TrackDirName derives the destination directory segment:
// "Artist - Album (Year)", with the year part omitted when the catalog
// carries no release date.
func TrackDirName(meta types.TrackMeta) string {
	if meta.Year > 0 {
		return SanitizeSegment(fmt.Sprintf("%s - %s (%d)", meta.Artist, meta.Album, meta.Year))
	}

	return SanitizeSegment(fmt.Sprintf("%s - %s", meta.Artist, meta.Album))
}

// TrackFileName derives the destination file segment "NN - Title.ext". The
// track number is zero-padded to at least two digits and follows the
// server-declared position; the extension follows the negotiated quality's
// container, never the requested one.
func TrackFileName(meta types.TrackMeta, quality types.Quality) string {
	return SanitizeSegment(fmt.Sprintf("%02d - %s.%s", meta.Position, meta.Title, quality.Ext()))
}

// BuildTrackPath derives the full destination path under outputRoot. Pure.
func BuildTrackPath(outputRoot string, meta types.TrackMeta, quality types.Quality) string {
	return filepath.Join(outputRoot, TrackDirName(meta), TrackFileName(meta, quality))
}

package downloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/stretchr/testify/assert"

	"github.com/xeptore/zvukgrab/zvuk/types"
)

//nolint:exhaustruct
var testTrackMeta = types.TrackMeta{
	ID:          "11",
	Title:       "Song",
	Artist:      "Artist",
	Album:       "Album",
	ReleaseID:   "301",
	Genre:       "Rock",
	Position:    2,
	TotalTracks: 10,
	Year:        2021,
	Label:       "Label",
}

// minimalFLAC is a structurally valid container: the stream marker, a
// last-block STREAMINFO of 34 zero bytes, and a lone frame sync code standing
// in for the audio stream.
func minimalFLAC() []byte {
	b := []byte("fLaC")
	b = append(b, 0x80, 0x00, 0x00, 0x22)
	b = append(b, make([]byte, 34)...)
	b = append(b, 0xff, 0xf8)

	return b
}

func vorbisCommentOf(t *testing.T, path string) *flacvorbis.MetaDataBlockVorbisComment {
	t.Helper()

	f, err := flac.ParseFile(path)
	if nil != err {
		t.Fatalf("failed to reparse flac file: %v", err)
	}

	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if nil != err {
				t.Fatalf("failed to parse vorbis comment block: %v", err)
			}

			return cmt
		}
	}

	t.Fatal("no vorbis comment block found")

	return nil
}

func vorbisValue(t *testing.T, cmt *flacvorbis.MetaDataBlockVorbisComment, key string) string {
	t.Helper()

	vals, err := cmt.Get(key)
	if nil != err {
		t.Fatalf("failed to get vorbis comment %s: %v", key, err)
	}
	if len(vals) != 1 {
		t.Fatalf("expected exactly one %s value, got %d", key, len(vals))
	}

	return vals[0]
}

func TestEmbedFLACTags(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audio.flac")
	if err := os.WriteFile(path, minimalFLAC(), 0o600); nil != err {
		t.Fatalf("failed to write flac fixture: %v", err)
	}

	attrs := tagAttrs{
		Meta:   testTrackMeta,
		Lyrics: &types.Lyrics{Kind: types.LyricsKindLyrics, Text: "la la la"},
		Cover:  &types.CoverImage{Bytes: pngPixel, ContentType: "image/png"},
	}
	assert.NoError(t, embedTags(path, types.ContainerFLAC, attrs))

	cmt := vorbisCommentOf(t, path)
	assert.Equal(t, "Song", vorbisValue(t, cmt, flacvorbis.FIELD_TITLE))
	assert.Equal(t, "Artist", vorbisValue(t, cmt, flacvorbis.FIELD_ARTIST))
	assert.Equal(t, "Album", vorbisValue(t, cmt, flacvorbis.FIELD_ALBUM))
	assert.Equal(t, "Rock", vorbisValue(t, cmt, flacvorbis.FIELD_GENRE))
	assert.Equal(t, "2", vorbisValue(t, cmt, flacvorbis.FIELD_TRACKNUMBER))
	assert.Equal(t, "10", vorbisValue(t, cmt, "TRACKTOTAL"))
	assert.Equal(t, "Label", vorbisValue(t, cmt, flacvorbis.FIELD_COPYRIGHT))
	assert.Equal(t, "2021", vorbisValue(t, cmt, flacvorbis.FIELD_DATE))
	assert.Equal(t, "301", vorbisValue(t, cmt, "RELEASE_ID"))
	assert.Equal(t, "11", vorbisValue(t, cmt, "TRACK_ID"))
	assert.Equal(t, "la la la", vorbisValue(t, cmt, "LYRICS"))

	f, err := flac.ParseFile(path)
	assert.NoError(t, err)

	var pic *flacpicture.MetadataBlockPicture
	for _, block := range f.Meta {
		if block.Type == flac.Picture {
			pic, err = flacpicture.ParseFromMetaDataBlock(*block)
			assert.NoError(t, err)
		}
	}
	assert.NotNil(t, pic)
	assert.Equal(t, pngPixel, pic.ImageData)
	assert.Equal(t, "image/png", pic.MIME)
}

func TestEmbedFLACTagsReplacesExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audio.flac")
	if err := os.WriteFile(path, minimalFLAC(), 0o600); nil != err {
		t.Fatalf("failed to write flac fixture: %v", err)
	}

	first := testTrackMeta
	first.Title = "Old Title"
	assert.NoError(t, embedTags(path, types.ContainerFLAC, tagAttrs{Meta: first})) //nolint:exhaustruct

	assert.NoError(t, embedTags(path, types.ContainerFLAC, tagAttrs{Meta: testTrackMeta})) //nolint:exhaustruct

	cmt := vorbisCommentOf(t, path)
	// A single value proves the old comment block was dropped, not appended to.
	assert.Equal(t, "Song", vorbisValue(t, cmt, flacvorbis.FIELD_TITLE))
}

func TestEmbedFLACTagsSkipsEmptyFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audio.flac")
	if err := os.WriteFile(path, minimalFLAC(), 0o600); nil != err {
		t.Fatalf("failed to write flac fixture: %v", err)
	}

	meta := testTrackMeta
	meta.Genre = ""
	meta.Label = ""
	meta.Year = 0
	assert.NoError(t, embedTags(path, types.ContainerFLAC, tagAttrs{Meta: meta})) //nolint:exhaustruct

	cmt := vorbisCommentOf(t, path)

	for _, key := range []string{flacvorbis.FIELD_GENRE, flacvorbis.FIELD_COPYRIGHT, flacvorbis.FIELD_DATE} {
		vals, err := cmt.Get(key)
		assert.NoError(t, err)
		assert.Empty(t, vals)
	}
}

func TestEmbedFLACTagsMalformedContainer(t *testing.T) {
	t.Parallel()

	// A container that ends right after STREAMINFO, with no audio frames: a
	// truncated download must surface as an error, not kill the process.
	truncated := []byte("fLaC")
	truncated = append(truncated, 0x80, 0x00, 0x00, 0x22)
	truncated = append(truncated, make([]byte, 34)...)

	path := filepath.Join(t.TempDir(), "audio.flac")
	if err := os.WriteFile(path, truncated, 0o600); nil != err {
		t.Fatalf("failed to write flac fixture: %v", err)
	}

	err := embedTags(path, types.ContainerFLAC, tagAttrs{Meta: testTrackMeta}) //nolint:exhaustruct
	assert.ErrorContains(t, err, "malformed flac container")
}

func TestEmbedMP3Tags(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("mpeg frames placeholder"), 0o600); nil != err {
		t.Fatalf("failed to write mp3 fixture: %v", err)
	}

	attrs := tagAttrs{
		Meta:   testTrackMeta,
		Lyrics: &types.Lyrics{Kind: types.LyricsKindSubtitle, Text: "timed words"},
		Cover:  &types.CoverImage{Bytes: pngPixel, ContentType: "image/png"},
	}
	assert.NoError(t, embedTags(path, types.ContainerMP3, attrs))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true}) //nolint:exhaustruct
	if nil != err {
		t.Fatalf("failed to reopen tagged mp3: %v", err)
	}
	defer func() {
		assert.NoError(t, tag.Close())
	}()

	assert.Equal(t, "Song", tag.Title())
	assert.Equal(t, "Artist", tag.Artist())
	assert.Equal(t, "Album", tag.Album())
	assert.Equal(t, "Rock", tag.Genre())
	assert.Equal(t, "2021", tag.Year())
	assert.Equal(t, "2/10", tag.GetTextFrame(tag.CommonID("Track number/Position in set")).Text)
	assert.Equal(t, "Label", tag.GetTextFrame("TCOP").Text)

	lyricsFrames := tag.GetFrames(tag.CommonID("Unsynchronised lyrics/text transcription"))
	assert.Len(t, lyricsFrames, 1)
	uslt, ok := lyricsFrames[0].(id3v2.UnsynchronisedLyricsFrame)
	assert.True(t, ok)
	assert.Equal(t, "timed words", uslt.Lyrics)

	picFrames := tag.GetFrames(tag.CommonID("Attached picture"))
	assert.Len(t, picFrames, 1)
	pic, ok := picFrames[0].(id3v2.PictureFrame)
	assert.True(t, ok)
	assert.Equal(t, pngPixel, pic.Picture)
	assert.Equal(t, "image/png", pic.MimeType)

	// Audio bytes after the tag header are untouched.
	raw, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(raw), "mpeg frames placeholder")
}

func TestEmbedMP3TagsWithoutOptionalAttrs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("mpeg frames placeholder"), 0o600); nil != err {
		t.Fatalf("failed to write mp3 fixture: %v", err)
	}

	meta := testTrackMeta
	meta.Label = ""
	assert.NoError(t, embedTags(path, types.ContainerMP3, tagAttrs{Meta: meta})) //nolint:exhaustruct

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true}) //nolint:exhaustruct
	if nil != err {
		t.Fatalf("failed to reopen tagged mp3: %v", err)
	}
	defer func() {
		assert.NoError(t, tag.Close())
	}()

	assert.Equal(t, "Song", tag.Title())
	assert.Empty(t, tag.GetFrames(tag.CommonID("Unsynchronised lyrics/text transcription")))
	assert.Empty(t, tag.GetFrames(tag.CommonID("Attached picture")))
	assert.Empty(t, tag.GetTextFrame("TCOP").Text)
}

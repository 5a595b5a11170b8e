package downloader

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bogem/id3v2"
)

// embedMP3Tags writes ID3v2 frames to the artifact. Only the tag header is
// rewritten; MPEG audio frames stay byte-identical.
func embedMP3Tags(path string, attrs tagAttrs) (err error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true}) //nolint:exhaustruct
	if nil != err {
		return fmt.Errorf("failed to open artifact for tagging: %v", err)
	}
	defer func() {
		if closeErr := tag.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close tag file: %v", closeErr))
		}
	}()

	meta := attrs.Meta

	tag.SetTitle(meta.Title)
	tag.SetArtist(meta.Artist)
	tag.SetAlbum(meta.Album)
	tag.SetGenre(meta.Genre)

	trackNumber := strconv.Itoa(meta.Position)
	if meta.TotalTracks > 0 {
		trackNumber += "/" + strconv.Itoa(meta.TotalTracks)
	}
	tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), trackNumber)

	if meta.DiscNumber > 0 {
		tag.AddTextFrame(tag.CommonID("Part of a set"), tag.DefaultEncoding(), strconv.Itoa(meta.DiscNumber))
	}

	if meta.Year > 0 {
		tag.SetYear(strconv.Itoa(meta.Year))
	}

	if meta.Label != "" {
		tag.AddTextFrame("TCOP", tag.DefaultEncoding(), meta.Label)
	}

	if nil != attrs.Lyrics && attrs.Lyrics.Text != "" {
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          "und",
			ContentDescriptor: "",
			Lyrics:            attrs.Lyrics.Text,
		})
	}

	if nil != attrs.Cover {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    attrs.Cover.ContentType,
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     attrs.Cover.Bytes,
		})
	}

	if err := tag.Save(); nil != err {
		return fmt.Errorf("failed to save tag: %v", err)
	}

	return nil
}

package downloader

import (
	"fmt"
	"strconv"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

type vorbisField struct {
	key string
	val string
}

// embedFLACTags replaces the artifact's vorbis-comment and picture metadata
// blocks. Pre-existing audio frames are carried over untouched.
func embedFLACTags(path string, attrs tagAttrs) (err error) {
	// The parser panics on a container that ends before the first audio frame.
	defer func() {
		if r := recover(); nil != r {
			err = fmt.Errorf("malformed flac container: %v", r)
		}
	}()

	f, err := flac.ParseFile(path)
	if nil != err {
		return fmt.Errorf("failed to parse flac container: %v", err)
	}

	var kept []*flac.MetaDataBlock
	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment && block.Type != flac.Picture {
			kept = append(kept, block)
		}
	}
	f.Meta = kept

	meta := attrs.Meta
	fields := []vorbisField{
		{flacvorbis.FIELD_TITLE, meta.Title},
		{flacvorbis.FIELD_ARTIST, meta.Artist},
		{flacvorbis.FIELD_ALBUM, meta.Album},
		{flacvorbis.FIELD_GENRE, meta.Genre},
		{flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(meta.Position)},
		{"TRACKTOTAL", strconv.Itoa(meta.TotalTracks)},
		{flacvorbis.FIELD_COPYRIGHT, meta.Label},
		{"RELEASE_ID", meta.ReleaseID},
		{"TRACK_ID", meta.ID},
	}

	if meta.Year > 0 {
		fields = append(fields, vorbisField{flacvorbis.FIELD_DATE, strconv.Itoa(meta.Year)})
	}

	if meta.DiscNumber > 0 {
		fields = append(fields, vorbisField{"DISCNUMBER", strconv.Itoa(meta.DiscNumber)})
	}

	if nil != attrs.Lyrics && attrs.Lyrics.Text != "" {
		fields = append(fields, vorbisField{"LYRICS", attrs.Lyrics.Text})
	}

	cmt := flacvorbis.New()
	for _, field := range fields {
		if field.val == "" {
			continue
		}

		if err := cmt.Add(field.key, field.val); nil != err {
			return fmt.Errorf("failed to add vorbis comment %s: %v", field.key, err)
		}
	}

	cmtBlock := cmt.Marshal()
	f.Meta = append(f.Meta, &cmtBlock)

	if nil != attrs.Cover {
		pic, err := flacpicture.NewFromImageData(
			flacpicture.PictureTypeFrontCover,
			"Front cover",
			attrs.Cover.Bytes,
			attrs.Cover.ContentType,
		)
		if nil != err {
			return fmt.Errorf("failed to build flac picture block: %v", err)
		}

		picBlock := pic.Marshal()
		f.Meta = append(f.Meta, &picBlock)
	}

	if err := f.Save(path); nil != err {
		return fmt.Errorf("failed to save flac container: %v", err)
	}

	return nil
}

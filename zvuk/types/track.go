package types

// TrackMeta is the catalog's description of one downloadable unit: a music
// track or an audiobook chapter. It is read-only for the lifetime of
// processing that unit.
type TrackMeta struct {
	ID           string
	Title        string
	Artist       string
	Album        string
	ReleaseID    string
	Genre        string
	Position     int
	TotalTracks  int
	DiscNumber   int
	Year         int
	Label        string
	CoverURL     string
	HasLyrics    bool
	Availability Availability
}

// ReleaseMeta describes a release (album) or an audiobook container. TrackIDs
// preserves the server-declared track order.
type ReleaseMeta struct {
	ID       string
	Title    string
	Artist   string
	Label    string
	Date     string // YYYYMMDD as reported by the catalog; may be empty
	Year     int    // 0 when the catalog carries no date
	TrackIDs []string
}

// StreamInfo locates the negotiated audio stream. ActualQuality may rank
// below the requested tier and drives file extension and tag-writer
// selection.
type StreamInfo struct {
	URL           string
	ActualQuality Quality
}

type LyricsKind int

const (
	LyricsKindLyrics LyricsKind = iota
	LyricsKindSubtitle
)

type Lyrics struct {
	Kind LyricsKind
	Text string
}

// CoverImage holds fetched (and possibly resized) cover art bytes.
type CoverImage struct {
	Bytes       []byte
	ContentType string
}

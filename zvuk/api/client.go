package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/xeptore/zvukgrab/config"
	"github.com/xeptore/zvukgrab/zvuk/types"
)

const (
	releasesEndpoint = "/api/tiny/releases"
	labelsEndpoint   = "/api/tiny/labels"
	tracksEndpoint   = "/api/tiny/tracks"
	streamEndpoint   = "/api/tiny/track/stream"
	lyricsEndpoint   = "/api/tiny/lyrics"
	graphqlEndpoint  = "/api/v1/graphql"

	coverSizeTemplate = "&size={size}&ext=jpg"
)

// Client is the consumed catalog capability: metadata, stream locators, and
// lyrics over the session identity.
type Client struct {
	sess     *Session
	timeouts config.DownloadTimeouts
	// linkLimiter spaces stream-link requests; the catalog throttles link
	// generation.
	linkLimiter *rate.Limiter
}

func NewClient(sess *Session, conf config.Download) *Client {
	interval := time.Duration(conf.StreamLinkIntervalMS) * time.Millisecond

	limiter := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	return &Client{
		sess:        sess,
		timeouts:    conf.Timeouts,
		linkLimiter: limiter,
	}
}

func (c *Client) getJSON(
	ctx context.Context,
	logger zerolog.Logger,
	endpoint string,
	params url.Values,
	timeout time.Duration,
) (b []byte, err error) {
	logger = logger.With().Str("endpoint", endpoint).Logger()

	reqURL := c.sess.Endpoint(endpoint)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.sess.Get(reqCtx, reqURL)
	if nil != err {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: catalog request timed out", ErrTransient)
		}

		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}

		logger.Error().Err(err).Msg("Failed to send catalog request")

		return nil, fmt.Errorf("%w: failed to send catalog request: %v", ErrTransient, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close catalog response body: %v", closeErr))
		}
	}()

	if err := checkStatus(resp.StatusCode); nil != err {
		return nil, err
	}

	respBytes, err := io.ReadAll(resp.Body)
	if nil != err {
		logger.Error().Err(err).Msg("Failed to read catalog response body")
		return nil, fmt.Errorf("%w: failed to read catalog response body: %v", ErrTransient, err)
	}

	return respBytes, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: unexpected status code %d", ErrTransient, code)
	default:
		return fmt.Errorf("catalog rejected the request with status code %d", code)
	}
}

type imageModel struct {
	Src string `json:"src"`
}

type releaseModel struct {
	Title    string  `json:"title"`
	Credits  string  `json:"credits"`
	Date     int64   `json:"date"`
	LabelID  int64   `json:"label_id"`
	TrackIDs []int64 `json:"track_ids"`
}

type trackModel struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Credits      string     `json:"credits"`
	ReleaseID    int64      `json:"release_id"`
	ReleaseTitle string     `json:"release_title"`
	Genres       []string   `json:"genres"`
	Position     int        `json:"position"`
	Image        imageModel `json:"image"`
	Lyrics       *bool      `json:"lyrics"`
	HasFLAC      bool       `json:"has_flac"`
}

// Releases fetches release metadata for ids in one batch request, resolving
// label ids into label names. The returned map preserves each release's
// server-declared track order in TrackIDs.
func (c *Client) Releases(ctx context.Context, logger zerolog.Logger, ids []string) (map[string]types.ReleaseMeta, error) {
	params := make(url.Values, 1)
	params.Add("ids", strings.Join(ids, ","))

	respBytes, err := c.getJSON(ctx, logger, releasesEndpoint, params, c.metadataTimeout())
	if nil != err {
		return nil, fmt.Errorf("failed to get releases metadata: %w", err)
	}

	var respBody struct {
		Result struct {
			Releases map[string]releaseModel `json:"releases"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBytes, &respBody); nil != err {
		logger.Error().Err(err).Msg("Failed to decode releases metadata response")
		return nil, fmt.Errorf("failed to decode releases metadata response: %v", err)
	}

	if len(respBody.Result.Releases) == 0 {
		return nil, fmt.Errorf("%w: no releases for ids %s", ErrNotFound, strings.Join(ids, ","))
	}

	labelIDs := make([]string, 0, len(respBody.Result.Releases))
	for _, release := range respBody.Result.Releases {
		labelIDs = append(labelIDs, strconv.FormatInt(release.LabelID, 10))
	}

	labels, err := c.labels(ctx, logger, labelIDs)
	if nil != err {
		return nil, fmt.Errorf("failed to get labels metadata: %w", err)
	}

	releases := make(map[string]types.ReleaseMeta, len(respBody.Result.Releases))
	for id, release := range respBody.Result.Releases {
		trackIDs := make([]string, len(release.TrackIDs))
		for i, trackID := range release.TrackIDs {
			trackIDs[i] = strconv.FormatInt(trackID, 10)
		}

		date := strconv.FormatInt(release.Date, 10)

		releases[id] = types.ReleaseMeta{
			ID:       id,
			Title:    release.Title,
			Artist:   release.Credits,
			Label:    labels[strconv.FormatInt(release.LabelID, 10)],
			Date:     date,
			Year:     releaseYear(date),
			TrackIDs: trackIDs,
		}
	}

	return releases, nil
}

// releaseYear extracts the 4-digit year from a YYYYMMDD date string, or 0.
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}

	year, err := strconv.Atoi(date[:4])
	if nil != err || year < 1000 {
		return 0
	}

	return year
}

func (c *Client) labels(ctx context.Context, logger zerolog.Logger, ids []string) (map[string]string, error) {
	params := make(url.Values, 1)
	params.Add("ids", strings.Join(ids, ","))

	respBytes, err := c.getJSON(ctx, logger, labelsEndpoint, params, c.metadataTimeout())
	if nil != err {
		return nil, err
	}

	var respBody struct {
		Result struct {
			Labels map[string]struct {
				Title string `json:"title"`
			} `json:"labels"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBytes, &respBody); nil != err {
		logger.Error().Err(err).Msg("Failed to decode labels metadata response")
		return nil, fmt.Errorf("failed to decode labels metadata response: %v", err)
	}

	labels := make(map[string]string, len(respBody.Result.Labels))
	for id, label := range respBody.Result.Labels {
		labels[id] = label.Title
	}

	return labels, nil
}

// Tracks fetches track metadata for ids in one batch request. Release-scoped
// fields (album artist, total tracks, year, label) are filled in by the
// caller from the owning release.
func (c *Client) Tracks(ctx context.Context, logger zerolog.Logger, ids []string) (map[string]types.TrackMeta, error) {
	params := make(url.Values, 1)
	params.Add("ids", strings.Join(ids, ","))

	respBytes, err := c.getJSON(ctx, logger, tracksEndpoint, params, c.metadataTimeout())
	if nil != err {
		return nil, fmt.Errorf("failed to get tracks metadata: %w", err)
	}

	var respBody struct {
		Result struct {
			Tracks map[string]trackModel `json:"tracks"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBytes, &respBody); nil != err {
		logger.Error().Err(err).Msg("Failed to decode tracks metadata response")
		return nil, fmt.Errorf("failed to decode tracks metadata response: %v", err)
	}

	if len(respBody.Result.Tracks) == 0 {
		return nil, fmt.Errorf("%w: no tracks for ids %s", ErrNotFound, strings.Join(ids, ","))
	}

	tracks := make(map[string]types.TrackMeta, len(respBody.Result.Tracks))
	for id, track := range respBody.Result.Tracks {
		hasLyrics := false
		if nil != track.Lyrics {
			hasLyrics = *track.Lyrics
		}

		tracks[id] = types.TrackMeta{
			ID:        id,
			Title:     track.Title,
			Artist:    track.Credits,
			Album:     track.ReleaseTitle,
			ReleaseID: strconv.FormatInt(track.ReleaseID, 10),
			Genre:     strings.Join(track.Genres, ", "),
			Position:  track.Position,
			CoverURL:  strings.ReplaceAll(track.Image.Src, coverSizeTemplate, ""),
			HasLyrics: hasLyrics,
			Availability: types.Availability{
				FLAC:    track.HasFLAC,
				MP3High: true,
				MP3Mid:  true,
			},
		}
	}

	return tracks, nil
}

// StreamLink asks the catalog for an expiring stream URL at the negotiated
// tier. Requests are spaced by the configured interval.
func (c *Client) StreamLink(ctx context.Context, logger zerolog.Logger, id string, quality types.Quality) (string, error) {
	if err := c.linkLimiter.Wait(ctx); nil != err {
		return "", fmt.Errorf("failed to wait for stream link slot: %w", err)
	}

	params := make(url.Values, 2)
	params.Add("id", id)
	params.Add("quality", quality.String())

	respBytes, err := c.getJSON(ctx, logger, streamEndpoint, params, time.Duration(c.timeouts.StreamLink)*time.Second)
	if nil != err {
		return "", fmt.Errorf("failed to get stream link for track %s: %w", id, err)
	}

	var respBody struct {
		Result struct {
			Stream string `json:"stream"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBytes, &respBody); nil != err {
		logger.Error().Err(err).Msg("Failed to decode stream link response")
		return "", fmt.Errorf("failed to decode stream link response: %v", err)
	}

	if respBody.Result.Stream == "" {
		return "", fmt.Errorf("%w: no stream link for track %s", ErrNotFound, id)
	}

	return respBody.Result.Stream, nil
}

// Lyrics fetches a track's lyrics. The response shape is loose, so fields are
// probed instead of decoded into a fixed struct.
func (c *Client) Lyrics(ctx context.Context, logger zerolog.Logger, trackID string) (*types.Lyrics, error) {
	params := make(url.Values, 1)
	params.Add("track_id", trackID)

	respBytes, err := c.getJSON(ctx, logger, lyricsEndpoint, params, time.Duration(c.timeouts.Lyrics)*time.Second)
	if nil != err {
		return nil, fmt.Errorf("failed to get lyrics for track %s: %w", trackID, err)
	}

	if !gjson.ValidBytes(respBytes) {
		return nil, fmt.Errorf("invalid lyrics response for track %s", trackID)
	}

	text := gjson.GetBytes(respBytes, "result.lyrics")
	if text.Type != gjson.String {
		return nil, fmt.Errorf("lyrics is not a string for track %s", trackID)
	}

	kind := types.LyricsKindLyrics
	if gjson.GetBytes(respBytes, "result.type").Str == "subtitle" {
		kind = types.LyricsKindSubtitle
	}

	return &types.Lyrics{Kind: kind, Text: text.Str}, nil
}

func (c *Client) metadataTimeout() time.Duration {
	return time.Duration(c.timeouts.Metadata) * time.Second
}

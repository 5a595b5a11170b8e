package downloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/xeptore/zvukgrab/cache"
	"github.com/xeptore/zvukgrab/config"
	"github.com/xeptore/zvukgrab/zvuk/api"
	"github.com/xeptore/zvukgrab/zvuk/fs"
	"github.com/xeptore/zvukgrab/zvuk/types"
)

// ErrAborted marks items that never ran because an earlier fatal error
// (invalid credential) halted the run.
var ErrAborted = errors.New("run aborted after a fatal catalog error")

// Downloader sequences the acquisition pipeline for a batch of catalog URLs:
// resolve, expand to tracks, and fan each track out to a bounded worker pool
// with per-track failure isolation.
type Downloader struct {
	api       *api.Client
	sess      *api.Session
	conf      *config.Config
	requested types.Quality
	caches    *cache.Cache
	staging   fs.Staging
	fetcher   *streamFetcher
	covers    *coverProcessor
}

func New(
	apiClient *api.Client,
	sess *api.Session,
	conf *config.Config,
	requested types.Quality,
	caches *cache.Cache,
	staging fs.Staging,
) *Downloader {
	return &Downloader{
		api:       apiClient,
		sess:      sess,
		conf:      conf,
		requested: requested,
		caches:    caches,
		staging:   staging,
		fetcher: &streamFetcher{
			sess:        sess,
			timeout:     time.Duration(conf.Download.Timeouts.Download) * time.Second,
			maxAttempts: conf.Download.MaxAttempts,
		},
		covers: &coverProcessor{
			sess:    sess,
			conf:    conf.Cover,
			timeout: time.Duration(conf.Download.Timeouts.Cover) * time.Second,
			covers:  &caches.Covers,
		},
	}
}

// trackJob is one independent unit of work: a music track or an audiobook
// chapter, with its metadata fully resolved.
type trackJob struct {
	meta types.TrackMeta
	// streamURL is pre-resolved for audiobook chapters whose links only come
	// in batch; empty for music tracks, which negotiate per track.
	streamURL string
	// withLyrics enables the lyrics fetch for this unit.
	withLyrics bool
}

// Run processes urls and returns one outcome per URL in input order. Only an
// unauthorized credential halts the run; every other failure is recorded in
// its item's outcome and leaves siblings untouched.
func (d *Downloader) Run(ctx context.Context, logger zerolog.Logger, urls []string) []types.Outcome {
	outcomes := make([]types.Outcome, len(urls))

	var sinkMu sync.Mutex

	wg, wgctx := errgroup.WithContext(ctx)
	wg.SetLimit(d.conf.Download.Concurrency)

	fatal := false
	for i, rawURL := range urls {
		outcomes[i].URL = rawURL

		if fatal || nil != wgctx.Err() {
			outcomes[i].Err = ErrAborted
			continue
		}

		link, err := types.ParseLink(rawURL)
		if nil != err {
			logger.Warn().Str("url", rawURL).Msg("Skipping unrecognized URL")
			outcomes[i].Err = err
			continue
		}

		urlLogger := logger.With().Str("url", rawURL).Stringer("kind", link.Kind).Logger()

		jobs, err := d.expand(wgctx, urlLogger, link)
		if nil != err {
			if errors.Is(err, api.ErrUnauthorized) {
				urlLogger.Error().Msg("Catalog rejected the credential token, halting the run")
				fatal = true
			}

			outcomes[i].Err = err

			continue
		}

		for _, job := range jobs {
			wg.Go(func() error {
				trackLogger := urlLogger.With().Str("track_id", job.meta.ID).Logger()

				path, err := d.processTrack(wgctx, trackLogger, job)

				sinkMu.Lock()
				outcomes[i].Tracks = append(outcomes[i].Tracks, types.TrackResult{
					TrackID: job.meta.ID,
					Path:    path,
					Err:     err,
				})
				sinkMu.Unlock()

				if errors.Is(err, api.ErrUnauthorized) {
					trackLogger.Error().Msg("Catalog rejected the credential token, halting the run")
					return api.ErrUnauthorized
				}

				if nil != err {
					trackLogger.Error().Err(err).Msg("Track failed")
				}

				return nil
			})
		}
	}

	// The pool error is only ever the fatal unauthorized sentinel, which is
	// already recorded per item.
	_ = wg.Wait()

	return outcomes
}

// expand resolves a typed link into its independent track jobs, preserving
// the server-declared order.
func (d *Downloader) expand(ctx context.Context, logger zerolog.Logger, link types.Link) ([]trackJob, error) {
	switch link.Kind {
	case types.LinkKindRelease:
		return d.expandRelease(ctx, logger, link.ID)
	case types.LinkKindTrack:
		return d.expandTrack(ctx, logger, link.ID)
	case types.LinkKindBook:
		return d.expandBook(ctx, logger, link.ID)
	default:
		panic(fmt.Sprintf("unexpected link kind: %d", int(link.Kind)))
	}
}

func (d *Downloader) expandRelease(ctx context.Context, logger zerolog.Logger, id string) ([]trackJob, error) {
	release, err := d.release(ctx, logger, id)
	if nil != err {
		return nil, fmt.Errorf("failed to get release metadata: %w", err)
	}

	tracks, err := d.api.Tracks(ctx, logger, release.TrackIDs)
	if nil != err {
		return nil, fmt.Errorf("failed to get release tracks metadata: %w", err)
	}

	jobs := make([]trackJob, 0, len(release.TrackIDs))
	for _, trackID := range release.TrackIDs {
		meta, ok := tracks[trackID]
		if !ok {
			logger.Warn().Str("track_id", trackID).Msg("Release declares a track the catalog did not return, skipping")
			continue
		}

		jobs = append(jobs, trackJob{
			meta:       enrichFromRelease(meta, release),
			streamURL:  "",
			withLyrics: lo.FromPtr(d.conf.Download.Lyrics),
		})
	}

	return jobs, nil
}

func (d *Downloader) expandTrack(ctx context.Context, logger zerolog.Logger, id string) ([]trackJob, error) {
	tracks, err := d.api.Tracks(ctx, logger, []string{id})
	if nil != err {
		return nil, fmt.Errorf("failed to get track metadata: %w", err)
	}

	meta, ok := tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: track %s", api.ErrNotFound, id)
	}

	release, err := d.release(ctx, logger, meta.ReleaseID)
	if nil != err {
		return nil, fmt.Errorf("failed to get owning release metadata: %w", err)
	}

	return []trackJob{{
		meta:       enrichFromRelease(meta, release),
		streamURL:  "",
		withLyrics: lo.FromPtr(d.conf.Download.Lyrics),
	}}, nil
}

func (d *Downloader) expandBook(ctx context.Context, logger zerolog.Logger, id string) ([]trackJob, error) {
	chapters, err := d.api.BookChapters(ctx, logger, []string{id})
	if nil != err {
		return nil, fmt.Errorf("failed to get book chapters: %w", err)
	}

	chapterIDs := make([]string, len(chapters))
	for i, chapter := range chapters {
		chapterIDs[i] = chapter.ID
	}

	links, err := d.api.ChapterStreamLinks(ctx, logger, chapterIDs)
	if nil != err {
		return nil, fmt.Errorf("failed to get chapter stream links: %w", err)
	}

	jobs := make([]trackJob, len(chapters))
	for i, chapter := range chapters {
		jobs[i] = trackJob{
			meta: types.TrackMeta{ //nolint:exhaustruct
				ID:          chapter.ID,
				Title:       chapter.Title,
				Artist:      chapter.Author,
				Album:       chapter.Book,
				Position:    chapter.Position,
				TotalTracks: len(chapters),
				CoverURL:    chapter.CoverURL,
				// Audiobook chapters only stream at the mid tier.
				Availability: types.Availability{FLAC: false, MP3High: false, MP3Mid: true},
			},
			streamURL:  links[i],
			withLyrics: false,
		}
	}

	return jobs, nil
}

// release fetches release metadata through the run cache, so tracks of the
// same release resolved via separate URLs reuse one catalog round trip.
func (d *Downloader) release(ctx context.Context, logger zerolog.Logger, id string) (*types.ReleaseMeta, error) {
	item, err := d.caches.Releases.Fetch(id, cache.DefaultReleaseTTL, func() (*types.ReleaseMeta, error) {
		releases, err := d.api.Releases(ctx, logger, []string{id})
		if nil != err {
			return nil, err
		}

		release, ok := releases[id]
		if !ok {
			return nil, fmt.Errorf("%w: release %s", api.ErrNotFound, id)
		}

		return &release, nil
	})
	if nil != err {
		return nil, err
	}

	return item.Value(), nil
}

// enrichFromRelease copies release-scoped fields onto a track's metadata.
func enrichFromRelease(meta types.TrackMeta, release *types.ReleaseMeta) types.TrackMeta {
	meta.Album = release.Title
	meta.Year = release.Year
	meta.Label = release.Label
	meta.TotalTracks = len(release.TrackIDs)

	return meta
}

// processTrack runs one unit through the pipeline: negotiate, download to
// staging, cover, lyrics, tags, then atomic promote. The destination path is
// returned even when the file already existed from a previous run.
func (d *Downloader) processTrack(ctx context.Context, logger zerolog.Logger, job trackJob) (p string, err error) {
	meta := job.meta

	negotiated, err := types.Negotiate(d.requested, meta.Availability)
	if nil != err {
		return "", err
	}

	if negotiated != d.requested {
		logger.Info().
			Stringer("requested", d.requested).
			Stringer("negotiated", negotiated).
			Msg("Falling back to a lower quality tier")
	} else {
		logger.Debug().Stringer("quality", negotiated).Msg("Using requested quality")
	}

	destPath := BuildTrackPath(d.conf.Output.Dir, meta, negotiated)
	if exists, err := fs.Exists(destPath); nil != err {
		return "", err
	} else if exists {
		logger.Info().Str("path", destPath).Msg("File already exists, skipping")
		return destPath, nil
	}

	stream := types.StreamInfo{URL: job.streamURL, ActualQuality: negotiated}
	if stream.URL == "" {
		stream.URL, err = d.api.StreamLink(ctx, logger, meta.ID, negotiated)
		if nil != err {
			return "", err
		}
	}

	staging, err := d.staging.Track(meta.ID)
	if nil != err {
		return "", err
	}
	// A failed slot is left for the run-level staging cleanup; nothing in it
	// is ever promoted.
	defer func() {
		if nil == err {
			if removeErr := staging.Remove(); nil != removeErr {
				logger.Warn().Err(removeErr).Msg("Failed to remove track staging directory")
			}
		}
	}()

	audioPath := staging.AudioFile(stream.ActualQuality.Ext())

	byteLen, err := d.fetcher.fetch(ctx, logger, stream.URL, audioPath)
	if nil != err {
		return "", fmt.Errorf("failed to download stream: %w", err)
	}

	logger.Debug().Int64("byte_length", byteLen).Msg("Stream downloaded to staging")

	cover, err := d.covers.acquire(ctx, logger, meta.CoverURL, staging)
	if nil != err {
		return "", fmt.Errorf("failed to acquire cover: %w", err)
	}

	var lyrics *types.Lyrics
	if job.withLyrics && meta.HasLyrics {
		lyrics, err = d.api.Lyrics(ctx, logger, meta.ID)
		if nil != err {
			return "", fmt.Errorf("failed to get lyrics: %w", err)
		}

		if lyrics.Text == "" {
			logger.Warn().Msg("Catalog reported lyrics but returned none")
		}
	}

	attrs := tagAttrs{
		Meta:   meta,
		Lyrics: lyrics,
		Cover:  cover,
	}
	if err := embedTags(audioPath, stream.ActualQuality.Container(), attrs); nil != err {
		return "", err
	}

	if err := fs.Promote(audioPath, destPath); nil != err {
		return "", err
	}

	logger.Info().Str("path", destPath).Msg("Track finalized")

	return destPath, nil
}

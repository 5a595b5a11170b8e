package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/xeptore/zvukgrab/cache"
	"github.com/xeptore/zvukgrab/config"
	"github.com/xeptore/zvukgrab/zvuk/api"
	"github.com/xeptore/zvukgrab/zvuk/fs"
	"github.com/xeptore/zvukgrab/zvuk/types"
)

var ErrCoverResize = errors.New("cover resize command failed")

type coverProcessor struct {
	sess    *api.Session
	conf    config.Cover
	timeout time.Duration
	covers  *cache.CoversCache
}

// acquire fetches and, when configured, resizes cover art. Embedding disabled
// means no fetch at all. Results are cached per cover URL so an album's
// workers hit the catalog once. The resize-failure policy is the named config
// option: abort fails the caller's track, embed-original keeps the unresized
// bytes.
func (p *coverProcessor) acquire(
	ctx context.Context,
	logger zerolog.Logger,
	coverURL string,
	staging fs.TrackStaging,
) (*types.CoverImage, error) {
	if !p.conf.Embed || coverURL == "" {
		return nil, nil
	}

	item, err := p.covers.Fetch(coverURL, cache.DefaultCoverTTL, func() (*types.CoverImage, error) {
		img, err := p.fetch(ctx, coverURL)
		if nil != err {
			return nil, err
		}

		if !lo.FromPtr(p.conf.Resize) || int64(len(img.Bytes)) <= p.conf.ResizeLimit {
			return img, nil
		}

		resized, err := p.resize(ctx, img, staging)
		if nil != err {
			if p.conf.OnResizeFailure == config.ResizeFailureEmbedOriginal {
				logger.Warn().Err(err).Msg("Cover resize failed, embedding original bytes")
				return img, nil
			}

			return nil, err
		}

		return resized, nil
	})
	if nil != err {
		return nil, err
	}

	return item.Value(), nil
}

func (p *coverProcessor) fetch(ctx context.Context, coverURL string) (img *types.CoverImage, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.sess.Get(reqCtx, coverURL)
	if nil != err {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: cover request timed out", api.ErrTransient)
		}

		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}

		return nil, fmt.Errorf("%w: failed to send cover request: %v", api.ErrTransient, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close cover response body: %v", closeErr))
		}
	}()

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
	case code == http.StatusTooManyRequests, code >= 500:
		return nil, fmt.Errorf("%w: unexpected cover status code %d", api.ErrTransient, code)
	default:
		return nil, fmt.Errorf("cover host rejected the request with status code %d", code)
	}

	coverBytes, err := io.ReadAll(resp.Body)
	if nil != err {
		return nil, fmt.Errorf("%w: failed to read cover bytes: %v", api.ErrTransient, err)
	}

	return &types.CoverImage{
		Bytes:       coverBytes,
		ContentType: mimetype.Detect(coverBytes).String(),
	}, nil
}

// resize stages the fetched bytes and runs the external resize command with
// {source}/{target} substituted. Success requires a zero exit code and a
// readable target file.
func (p *coverProcessor) resize(ctx context.Context, img *types.CoverImage, staging fs.TrackStaging) (*types.CoverImage, error) {
	source := staging.CoverFile()
	target := staging.ResizedCoverFile()

	if err := os.WriteFile(source, img.Bytes, 0o600); nil != err {
		return nil, fmt.Errorf("failed to stage cover for resizing: %v", err)
	}

	fields := strings.Fields(p.conf.ResizeCommand)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty resize command", ErrCoverResize)
	}

	args := make([]string, len(fields))
	for i, field := range fields {
		args[i] = strings.ReplaceAll(strings.ReplaceAll(field, "{source}", source), "{target}", target)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if err := cmd.Run(); nil != err {
		return nil, fmt.Errorf("%w: %v", ErrCoverResize, err)
	}

	resizedBytes, err := os.ReadFile(target)
	if nil != err {
		return nil, fmt.Errorf("%w: target file is not readable: %v", ErrCoverResize, err)
	}

	return &types.CoverImage{
		Bytes:       resizedBytes,
		ContentType: mimetype.Detect(resizedBytes).String(),
	}, nil
}

// Package zvuk assembles the catalog session, metadata client, caches, and
// download pipeline into one entry point for a batch run.
package zvuk

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/xeptore/zvukgrab/cache"
	"github.com/xeptore/zvukgrab/config"
	"github.com/xeptore/zvukgrab/zvuk/api"
	"github.com/xeptore/zvukgrab/zvuk/downloader"
	"github.com/xeptore/zvukgrab/zvuk/fs"
	"github.com/xeptore/zvukgrab/zvuk/types"
)

type Client struct {
	conf      *config.Config
	sess      *api.Session
	api       *api.Client
	caches    *cache.Cache
	requested types.Quality
}

func NewClient(conf *config.Config) (*Client, error) {
	requested, err := types.ParseQuality(conf.Download.Quality)
	if nil != err {
		return nil, err
	}

	sess, err := api.NewSession(conf.Network.Host, conf.Network.Token, conf.Network.UserAgent)
	if nil != err {
		return nil, fmt.Errorf("failed to initialize catalog session: %w", err)
	}

	return &Client{
		conf:      conf,
		sess:      sess,
		api:       api.NewClient(sess, conf.Download),
		caches:    cache.New(),
		requested: requested,
	}, nil
}

// DownloadAll processes urls and returns one outcome per URL in input order.
// A run-scoped staging directory is created under the output root and removed
// at the end, taking any half-finished artifacts of failed tracks with it.
func (c *Client) DownloadAll(ctx context.Context, logger zerolog.Logger, urls []string) ([]types.Outcome, error) {
	staging, err := fs.NewStaging(c.conf.Output.Dir)
	if nil != err {
		return nil, err
	}
	defer func() {
		if err := staging.Remove(); nil != err {
			logger.Warn().Err(err).Msg("Failed to remove run staging directory")
		}
	}()

	d := downloader.New(c.api, c.sess, c.conf, c.requested, c.caches, staging)

	return d.Run(ctx, logger, urls), nil
}

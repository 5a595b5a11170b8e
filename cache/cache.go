package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"

	"github.com/xeptore/zvukgrab/zvuk/types"
)

var (
	DefaultReleaseTTL = 1 * time.Hour
	DefaultCoverTTL   = 1 * time.Hour
)

// Cache holds run-scoped catalog lookups: release metadata shared by a
// release's tracks, and cover art fetched once per release no matter how many
// workers embed it.
type Cache struct {
	Releases ReleasesCache
	Covers   CoversCache
}

func New() *Cache {
	releasesCache := ccache.New(
		ccache.Configure[*types.ReleaseMeta]().
			MaxSize(1000).
			GetsPerPromote(3).
			PercentToPrune(1),
	)

	coversCache := ccache.New(
		ccache.Configure[*types.CoverImage]().
			MaxSize(100).
			GetsPerPromote(3).
			PercentToPrune(1),
	)

	return &Cache{
		Releases: ReleasesCache{
			c:   releasesCache,
			mux: sync.Mutex{},
		},
		Covers: CoversCache{
			c:   coversCache,
			mux: sync.Mutex{},
		},
	}
}

type ReleasesCache struct {
	c   *ccache.Cache[*types.ReleaseMeta]
	mux sync.Mutex
}

func (c *ReleasesCache) Fetch(
	k string,
	ttl time.Duration,
	fetch func() (*types.ReleaseMeta, error),
) (*ccache.Item[*types.ReleaseMeta], error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	v, err := c.c.Fetch(k, ttl, fetch)
	if nil != err {
		return nil, fmt.Errorf("fetch release meta: %w", err)
	}

	return v, nil
}

func (c *ReleasesCache) Set(k string, v *types.ReleaseMeta, ttl time.Duration) {
	c.c.Set(k, v, ttl)
}

type CoversCache struct {
	c   *ccache.Cache[*types.CoverImage]
	mux sync.Mutex
}

func (c *CoversCache) Fetch(
	k string,
	ttl time.Duration,
	fetch func() (*types.CoverImage, error),
) (*ccache.Item[*types.CoverImage], error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	v, err := c.c.Fetch(k, ttl, fetch)
	if nil != err {
		return nil, fmt.Errorf("fetch cover: %w", err)
	}

	return v, nil
}

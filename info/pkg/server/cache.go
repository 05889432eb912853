package server

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sdig/erddap/info/pkg/dataset"
	"github.com/sdig/erddap/info/pkg/erddap"
	"github.com/sdig/erddap/info/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// datasetCache holds loaded datasets keyed by info URL. Concurrent loads of
// the same dataset share one upstream request, which runs detached from any
// single caller's cancellation and is bounded by loadTimeout instead.
type datasetCache struct {
	clock       clockwork.Clock
	ttl         time.Duration
	loadTimeout time.Duration
	fetcher     dataset.Fetcher

	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

type cacheEntry struct {
	ds      *dataset.Dataset
	expires time.Time
}

func newDatasetCache(fetcher dataset.Fetcher, clock clockwork.Clock, ttl, loadTimeout time.Duration) *datasetCache {
	return &datasetCache{
		clock:       clock,
		ttl:         ttl,
		loadTimeout: loadTimeout,
		fetcher:     fetcher,
		entries:     make(map[string]cacheEntry),
	}
}

func (c *datasetCache) Load(ctx context.Context, url string) (*dataset.Dataset, error) {
	if c.ttl < 0 {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return dataset.Load(ctx, c.fetcher, url)
	}

	key := erddap.InfoURL(url)
	if ds, ok := c.get(key); ok {
		return ds, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		ds, err := dataset.Load(loadCtx, c.fetcher, url)
		if err != nil {
			return nil, err
		}
		c.put(key, ds)
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*dataset.Dataset), nil
	}
}

func (c *datasetCache) get(key string) (*dataset.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		metrics.CacheLookupsTotal.WithLabelValues("expired").Inc()
		return nil, false
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return e.ds, true
}

// put stores ds and drops every expired entry, so keys that are never
// requested again do not accumulate.
func (c *datasetCache) put(key string, ds *dataset.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{ds: ds, expires: now.Add(c.ttl)}
}

func (c *datasetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"fmt"
	"slices"

	"github.com/LightSofa/dsd-generator/internal/negcache"

	lru "github.com/hashicorp/golang-lru/v2"
)

type (
	// CachingExtractor memoizes another Extractor by path and file identity.
	// In a chained override (A, B, C) the middle file is extracted once
	// for both pairs. A changed file has a new identity and misses the cache.
	CachingExtractor struct {
		next  Extractor
		cache *lru.Cache[cacheKey, []TextRecord]
	}

	cacheKey struct {
		path string
		id   negcache.FileIdentity
	}
)

// NewCachingExtractor wraps next with an LRU holding up to size files.
// A size of zero or less returns next unchanged.
func NewCachingExtractor(next Extractor, size int) (Extractor, error) {
	if size <= 0 {
		return next, nil
	}
	cache, err := lru.New[cacheKey, []TextRecord](size)
	if err != nil {
		return nil, fmt.Errorf("creating extraction cache: %w", err)
	}
	return &CachingExtractor{next: next, cache: cache}, nil
}

// Extract returns cached records when the file is unchanged. Failures are
// not cached. Callers receive their own slice.
func (c *CachingExtractor) Extract(ctx context.Context, path string) ([]TextRecord, error) {
	id, err := negcache.IdentityOf(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Reason: ReasonUnreadable, Err: err}
	}
	key := cacheKey{path: path, id: id}
	if recs, ok := c.cache.Get(key); ok {
		return slices.Clone(recs), nil
	}

	recs, err := c.next.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, recs)
	return slices.Clone(recs), nil
}

package tracks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BuildFunc rebuilds a pool for a category query on cache miss.
type BuildFunc func(ctx context.Context, query string, size int) ([]Track, error)

type poolEntry struct {
	tracks  []Track
	expires time.Time
}

// PoolCache memoizes resolved pools per category query. Read-through with a
// fixed TTL, no background refresh. Entries with zero playable tracks are
// never written, so a provider outage cannot poison future lookups.
type PoolCache struct {
	mu      sync.Mutex
	entries map[string]poolEntry
	build   BuildFunc
	ttl     time.Duration
	clock   func() time.Time
	log     zerolog.Logger

	hits   uint64
	misses uint64
}

func NewPoolCache(build BuildFunc, ttl time.Duration, clock func() time.Time, log zerolog.Logger) *PoolCache {
	if clock == nil {
		clock = time.Now
	}
	return &PoolCache{
		entries: make(map[string]poolEntry),
		build:   build,
		ttl:     ttl,
		clock:   clock,
		log:     log,
	}
}

// GetOrBuild serves a fresh entry when it has enough tracks and at least one
// is still playable; otherwise it rebuilds. On rebuild failure a stale entry
// is served if one exists, and the error propagates only when there is
// nothing at all to fall back on.
func (c *PoolCache) GetOrBuild(ctx context.Context, query string, size int) ([]Track, error) {
	key := cacheKey(query)
	now := c.clock()

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && now.Before(entry.expires) && len(entry.tracks) >= size && countPlayable(entry.tracks) > 0 {
		c.hits++
		out := cloneTracks(entry.tracks)
		c.mu.Unlock()
		if len(out) > size {
			out = out[:size]
		}
		return out, nil
	}
	c.misses++
	c.mu.Unlock()

	built, err := c.build(ctx, query, size)
	if err != nil || len(built) == 0 {
		if ok && len(entry.tracks) > 0 {
			c.log.Warn().Err(err).Str("query", query).Msg("serving stale pool after rebuild failure")
			return cloneTracks(entry.tracks), nil
		}
		return nil, err
	}
	if countPlayable(built) == 0 {
		// Do not persist a pool nobody can play.
		return built, nil
	}

	c.mu.Lock()
	c.entries[key] = poolEntry{tracks: cloneTracks(built), expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return built, nil
}

// Stats returns hit/miss counters and the current entry count.
func (c *PoolCache) Stats() (hits, misses uint64, entries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}

func cacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func countPlayable(in []Track) int {
	n := 0
	for _, t := range in {
		if t.Playable() {
			n++
		}
	}
	return n
}

func cloneTracks(in []Track) []Track {
	out := make([]Track, len(in))
	copy(out, in)
	return out
}

type resolveEntry struct {
	track   Track
	expires time.Time
}

// ResolveCache memoizes successful preview re-resolutions by title+artist
// signature. Long TTL, positive entries only.
type ResolveCache struct {
	mu      sync.Mutex
	entries map[string]resolveEntry
	ttl     time.Duration
	clock   func() time.Time
}

func NewResolveCache(ttl time.Duration, clock func() time.Time) *ResolveCache {
	if clock == nil {
		clock = time.Now
	}
	return &ResolveCache{entries: make(map[string]resolveEntry), ttl: ttl, clock: clock}
}

func (c *ResolveCache) Get(t Track) (Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[t.MatchKey()]
	if !ok || !c.clock().Before(e.expires) {
		return Track{}, false
	}
	return e.track, true
}

func (c *ResolveCache) Put(key, resolved Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.MatchKey()] = resolveEntry{track: resolved, expires: c.clock().Add(c.ttl)}
}

package tracks

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Catalog is the primary provider capability: it turns a parsed category
// query into raw track candidates. Retry/backoff is the implementation's job.
type Catalog interface {
	Search(ctx context.Context, q string, limit int) ([]Track, error)
	PlaylistTracks(ctx context.Context, id string, limit int) ([]Track, error)
	ChartTracks(ctx context.Context, limit int) ([]Track, error)
	UserTracks(ctx context.Context, user string, limit int) ([]Track, error)
}

// PreviewFinder is the secondary provider capability used to re-resolve
// candidates that carry no playable preview of their own.
type PreviewFinder interface {
	FindPreview(ctx context.Context, title, artist string) (Track, error)
	SearchPreviews(ctx context.Context, q string, limit int) ([]Track, error)
}

type ResolverConfig struct {
	Workers       int // concurrent preview re-resolutions
	FetchFactor   int // raw candidates fetched per requested track
	ResolveBudget int // re-resolution attempts per requested track
	MaxPoolSize   int // hard clamp on the requested size
	QueryFill     bool
}

func (c ResolverConfig) withDefaults() ResolverConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.FetchFactor <= 0 {
		c.FetchFactor = 3
	}
	if c.ResolveBudget <= 0 {
		c.ResolveBudget = 2
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 50
	}
	return c
}

// Resolver turns a category query into a deduplicated, ad-filtered sequence
// of playable tracks.
type Resolver struct {
	catalog  Catalog
	previews PreviewFinder
	resolved *ResolveCache
	cfg      ResolverConfig
	log      zerolog.Logger
}

func NewResolver(catalog Catalog, previews PreviewFinder, resolved *ResolveCache, cfg ResolverConfig, log zerolog.Logger) *Resolver {
	return &Resolver{catalog: catalog, previews: previews, resolved: resolved, cfg: cfg.withDefaults(), log: log}
}

// Resolve returns up to size playable tracks for the raw category query.
// A query that yields zero raw candidates returns an empty slice, not an
// error; callers decide whether to retry with a different source.
func (r *Resolver) Resolve(ctx context.Context, rawQuery string, size int) ([]Track, error) {
	if size <= 0 {
		return nil, nil
	}
	if size > r.cfg.MaxPoolSize {
		size = r.cfg.MaxPoolSize
	}

	q := ParseQuery(rawQuery)
	raw, err := r.fetch(ctx, q, size*r.cfg.FetchFactor)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		r.log.Debug().Str("query", rawQuery).Msg("no raw candidates")
		return nil, nil
	}

	candidates := Dedupe(FilterAdverts(raw))
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	// Candidates already carrying a preview win outright.
	pool := make([]Track, 0, size)
	pending := make([]Track, 0, len(candidates))
	for _, t := range candidates {
		if t.Playable() {
			if len(pool) < size {
				pool = append(pool, t)
			}
			continue
		}
		pending = append(pending, t)
	}

	if len(pool) < size && len(pending) > 0 {
		// The budget scales with the request, not the candidate list, to
		// bound worst-case latency.
		budget := size * r.cfg.ResolveBudget
		if len(pending) > budget {
			pending = pending[:budget]
		}
		pool = append(pool, r.resolvePreviews(ctx, pending, size-len(pool))...)
	}

	if len(pool) < size && r.cfg.QueryFill && q.Text != "" {
		pool = r.queryFill(ctx, q.Text, pool, size)
	}

	pool = Dedupe(pool)
	if len(pool) > size {
		pool = pool[:size]
	}
	r.log.Info().Str("query", rawQuery).Int("raw", len(raw)).Int("resolved", len(pool)).Msg("pool resolved")
	return pool, nil
}

func (r *Resolver) fetch(ctx context.Context, q Query, limit int) ([]Track, error) {
	switch q.Kind {
	case QueryPlaylist:
		return r.catalog.PlaylistTracks(ctx, q.PlaylistID, limit)
	case QueryChart:
		return r.catalog.ChartTracks(ctx, limit)
	case QueryUsers:
		// Social-graph union: merge every user's tracks, dedup later.
		var all []Track
		per := limit
		if len(q.Users) > 1 {
			per = limit/len(q.Users) + 1
		}
		for _, u := range q.Users {
			got, err := r.catalog.UserTracks(ctx, u, per)
			if err != nil {
				if _, limited := IsRateLimited(err); limited {
					return nil, err
				}
				r.log.Warn().Err(err).Str("user", u).Msg("user fetch failed")
				continue
			}
			all = append(all, got...)
		}
		return all, nil
	default:
		return r.catalog.Search(ctx, q.Text, limit)
	}
}

// resolvePreviews re-resolves pending tracks against the secondary provider
// with a fixed worker count pulling from a shared cursor. It stops once want
// tracks are found or the pending list is exhausted.
func (r *Resolver) resolvePreviews(ctx context.Context, pending []Track, want int) []Track {
	if want <= 0 || len(pending) == 0 || r.previews == nil {
		return nil
	}

	var (
		mu     sync.Mutex
		out    []Track
		cursor atomic.Int64
	)
	workers := r.cfg.Workers
	if workers > len(pending) {
		workers = len(pending)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				mu.Lock()
				enough := len(out) >= want
				mu.Unlock()
				if enough {
					return nil
				}
				idx := int(cursor.Add(1)) - 1
				if idx >= len(pending) {
					return nil
				}
				t := pending[idx]
				resolved, ok := r.resolveOne(ctx, t)
				if !ok {
					continue
				}
				mu.Lock()
				out = append(out, resolved)
				mu.Unlock()
			}
		})
	}
	_ = g.Wait() // a timed-out resolution simply abandons its result

	if len(out) > want {
		out = out[:want]
	}
	return out
}

// resolveOne grafts a found preview onto the candidate, keeping the original
// identity so answers still match the catalog metadata. Only found matches
// are cached; failures are never remembered.
func (r *Resolver) resolveOne(ctx context.Context, t Track) (Track, bool) {
	if r.resolved != nil {
		if hit, ok := r.resolved.Get(t); ok {
			return hit, true
		}
	}
	for _, variant := range queryVariants(t) {
		found, err := r.previews.FindPreview(ctx, variant.title, variant.artist)
		if err != nil || !found.Playable() {
			continue
		}
		resolved := t
		resolved.PreviewURL = found.PreviewURL
		if resolved.PageURL == "" {
			resolved.PageURL = found.PageURL
		}
		if resolved.Duration == 0 {
			resolved.Duration = found.Duration
		}
		if r.resolved != nil {
			r.resolved.Put(t, resolved)
		}
		return resolved, true
	}
	return Track{}, false
}

type variant struct{ title, artist string }

func queryVariants(t Track) []variant {
	vs := []variant{{t.Title, t.Artist}}
	if stripped := stripDecorations(t.Title); stripped != "" && stripped != t.Title {
		vs = append(vs, variant{stripped, t.Artist})
	}
	return vs
}

// stripDecorations removes parenthetical and bracketed suffixes that tend to
// defeat search matching ("(Remastered 2011)", "[feat. X]").
func stripDecorations(s string) string {
	for _, open := range []string{"(", "["} {
		if i := strings.Index(s, open); i > 0 {
			s = s[:i]
		}
	}
	for _, sep := range []string{" feat.", " ft.", " featuring "} {
		if i := strings.Index(strings.ToLower(s), sep); i > 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// queryFill tops the pool up with raw free-text results from the secondary
// provider once direct resolution is exhausted.
func (r *Resolver) queryFill(ctx context.Context, text string, pool []Track, size int) []Track {
	if r.previews == nil {
		return pool
	}
	got, err := r.previews.SearchPreviews(ctx, text, size*2)
	if err != nil {
		r.log.Warn().Err(err).Str("query", text).Msg("query fill failed")
		return pool
	}
	seen := make(map[string]bool, len(pool))
	for _, t := range pool {
		seen[t.MatchKey()] = true
	}
	for _, t := range got {
		if len(pool) >= size {
			break
		}
		if !t.Playable() || seen[t.MatchKey()] {
			continue
		}
		seen[t.MatchKey()] = true
		pool = append(pool, t)
	}
	return pool
}

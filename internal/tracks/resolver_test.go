package tracks

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseQuery(t *testing.T) {
	cases := []struct {
		in   string
		want Query
	}{
		{"chart", Query{Kind: QueryChart}},
		{"Top", Query{Kind: QueryChart}},
		{"playlist:12345", Query{Kind: QueryPlaylist, PlaylistID: "12345"}},
		{"playlist: 12345 ", Query{Kind: QueryPlaylist, PlaylistID: "12345"}},
		{"playlist:https://www.deezer.com/en/playlist/987654?utm=x", Query{Kind: QueryPlaylist, PlaylistID: "987654"}},
		{"https://www.deezer.com/playlist/555", Query{Kind: QueryPlaylist, PlaylistID: "555"}},
		{"playlist:deezer:playlist:777", Query{Kind: QueryPlaylist, PlaylistID: "777"}},
		{"users:alice,bob", Query{Kind: QueryUsers, Users: []string{"alice", "bob"}}},
		{"user:carol", Query{Kind: QueryUsers, Users: []string{"carol"}}},
		{"80s synthpop", Query{Kind: QuerySearch, Text: "80s synthpop"}},
	}
	for _, c := range cases {
		got := ParseQuery(c.in)
		if got.Kind != c.want.Kind || got.PlaylistID != c.want.PlaylistID || got.Text != c.want.Text {
			t.Fatalf("ParseQuery(%q) = %+v, want %+v", c.in, got, c.want)
		}
		if len(got.Users) != len(c.want.Users) {
			t.Fatalf("ParseQuery(%q) users = %v, want %v", c.in, got.Users, c.want.Users)
		}
		for i := range got.Users {
			if got.Users[i] != c.want.Users[i] {
				t.Fatalf("ParseQuery(%q) users = %v, want %v", c.in, got.Users, c.want.Users)
			}
		}
	}
}

func TestFilterAdverts(t *testing.T) {
	in := []Track{
		{Title: "Bohemian Rhapsody", Artist: "Queen"},
		{Title: "Advertisement", Artist: "Spotify"},
		{Title: "Sponsored Break", Artist: "Various"},
		{Title: "Promotional Message", Artist: "Radio"},
		{Title: "Billie Jean", Artist: "Michael Jackson"},
	}
	out := FilterAdverts(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 tracks to survive, got %d: %v", len(out), out)
	}
	if out[0].Title != "Bohemian Rhapsody" || out[1].Title != "Billie Jean" {
		t.Fatalf("wrong survivors: %v", out)
	}
}

func TestDedupe(t *testing.T) {
	a := Track{Provider: ProviderDeezer, ID: "1", Title: "Song", Artist: "Band"}
	b := a
	c := Track{Provider: ProviderITunes, ID: "1", Title: "Song", Artist: "Band"}
	out := Dedupe([]Track{a, b, c})
	if len(out) != 2 {
		t.Fatalf("expected 2 unique tracks, got %d", len(out))
	}
}

type fakeCatalog struct {
	tracks []Track
	err    error
}

func (f *fakeCatalog) Search(ctx context.Context, q string, limit int) ([]Track, error) {
	return f.tracks, f.err
}
func (f *fakeCatalog) PlaylistTracks(ctx context.Context, id string, limit int) ([]Track, error) {
	return f.tracks, f.err
}
func (f *fakeCatalog) ChartTracks(ctx context.Context, limit int) ([]Track, error) {
	return f.tracks, f.err
}
func (f *fakeCatalog) UserTracks(ctx context.Context, user string, limit int) ([]Track, error) {
	return f.tracks, f.err
}

type fakeFinder struct {
	mu      sync.Mutex
	calls   int
	found   map[string]Track // lower title|artist -> resolved track
	search  []Track
	searchE error
}

func (f *fakeFinder) FindPreview(ctx context.Context, title, artist string) (Track, error) {
	f.mu.Lock()
	f.calls++
	hit, ok := f.found[Track{Title: title, Artist: artist}.MatchKey()]
	f.mu.Unlock()
	if !ok {
		return Track{}, ErrNoMatch
	}
	return hit, nil
}

func (f *fakeFinder) SearchPreviews(ctx context.Context, q string, limit int) ([]Track, error) {
	return f.search, f.searchE
}

func (f *fakeFinder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func unplayable(n int) []Track {
	out := make([]Track, n)
	for i := range out {
		out[i] = Track{Provider: ProviderDeezer, ID: strconv.Itoa(i), Title: "Song " + strconv.Itoa(i), Artist: "Band"}
	}
	return out
}

func newTestResolver(cat Catalog, fin PreviewFinder, cfg ResolverConfig) *Resolver {
	return NewResolver(cat, fin, NewResolveCache(time.Hour, nil), cfg, zerolog.Nop())
}

func TestResolvePrefersPlayable(t *testing.T) {
	pool := unplayable(3)
	pool = append(pool,
		Track{Provider: ProviderDeezer, ID: "p1", Title: "Playable One", Artist: "Band", PreviewURL: "u1"},
		Track{Provider: ProviderDeezer, ID: "p2", Title: "Playable Two", Artist: "Band", PreviewURL: "u2"},
	)
	r := newTestResolver(&fakeCatalog{tracks: pool}, &fakeFinder{}, ResolverConfig{Workers: 1})
	got, err := r.Resolve(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(got))
	}
	for _, tr := range got {
		if !tr.Playable() {
			t.Fatalf("unplayable track in result: %+v", tr)
		}
	}
}

func TestResolveGraftsPreviews(t *testing.T) {
	pending := unplayable(2)
	finder := &fakeFinder{found: map[string]Track{
		pending[0].MatchKey(): {Provider: ProviderITunes, ID: "i0", Title: pending[0].Title, Artist: "Band", PreviewURL: "itunes://0", PageURL: "https://itunes/0"},
		pending[1].MatchKey(): {Provider: ProviderITunes, ID: "i1", Title: pending[1].Title, Artist: "Band", PreviewURL: "itunes://1", PageURL: "https://itunes/1"},
	}}
	r := newTestResolver(&fakeCatalog{tracks: pending}, finder, ResolverConfig{Workers: 2})
	got, err := r.Resolve(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(got))
	}
	for _, tr := range got {
		if tr.Provider != ProviderDeezer {
			t.Fatalf("re-resolved track should keep its catalog identity, got %s", tr.Provider)
		}
		if tr.PreviewURL == "" {
			t.Fatalf("preview should be grafted onto %+v", tr)
		}
	}
}

func TestResolveBudgetBoundsLookups(t *testing.T) {
	finder := &fakeFinder{}
	r := newTestResolver(&fakeCatalog{tracks: unplayable(40)}, finder, ResolverConfig{
		Workers:       1,
		ResolveBudget: 1,
		FetchFactor:   1,
	})
	got, err := r.Resolve(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("nothing should resolve, got %d", len(got))
	}
	// Budget is size*ResolveBudget candidates, one variant each.
	if finder.callCount() > 2 {
		t.Fatalf("resolve budget exceeded: %d lookups", finder.callCount())
	}
}

func TestResolveCachesPositiveLookupsOnly(t *testing.T) {
	pending := unplayable(2)
	finder := &fakeFinder{found: map[string]Track{
		pending[0].MatchKey(): {Provider: ProviderITunes, ID: "i0", Title: pending[0].Title, Artist: "Band", PreviewURL: "u"},
	}}
	cache := NewResolveCache(time.Hour, nil)
	r := NewResolver(&fakeCatalog{tracks: pending}, finder, cache, ResolverConfig{Workers: 1}, zerolog.Nop())

	if _, err := r.Resolve(context.Background(), "anything", 2); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if _, ok := cache.Get(pending[0]); !ok {
		t.Fatal("found match should be cached")
	}
	if _, ok := cache.Get(pending[1]); ok {
		t.Fatal("failed lookup must not be cached")
	}
}

func TestResolveRateLimitPropagates(t *testing.T) {
	r := newTestResolver(&fakeCatalog{err: &RateLimitError{}}, &fakeFinder{}, ResolverConfig{})
	_, err := r.Resolve(context.Background(), "anything", 2)
	if err == nil {
		t.Fatal("rate limit should propagate")
	}
	if _, ok := IsRateLimited(err); !ok {
		t.Fatalf("expected a rate-limit error, got %v", err)
	}
}

func TestResolveEmptySourceReturnsEmpty(t *testing.T) {
	r := newTestResolver(&fakeCatalog{}, &fakeFinder{}, ResolverConfig{})
	got, err := r.Resolve(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("empty source should not error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestResolveQueryFill(t *testing.T) {
	finder := &fakeFinder{search: []Track{
		{Provider: ProviderITunes, ID: "f1", Title: "Fill One", Artist: "X", PreviewURL: "u1"},
		{Provider: ProviderITunes, ID: "f2", Title: "Fill Two", Artist: "Y", PreviewURL: "u2"},
		{Provider: ProviderITunes, ID: "f3", Title: "No Preview", Artist: "Z"},
	}}
	catalog := &fakeCatalog{tracks: []Track{
		{Provider: ProviderDeezer, ID: "1", Title: "Only One", Artist: "Band", PreviewURL: "u"},
	}}
	r := newTestResolver(catalog, finder, ResolverConfig{Workers: 1, QueryFill: true})
	got, err := r.Resolve(context.Background(), "some search", 3)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("query fill should top up to 3, got %d", len(got))
	}
	for _, tr := range got {
		if !tr.Playable() {
			t.Fatalf("unplayable fill track: %+v", tr)
		}
	}
}

func TestStripDecorations(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Song (Remastered 2011)", "Song"},
		{"Song [Live]", "Song"},
		{"Song feat. Someone", "Song"},
		{"Plain Song", "Plain Song"},
	}
	for _, c := range cases {
		if got := stripDecorations(c.in); got != c.want {
			t.Fatalf("stripDecorations(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

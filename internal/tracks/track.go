package tracks

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider tags which upstream catalog a track came from.
type Provider string

const (
	ProviderDeezer Provider = "deezer"
	ProviderITunes Provider = "itunes"
)

// Track is a value object; never mutated after resolution.
type Track struct {
	Provider   Provider `json:"provider"`
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	Duration   int      `json:"duration,omitempty"` // seconds
	PreviewURL string   `json:"previewUrl,omitempty"`
	PageURL    string   `json:"pageUrl,omitempty"`
}

// Playable reports whether the track carries an audio surface we can stream.
func (t Track) Playable() bool { return t.PreviewURL != "" }

// Signature identifies a track across providers for dedup purposes.
func (t Track) Signature() string {
	return strings.ToLower(string(t.Provider) + "|" + t.ID + "|" + t.Title + "|" + t.Artist)
}

// MatchKey identifies a track by its metadata only, used by the resolve cache.
func (t Track) MatchKey() string {
	return strings.ToLower(strings.TrimSpace(t.Title) + "|" + strings.TrimSpace(t.Artist))
}

// Dedupe keeps the first occurrence of each signature, preserving order.
func Dedupe(in []Track) []Track {
	seen := make(map[string]bool, len(in))
	out := make([]Track, 0, len(in))
	for _, t := range in {
		sig := t.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, t)
	}
	return out
}

// ErrNoMatch is returned by preview lookups that found nothing usable.
var ErrNoMatch = errors.New("no match")

// RateLimitError signals an upstream 429 so callers can surface a retry-after
// hint instead of treating it as an empty result.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// IsRateLimited reports whether err wraps a provider rate-limit signal.
func IsRateLimited(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

package tracks

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Promotional content shows up in user histories and scraped playlists; the
// bank matches against the normalized "title artist" text.
var advertPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\badvertisements?\b`),
	regexp.MustCompile(`\bcommercial break\b`),
	regexp.MustCompile(`\bsponsored\b`),
	regexp.MustCompile(`\bpromo(tion(al)?)?\b`),
	regexp.MustCompile(`\bstation (id|ident)\b`),
	regexp.MustCompile(`\bjingle\b`),
	regexp.MustCompile(`\bunknown (artist|track)\b`),
	regexp.MustCompile(`^ad break\b`),
}

var accentFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldText lower-cases and strips accents for heuristic matching.
func foldText(s string) string {
	folded, _, err := transform.String(accentFold, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// IsAdvert reports whether a track's metadata matches the advert heuristics.
func IsAdvert(t Track) bool {
	text := foldText(t.Title + " " + t.Artist)
	for _, re := range advertPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// FilterAdverts drops advertisement/promotional tracks, preserving order.
func FilterAdverts(in []Track) []Track {
	out := make([]Track, 0, len(in))
	for _, t := range in {
		if IsAdvert(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

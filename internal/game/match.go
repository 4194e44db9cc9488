package game

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Matching knobs. Heuristic and tunable; the contract is acronym match,
// safe-prefix match and similarity-above-threshold match.
const (
	similarityThreshold = 0.72
	safePrefixMinLen    = 6
	acronymMinLen       = 2
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases a guess or canonical answer, strips accents and
// featuring/parenthetical decorations, and collapses everything down to
// letters, digits and single spaces.
func Normalize(s string) string {
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = stripSegments(folded)

	var b strings.Builder
	lastSpace := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// stripSegments drops "(...)"/"[...]" blocks and cuts at featuring markers.
func stripSegments(s string) string {
	for {
		open := strings.IndexAny(s, "([")
		if open < 0 {
			break
		}
		closer := ")"
		if s[open] == '[' {
			closer = "]"
		}
		end := strings.Index(s[open:], closer)
		if end < 0 {
			s = s[:open]
			break
		}
		s = s[:open] + s[open+end+1:]
	}
	for _, marker := range []string{" feat.", " feat ", " ft.", " ft ", " featuring "} {
		if i := strings.Index(s, marker); i > 0 {
			s = s[:i]
		}
	}
	return s
}

// MatchAnswer reports whether a free-text guess is an acceptable rendition
// of the canonical answer. Total over its domain; never errors.
func MatchAnswer(guess, canonical string) bool {
	g := Normalize(guess)
	c := Normalize(canonical)
	if g == "" || c == "" {
		return false
	}
	if g == c {
		return true
	}
	if len(g) >= acronymMinLen && g == acronym(c) {
		return true
	}
	if safePrefix(g, c) {
		return true
	}
	return similarity(g, c) >= similarityThreshold
}

// MatchAny accepts a guess that matches any of the candidate answers.
func MatchAny(guess string, candidates ...string) bool {
	for _, c := range candidates {
		if MatchAnswer(guess, c) {
			return true
		}
	}
	return false
}

// acronym builds the first-letter word acronym of a normalized string.
func acronym(s string) string {
	var b strings.Builder
	for _, w := range strings.Fields(s) {
		r := []rune(w)
		b.WriteRune(r[0])
	}
	return b.String()
}

// safePrefix accepts a guess that names the franchise part of a long title:
// it must sit on a word boundary and be long enough to not be an accident.
func safePrefix(guess, canonical string) bool {
	if len(guess) < safePrefixMinLen || !strings.HasPrefix(canonical, guess) {
		return false
	}
	return len(canonical) == len(guess) || canonical[len(guess)] == ' '
}

// similarity is 1 - normalized edit distance over runes.
func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

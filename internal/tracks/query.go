package tracks

import "strings"

// QueryKind selects which provider capability a category query maps to.
type QueryKind string

const (
	QuerySearch   QueryKind = "search"
	QueryPlaylist QueryKind = "playlist"
	QueryChart    QueryKind = "chart"
	QueryUsers    QueryKind = "users"
)

// Query is the parsed form of a host-supplied category query.
type Query struct {
	Kind       QueryKind
	Text       string   // free-text search term
	PlaylistID string   // QueryPlaylist only
	Users      []string // QueryUsers only
}

// ParseQuery turns a raw category query into a Query. Pure string matching;
// unknown input falls through to free-text search.
func ParseQuery(raw string) Query {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)

	switch lower {
	case "chart", "charts", "top", "popular":
		return Query{Kind: QueryChart}
	}

	if rest, ok := cutPrefixFold(s, "playlist:"); ok {
		return Query{Kind: QueryPlaylist, PlaylistID: extractPlaylistID(rest)}
	}
	if strings.Contains(lower, "/playlist/") {
		return Query{Kind: QueryPlaylist, PlaylistID: extractPlaylistID(s)}
	}
	if rest, ok := cutPrefixFold(s, "users:"); ok {
		return Query{Kind: QueryUsers, Users: splitUsers(rest)}
	}
	if rest, ok := cutPrefixFold(s, "user:"); ok {
		return Query{Kind: QueryUsers, Users: splitUsers(rest)}
	}

	return Query{Kind: QuerySearch, Text: s}
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):]), true
	}
	return "", false
}

// extractPlaylistID normalizes a bare ID, a share URL or a provider URI down
// to the playlist's native ID.
func extractPlaylistID(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(strings.ToLower(s), "/playlist/"); i >= 0 {
		s = s[i+len("/playlist/"):]
	}
	s = strings.Trim(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	// provider URIs like deezer:playlist:12345
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func splitUsers(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	users := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			users = append(users, p)
		}
	}
	return users
}

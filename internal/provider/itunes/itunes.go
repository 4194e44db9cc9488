// Package itunes is the secondary provider used to re-resolve tracks into a
// streamable preview when the catalog entry carries none.
package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maxrichter/trackdash/internal/tracks"
)

type Client struct {
	BaseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://itunes.apple.com"
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: 10 * time.Second}}
}

type apiResult struct {
	Results []struct {
		TrackID      int64  `json:"trackId"`
		TrackName    string `json:"trackName"`
		ArtistName   string `json:"artistName"`
		PreviewURL   string `json:"previewUrl"`
		TrackViewURL string `json:"trackViewUrl"`
		TrackTimeMS  int64  `json:"trackTimeMillis"`
	} `json:"results"`
}

// FindPreview searches for one playable preview matching title and artist.
func (c *Client) FindPreview(ctx context.Context, title, artist string) (tracks.Track, error) {
	got, err := c.SearchPreviews(ctx, title+" "+artist, 5)
	if err != nil {
		return tracks.Track{}, err
	}
	for _, t := range got {
		if t.Playable() {
			return t, nil
		}
	}
	return tracks.Track{}, tracks.ErrNoMatch
}

func (c *Client) SearchPreviews(ctx context.Context, q string, limit int) ([]tracks.Track, error) {
	rawURL := fmt.Sprintf("%s/search?term=%s&media=music&entity=song&limit=%d", c.BaseURL, url.QueryEscape(q), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &tracks.RateLimitError{}
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("itunes status %d", resp.StatusCode)
	}
	var out apiResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	result := make([]tracks.Track, 0, len(out.Results))
	for _, item := range out.Results {
		result = append(result, tracks.Track{
			Provider:   tracks.ProviderITunes,
			ID:         strconv.FormatInt(item.TrackID, 10),
			Title:      item.TrackName,
			Artist:     item.ArtistName,
			Duration:   int(item.TrackTimeMS / 1000),
			PreviewURL: item.PreviewURL,
			PageURL:    item.TrackViewURL,
		})
	}
	return result, nil
}

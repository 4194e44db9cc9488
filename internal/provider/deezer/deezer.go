// Package deezer is the primary catalog client: search, playlists, charts
// and per-user track history.
package deezer

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
		baseURL = "https://api.deezer.com"
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: 10 * time.Second}}
}

type apiTrack struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Preview  string `json:"preview"`
	Link     string `json:"link"`
	Duration int    `json:"duration"`
	Artist   struct {
		Name string `json:"name"`
	} `json:"artist"`
}

type apiList struct {
	Data []apiTrack `json:"data"`
}

func (c *Client) Search(ctx context.Context, q string, limit int) ([]tracks.Track, error) {
	return c.list(ctx, fmt.Sprintf("%s/search?q=%s&limit=%d", c.BaseURL, url.QueryEscape(q), limit))
}

func (c *Client) PlaylistTracks(ctx context.Context, id string, limit int) ([]tracks.Track, error) {
	return c.list(ctx, fmt.Sprintf("%s/playlist/%s/tracks?limit=%d", c.BaseURL, url.PathEscape(id), limit))
}

func (c *Client) ChartTracks(ctx context.Context, limit int) ([]tracks.Track, error) {
	return c.list(ctx, fmt.Sprintf("%s/chart/0/tracks?limit=%d", c.BaseURL, limit))
}

func (c *Client) UserTracks(ctx context.Context, user string, limit int) ([]tracks.Track, error) {
	return c.list(ctx, fmt.Sprintf("%s/user/%s/tracks?limit=%d", c.BaseURL, url.PathEscape(user), limit))
}

func (c *Client) list(ctx context.Context, rawURL string) ([]tracks.Track, error) {
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
		return nil, &tracks.RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("deezer status %d", resp.StatusCode)
	}
	var out apiList
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	result := make([]tracks.Track, 0, len(out.Data))
	for _, item := range out.Data {
		result = append(result, tracks.Track{
			Provider:   tracks.ProviderDeezer,
			ID:         strconv.FormatInt(item.ID, 10),
			Title:      item.Title,
			Artist:     item.Artist.Name,
			Duration:   item.Duration,
			PreviewURL: item.Preview,
			PageURL:    item.Link,
		})
	}
	return result, nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

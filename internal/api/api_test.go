package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/maxrichter/trackdash/internal/game"
	"github.com/maxrichter/trackdash/internal/tracks"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cache := tracks.NewPoolCache(func(ctx context.Context, query string, size int) ([]tracks.Track, error) {
		return []tracks.Track{{Provider: tracks.ProviderDeezer, ID: "1", Title: "Song", Artist: "Band", PreviewURL: "u"}}, nil
	}, time.Minute, nil, zerolog.Nop())
	store := game.NewStore(cache, game.StoreConfig{}, nil, zerolog.Nop())
	r := gin.New()
	New(store, cache, zerolog.Nop()).Mount(r)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestMalformedBodyRejected(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/api/rooms", "/api/rooms/ABCDEF/join", "/api/rooms/ABCDEF/start"} {
		if w := do(r, http.MethodPost, path, "{not json"); w.Code != http.StatusBadRequest {
			t.Fatalf("POST %s with garbage body: expected 400, got %d", path, w.Code)
		}
	}
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/rooms", `{"visibility":"private","source":"chart"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create failed with %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		RoomCode string `json:"roomCode"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.RoomCode == "" {
		t.Fatalf("bad create response %q: %v", w.Body.String(), err)
	}

	w = do(r, http.MethodPost, "/api/rooms/"+created.RoomCode+"/join", `{"name":"Alice"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("join failed with %d: %s", w.Code, w.Body.String())
	}

	if w = do(r, http.MethodGet, "/api/rooms/"+created.RoomCode, ""); w.Code != http.StatusOK {
		t.Fatalf("state read failed with %d", w.Code)
	}
	if w = do(r, http.MethodGet, "/api/rooms/ZZZZZZ", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown room should 404, got %d", w.Code)
	}
	if w = do(r, http.MethodGet, "/api/diagnostics", ""); w.Code != http.StatusOK {
		t.Fatalf("diagnostics failed with %d", w.Code)
	}
}

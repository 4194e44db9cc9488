package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	CountdownMS   int
	LoadingMS     int
	PlayingMS     int
	RevealMS      int
	LeaderboardMS int

	MaxRounds      int
	MaxPlayers     int
	StartTimeoutMS int
	TopUpSize      int

	PoolCacheTTLMin   int
	ResolveCacheTTLHr int
	ResolveWorkers    int
	FetchFactor       int
	ResolveBudget     int
	MaxPoolSize       int
	QueryFill         bool

	DeezerBaseURL string
	ITunesBaseURL string
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")

	c.CountdownMS = getint("COUNTDOWN_MS", 3000)
	c.LoadingMS = getint("LOADING_MS", 2000)
	c.PlayingMS = getint("PLAYING_MS", 30000)
	c.RevealMS = getint("REVEAL_MS", 5000)
	c.LeaderboardMS = getint("LEADERBOARD_MS", 5000)

	c.MaxRounds = getint("MAX_ROUNDS", 10)
	c.MaxPlayers = getint("MAX_PLAYERS", 12)
	c.StartTimeoutMS = getint("START_TIMEOUT_MS", 15000)
	c.TopUpSize = getint("TOPUP_SIZE", 20)

	c.PoolCacheTTLMin = getint("POOL_CACHE_TTL_MIN", 30)
	c.ResolveCacheTTLHr = getint("RESOLVE_CACHE_TTL_HR", 72)
	c.ResolveWorkers = getint("RESOLVE_WORKERS", 4)
	c.FetchFactor = getint("FETCH_FACTOR", 3)
	c.ResolveBudget = getint("RESOLVE_BUDGET", 2)
	c.MaxPoolSize = getint("MAX_POOL_SIZE", 50)
	c.QueryFill = getenv("QUERY_FILL", "true") == "true"

	c.DeezerBaseURL = os.Getenv("DEEZER_BASE_URL")
	c.ITunesBaseURL = os.Getenv("ITUNES_BASE_URL")
	return c
}

// Durations bundles the phase lengths in time.Duration form.
type Durations struct {
	Countdown, Loading, Playing, Reveal, Leaderboard time.Duration
}

func (c Config) Durations() Durations {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return Durations{
		Countdown:   ms(c.CountdownMS),
		Loading:     ms(c.LoadingMS),
		Playing:     ms(c.PlayingMS),
		Reveal:      ms(c.RevealMS),
		Leaderboard: ms(c.LeaderboardMS),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

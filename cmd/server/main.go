package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/maxrichter/trackdash/internal/api"
	"github.com/maxrichter/trackdash/internal/config"
	"github.com/maxrichter/trackdash/internal/game"
	"github.com/maxrichter/trackdash/internal/provider/deezer"
	"github.com/maxrichter/trackdash/internal/provider/itunes"
	"github.com/maxrichter/trackdash/internal/tracks"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`trackdash - multiplayer music guessing game

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                 Port to listen on (default: 8080)
  COUNTDOWN_MS         Pre-round countdown (default: 3000)
  LOADING_MS           Media preload window, 0 disables (default: 2000)
  PLAYING_MS           Guessing window per round (default: 30000)
  REVEAL_MS            Answer reveal (default: 5000)
  LEADERBOARD_MS       Between-round leaderboard (default: 5000)
  MAX_ROUNDS           Rounds per game (default: 10)
  MAX_PLAYERS          Players per room (default: 12)
  START_TIMEOUT_MS     Pool resolution deadline at game start (default: 15000)
  TOPUP_SIZE           Background pool top-up target, 0 disables (default: 20)
  POOL_CACHE_TTL_MIN   Pool cache TTL in minutes (default: 30)
  RESOLVE_CACHE_TTL_HR Preview resolve cache TTL in hours (default: 72)
  RESOLVE_WORKERS      Concurrent preview re-resolutions (default: 4)
  FETCH_FACTOR         Raw candidates fetched per requested track (default: 3)
  RESOLVE_BUDGET       Re-resolution attempts per requested track (default: 2)
  MAX_POOL_SIZE        Hard clamp on a resolved pool size (default: 50)
  QUERY_FILL           Top up short pools via free-text search (default: true)
  DEEZER_BASE_URL      Override catalog endpoint (testing)
  ITUNES_BASE_URL      Override preview endpoint (testing)

Visit http://localhost:8080/health after starting the server.
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("trackdash %s\n", version)
		return
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()

	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if path == "/health" {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	catalog := deezer.New(cfg.DeezerBaseURL)
	previews := itunes.New(cfg.ITunesBaseURL)
	resolveCache := tracks.NewResolveCache(time.Duration(cfg.ResolveCacheTTLHr)*time.Hour, nil)
	resolver := tracks.NewResolver(catalog, previews, resolveCache, tracks.ResolverConfig{
		Workers:       cfg.ResolveWorkers,
		FetchFactor:   cfg.FetchFactor,
		ResolveBudget: cfg.ResolveBudget,
		MaxPoolSize:   cfg.MaxPoolSize,
		QueryFill:     cfg.QueryFill,
	}, zerologlog.With().Str("component", "resolver").Logger())
	poolCache := tracks.NewPoolCache(resolver.Resolve, time.Duration(cfg.PoolCacheTTLMin)*time.Minute, nil,
		zerologlog.With().Str("component", "poolcache").Logger())

	d := cfg.Durations()
	store := game.NewStore(poolCache, game.StoreConfig{
		MaxRounds:    cfg.MaxRounds,
		MaxPlayers:   cfg.MaxPlayers,
		StartTimeout: time.Duration(cfg.StartTimeoutMS) * time.Millisecond,
		TopUpSize:    cfg.TopUpSize,
		Durations: game.Durations{
			Countdown:   d.Countdown,
			Loading:     d.Loading,
			Playing:     d.Playing,
			Reveal:      d.Reveal,
			Leaderboard: d.Leaderboard,
		},
	}, nil, zerologlog.With().Str("component", "store").Logger())

	api.New(store, poolCache, zerologlog.With().Str("component", "api").Logger()).Mount(r)

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

// Package api is the thin route layer over the room store. It maps typed
// statuses to HTTP codes and carries no game logic of its own.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/maxrichter/trackdash/internal/game"
	"github.com/maxrichter/trackdash/internal/tracks"
)

type Server struct {
	store *game.Store
	cache *tracks.PoolCache
	log   zerolog.Logger
}

func New(store *game.Store, cache *tracks.PoolCache, log zerolog.Logger) *Server {
	return &Server{store: store, cache: cache, log: log}
}

func httpStatus(st game.Status) int {
	switch st {
	case game.StatusOK:
		return http.StatusOK
	case game.StatusNotFound:
		return http.StatusNotFound
	case game.StatusForbidden:
		return http.StatusForbidden
	case game.StatusInvalidInput:
		return http.StatusBadRequest
	case game.StatusRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusConflict
	}
}

func statusBody(st game.Status) gin.H { return gin.H{"status": st} }

// bind decodes the JSON body, logging and rejecting malformed requests.
func (srv *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		srv.log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return false
	}
	return true
}

// Mount attaches all routes to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/rooms", srv.createRoom)
	api.GET("/rooms", srv.publicRooms)
	api.GET("/rooms/:code", srv.roomState)
	api.GET("/rooms/:code/results", srv.roomResults)
	api.POST("/rooms/:code/join", srv.join)
	api.POST("/rooms/:code/leave", srv.leave)
	api.POST("/rooms/:code/ready", srv.ready)
	api.POST("/rooms/:code/kick", srv.kick)
	api.POST("/rooms/:code/source", srv.setSource)
	api.POST("/rooms/:code/start", srv.start)
	api.POST("/rooms/:code/answer", srv.answer)
	api.POST("/rooms/:code/draft", srv.draft)
	api.POST("/rooms/:code/skip-guess", srv.skipGuess)
	api.POST("/rooms/:code/skip-reveal", srv.skipReveal)
	api.POST("/rooms/:code/media-ready", srv.mediaReady)
	api.POST("/rooms/:code/skip-round", srv.skipRound)
	api.POST("/rooms/:code/replay", srv.replay)
	api.GET("/diagnostics", srv.diagnostics)
}

func (srv *Server) createRoom(c *gin.Context) {
	var req struct {
		Visibility game.Visibility `json:"visibility"`
		Source     string          `json:"source"`
	}
	if !srv.bind(c, &req) {
		return
	}
	code := srv.store.CreateRoom(req.Visibility, req.Source)
	c.JSON(http.StatusOK, gin.H{"roomCode": code})
}

func (srv *Server) join(c *gin.Context) {
	var req struct {
		Name   string `json:"name"`
		UserID string `json:"userId"`
	}
	if !srv.bind(c, &req) {
		return
	}
	var (
		playerID int
		st       game.Status
	)
	if req.UserID != "" {
		playerID, st = srv.store.JoinRoomAsUser(c.Param("code"), req.Name, req.UserID)
	} else {
		playerID, st = srv.store.JoinRoom(c.Param("code"), req.Name)
	}
	if st != game.StatusOK {
		c.JSON(httpStatus(st), statusBody(st))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st, "playerId": playerID})
}

type playerReq struct {
	PlayerID int `json:"playerId"`
}

func (srv *Server) leave(c *gin.Context) {
	var req playerReq
	if !srv.bind(c, &req) {
		return
	}
	st := srv.store.RemovePlayer(c.Param("code"), req.PlayerID)
	c.JSON(httpStatus(st), statusBody(st))
}

func (srv *Server) ready(c *gin.Context) {
	var req struct {
		PlayerID int  `json:"playerId"`
		Ready    bool `json:"ready"`
	}
	if !srv.bind(c, &req) {
		return
	}
	st := srv.store.SetPlayerReady(c.Param("code"), req.PlayerID, req.Ready)
	c.JSON(httpStatus(st), statusBody(st))
}

func (srv *Server) kick(c *gin.Context) {
	var req struct {
		PlayerID int `json:"playerId"`
		TargetID int `json:"targetId"`
	}
	if !srv.bind(c, &req) {
		return
	}
	st := srv.store.KickPlayer(c.Param("code"), req.PlayerID, req.TargetID)
	c.JSON(httpStatus(st), statusBody(st))
}

func (srv *Server) setSource(c *gin.Context) {
	var req struct {
		PlayerID int    `json:"playerId"`
		Source   string `json:"source"`
	}
	if !srv.bind(c, &req) {
		return
	}
	st := srv.store.SetRoomSource(c.Param("code"), req.PlayerID, req.Source)
	c.JSON(httpStatus(st), statusBody(st))
}

func (srv *Server) start(c *gin.Context) {
	var req playerReq
	if !srv.bind(c, &req) {
		return
	}
	res := srv.store.StartGame(c.Param("code"), req.PlayerID)
	body := gin.H{"status": res.Status}
	if res.RetryAfter > 0 {
		body["retryAfterMs"] = res.RetryAfter.Milliseconds()
	}
	c.JSON(httpStatus(res.Status), body)
}

func (srv *Server) answer(c *gin.Context) {
	var req struct {
		PlayerID int    `json:"playerId"`
		Value    string `json:"value"`
	}
	if !srv.bind(c, &req) {
		return
	}
	st := srv.store.SubmitAnswer(c.Param("code"), req.PlayerID, req.Value)
	c.JSON(httpStatus(st), statusBody(st))
}

func (srv *Server) draft(c *gin.Context) {
	var req struct {
		PlayerID int    `json:"playerId"`
		Value    string `json:"value"`
	}
	if !srv.bind(c, &req) {
		return
	}
	st := srv.store.SetDraftAnswer(c.Param("code"), req.PlayerID, req.Value)
	c.JSON(httpStatus(st), statusBody(st))
}

func (srv *Server) skipGuess(c *gin.Context) {
	var req playerReq
	if !srv.bind(c, &req) {
		return
	}
	st := srv.store.SkipGuess(c.Param("code"), req.PlayerID)
	c.JSON(httpStatus(st), statusBody(st))
}

func (srv *Server) skipReveal(c *gin.Context) {
	var req playerReq
	if !srv.bind(c, &req) {
		return
	}
	st := srv.store.SkipReveal(c.Param("code"), req.PlayerID)
	c.JSON(httpStatus(st), statusBody(st))
}

func (srv *Server) mediaReady(c *gin.Context) {
	var req playerReq
	if !srv.bind(c, &req) {
		return
	}
	st := srv.store.MarkMediaReady(c.Param("code"), req.PlayerID)
	c.JSON(httpStatus(st), statusBody(st))
}

func (srv *Server) skipRound(c *gin.Context) {
	var req playerReq
	if !srv.bind(c, &req) {
		return
	}
	st := srv.store.SkipCurrentRound(c.Param("code"), req.PlayerID)
	c.JSON(httpStatus(st), statusBody(st))
}

func (srv *Server) replay(c *gin.Context) {
	var req playerReq
	if !srv.bind(c, &req) {
		return
	}
	st := srv.store.ReplayRoom(c.Param("code"), req.PlayerID)
	c.JSON(httpStatus(st), statusBody(st))
}

func (srv *Server) roomState(c *gin.Context) {
	view := srv.store.RoomState(c.Param("code"))
	c.JSON(httpStatus(view.Status), view)
}

func (srv *Server) roomResults(c *gin.Context) {
	view := srv.store.RoomResults(c.Param("code"))
	c.JSON(httpStatus(view.Status), view)
}

func (srv *Server) publicRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": srv.store.PublicRooms()})
}

func (srv *Server) diagnostics(c *gin.Context) {
	diag := srv.store.Diagnostics()
	hits, misses, entries := srv.cache.Stats()
	c.JSON(http.StatusOK, gin.H{
		"store": diag,
		"cache": gin.H{"hits": hits, "misses": misses, "entries": entries},
	})
}

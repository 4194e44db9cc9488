package game

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maxrichter/trackdash/internal/tracks"
)

// TrackSource is the pool capability the store consumes; satisfied by
// tracks.PoolCache.
type TrackSource interface {
	GetOrBuild(ctx context.Context, query string, size int) ([]tracks.Track, error)
}

type StoreConfig struct {
	MaxRounds       int
	MaxPlayers      int
	Durations       Durations
	StartTimeout    time.Duration
	LeaderboardSize int
	ChoiceCount     int
	TopUpSize       int // pool size to grow toward after a game starts; 0 disables
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.MaxRounds <= 0 {
		c.MaxRounds = 10
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 12
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = 15 * time.Second
	}
	if c.LeaderboardSize <= 0 {
		c.LeaderboardSize = 10
	}
	if c.ChoiceCount <= 0 {
		c.ChoiceCount = 4
	}
	return c
}

// Store orchestrates all rooms. Lock order is store before room, never the
// reverse.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	preloads map[string]struct{} // room code -> in-flight top-up job

	source TrackSource
	cfg    StoreConfig
	clock  func() time.Time
	log    zerolog.Logger
}

func NewStore(source TrackSource, cfg StoreConfig, clock func() time.Time, log zerolog.Logger) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		rooms:    make(map[string]*Room),
		preloads: make(map[string]struct{}),
		source:   source,
		cfg:      cfg.withDefaults(),
		clock:    clock,
		log:      log,
	}
}

const roomCodeLen = 6

func randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

func (s *Store) room(code string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[strings.ToUpper(strings.TrimSpace(code))]
}

// tickRoom replays due phase transitions and settles every closed round.
// Callers hold the room lock.
func (s *Store) tickRoom(r *Room) {
	now := s.clock()
	for _, closed := range r.machine.Tick(now, s.cfg.Durations) {
		s.settleRound(r, closed)
	}
}

// CreateRoom returns the collision-free code of a fresh room.
func (s *Store) CreateRoom(visibility Visibility, sourceQuery string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := randomCode(roomCodeLen)
	for s.rooms[code] != nil {
		code = randomCode(roomCodeLen)
	}
	if visibility != VisibilityPublic {
		visibility = VisibilityPrivate
	}
	s.rooms[code] = newRoom(code, visibility, strings.TrimSpace(sourceQuery), s.clock())
	s.log.Info().Str("code", code).Str("visibility", string(visibility)).Msg("room created")
	return code
}

func (s *Store) JoinRoom(code, name string) (int, Status) {
	return s.join(code, name, "")
}

// JoinRoomAsUser attaches an external user identity; a blank ID gets one
// assigned.
func (s *Store) JoinRoomAsUser(code, name, userID string) (int, Status) {
	if userID == "" {
		userID = uuid.NewString()
	}
	return s.join(code, name, userID)
}

func (s *Store) join(code, name, userID string) (int, Status) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, StatusInvalidInput
	}
	r := s.room(code)
	if r == nil {
		return 0, StatusNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	if r.machine.Phase() == PhaseResults {
		return 0, StatusInvalidState
	}
	if len(r.players) >= s.cfg.MaxPlayers {
		return 0, StatusInvalidState
	}
	p := &Player{ID: r.nextPlayerID, Name: name, UserID: userID, JoinedAt: s.clock()}
	r.nextPlayerID++
	r.players = append(r.players, p)
	r.electHost()
	// A new joiner restarts the readiness gate.
	for _, q := range r.players {
		q.Ready = false
	}
	s.log.Info().Str("code", r.Code).Int("playerId", p.ID).Str("name", name).Msg("player joined")
	return p.ID, StatusOK
}

func (s *Store) SetRoomSource(code string, playerID int, query string) Status {
	query = strings.TrimSpace(query)
	if query == "" {
		return StatusInvalidInput
	}
	r := s.room(code)
	if r == nil {
		return StatusNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	if r.machine.Phase() != PhaseWaiting {
		return StatusInvalidState
	}
	if r.player(playerID) == nil {
		return StatusNotFound
	}
	if playerID != r.hostID {
		return StatusForbidden
	}
	r.SourceQuery = query
	return StatusOK
}

func (s *Store) SetPlayerReady(code string, playerID int, ready bool) Status {
	r := s.room(code)
	if r == nil {
		return StatusNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	if r.machine.Phase() != PhaseWaiting {
		return StatusInvalidState
	}
	p := r.player(playerID)
	if p == nil {
		return StatusNotFound
	}
	p.Ready = ready
	return StatusOK
}

func (s *Store) KickPlayer(code string, callerID, targetID int) Status {
	r := s.room(code)
	if r == nil {
		return StatusNotFound
	}
	r.mu.Lock()
	s.tickRoom(r)
	if r.machine.Phase() != PhaseWaiting {
		r.mu.Unlock()
		return StatusInvalidState
	}
	if r.player(callerID) == nil || r.player(targetID) == nil {
		r.mu.Unlock()
		return StatusNotFound
	}
	if callerID != r.hostID {
		r.mu.Unlock()
		return StatusForbidden
	}
	if callerID == targetID {
		r.mu.Unlock()
		return StatusInvalidInput
	}
	r.removePlayer(targetID)
	empty := len(r.players) == 0
	r.mu.Unlock()
	if empty {
		s.dropRoom(r.Code)
	}
	s.log.Info().Str("code", r.Code).Int("playerId", targetID).Msg("player kicked")
	return StatusOK
}

// RemovePlayer handles a player leaving in any phase. Removing the last
// player deletes the room and any in-flight preload job.
func (s *Store) RemovePlayer(code string, playerID int) Status {
	r := s.room(code)
	if r == nil {
		return StatusNotFound
	}
	r.mu.Lock()
	s.tickRoom(r)
	if !r.removePlayer(playerID) {
		r.mu.Unlock()
		return StatusNotFound
	}
	empty := len(r.players) == 0
	r.mu.Unlock()
	if empty {
		s.dropRoom(r.Code)
	}
	s.log.Info().Str("code", r.Code).Int("playerId", playerID).Msg("player left")
	return StatusOK
}

func (s *Store) dropRoom(code string) {
	s.mu.Lock()
	delete(s.rooms, code)
	delete(s.preloads, code)
	s.mu.Unlock()
	s.log.Info().Str("code", code).Msg("room removed")
}

// StartResult carries the typed outcome of a start attempt; RetryAfter is
// set when a provider rate limit caused the failure.
type StartResult struct {
	Status     Status        `json:"status"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
}

// StartGame resolves the track pool and starts the machine. On any failure
// the room stays in waiting so the host can retry or change source.
func (s *Store) StartGame(code string, playerID int) StartResult {
	r := s.room(code)
	if r == nil {
		return StartResult{Status: StatusNotFound}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	if r.machine.Phase() != PhaseWaiting {
		return StartResult{Status: StatusInvalidState}
	}
	if r.player(playerID) == nil {
		return StartResult{Status: StatusNotFound}
	}
	if playerID != r.hostID {
		return StartResult{Status: StatusForbidden}
	}
	if r.SourceQuery == "" {
		return StartResult{Status: StatusInvalidInput}
	}
	if len(r.players) == 0 || !r.allReady() {
		return StartResult{Status: StatusInvalidState}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StartTimeout)
	defer cancel()
	pool, err := s.source.GetOrBuild(ctx, r.SourceQuery, s.cfg.MaxRounds)
	if err != nil {
		if rl, ok := tracks.IsRateLimited(err); ok {
			return StartResult{Status: StatusRateLimited, RetryAfter: rl.RetryAfter}
		}
		s.log.Warn().Err(err).Str("code", r.Code).Str("query", r.SourceQuery).Msg("pool resolution failed")
		return StartResult{Status: StatusNoTracks}
	}
	if len(pool) == 0 {
		return StartResult{Status: StatusNoTracks}
	}

	r.pool = pool
	r.modes = make(map[int]RoundMode)
	r.choices = make(map[int][]string)
	r.reveal = nil
	r.resetStats()

	total := s.cfg.MaxRounds
	if total > len(pool) {
		total = len(pool)
	}
	now := s.clock()
	r.machine.Start(now, s.cfg.Durations.Countdown, total)
	s.log.Info().Str("code", r.Code).Int("rounds", total).Int("pool", len(pool)).Msg("game started")

	if s.cfg.TopUpSize > len(pool) {
		s.startTopUp(r.Code, r.SourceQuery)
	}
	return StartResult{Status: StatusOK}
}

// startTopUp grows the room's pool in the background. One outstanding job
// per room; concurrent requests collapse into the in-flight one, and a
// removed room simply never sees the result.
func (s *Store) startTopUp(code, query string) {
	s.mu.Lock()
	if _, busy := s.preloads[code]; busy {
		s.mu.Unlock()
		return
	}
	s.preloads[code] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.preloads, code)
			s.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StartTimeout)
		defer cancel()
		more, err := s.source.GetOrBuild(ctx, query, s.cfg.TopUpSize)
		if err != nil || len(more) == 0 {
			s.log.Debug().Err(err).Str("code", code).Msg("pool top-up yielded nothing")
			return
		}
		r := s.room(code)
		if r == nil {
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		seen := make(map[string]bool, len(r.pool))
		for _, t := range r.pool {
			seen[t.Signature()] = true
		}
		added := 0
		for _, t := range more {
			if seen[t.Signature()] {
				continue
			}
			seen[t.Signature()] = true
			r.pool = append(r.pool, t)
			added++
		}
		if added > 0 {
			s.log.Info().Str("code", code).Int("added", added).Msg("pool topped up")
		}
	}()
}

func (s *Store) SubmitAnswer(code string, playerID int, value string) Status {
	r := s.room(code)
	if r == nil {
		return StatusNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	if r.player(playerID) == nil {
		return StatusNotFound
	}
	if !r.machine.SubmitAnswer(playerID, value, s.clock()) {
		return StatusInvalidState
	}
	s.advanceIfAllDone(r)
	return StatusOK
}

func (s *Store) SetDraftAnswer(code string, playerID int, value string) Status {
	r := s.room(code)
	if r == nil {
		return StatusNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	if r.player(playerID) == nil {
		return StatusNotFound
	}
	if !r.machine.SetDraft(playerID, value) {
		return StatusInvalidState
	}
	return StatusOK
}

func (s *Store) SkipGuess(code string, playerID int) Status {
	r := s.room(code)
	if r == nil {
		return StatusNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	if r.player(playerID) == nil {
		return StatusNotFound
	}
	if !r.machine.SkipGuess(playerID) {
		return StatusInvalidState
	}
	s.advanceIfAllDone(r)
	return StatusOK
}

func (s *Store) SkipReveal(code string, playerID int) Status {
	r := s.room(code)
	if r == nil {
		return StatusNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	if r.player(playerID) == nil {
		return StatusNotFound
	}
	if !r.machine.SkipReveal(playerID) {
		return StatusInvalidState
	}
	if r.machine.RevealSkipCount() >= len(r.players) {
		r.machine.ExpireNow(s.clock())
		s.tickRoom(r)
	}
	return StatusOK
}

func (s *Store) MarkMediaReady(code string, playerID int) Status {
	r := s.room(code)
	if r == nil {
		return StatusNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	if r.player(playerID) == nil {
		return StatusNotFound
	}
	if !r.machine.MarkMediaReady(playerID) {
		return StatusInvalidState
	}
	if r.machine.MediaReadyCount() >= len(r.players) {
		r.machine.ExpireNow(s.clock())
		s.tickRoom(r)
	}
	return StatusOK
}

// advanceIfAllDone closes the guessing phase early once every roster member
// has committed or skipped.
func (s *Store) advanceIfAllDone(r *Room) {
	if r.machine.Phase() == PhasePlaying && r.machine.GuessDoneCount() >= len(r.players) {
		r.machine.ExpireNow(s.clock())
		s.tickRoom(r)
	}
}

// SkipCurrentRound is the host's force-advance out of the active phase.
func (s *Store) SkipCurrentRound(code string, playerID int) Status {
	r := s.room(code)
	if r == nil {
		return StatusNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	if r.player(playerID) == nil {
		return StatusNotFound
	}
	if playerID != r.hostID {
		return StatusForbidden
	}
	if !r.machine.ExpireNow(s.clock()) {
		return StatusInvalidState
	}
	s.tickRoom(r)
	return StatusOK
}

// ReplayRoom resets a finished room back to waiting for another game with
// the same roster.
func (s *Store) ReplayRoom(code string, playerID int) Status {
	r := s.room(code)
	if r == nil {
		return StatusNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	if r.machine.Phase() != PhaseResults {
		return StatusInvalidState
	}
	if r.player(playerID) == nil {
		return StatusNotFound
	}
	if playerID != r.hostID {
		return StatusForbidden
	}
	r.machine.ResetToWaiting()
	r.pool = nil
	r.modes = make(map[int]RoundMode)
	r.choices = make(map[int][]string)
	r.reveal = nil
	r.resetStats()
	s.log.Info().Str("code", r.Code).Msg("room reset for replay")
	return StatusOK
}

// settleRound scores one closed round for every player and stores the reveal
// payload all players consume regardless of when they poll.
func (s *Store) settleRound(r *Room, closed ClosedRound) {
	track, ok := r.roundTrack(closed.Round)
	if !ok {
		return
	}
	mode := r.roundMode(closed.Round)
	canonical := choiceText(track)
	window := closed.Deadline.Sub(closed.StartedAt)

	for _, p := range r.players {
		ans, answered := closed.Answers[p.ID]
		correct := false
		if answered {
			if mode == ModeChoices {
				correct = ans.Value == canonical
			} else {
				correct = MatchAny(ans.Value, track.Title, track.Artist, track.Title+" "+track.Artist)
			}
		}
		var latency time.Duration
		if correct {
			latency = ans.SubmittedAt.Sub(closed.StartedAt)
			if latency < 0 {
				latency = 0
			}
		}
		points, nextStreak := Score(correct, latency, window, p.Streak)
		p.Score += points
		p.Streak = nextStreak
		if nextStreak > p.MaxStreak {
			p.MaxStreak = nextStreak
		}
		if correct {
			p.Correct++
			p.TotalLatency += latency
		}
	}

	r.reveal = &RevealView{
		Round:      closed.Round,
		Title:      track.Title,
		Artist:     track.Artist,
		Answer:     canonical,
		PreviewURL: track.PreviewURL,
		PageURL:    track.PageURL,
	}
	s.log.Info().Str("code", r.Code).Int("round", closed.Round).Int("answers", len(closed.Answers)).Msg("round settled")
}

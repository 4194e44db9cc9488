package game

import "time"

// RevealView is the payload shown after a round closes: track identity, the
// accepted canonical answer and the media URLs.
type RevealView struct {
	Round      int    `json:"round"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Answer     string `json:"answer"`
	PreviewURL string `json:"previewUrl,omitempty"`
	PageURL    string `json:"pageUrl,omitempty"`
}

// MediaView is the playback surface for the active round.
type MediaView struct {
	PreviewURL string `json:"previewUrl"`
	PageURL    string `json:"pageUrl,omitempty"`
}

// StateView is the poll read model. Building it ticks the room first, so
// polling alone drives the game forward.
type StateView struct {
	Status      Status      `json:"status"`
	Code        string      `json:"code,omitempty"`
	Visibility  Visibility  `json:"visibility,omitempty"`
	Phase       Phase       `json:"phase,omitempty"`
	Round       int         `json:"round,omitempty"`
	TotalRounds int         `json:"totalRounds,omitempty"`
	Mode        RoundMode   `json:"mode,omitempty"`
	RemainingMS int64       `json:"remainingMs"`
	HostID      int         `json:"hostId,omitempty"`
	SourceQuery string      `json:"sourceQuery,omitempty"`
	Players     []Player    `json:"players,omitempty"`
	GuessDone   int         `json:"guessDone"`
	Choices     []string    `json:"choices,omitempty"`
	Media       *MediaView  `json:"media,omitempty"`
	Reveal      *RevealView `json:"reveal,omitempty"`
	Leaderboard []Player    `json:"leaderboard,omitempty"`
}

// RoomState ticks the room and assembles the read model scoped to the
// current phase.
func (s *Store) RoomState(code string) StateView {
	r := s.room(code)
	if r == nil {
		return StateView{Status: StatusNotFound}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)

	phase := r.machine.Phase()
	view := StateView{
		Status:      StatusOK,
		Code:        r.Code,
		Visibility:  r.Visibility,
		Phase:       phase,
		Round:       r.machine.Round(),
		TotalRounds: r.machine.TotalRounds(),
		HostID:      r.hostID,
		SourceQuery: r.SourceQuery,
		GuessDone:   r.machine.GuessDoneCount(),
	}
	for _, p := range r.players {
		view.Players = append(view.Players, *p)
	}
	if d := r.machine.Deadline(); d != nil {
		if remaining := d.Sub(s.clock()); remaining > 0 {
			view.RemainingMS = remaining.Milliseconds()
		}
	}

	switch phase {
	case PhaseLoading, PhasePlaying:
		round := r.machine.Round()
		view.Mode = r.roundMode(round)
		if t, ok := r.roundTrack(round); ok {
			view.Media = &MediaView{PreviewURL: t.PreviewURL, PageURL: t.PageURL}
		}
		if phase == PhasePlaying && view.Mode == ModeChoices {
			view.Choices = append([]string(nil), r.roundChoices(round, s.cfg.ChoiceCount)...)
		}
	case PhaseReveal, PhaseLeaderboard, PhaseResults:
		if r.reveal != nil {
			reveal := *r.reveal
			view.Reveal = &reveal
		}
		ranked := rankPlayers(r.players)
		if len(ranked) > s.cfg.LeaderboardSize {
			ranked = ranked[:s.cfg.LeaderboardSize]
		}
		view.Leaderboard = ranked
	}
	return view
}

// ResultsView is the final standing of a room.
type ResultsView struct {
	Status  Status   `json:"status"`
	Code    string   `json:"code,omitempty"`
	Phase   Phase    `json:"phase,omitempty"`
	Ranking []Player `json:"ranking,omitempty"`
}

// RoomResults returns the full ranked standings.
func (s *Store) RoomResults(code string) ResultsView {
	r := s.room(code)
	if r == nil {
		return ResultsView{Status: StatusNotFound}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.tickRoom(r)
	return ResultsView{
		Status:  StatusOK,
		Code:    r.Code,
		Phase:   r.machine.Phase(),
		Ranking: rankPlayers(r.players),
	}
}

// PublicRoomView advertises a joinable public room.
type PublicRoomView struct {
	Code        string    `json:"code"`
	Players     int       `json:"players"`
	SourceQuery string    `json:"sourceQuery,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PublicRooms lists public rooms still in waiting.
func (s *Store) PublicRooms() []PublicRoomView {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.RUnlock()

	out := make([]PublicRoomView, 0, len(rooms))
	for _, r := range rooms {
		// A room locked by an in-flight operation (a start resolving its
		// pool can hold the lock for seconds) is skipped rather than
		// stalling discovery; it is not joinable at this instant anyway.
		if !r.mu.TryLock() {
			continue
		}
		s.tickRoom(r)
		if r.Visibility == VisibilityPublic && r.machine.Phase() == PhaseWaiting {
			out = append(out, PublicRoomView{
				Code:        r.Code,
				Players:     len(r.players),
				SourceQuery: r.SourceQuery,
				CreatedAt:   r.CreatedAt,
			})
		}
		r.mu.Unlock()
	}
	return out
}

// DiagnosticsView carries store-level counters.
type DiagnosticsView struct {
	Rooms       int `json:"rooms"`
	Players     int `json:"players"`
	ActiveGames int `json:"activeGames"`
	TopUpJobs   int `json:"topUpJobs"`
}

func (s *Store) Diagnostics() DiagnosticsView {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	jobs := len(s.preloads)
	s.mu.RUnlock()

	view := DiagnosticsView{Rooms: len(rooms), TopUpJobs: jobs}
	for _, r := range rooms {
		// Counters tolerate missing a busy room; blocking diagnostics
		// behind a slow start does not.
		if !r.mu.TryLock() {
			continue
		}
		view.Players += len(r.players)
		phase := r.machine.Phase()
		if phase != PhaseWaiting && phase != PhaseResults {
			view.ActiveGames++
		}
		r.mu.Unlock()
	}
	return view
}

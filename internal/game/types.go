package game

import "time"

type Phase string

const (
	PhaseWaiting     Phase = "waiting"
	PhaseCountdown   Phase = "countdown"
	PhaseLoading     Phase = "loading"
	PhasePlaying     Phase = "playing"
	PhaseReveal      Phase = "reveal"
	PhaseLeaderboard Phase = "leaderboard"
	PhaseResults     Phase = "results"
)

// RoundMode alternates per round: odd rounds present multiple choice, even
// rounds accept free text.
type RoundMode string

const (
	ModeChoices  RoundMode = "choices"
	ModeFreeText RoundMode = "freetext"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Durations configures the phase lengths the machine ticks through. A zero
// Loading skips the loading phase entirely.
type Durations struct {
	Countdown   time.Duration
	Loading     time.Duration
	Playing     time.Duration
	Reveal      time.Duration
	Leaderboard time.Duration
}

type Player struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	UserID       string        `json:"userId,omitempty"`
	Ready        bool          `json:"ready"`
	Score        int           `json:"score"`
	Streak       int           `json:"streak"`
	MaxStreak    int           `json:"maxStreak"`
	Correct      int           `json:"correct"`
	TotalLatency time.Duration `json:"-"`
	JoinedAt     time.Time     `json:"joinedAt"`
}

// Answer is a committed guess. Drafts promoted at round close are stamped at
// the round deadline, not at the draft's original timestamp.
type Answer struct {
	Value       string    `json:"value"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ClosedRound is what Tick hands back for every round that transitioned out
// of playing; the store settles scores from it.
type ClosedRound struct {
	Round     int
	StartedAt time.Time
	Deadline  time.Time
	Answers   map[int]Answer
}

// Status discriminates expected failure conditions; operations never panic
// or return Go errors for game-flow outcomes.
type Status string

const (
	StatusOK           Status = "ok"
	StatusNotFound     Status = "not_found"
	StatusForbidden    Status = "forbidden"
	StatusInvalidState Status = "invalid_state"
	StatusInvalidInput Status = "invalid_input"
	StatusNoTracks     Status = "no_tracks"
	StatusRateLimited  Status = "rate_limited"
)

package game

import (
	"strings"
	"time"
)

// Machine owns one room's temporal progression. It has no timer of its own:
// Tick is the only driver of phase transitions, so every external read must
// tick first. That keeps the machine deterministic under injected clocks and
// tolerant of arbitrary request gaps.
type Machine struct {
	phase          Phase
	round          int // 1-based, 0 before the first round
	totalRounds    int
	deadline       *time.Time // nil iff waiting or results
	roundStartedAt time.Time

	answers     map[int]Answer
	drafts      map[int]string
	guessSkips  map[int]struct{}
	revealSkips map[int]struct{}
	mediaReady  map[int]struct{}
}

func NewMachine() *Machine {
	m := &Machine{phase: PhaseWaiting}
	m.resetRound()
	return m
}

func (m *Machine) Phase() Phase     { return m.phase }
func (m *Machine) Round() int       { return m.round }
func (m *Machine) TotalRounds() int { return m.totalRounds }

// Deadline returns a copy of the active phase deadline, nil in waiting and
// results.
func (m *Machine) Deadline() *time.Time {
	if m.deadline == nil {
		return nil
	}
	d := *m.deadline
	return &d
}

func (m *Machine) RoundStartedAt() time.Time { return m.roundStartedAt }

// Start begins a game from waiting. Returns false without mutating anything
// if the machine is in any other phase.
func (m *Machine) Start(now time.Time, countdown time.Duration, totalRounds int) bool {
	if m.phase != PhaseWaiting {
		return false
	}
	m.resetRound()
	m.round = 0
	m.totalRounds = totalRounds
	m.phase = PhaseCountdown
	d := now.Add(countdown)
	m.deadline = &d
	return true
}

// Tick replays every phase expiry up to now in one call, so a single delayed
// read fast-forwards through missed phases. Rounds that transition out of
// playing are returned for settlement.
func (m *Machine) Tick(now time.Time, d Durations) []ClosedRound {
	var closed []ClosedRound
	for m.deadline != nil && !now.Before(*m.deadline) {
		at := *m.deadline
		switch m.phase {
		case PhaseCountdown:
			if m.totalRounds <= 0 {
				m.finish()
				continue
			}
			m.beginRound(at, d)
		case PhaseLoading:
			m.beginPlaying(at, d)
		case PhasePlaying:
			closed = append(closed, m.closeRound(at))
			m.phase = PhaseReveal
			next := at.Add(d.Reveal)
			m.deadline = &next
		case PhaseReveal:
			m.phase = PhaseLeaderboard
			next := at.Add(d.Leaderboard)
			m.deadline = &next
		case PhaseLeaderboard:
			if m.round >= m.totalRounds {
				m.finish()
			} else {
				m.beginRound(at, d)
			}
		default:
			m.deadline = nil
		}
	}
	return closed
}

// SubmitAnswer commits a guess; first commit wins and clears any draft.
func (m *Machine) SubmitAnswer(playerID int, value string, now time.Time) bool {
	if m.phase != PhasePlaying || m.deadline == nil || !now.Before(*m.deadline) {
		return false
	}
	if m.guessDone(playerID) {
		return false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	m.answers[playerID] = Answer{Value: value, SubmittedAt: now}
	delete(m.drafts, playerID)
	return true
}

// SetDraft holds an uncommitted free-text guess; promoted at round close if
// never submitted.
func (m *Machine) SetDraft(playerID int, value string) bool {
	if m.phase != PhasePlaying || m.guessDone(playerID) {
		return false
	}
	m.drafts[playerID] = strings.TrimSpace(value)
	return true
}

// SkipGuess marks the player guess-done without credit and blocks further
// submission for the round.
func (m *Machine) SkipGuess(playerID int) bool {
	if m.phase != PhasePlaying || m.guessDone(playerID) {
		return false
	}
	m.guessSkips[playerID] = struct{}{}
	delete(m.drafts, playerID)
	return true
}

func (m *Machine) SkipReveal(playerID int) bool {
	if m.phase != PhaseReveal {
		return false
	}
	if _, done := m.revealSkips[playerID]; done {
		return false
	}
	m.revealSkips[playerID] = struct{}{}
	return true
}

func (m *Machine) MarkMediaReady(playerID int) bool {
	if m.phase != PhaseLoading {
		return false
	}
	if _, done := m.mediaReady[playerID]; done {
		return false
	}
	m.mediaReady[playerID] = struct{}{}
	return true
}

// GuessDoneCount counts players who committed or skipped; answers and skips
// are mutually exclusive so the sum is exact.
func (m *Machine) GuessDoneCount() int  { return len(m.answers) + len(m.guessSkips) }
func (m *Machine) RevealSkipCount() int { return len(m.revealSkips) }
func (m *Machine) MediaReadyCount() int { return len(m.mediaReady) }

// ExpireNow collapses the active deadline to now so the next Tick advances
// immediately. Used for host force-skip and everyone-done early advance.
func (m *Machine) ExpireNow(now time.Time) bool {
	if m.deadline == nil {
		return false
	}
	if now.Before(*m.deadline) {
		d := now
		m.deadline = &d
	}
	return true
}

// DropPlayer removes every trace of a departed player from per-round state.
func (m *Machine) DropPlayer(playerID int) {
	delete(m.answers, playerID)
	delete(m.drafts, playerID)
	delete(m.guessSkips, playerID)
	delete(m.revealSkips, playerID)
	delete(m.mediaReady, playerID)
}

// ResetToWaiting hard-resets all per-round state; used by replay.
func (m *Machine) ResetToWaiting() {
	m.phase = PhaseWaiting
	m.round = 0
	m.totalRounds = 0
	m.deadline = nil
	m.roundStartedAt = time.Time{}
	m.resetRound()
}

func (m *Machine) guessDone(playerID int) bool {
	if _, ok := m.answers[playerID]; ok {
		return true
	}
	_, skipped := m.guessSkips[playerID]
	return skipped
}

func (m *Machine) beginRound(at time.Time, d Durations) {
	m.round++
	m.resetRound()
	if d.Loading > 0 {
		m.phase = PhaseLoading
		next := at.Add(d.Loading)
		m.deadline = &next
		return
	}
	m.beginPlaying(at, d)
}

func (m *Machine) beginPlaying(at time.Time, d Durations) {
	m.phase = PhasePlaying
	m.roundStartedAt = at
	next := at.Add(d.Playing)
	m.deadline = &next
}

// closeRound merges committed answers with non-empty, non-skipped drafts,
// stamping promoted drafts at the deadline.
func (m *Machine) closeRound(at time.Time) ClosedRound {
	answers := make(map[int]Answer, len(m.answers)+len(m.drafts))
	for id, a := range m.answers {
		answers[id] = a
	}
	for id, draft := range m.drafts {
		if draft == "" {
			continue
		}
		if _, committed := answers[id]; committed {
			continue
		}
		if _, skipped := m.guessSkips[id]; skipped {
			continue
		}
		answers[id] = Answer{Value: draft, SubmittedAt: at}
	}
	return ClosedRound{Round: m.round, StartedAt: m.roundStartedAt, Deadline: at, Answers: answers}
}

func (m *Machine) finish() {
	m.phase = PhaseResults
	m.deadline = nil
}

func (m *Machine) resetRound() {
	m.answers = make(map[int]Answer)
	m.drafts = make(map[int]string)
	m.guessSkips = make(map[int]struct{})
	m.revealSkips = make(map[int]struct{})
	m.mediaReady = make(map[int]struct{})
}

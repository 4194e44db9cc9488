package game

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/maxrichter/trackdash/internal/tracks"
)

// Room is one isolated game session. All mutation happens through Store
// operations holding mu; rounds are driven by the embedded Machine.
type Room struct {
	mu sync.Mutex

	Code        string
	Visibility  Visibility
	SourceQuery string
	CreatedAt   time.Time

	players      []*Player // insertion-ordered
	nextPlayerID int
	hostID       int

	machine *Machine
	pool    []tracks.Track
	modes   map[int]RoundMode
	choices map[int][]string
	reveal  *RevealView
}

func newRoom(code string, visibility Visibility, sourceQuery string, now time.Time) *Room {
	return &Room{
		Code:         code,
		Visibility:   visibility,
		SourceQuery:  sourceQuery,
		CreatedAt:    now,
		nextPlayerID: 1,
		machine:      NewMachine(),
		modes:        make(map[int]RoundMode),
		choices:      make(map[int][]string),
	}
}

func (r *Room) player(id int) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) removePlayer(id int) bool {
	for i, p := range r.players {
		if p.ID == id {
			r.players = append(r.players[:i], r.players[i+1:]...)
			r.machine.DropPlayer(id)
			r.electHost()
			return true
		}
	}
	return false
}

// electHost keeps the current host if still present, otherwise promotes the
// earliest-joined remaining player.
func (r *Room) electHost() {
	if r.player(r.hostID) != nil {
		return
	}
	if len(r.players) == 0 {
		r.hostID = 0
		return
	}
	r.hostID = r.players[0].ID
}

func (r *Room) allReady() bool {
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (r *Room) resetStats() {
	for _, p := range r.players {
		p.Ready = false
		p.Score = 0
		p.Streak = 0
		p.MaxStreak = 0
		p.Correct = 0
		p.TotalLatency = 0
	}
}

// roundMode is computed lazily and memoized per round index: odd rounds are
// multiple choice, even rounds free text.
func (r *Room) roundMode(round int) RoundMode {
	if m, ok := r.modes[round]; ok {
		return m
	}
	mode := ModeChoices
	if round%2 == 0 {
		mode = ModeFreeText
	}
	r.modes[round] = mode
	return mode
}

// roundTrack returns the track backing a 1-based round index.
func (r *Room) roundTrack(round int) (tracks.Track, bool) {
	if round < 1 || round > len(r.pool) {
		return tracks.Track{}, false
	}
	return r.pool[round-1], true
}

func choiceText(t tracks.Track) string {
	return t.Title + " - " + t.Artist
}

// roundChoices builds the multiple-choice set for a round exactly once and
// memoizes it, so re-polling keeps stable choices. Distractors come from the
// rest of the pool, excluding correct answers of earlier rounds. A pool with
// fewer distinct title/artist texts than count yields a shorter set rather
// than inventing options; the correct answer is always present.
func (r *Room) roundChoices(round, count int) []string {
	if c, ok := r.choices[round]; ok {
		return c
	}
	track, ok := r.roundTrack(round)
	if !ok {
		return nil
	}
	correct := choiceText(track)

	used := make(map[string]bool, round)
	for i := 1; i < round; i++ {
		if t, ok := r.roundTrack(i); ok {
			used[choiceText(t)] = true
		}
	}

	var fresh, fallback []string
	seen := map[string]bool{correct: true}
	for i, t := range r.pool {
		if i == round-1 {
			continue
		}
		text := choiceText(t)
		if seen[text] {
			continue
		}
		seen[text] = true
		if used[text] {
			fallback = append(fallback, text)
			continue
		}
		fresh = append(fresh, text)
	}
	rand.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
	rand.Shuffle(len(fallback), func(i, j int) { fallback[i], fallback[j] = fallback[j], fallback[i] })

	options := []string{correct}
	for _, pool := range [][]string{fresh, fallback} {
		for _, text := range pool {
			if len(options) >= count {
				break
			}
			options = append(options, text)
		}
	}
	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	r.choices[round] = options
	return options
}

// meanLatency is the tie-break average over correct answers; players with no
// correct answer sort after anyone with at least one.
func meanLatency(p *Player) float64 {
	if p.Correct == 0 {
		return math.Inf(1)
	}
	return float64(p.TotalLatency) / float64(p.Correct)
}

// rankPlayers orders by score desc, max streak desc, mean response time over
// correct answers asc, stable by join order.
func rankPlayers(players []*Player) []Player {
	ranked := make([]Player, len(players))
	for i, p := range players {
		ranked[i] = *p
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := &ranked[i], &ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.MaxStreak != b.MaxStreak {
			return a.MaxStreak > b.MaxStreak
		}
		return meanLatency(a) < meanLatency(b)
	})
	return ranked
}

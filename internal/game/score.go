package game

import "time"

// Scoring knobs. Tunables, not invariants: points for a correct answer are
// base + a linear time bonus on the remaining window + a capped streak bonus.
const (
	basePoints      = 100
	timeBonusMax    = 400
	streakBonusStep = 50
	streakBonusCap  = 5
)

// Score is a pure function from correctness, response latency within the
// guessing window and the current streak to points earned and the next
// streak. Incorrect answers always yield zero points and reset the streak.
// For fixed streak, points are non-increasing in latency.
func Score(correct bool, latency, window time.Duration, streak int) (points, nextStreak int) {
	if !correct {
		return 0, 0
	}
	points = basePoints
	if window > 0 {
		remaining := window - latency
		if remaining < 0 {
			remaining = 0
		}
		points += int(int64(timeBonusMax) * int64(remaining) / int64(window))
	}
	bonus := streak
	if bonus > streakBonusCap {
		bonus = streakBonusCap
	}
	points += bonus * streakBonusStep
	return points, streak + 1
}

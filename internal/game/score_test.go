package game

import (
	"testing"
	"time"
)

func TestScoreIncorrectAlwaysZero(t *testing.T) {
	for _, streak := range []int{0, 1, 7} {
		points, next := Score(false, time.Second, 30*time.Second, streak)
		if points != 0 {
			t.Fatalf("incorrect answer earned %d points", points)
		}
		if next != 0 {
			t.Fatalf("incorrect answer should reset streak, got %d", next)
		}
	}
}

func TestScoreNonIncreasingInLatency(t *testing.T) {
	window := 30 * time.Second
	prev := -1
	for latency := window; latency >= 0; latency -= time.Second {
		points, _ := Score(true, latency, window, 2)
		if prev >= 0 && points < prev {
			t.Fatalf("points decreased as latency dropped: %d -> %d at %s", prev, points, latency)
		}
		prev = points
	}
}

func TestScoreStreakProgression(t *testing.T) {
	window := 30 * time.Second
	streak := 0
	var prev int
	for i := 0; i < 4; i++ {
		points, next := Score(true, 10*time.Second, window, streak)
		if points <= 0 {
			t.Fatalf("correct answer should earn points, got %d", points)
		}
		if next != streak+1 {
			t.Fatalf("expected streak %d, got %d", streak+1, next)
		}
		if i > 0 && points < prev {
			t.Fatalf("growing streak should not lower points: %d -> %d", prev, points)
		}
		prev, streak = points, next
	}
}

func TestScoreStreakBonusCapped(t *testing.T) {
	window := 30 * time.Second
	atCap, _ := Score(true, 10*time.Second, window, streakBonusCap)
	beyond, _ := Score(true, 10*time.Second, window, streakBonusCap+5)
	if atCap != beyond {
		t.Fatalf("streak bonus should cap: %d vs %d", atCap, beyond)
	}
}

func TestScoreLatencyBeyondWindowClamped(t *testing.T) {
	window := 30 * time.Second
	slow, _ := Score(true, window+time.Minute, window, 0)
	atEdge, _ := Score(true, window, window, 0)
	if slow != atEdge {
		t.Fatalf("latency beyond the window should clamp: %d vs %d", slow, atEdge)
	}
	if slow != basePoints {
		t.Fatalf("expected base points with no time bonus, got %d", slow)
	}
}

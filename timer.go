package raft

import (
	"math/rand"
	"time"
)

// randomDuration draws uniformly from [base, 4*base), the jitter window of
// the Follower/Candidate election timers. The Leader's heartbeat is not
// jittered: it runs on a fixed-interval time.Ticker at HeartbeatBase.
func randomDuration(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return base + time.Duration(rand.Int63n(int64(3*base)))
}

func newRandomTimer(base time.Duration) *time.Timer {
	return time.NewTimer(randomDuration(base))
}

// resetTimer drains a possibly-already-fired timer before rearming it, the
// standard idiom for time.Timer.Reset on a timer that might be selected on
// concurrently with the reset.
func resetTimer(t *time.Timer, base time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(randomDuration(base))
}

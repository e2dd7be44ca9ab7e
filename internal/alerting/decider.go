package alerting

import (
	"time"

	"lookout/internal/watchlist"
)

const (
	// DefaultThreshold is the similarity above which two faces count as
	// the same person.
	DefaultThreshold float32 = 0.52

	// DefaultCooldown is the minimum gap between emitted alerts.
	DefaultCooldown = 60 * time.Second

	// missLimit is how many consecutive below-threshold whitelist frames
	// it takes before an absence alert fires.
	missLimit = 3
)

// Decision is an alert the decider chose to emit. Name is empty for
// whitelist absence alerts, where no enrolled identity was recognized.
type Decision struct {
	Time  time.Time          `json:"time"`
	Mode  watchlist.FaceType `json:"mode"`
	Name  string             `json:"name,omitempty"`
	Score float32            `json:"score"`
}

// Decider is the per-session alert state machine. It is not safe for
// concurrent use; the pipeline calls it from a single goroutine.
//
// Blacklist mode alerts when a watched face is recognized. Whitelist mode
// alerts when three consecutive frames each contained a face that matched
// no trusted identity; frames with no face at all neither advance nor reset
// the counter. Either way an eligible alert is emitted only when the
// cooldown since the previous alert has elapsed, and cooled-down alerts are
// dropped rather than queued.
type Decider struct {
	mode      watchlist.FaceType
	threshold float32
	cooldown  time.Duration

	lastAlert time.Time
	misses    int
}

// NewDecider builds a fresh decider for one monitoring session. A zero or
// negative cooldown falls back to DefaultCooldown.
func NewDecider(mode watchlist.FaceType, threshold float32, cooldown time.Duration) *Decider {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Decider{mode: mode, threshold: threshold, cooldown: cooldown}
}

// Mode returns the face type this decider watches for.
func (d *Decider) Mode() watchlist.FaceType {
	return d.mode
}

// Evaluate folds one frame's match result into the session state and
// returns a Decision when an alert should go out, nil otherwise.
func (d *Decider) Evaluate(res watchlist.MatchResult, now time.Time) *Decision {
	switch d.mode {
	case watchlist.Blacklist:
		return d.evaluateBlacklist(res.Blacklist, now)
	case watchlist.Whitelist:
		return d.evaluateWhitelist(res.Whitelist, now)
	default:
		return nil
	}
}

func (d *Decider) evaluateBlacklist(match *watchlist.Match, now time.Time) *Decision {
	if match == nil || match.Score < d.threshold {
		return nil
	}
	if !d.pastCooldown(now) {
		return nil
	}
	d.lastAlert = now
	return &Decision{Time: now, Mode: watchlist.Blacklist, Name: match.Name, Score: match.Score}
}

func (d *Decider) evaluateWhitelist(match *watchlist.Match, now time.Time) *Decision {
	if match == nil {
		// No face in frame or empty list: the streak is neither
		// broken nor extended.
		return nil
	}
	if match.Score >= d.threshold {
		d.misses = 0
		return nil
	}

	d.misses++
	if d.misses < missLimit {
		return nil
	}

	// The streak completed; it resets here whether or not the cooldown
	// lets the alert through.
	d.misses = 0
	if !d.pastCooldown(now) {
		return nil
	}
	d.lastAlert = now
	return &Decision{Time: now, Mode: watchlist.Whitelist, Score: match.Score}
}

func (d *Decider) pastCooldown(now time.Time) bool {
	return d.lastAlert.IsZero() || now.Sub(d.lastAlert) >= d.cooldown
}

package engine

import (
	"sync/atomic"
	"time"

	"github.com/hailam/kingfisher/internal/board"
)

// Limits contains the search constraints for one "go" command.
type Limits struct {
	Time      [2]time.Duration // remaining time per color
	Inc       [2]time.Duration // increment per move per color
	MovesToGo int              // moves until the next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move
	Depth     int              // maximum depth (0 = no limit)
	Nodes     uint64           // maximum nodes (0 = no limit)
	Infinite  bool             // search until stopped
	Ponder    bool             // start in ponder mode
	Overhead  time.Duration    // per-move lag reserve (0 = default)
}

const (
	moveOverhead     = 10 * time.Millisecond
	defaultMovesToGo = 25
	hardStopPollMask = 2047 // hard limit polled every 2048 nodes
	minSoftScale     = 30   // stability floor, hundredths
	maxSoftScale     = 250  // regression ceiling, hundredths
	ponderSoftScale  = 50   // after a ponder hit part of the work is already done
)

// TimeManager computes and enforces the soft and hard limits for one
// search. The soft limit is checked between iterations and decides
// whether another iteration is worth starting; the hard limit is polled
// inside the search and aborts it outright.
type TimeManager struct {
	start   time.Time
	soft    time.Duration
	hard    time.Duration
	limited bool
}

// NewTimeManager derives time limits from the go parameters for the side
// to move.
func NewTimeManager(limits Limits, us board.Color) *TimeManager {
	tm := &TimeManager{start: time.Now()}

	if limits.MoveTime > 0 {
		tm.limited = true
		tm.soft = limits.MoveTime
		tm.hard = limits.MoveTime
		return tm
	}

	if limits.Infinite || limits.Time[us] == 0 {
		return tm
	}

	tm.limited = true

	overhead := limits.Overhead
	if overhead <= 0 {
		overhead = moveOverhead
	}
	usable := limits.Time[us] - overhead
	if usable < 10*time.Millisecond {
		// Flagging: move instantly on whatever the last iteration found.
		tm.soft = time.Millisecond
		tm.hard = time.Millisecond
		return tm
	}

	mtg := limits.MovesToGo
	if mtg <= 0 {
		mtg = defaultMovesToGo
	}

	base := usable / time.Duration(mtg)
	tm.soft = base + 3*limits.Inc[us]/4
	tm.hard = min64(3*usable/10, 3*tm.soft)
	if tm.soft > tm.hard {
		tm.soft = tm.hard
	}
	return tm
}

func min64(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// Elapsed returns the time since the search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.start)
}

// SoftLimit returns the base soft limit.
func (tm *TimeManager) SoftLimit() time.Duration {
	return tm.soft
}

// HardLimit returns the hard limit.
func (tm *TimeManager) HardLimit() time.Duration {
	return tm.hard
}

// HardExceeded reports whether the hard limit has passed.
func (tm *TimeManager) HardExceeded() bool {
	return tm.limited && tm.Elapsed() >= tm.hard
}

// SoftExceeded reports whether the soft limit, scaled by the given
// hundredths factor and clamped to the hard limit, has passed. Called
// between iterations.
func (tm *TimeManager) SoftExceeded(scale int) bool {
	if !tm.limited {
		return false
	}
	soft := tm.soft * time.Duration(scale) / 100
	if soft > tm.hard {
		soft = tm.hard
	}
	return tm.Elapsed() >= soft
}

// SearchControl carries the shared stop state of a running search. All
// search threads poll the stop flag; the soft scale is adjusted by the
// coordinator as iterations complete.
type SearchControl struct {
	stop      atomic.Bool
	softScale atomic.Int64 // hundredths
	pondering atomic.Bool
}

// NewSearchControl returns a control block ready for one search.
func NewSearchControl(ponder bool) *SearchControl {
	sc := &SearchControl{}
	sc.softScale.Store(100)
	sc.pondering.Store(ponder)
	return sc
}

// Stop signals all search threads to stop.
func (sc *SearchControl) Stop() {
	sc.stop.Store(true)
}

// Stopped reports whether the search has been told to stop.
func (sc *SearchControl) Stopped() bool {
	return sc.stop.Load()
}

// SetSoftScale updates the soft-limit scale in hundredths.
func (sc *SearchControl) SetSoftScale(scale int) {
	sc.softScale.Store(int64(clamp(scale, minSoftScale, maxSoftScale)))
}

// SoftScale returns the current soft-limit scale in hundredths.
func (sc *SearchControl) SoftScale() int {
	return int(sc.softScale.Load())
}

// Pondering reports whether the search is still in ponder mode. While
// pondering, time limits do not apply.
func (sc *SearchControl) Pondering() bool {
	return sc.pondering.Load()
}

// PonderHit switches from pondering to a normal timed search. The work
// already done while pondering shortens the remaining soft budget.
func (sc *SearchControl) PonderHit() {
	if sc.pondering.CompareAndSwap(true, false) {
		sc.softScale.Store(ponderSoftScale)
	}
}

// StabilityTracker adjusts the soft limit based on how settled the best
// move is across iterations: a move that survives many iterations
// deserves less time, a score collapse deserves more.
type StabilityTracker struct {
	bestMove  board.Move
	lastScore int
	stable    int
	started   bool
}

// Update feeds the result of a completed iteration and returns the new
// soft-limit scale in hundredths.
func (st *StabilityTracker) Update(best board.Move, score int) int {
	if !st.started {
		st.bestMove = best
		st.lastScore = score
		st.started = true
		return 100
	}

	if best == st.bestMove {
		st.stable++
	} else {
		st.bestMove = best
		st.stable = 0
	}

	scale := 100
	switch {
	case st.stable >= 5:
		scale = minSoftScale
	case st.stable > 0:
		scale = 100 - 14*st.stable
	}

	// Score regression: the position is turning out worse than the last
	// iteration thought, spend extra time resolving it.
	if drop := st.lastScore - score; drop > 20 {
		scale += drop * 2
		if scale > maxSoftScale {
			scale = maxSoftScale
		}
	}
	st.lastScore = score

	return clamp(scale, minSoftScale, maxSoftScale)
}

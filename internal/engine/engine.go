package engine

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/kingfisher/internal/board"
	"github.com/hailam/kingfisher/internal/book"
	"github.com/hailam/kingfisher/internal/tablebase"
)

// SearchInfo is a progress report for one completed iteration.
type SearchInfo struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	NPS      uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int
}

// SearchResult is the final outcome of a search.
type SearchResult struct {
	BestMove board.Move
	Ponder   board.Move
	Score    int
	Depth    int
	Nodes    uint64
}

// Options configures a new engine.
type Options struct {
	HashMB   int
	Threads  int
	Contempt int
}

// Engine coordinates a Lazy SMP search: all workers share one
// transposition table and run independent iterative deepening loops; the
// coordinator keeps the deepest completed result and manages time.
type Engine struct {
	tt       *TranspositionTable
	workers  []*Worker
	contempt int

	openingBook *book.Book
	prober      tablebase.Prober

	control *SearchControl

	// OnInfo, when set, receives a report after each completed depth.
	OnInfo func(SearchInfo)
}

// NewEngine creates an engine with the given options. Zero values fall
// back to 64 MB, one thread, no contempt.
func NewEngine(opts Options) *Engine {
	if opts.HashMB <= 0 {
		opts.HashMB = 64
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}

	e := &Engine{
		tt:       NewTranspositionTable(opts.HashMB),
		contempt: opts.Contempt,
		prober:   tablebase.NoopProber{},
	}
	e.SetThreads(opts.Threads)
	return e
}

// SetThreads resizes the worker pool.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	e.workers = e.workers[:0]
	for id := 0; id < n; id++ {
		e.workers = append(e.workers, NewWorker(id, e.tt, nil, nil))
	}
}

// SetHashSize replaces the transposition table with one of the given size
// in MB. Never call during a search.
func (e *Engine) SetHashSize(mb int) {
	if mb < 1 {
		mb = 1
	}
	e.tt = NewTranspositionTable(mb)
	for _, w := range e.workers {
		w.tt = e.tt
	}
}

// SetContempt sets the draw contempt in centipawns.
func (e *Engine) SetContempt(c int) {
	e.contempt = c
}

// SetBook installs an opening book probed before searching.
func (e *Engine) SetBook(b *book.Book) {
	e.openingBook = b
}

// SetProber installs an endgame tablebase prober.
func (e *Engine) SetProber(p tablebase.Prober) {
	if p == nil {
		p = tablebase.NoopProber{}
	}
	e.prober = p
}

// NewGame clears all learned state between games.
func (e *Engine) NewGame() {
	e.tt.Clear()
	for _, w := range e.workers {
		w.NewGame()
	}
}

// Stop aborts the current search. The search returns the best result it
// had completed.
func (e *Engine) Stop() {
	if c := e.control; c != nil {
		c.Stop()
	}
}

// PonderHit converts a pondering search into a normal timed one.
func (e *Engine) PonderHit() {
	if c := e.control; c != nil {
		c.PonderHit()
	}
}

// Evaluate returns the static evaluation of a position from the side to
// move's perspective.
func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos)
}

// Perft counts leaf nodes of the legal move tree to the given depth.
func (e *Engine) Perft(pos *board.Position, depth int) int64 {
	return board.Perft(pos, depth)
}

// totalNodes sums the per-worker atomic node counters.
func (e *Engine) totalNodes() uint64 {
	var n uint64
	for _, w := range e.workers {
		n += w.Nodes()
	}
	return n
}

// Search finds the best move for the position. gameHashes are the Zobrist
// hashes of the positions played so far, for repetition detection.
func (e *Engine) Search(pos *board.Position, gameHashes []uint64, limits Limits) SearchResult {
	moves := pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		return SearchResult{BestMove: board.NoMove}
	}

	// Book and tablebase hits answer without searching, but never while
	// pondering or in an infinite search, where the caller expects the
	// search to keep running.
	interactive := !limits.Infinite && !limits.Ponder
	if interactive {
		if m, ok := e.openingBook.Probe(pos); ok && m != board.NoMove {
			return SearchResult{BestMove: m}
		}

		if e.prober.Available() && tablebase.CountPieces(pos) <= e.prober.MaxPieces() {
			if root := e.prober.ProbeRoot(pos); root.Found {
				return SearchResult{
					BestMove: root.Move,
					Score:    tablebase.WDLToScore(root.WDL, 0),
				}
			}
		}

		// A forced move needs no search, whatever the budget.
		if moves.Len() == 1 {
			return SearchResult{BestMove: moves.Get(0)}
		}
	}

	tm := NewTimeManager(limits, pos.SideToMove)
	control := NewSearchControl(limits.Ponder)
	e.control = control

	e.tt.NewSearch()
	for _, w := range e.workers {
		w.control = control
		w.tm = tm
		w.contempt = e.contempt
	}

	results := make(chan WorkerResult, len(e.workers)*MaxPly)

	var g errgroup.Group
	for _, w := range e.workers {
		w := w
		g.Go(func() error {
			w.Run(pos, limits.Depth, gameHashes, results)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	best := e.coordinate(control, tm, limits, results, done)

	// Workers still running (infinite search that hit its depth limit,
	// or a helper ahead of the stop) are told to wind down.
	control.Stop()
	<-done

	// Late reports can still hold a deeper completed result.
	for {
		select {
		case r := <-results:
			if betterResult(r, best) {
				best = r
			}
			continue
		default:
		}
		break
	}

	if best.Move == board.NoMove {
		best.Move = moves.Get(0)
	}

	res := SearchResult{
		BestMove: best.Move,
		Score:    best.Score,
		Depth:    best.Depth,
		Nodes:    e.totalNodes(),
	}
	if len(best.PV) > 1 {
		res.Ponder = best.PV[1]
	}
	return res
}

// betterResult prefers the deeper completed iteration. At equal depth the
// first reporter wins: it finished first, so it is the cheaper answer.
func betterResult(r, best WorkerResult) bool {
	return r.Depth > best.Depth
}

// coordinate consumes worker reports until the search should stop,
// keeping the deepest completed result and steering the soft time limit.
func (e *Engine) coordinate(control *SearchControl, tm *TimeManager, limits Limits,
	results <-chan WorkerResult, done <-chan struct{}) WorkerResult {

	var best WorkerResult
	var stability StabilityTracker

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case r := <-results:
			if !betterResult(r, best) {
				continue
			}
			best = r

			if e.OnInfo != nil {
				elapsed := tm.Elapsed()
				nodes := e.totalNodes()
				info := SearchInfo{
					Depth:    best.Depth,
					SelDepth: best.SelDepth,
					Score:    best.Score,
					Nodes:    nodes,
					Time:     elapsed,
					PV:       best.PV,
					HashFull: e.tt.HashFull(),
				}
				if elapsed > 0 {
					info.NPS = nodes * uint64(time.Second) / uint64(elapsed)
				}
				e.OnInfo(info)
			}

			control.SetSoftScale(stability.Update(best.Move, best.Score))

			if limits.Depth > 0 && best.Depth >= limits.Depth {
				return best
			}
			if !control.Pondering() {
				if tm.SoftExceeded(control.SoftScale()) {
					return best
				}
				if IsMateScore(best.Score) && !limits.Infinite && best.Depth >= abs(MovesToMate(best.Score))*2 {
					// The mate is proven out to its own length; deeper
					// iterations cannot improve it.
					return best
				}
			}

		case <-ticker.C:
			if limits.Nodes > 0 && e.totalNodes() >= limits.Nodes {
				return best
			}
			if !control.Pondering() && tm.HardExceeded() {
				return best
			}

		case <-done:
			return best
		}
	}
}

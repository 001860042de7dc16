// Package tablebase probes endgame tablebases for exact win/draw/loss
// results. The online prober queries the Lichess tablebase service; a
// persistent cache keeps results across runs.
package tablebase

import (
	"github.com/hailam/kingfisher/internal/board"
)

// WDL is a win/draw/loss verdict from the perspective of the side to move.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // lost, but the 50-move rule may rescue it
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // won, but the 50-move rule may spoil it
	WDLWin         WDL = 2
)

// ProbeResult is the tablebase verdict for a single position.
type ProbeResult struct {
	Found bool
	WDL   WDL
	DTZ   int // distance to the next zeroing move (pawn move or capture)
}

// RootResult is a probe verdict that carries the best root move.
type RootResult struct {
	Found bool
	Move  board.Move
	WDL   WDL
	DTZ   int
}

// Prober answers tablebase lookups.
type Prober interface {
	// Probe returns the verdict for a position.
	Probe(pos *board.Position) ProbeResult

	// ProbeRoot returns the best move at the root. More expensive than
	// Probe since the backend ranks every legal move.
	ProbeRoot(pos *board.Position) RootResult

	// MaxPieces returns the largest piece count the backend covers.
	MaxPieces() int

	// Available reports whether lookups can be served at all.
	Available() bool
}

// WDLToScore converts a verdict to a search score at the given ply.
// Cursed wins and blessed losses score just outside the draw range so
// the search still prefers them over a plain draw.
func WDLToScore(wdl WDL, ply int) int {
	const tbWin = 30000

	switch wdl {
	case WDLWin:
		return tbWin - ply
	case WDLCursedWin:
		return tbWin - 100 - ply
	case WDLBlessedLoss:
		return -tbWin + 100 + ply
	case WDLLoss:
		return -tbWin + ply
	default:
		return 0
	}
}

// NoopProber answers every lookup with "not found". It stands in when no
// tablebase backend is configured.
type NoopProber struct{}

func (NoopProber) Probe(*board.Position) ProbeResult    { return ProbeResult{} }
func (NoopProber) ProbeRoot(*board.Position) RootResult { return RootResult{} }
func (NoopProber) MaxPieces() int                       { return 0 }
func (NoopProber) Available() bool                      { return false }

// CountPieces returns the number of pieces on the board, kings included.
func CountPieces(pos *board.Position) int {
	return pos.AllOccupied.PopCount()
}

// Package engine implements the chess search engine: iterative deepening
// with a principal variation search, a shared lock-free transposition
// table and Lazy SMP parallelism.
package engine

import (
	"github.com/hailam/kingfisher/internal/board"
)

// Score constants. Mate scores are encoded relative to MateScore so that
// MateScore-ply means "mate in ply half-moves"; anything beyond
// MateThreshold is treated as a mate score.
const (
	Infinity      = 30000
	MateScore     = 29000
	MateThreshold = 28000
	MaxPly        = 128
)

// MateIn returns the mate score for delivering mate at the given ply.
func MateIn(ply int) int {
	return MateScore - ply
}

// MatedIn returns the mate score for being mated at the given ply.
func MatedIn(ply int) int {
	return -MateScore + ply
}

// IsMateScore reports whether a score encodes a forced mate.
func IsMateScore(score int) bool {
	return score > MateThreshold || score < -MateThreshold
}

// MovesToMate converts a mate score to full moves until mate, signed by
// which side delivers it.
func MovesToMate(score int) int {
	if score > MateThreshold {
		return (MateScore - score + 1) / 2
	}
	return -(MateScore + score + 1) / 2
}

// PVTable is a triangular principal variation table. Row ply holds the
// best line found from that ply; updates splice the child row under the
// new best move.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// ClearPly resets the stored line at the given ply. Called on node entry
// so stale moves from a previous branch never leak into the PV.
func (pv *PVTable) ClearPly(ply int) {
	pv.length[ply] = ply
}

// Update records move as the best at ply and pulls up the line found at
// ply+1 behind it.
func (pv *PVTable) Update(ply int, move board.Move) {
	pv.moves[ply][ply] = move
	for i := ply + 1; i < pv.length[ply+1]; i++ {
		pv.moves[ply][i] = pv.moves[ply+1][i]
	}
	pv.length[ply] = pv.length[ply+1]
}

// SetRoot installs a single move as the root PV.
func (pv *PVTable) SetRoot(move board.Move) {
	pv.moves[0][0] = move
	pv.length[0] = 1
}

// RootLine returns a copy of the principal variation from the root.
func (pv *PVTable) RootLine() []board.Move {
	line := make([]board.Move, pv.length[0])
	copy(line, pv.moves[0][:pv.length[0]])
	return line
}

// BestRootMove returns the first move of the root PV, or NoMove.
func (pv *PVTable) BestRootMove() board.Move {
	if pv.length[0] == 0 {
		return board.NoMove
	}
	return pv.moves[0][0]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

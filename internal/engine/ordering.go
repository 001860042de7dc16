package engine

import (
	"github.com/hailam/kingfisher/internal/board"
)

// Move ordering bands. TT move first, winning captures next, killers,
// then quiets by history. Losing captures sort below everything the
// history tables can produce.
const (
	ttMoveScore     = 1000000
	goodCaptureBase = 100000
	killerScore1    = 90000
	killerScore2    = 80000
	badCaptureBase  = -100000

	historyMax = 16384
)

// mvvLva ranks captures by most valuable victim, least valuable attacker.
func mvvLva(victim, attacker board.PieceType) int {
	return int(victim)*16 - int(attacker)
}

// MoveOrderer holds the per-thread move ordering state: killer moves,
// piece-to history, capture history and continuation history. Each search
// thread owns its tables; nothing here is shared.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move

	// Quiet history indexed by [piece][to], clamped to +/-historyMax.
	history [12][64]int32

	// Capture history indexed by [attacker piece][to][victim type].
	captureHistory [12][64][6]int16

	// Continuation history indexed by the previous move's [piece][to]
	// and the current move's [piece][to].
	contHistory [12][64][12][64]int16
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets killers and halves history scores for a new search.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}
	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] /= 2
		}
	}
	for i := range mo.captureHistory {
		for j := range mo.captureHistory[i] {
			for k := range mo.captureHistory[i][j] {
				mo.captureHistory[i][j][k] /= 2
			}
		}
	}
	for i := range mo.contHistory {
		for j := range mo.contHistory[i] {
			for k := range mo.contHistory[i][j] {
				for l := range mo.contHistory[i][j][k] {
					mo.contHistory[i][j][k][l] /= 2
				}
			}
		}
	}
}

// MovePicker yields moves from a scored list in descending score order
// using incremental selection, so the tail is never sorted when an early
// move produces a cutoff.
type MovePicker struct {
	moves    *board.MoveList
	scores   []int
	index    int
	minScore int
}

// Next returns the best remaining move, or false when no move at or above
// the picker's score floor remains.
func (mp *MovePicker) Next() (board.Move, bool) {
	if mp.index >= mp.moves.Len() {
		return board.NoMove, false
	}

	best := mp.index
	for j := mp.index + 1; j < mp.moves.Len(); j++ {
		if mp.scores[j] > mp.scores[best] {
			best = j
		}
	}
	if mp.scores[best] < mp.minScore {
		return board.NoMove, false
	}
	if best != mp.index {
		mp.moves.Swap(mp.index, best)
		mp.scores[mp.index], mp.scores[best] = mp.scores[best], mp.scores[mp.index]
	}

	m := mp.moves.Get(mp.index)
	mp.index++
	return m, true
}

// Picked returns how many moves have been yielded so far.
func (mp *MovePicker) Picked() int {
	return mp.index
}

// NewPicker builds a picker over all moves for the main search.
func (mo *MoveOrderer) NewPicker(pos *board.Position, moves *board.MoveList, ply int, ttMove, prevMove board.Move) *MovePicker {
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		scores[i] = mo.scoreMove(pos, moves.Get(i), ply, ttMove, prevMove)
	}
	return &MovePicker{moves: moves, scores: scores, minScore: -(1 << 30)}
}

// NewQuiescencePicker builds a picker that yields only captures and
// promotions; quiet moves score zero and fall below the floor.
func (mo *MoveOrderer) NewQuiescencePicker(pos *board.Position, moves *board.MoveList) *MovePicker {
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.IsCapture(pos) || m.IsPromotion() {
			scores[i] = goodCaptureBase + mo.captureScore(pos, m)
		}
	}
	return &MovePicker{moves: moves, scores: scores, minScore: 1}
}

func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove, prevMove board.Move) int {
	if m == ttMove {
		return ttMoveScore
	}

	if m.IsCapture(pos) || m.IsPromotion() {
		score := mo.captureScore(pos, m)
		if !m.IsPromotion() && SEE(pos, m) < 0 {
			return badCaptureBase + score
		}
		return goodCaptureBase + score
	}

	if m == mo.killers[ply][0] {
		return killerScore1
	}
	if m == mo.killers[ply][1] {
		return killerScore2
	}

	piece := pos.PieceAt(m.From())
	score := int(mo.history[piece][m.To()])
	if prevMove != board.NoMove {
		prevPiece := pos.PieceAt(prevMove.To())
		if prevPiece != board.NoPiece {
			score += int(mo.contHistory[prevPiece][prevMove.To()][piece][m.To()])
		}
	}
	return score
}

func (mo *MoveOrderer) captureScore(pos *board.Position, m board.Move) int {
	attacker := pos.PieceTypeAt(m.From())
	victim := captureVictim(pos, m)

	score := mvvLva(victim, attacker) * 64
	if m.IsPromotion() {
		score += int(m.Promotion()) * 64
	}
	if victim != board.NoPieceType {
		score += int(mo.captureHistory[pos.PieceAt(m.From())][m.To()][victim]) / 4
	}
	return score
}

// captureVictim returns the type of the captured piece, or NoPieceType
// for non-captures.
func captureVictim(pos *board.Position, m board.Move) board.PieceType {
	if m.IsEnPassant() {
		return board.Pawn
	}
	return pos.PieceTypeAt(m.To())
}

// UpdateKillers records a quiet move that caused a beta cutoff, shifting
// the previous first killer down unless the move is already stored.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly || mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// historyBonus is the standard depth-squared bonus.
func historyBonus(depth int) int {
	return min(depth*depth, historyMax)
}

// UpdateHistory applies a bonus (cutoff move) or penalty (quiet searched
// before the cutoff) to the piece-to history.
func (mo *MoveOrderer) UpdateHistory(pos *board.Position, m board.Move, depth int, good bool) {
	piece := pos.PieceAt(m.From())
	if piece == board.NoPiece {
		return
	}
	bonus := historyBonus(depth)
	if !good {
		bonus = -bonus
	}
	entry := &mo.history[piece][m.To()]
	// Gravity toward the clamp so repeated bonuses saturate smoothly.
	*entry += int32(bonus) - *entry*int32(abs(bonus))/historyMax
}

// UpdateContinuationHistory applies a bonus or penalty keyed by the
// previous move.
func (mo *MoveOrderer) UpdateContinuationHistory(pos *board.Position, prevMove, m board.Move, depth int, good bool) {
	if prevMove == board.NoMove {
		return
	}
	prevPiece := pos.PieceAt(prevMove.To())
	piece := pos.PieceAt(m.From())
	if prevPiece == board.NoPiece || piece == board.NoPiece {
		return
	}

	bonus := historyBonus(depth)
	if !good {
		bonus = -bonus
	}
	entry := &mo.contHistory[prevPiece][prevMove.To()][piece][m.To()]
	*entry = int16(clamp(int(*entry)+bonus, -historyMax, historyMax))
}

// UpdateCaptureHistory rewards or punishes a capture by attacker piece,
// target square and victim type.
func (mo *MoveOrderer) UpdateCaptureHistory(pos *board.Position, m board.Move, depth int, good bool) {
	piece := pos.PieceAt(m.From())
	victim := captureVictim(pos, m)
	if piece == board.NoPiece || victim == board.NoPieceType || victim >= board.King {
		return
	}

	bonus := historyBonus(depth)
	if !good {
		bonus = -bonus
	}
	entry := &mo.captureHistory[piece][m.To()][victim]
	*entry = int16(clamp(int(*entry)+bonus, -historyMax, historyMax))
}

// QuietHistory returns the combined history score used for pruning and
// reduction decisions.
func (mo *MoveOrderer) QuietHistory(pos *board.Position, m, prevMove board.Move) int {
	piece := pos.PieceAt(m.From())
	if piece == board.NoPiece {
		return 0
	}
	score := int(mo.history[piece][m.To()])
	if prevMove != board.NoMove {
		if prevPiece := pos.PieceAt(prevMove.To()); prevPiece != board.NoPiece {
			score += int(mo.contHistory[prevPiece][prevMove.To()][piece][m.To()])
		}
	}
	return score
}

// IsKiller reports whether the move is a stored killer at the given ply.
func (mo *MoveOrderer) IsKiller(m board.Move, ply int) bool {
	return m == mo.killers[ply][0] || m == mo.killers[ply][1]
}

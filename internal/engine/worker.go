package engine

import (
	"math"
	"sync/atomic"

	"github.com/hailam/kingfisher/internal/board"
)

// LMR reduction table in 1024ths of a ply, indexed by depth and move
// count. Logarithmic so late moves at high depth get the deepest cuts.
var lmrTable [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrTable[d][m] = int(1024 * math.Log(float64(d)) * math.Log(float64(m)) / 2.25)
		}
	}
}

// Whole-node and per-move pruning margins, indexed by depth.
var (
	futilityMargins = [4]int{0, 200, 450, 700}
	razorMargins    = [4]int{0, 300, 550, 900}
	lmpThresholds   = [5]int{0, 4, 7, 12, 19}
)

const (
	historyPruneMargin   = 2711 // quiet moves below -margin*depth are skipped
	seePruneTactical     = 27   // tactical SEE margin, scaled by depth squared
	seePruneQuiet        = 59   // quiet SEE margin, scaled by depth
	probcutMargin        = 344
	deltaPruneMargin     = 200
	singularDoubleMargin = 23
	maxDoubleExtensions  = 16
)

// Worker is one search thread of a Lazy SMP search. Every worker owns its
// move ordering tables, evaluation caches and stacks; only the
// transposition table and the stop state are shared.
type Worker struct {
	id int

	tt      *TranspositionTable
	control *SearchControl
	tm      *TimeManager

	// contempt biases draw scores against the side the engine plays,
	// identified by rootColor.
	contempt  int
	rootColor board.Color

	orderer     *MoveOrderer
	pawnTable   *PawnTable
	corrHistory *CorrectionHistory

	nodes atomic.Uint64
	pv    PVTable

	// moveStack[ply] is the move that led to the position at ply+1, used
	// for continuation history lookups.
	moveStack [MaxPly]board.Move
	evalStack [MaxPly]int

	// Zobrist hashes of the game so far plus the current search path, for
	// repetition detection.
	hashHistory []uint64

	doubleExts int
	seldepth   int
}

// WorkerResult is the report a worker sends after completing a depth.
type WorkerResult struct {
	WorkerID int
	Depth    int
	SelDepth int
	Score    int
	Move     board.Move
	PV       []board.Move
}

// NewWorker creates a search worker bound to the shared table and control.
func NewWorker(id int, tt *TranspositionTable, control *SearchControl, tm *TimeManager) *Worker {
	return &Worker{
		id:          id,
		tt:          tt,
		control:     control,
		tm:          tm,
		orderer:     NewMoveOrderer(),
		pawnTable:   NewPawnTable(1),
		corrHistory: NewCorrectionHistory(),
	}
}

// Nodes returns the number of nodes this worker has searched. Safe to
// call from other goroutines while the worker is searching.
func (w *Worker) Nodes() uint64 {
	return w.nodes.Load()
}

// NewGame clears all per-worker learned state.
func (w *Worker) NewGame() {
	w.orderer = NewMoveOrderer()
	w.corrHistory.Clear()
	w.pawnTable.Clear()
}

// prepare resets per-search state and installs the game history.
func (w *Worker) prepare(rootHash uint64, gameHashes []uint64) {
	w.nodes.Store(0)
	w.orderer.Clear()
	w.hashHistory = w.hashHistory[:0]
	w.hashHistory = append(w.hashHistory, gameHashes...)
	w.hashHistory = append(w.hashHistory, rootHash)
}

// Run performs iterative deepening from the root position, reporting each
// completed depth on results. Helper workers start one ply apart so the
// threads desynchronize and populate the shared table at different
// horizons.
func (w *Worker) Run(root *board.Position, maxDepth int, gameHashes []uint64, results chan<- WorkerResult) {
	w.prepare(root.Hash, gameHashes)
	w.rootColor = root.SideToMove

	if maxDepth <= 0 || maxDepth > MaxPly-1 {
		maxDepth = MaxPly - 1
	}

	startDepth := 1 + w.id%2
	if startDepth > maxDepth {
		startDepth = maxDepth
	}

	var prevScore int
	hasPrev := false

	for depth := startDepth; depth <= maxDepth; depth++ {
		score, ok := w.searchRoot(root, depth, prevScore, hasPrev)
		if !ok {
			return
		}
		prevScore = score
		hasPrev = true

		if results != nil {
			results <- WorkerResult{
				WorkerID: w.id,
				Depth:    depth,
				SelDepth: w.seldepth,
				Score:    score,
				Move:     w.pv.BestRootMove(),
				PV:       w.pv.RootLine(),
			}
		}
	}
}

// searchRoot runs one iteration at the given depth inside an aspiration
// window around the previous score. Returns ok=false when the search was
// stopped before the iteration completed.
func (w *Worker) searchRoot(root *board.Position, depth, prevScore int, hasPrev bool) (int, bool) {
	alpha, beta := -Infinity, Infinity
	delta := 50

	// Shallow depths and mate scores search with the full window; a
	// narrow window around a mate score just thrashes.
	aspirating := hasPrev && depth > 4 && !IsMateScore(prevScore)
	if aspirating {
		alpha = prevScore - delta
		beta = prevScore + delta
	}

	for {
		w.seldepth = 0
		w.doubleExts = 0
		score := w.negamax(root, depth, 0, alpha, beta, false, board.NoMove)

		if w.control.Stopped() {
			return 0, false
		}

		switch {
		case score <= alpha:
			alpha = max(score-delta, -Infinity)
			beta = (alpha + beta) / 2
		case score >= beta:
			beta = min(score+delta, Infinity)
		default:
			return score, true
		}

		delta *= 4
		if delta > Infinity {
			alpha, beta = -Infinity, Infinity
		}
	}
}

// staticEval returns the corrected static evaluation.
func (w *Worker) staticEval(pos *board.Position) int {
	return EvaluateWithPawnTable(pos, w.pawnTable) + w.corrHistory.Get(pos.Hash)
}

// checkStop polls the stop flag and the hard time limit. Polled every
// 2048 nodes to keep the time.Now calls off the hot path.
func (w *Worker) checkStop() bool {
	if w.control.Stopped() {
		return true
	}
	if w.nodes.Load()&hardStopPollMask == 0 {
		if w.tm != nil && !w.control.Pondering() && w.tm.HardExceeded() {
			w.control.Stop()
			return true
		}
	}
	return false
}

// isRepetition reports whether the position's hash already occurred on
// the game plus search path.
func (w *Worker) isRepetition(pos *board.Position) bool {
	// Last entry is the current position itself.
	for i := len(w.hashHistory) - 2; i >= 0; i-- {
		if w.hashHistory[i] == pos.Hash {
			return true
		}
	}
	return false
}

// drawScore values a draw from the side to move's perspective. With
// positive contempt a draw counts against the engine's own side, so it
// keeps playing for a win.
func (w *Worker) drawScore(pos *board.Position) int {
	if pos.SideToMove == w.rootColor {
		return -w.contempt
	}
	return w.contempt
}

// negamax is the principal variation search. excluded is the move left
// out during a singular verification search, or NoMove.
func (w *Worker) negamax(pos *board.Position, depth, ply, alpha, beta int, cutnode bool, excluded board.Move) int {
	if ply >= MaxPly-1 {
		return w.staticEval(pos)
	}

	w.nodes.Add(1)
	if w.checkStop() {
		return 0
	}

	if ply > w.seldepth {
		w.seldepth = ply
	}

	pvNode := beta-alpha > 1
	rootNode := ply == 0

	w.pv.ClearPly(ply)

	if !rootNode {
		if pos.HalfMoveClock >= 100 || pos.IsInsufficientMaterial() || w.isRepetition(pos) {
			return w.drawScore(pos)
		}

		// Mate distance pruning: even an immediate mate here cannot beat
		// a shorter mate already found.
		alpha = max(alpha, MatedIn(ply))
		beta = min(beta, MateIn(ply+1))
		if alpha >= beta {
			return alpha
		}
	}

	// Transposition table probe. Skipped entirely inside a singular
	// verification, which must not see the node's own entry.
	var ttMove board.Move
	var ttEntry TTEntry
	ttHit := false
	ttPv := pvNode
	if excluded == board.NoMove {
		ttEntry, ttHit = w.tt.Probe(pos.Hash)
		if ttHit {
			ttMove = ttEntry.BestMove
			ttPv = ttPv || ttEntry.IsPV

			if ttMove != board.NoMove {
				piece := pos.PieceAt(ttMove.From())
				if piece == board.NoPiece || piece.Color() != pos.SideToMove {
					ttMove = board.NoMove
				}
			}

			if !pvNode && int(ttEntry.Depth) >= depth {
				score := AdjustScoreFromTT(int(ttEntry.Score), ply)
				switch ttEntry.Flag {
				case TTExact:
					return score
				case TTLowerBound:
					if score >= beta {
						return score
					}
				case TTUpperBound:
					if score <= alpha {
						return score
					}
				}
			}
		}
	}

	// Internal iterative reduction: a deep node with no table move is
	// cheap to search shallower now and will be revisited with a move.
	if depth > 4 && ttMove == board.NoMove && (pvNode || cutnode) {
		depth -= 2
	}

	if depth <= 0 {
		return w.quiescence(pos, ply, alpha, beta)
	}

	inCheck := pos.InCheck()

	rawEval := EvaluateWithPawnTable(pos, w.pawnTable)
	staticEval := rawEval + w.corrHistory.Get(pos.Hash)
	w.evalStack[ply] = staticEval

	improving := !inCheck && ply >= 2 && staticEval > w.evalStack[ply-2]

	prevMove := board.NoMove
	if ply > 0 {
		prevMove = w.moveStack[ply-1]
	}

	// Whole-node pruning. None of it applies on the PV, in check, or
	// inside a singular verification.
	if !pvNode && !inCheck && excluded == board.NoMove {
		// Reverse futility: static eval is so far above beta that a
		// shallow search will not bring it back down.
		if depth <= 3 && !IsMateScore(beta) {
			margin := futilityMargins[depth]
			if !improving {
				margin -= 100
			}
			if staticEval-margin >= beta {
				return staticEval
			}
		}

		// Razoring: eval is hopeless, verify with quiescence.
		if depth <= 3 && staticEval+razorMargins[depth] <= alpha {
			score := w.quiescence(pos, ply, alpha, beta)
			if score <= alpha {
				return score
			}
		}

		// Null move pruning: hand over the move and search reduced. A
		// fail-high means the position is good enough to stand a tempo
		// down. Needs non-pawn material to dodge zugzwang.
		if depth >= 2 && staticEval >= beta && pos.HasNonPawnMaterial() &&
			prevMove != board.NoMove {
			r := 2
			if depth >= 6 {
				r = 3
			}

			null := pos.MakeNull()
			w.moveStack[ply] = board.NoMove
			w.hashHistory = append(w.hashHistory, null.Hash)
			nullScore := -w.negamax(&null, depth-1-r, ply+1, -beta, -beta+1, !cutnode, board.NoMove)
			w.hashHistory = w.hashHistory[:len(w.hashHistory)-1]

			if nullScore >= beta {
				if IsMateScore(nullScore) {
					nullScore = beta
				}
				// At high depth verify without the null move before
				// trusting the cutoff.
				if depth <= 12 {
					return nullScore
				}
				verified := w.negamax(pos, depth-1-r, ply, beta-1, beta, false, board.NoMove)
				if verified >= beta {
					return nullScore
				}
			}
		}

		// Probcut: a winning capture that beats beta by a margin on a
		// reduced search almost certainly beats beta on the full one.
		if depth >= 7 && !IsMateScore(beta) {
			probcutBeta := beta + probcutMargin
			moves := pos.GenerateLegalMoves()
			picker := w.orderer.NewQuiescencePicker(pos, moves)
			for {
				m, ok := picker.Next()
				if !ok {
					break
				}
				if m == excluded || SEE(pos, m) < 0 {
					continue
				}

				child := pos.Make(m)
				w.moveStack[ply] = m
				w.hashHistory = append(w.hashHistory, child.Hash)

				score := -w.quiescence(&child, ply+1, -probcutBeta, -probcutBeta+1)
				if score >= probcutBeta {
					score = -w.negamax(&child, depth-5, ply+1, -probcutBeta, -probcutBeta+1, !cutnode, board.NoMove)
				}

				w.hashHistory = w.hashHistory[:len(w.hashHistory)-1]

				if score >= probcutBeta {
					w.tt.Store(pos.Hash, depth-3, AdjustScoreToTT(score, ply), rawEval, TTLowerBound, m, ttPv)
					return score
				}
			}
		}
	}

	// Singular extension: when the table move is far better than every
	// alternative at reduced depth, extend it. If even the alternatives
	// beat beta the node is a multicut and fails high immediately.
	singularExt := 0
	if depth >= 8 && !rootNode && excluded == board.NoMove && ttHit && ttMove != board.NoMove &&
		int(ttEntry.Depth) >= depth-3 && ttEntry.Flag != TTUpperBound &&
		!IsMateScore(int(ttEntry.Score)) {
		ttScore := AdjustScoreFromTT(int(ttEntry.Score), ply)
		singularBeta := ttScore - 2*depth

		score := w.negamax(pos, (depth-1)/2, ply, singularBeta-1, singularBeta, cutnode, ttMove)

		switch {
		case score < singularBeta-singularDoubleMargin && w.doubleExts < maxDoubleExtensions:
			singularExt = 2
			w.doubleExts++
		case score < singularBeta:
			singularExt = 1
		case singularBeta >= beta:
			return singularBeta
		case ttScore >= beta:
			singularExt = -3
		case cutnode:
			singularExt = -2
		}
	}

	moves := pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if excluded != board.NoMove {
			// All moves excluded: the verification has no answer.
			return alpha
		}
		if inCheck {
			return MatedIn(ply)
		}
		return w.drawScore(pos)
	}

	picker := w.orderer.NewPicker(pos, moves, ply, ttMove, prevMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	movesSearched := 0
	skipQuiets := false

	var searchedQuiets []board.Move

	for {
		m, ok := picker.Next()
		if !ok {
			break
		}
		if m == excluded {
			continue
		}

		isCapture := m.IsCapture(pos)
		isPromotion := m.IsPromotion()
		quiet := !isCapture && !isPromotion

		if quiet && skipQuiets && m != ttMove {
			continue
		}

		// Per-move pruning, only once a real score is on the board.
		if !rootNode && bestScore > -MateThreshold && m != ttMove {
			if quiet && !inCheck {
				// Late move pruning: past the threshold, remaining
				// quiets are noise.
				if depth <= 4 {
					threshold := lmpThresholds[depth]
					if !improving {
						threshold /= 2
					}
					if movesSearched >= threshold {
						skipQuiets = true
						continue
					}
				}

				// Futility: eval is too far below alpha for a quiet
				// move to recover.
				if depth <= 3 {
					margin := futilityMargins[depth]
					if !improving {
						margin -= 50
					}
					if staticEval+margin <= alpha {
						skipQuiets = true
						continue
					}
				}

				// History pruning: this move has failed everywhere.
				if depth <= 5 && w.orderer.QuietHistory(pos, m, prevMove) < -historyPruneMargin*depth {
					continue
				}
			}

			// SEE pruning: moves that lose too much material.
			if depth <= 5 {
				if quiet {
					if SEE(pos, m) < -seePruneQuiet*depth {
						continue
					}
				} else if SEE(pos, m) < -seePruneTactical*depth*depth {
					continue
				}
			}
		}

		extension := 0
		if inCheck {
			extension = 1
		}
		if m == ttMove && singularExt != 0 {
			extension += singularExt
		}

		child := pos.Make(m)
		w.moveStack[ply] = m
		w.hashHistory = append(w.hashHistory, child.Hash)
		movesSearched++

		newDepth := depth - 1 + extension
		var score int

		if movesSearched == 1 {
			score = -w.negamax(&child, newDepth, ply+1, -beta, -alpha, false, board.NoMove)
		} else {
			// Late move reductions for quiet moves, in 1024ths of a ply.
			reduction := 0
			if depth >= 3 && movesSearched >= 4 && quiet && !inCheck {
				r := lmrTable[min(depth, 63)][min(movesSearched, 63)]
				r -= 372
				if pvNode {
					r -= 1062
				}
				if cutnode {
					r += 1303
				}
				if ttPv {
					r -= 975
				}
				if w.orderer.IsKiller(m, ply) {
					r -= 932
				}
				r -= w.orderer.QuietHistory(pos, m, prevMove) / 8
				reduction = clamp(r/1024, 0, newDepth-1)
			}

			score = -w.negamax(&child, newDepth-reduction, ply+1, -alpha-1, -alpha, true, board.NoMove)
			if score > alpha && reduction > 0 {
				score = -w.negamax(&child, newDepth, ply+1, -alpha-1, -alpha, !cutnode, board.NoMove)
			}
			if score > alpha && score < beta {
				score = -w.negamax(&child, newDepth, ply+1, -beta, -alpha, false, board.NoMove)
			}
		}

		w.hashHistory = w.hashHistory[:len(w.hashHistory)-1]

		if w.control.Stopped() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m

			if score > alpha {
				alpha = score
				flag = TTExact
				w.pv.Update(ply, m)
			}
		}

		if score >= beta {
			flag = TTLowerBound
			break
		}

		if quiet {
			searchedQuiets = append(searchedQuiets, m)
		}
	}

	if flag == TTLowerBound {
		if bestMove.IsCapture(pos) || bestMove.IsPromotion() {
			w.orderer.UpdateCaptureHistory(pos, bestMove, depth, true)
		} else {
			w.orderer.UpdateKillers(bestMove, ply)
			w.orderer.UpdateHistory(pos, bestMove, depth, true)
			w.orderer.UpdateContinuationHistory(pos, prevMove, bestMove, depth, true)
			// Quiets searched before the cutoff clearly were not it.
			for _, q := range searchedQuiets {
				w.orderer.UpdateHistory(pos, q, depth, false)
				w.orderer.UpdateContinuationHistory(pos, prevMove, q, depth, false)
			}
		}
	}

	if excluded == board.NoMove && !w.control.Stopped() {
		// The search score tells us how far rawEval was off here.
		if !inCheck && !IsMateScore(bestScore) &&
			!(flag == TTLowerBound && bestScore <= staticEval) &&
			!(flag == TTUpperBound && bestScore >= staticEval) {
			w.corrHistory.Update(pos.Hash, bestScore, rawEval, depth)
		}

		w.tt.Store(pos.Hash, depth, AdjustScoreToTT(bestScore, ply), rawEval, flag, bestMove, ttPv)
	}

	return bestScore
}

// quiescence resolves captures and promotions until the position is
// quiet, so the evaluation is never taken mid-exchange.
func (w *Worker) quiescence(pos *board.Position, ply, alpha, beta int) int {
	if ply >= MaxPly-1 {
		return w.staticEval(pos)
	}

	w.nodes.Add(1)
	if w.checkStop() {
		return 0
	}

	if ply > w.seldepth {
		w.seldepth = ply
	}

	if ttEntry, ok := w.tt.Probe(pos.Hash); ok {
		score := AdjustScoreFromTT(int(ttEntry.Score), ply)
		switch ttEntry.Flag {
		case TTExact:
			return score
		case TTLowerBound:
			if score >= beta {
				return score
			}
		case TTUpperBound:
			if score <= alpha {
				return score
			}
		}
	}

	inCheck := pos.InCheck()

	bestScore := -Infinity
	if !inCheck {
		bestScore = w.staticEval(pos)
		if bestScore >= beta {
			return bestScore
		}
		if bestScore > alpha {
			alpha = bestScore
		}
	}

	moves := pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return MatedIn(ply)
		}
		return w.drawScore(pos)
	}

	var picker *MovePicker
	if inCheck {
		// Evasions: search everything, the position is too hot to stand
		// pat.
		picker = w.orderer.NewPicker(pos, moves, min(ply, MaxPly-1), board.NoMove, board.NoMove)
	} else {
		picker = w.orderer.NewQuiescencePicker(pos, moves)
	}

	for {
		m, ok := picker.Next()
		if !ok {
			break
		}

		if !inCheck && !m.IsPromotion() {
			// Delta pruning: even winning the victim outright cannot
			// lift alpha.
			if bestScore+pieceValues[captureVictim(pos, m)]+deltaPruneMargin <= alpha {
				continue
			}
			// Losing captures cannot rescue a quiet position. Promotions
			// are exempt: their SEE undervalues the new queen.
			if SEE(pos, m) < 0 {
				continue
			}
		}

		child := pos.Make(m)
		score := -w.quiescence(&child, ply+1, -beta, -alpha)

		if score > bestScore {
			bestScore = score
		}
		if score > alpha {
			alpha = score
		}
		if score >= beta {
			break
		}
	}

	return bestScore
}

package engine

import (
	"github.com/hailam/kingfisher/internal/board"
)

// Material values in centipawns.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// Passed pawn bonus by relative rank.
var passedPawnBonus = [8]int{0, 10, 20, 40, 70, 120, 200, 0}

const (
	passedPawnConnectedBonus = 20
	passedPawnProtectedBonus = 15
	passedPawnFreePathBonus  = 30
)

// Mobility weights per piece type.
var (
	mobilityMgWeight = [6]int{0, 4, 5, 2, 1, 0}
	mobilityEgWeight = [6]int{0, 3, 4, 4, 2, 0}
)

// King safety weights per attacker type.
var attackerWeight = [6]int{0, 20, 20, 40, 80, 0}

const (
	pawnShieldBonus      = 10
	pawnShieldMissing    = -15
	openFileNearKing     = -20
	semiOpenFileNearKing = -10
)

const (
	bishopPairMgBonus = 25
	bishopPairEgBonus = 50
)

const (
	rookOpenFileMg     = 20
	rookOpenFileEg     = 25
	rookSemiOpenFileMg = 10
	rookSemiOpenFileEg = 15
)

const (
	doubledPawnMgPenalty  = -15
	doubledPawnEgPenalty  = -20
	isolatedPawnMgPenalty = -20
	isolatedPawnEgPenalty = -25
	backwardPawnMgPenalty = -15
	backwardPawnEgPenalty = -10
)

const tempoBonus = 10

// Piece-square tables from White's perspective, mirrored for Black.

var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [...][64]int{
	pawnPST, knightPST, bishopPST, rookPST, queenPST, kingMidgamePST,
}

// maxPhase corresponds to both sides keeping all minor and major pieces.
const maxPhase = 24

var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

// GamePhase returns the game phase from 0 (bare kings) to 24 (full
// material). Used for the tapered evaluation and draw decisions.
func GamePhase(pos *board.Position) int {
	phase := 0
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Knight; pt <= board.Queen; pt++ {
			phase += pos.Pieces[c][pt].PopCount() * phaseWeight[pt]
		}
	}
	if phase > maxPhase {
		phase = maxPhase
	}
	return phase
}

// Evaluate returns the static evaluation from the side to move's
// perspective, without a pawn structure cache.
func Evaluate(pos *board.Position) int {
	return EvaluateWithPawnTable(pos, nil)
}

// EvaluateWithPawnTable returns the static evaluation from the side to
// move's perspective. Pawn structure scores are cached in pt when given.
func EvaluateWithPawnTable(pos *board.Position, pt *PawnTable) int {
	var mg, eg, phase int

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}

		for piece := board.Pawn; piece <= board.King; piece++ {
			bb := pos.Pieces[c][piece]
			phase += bb.PopCount() * phaseWeight[piece]

			for bb != 0 {
				sq := bb.PopLSB()

				mg += sign * pieceValues[piece]
				eg += sign * pieceValues[piece]

				pstSq := sq
				if c == board.Black {
					pstSq = sq.Mirror()
				}
				if piece == board.King {
					mg += sign * kingMidgamePST[pstSq]
					eg += sign * kingEndgamePST[pstSq]
				} else {
					v := psts[piece][pstSq]
					mg += sign * v
					eg += sign * v
				}
			}
		}
	}

	ppMg, ppEg := evaluatePassedPawns(pos)
	mg += ppMg
	eg += ppEg

	mobMg, mobEg := evaluateMobility(pos)
	mg += mobMg
	eg += mobEg

	mg += evaluateKingSafety(pos)

	bpMg, bpEg := evaluateBishopPair(pos)
	mg += bpMg
	eg += bpEg

	rfMg, rfEg := evaluateRooksOnFiles(pos)
	mg += rfMg
	eg += rfEg

	psMg, psEg := evaluatePawnStructureWithCache(pos, pt)
	mg += psMg
	eg += psEg

	if phase > maxPhase {
		phase = maxPhase
	}
	score := (mg*phase + eg*(maxPhase-phase)) / maxPhase
	score += tempoBonus

	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}

// EvaluateMaterial returns the raw material balance from the side to
// move's perspective.
func EvaluateMaterial(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		score += pos.Pieces[board.White][pt].PopCount() * pieceValues[pt]
		score -= pos.Pieces[board.Black][pt].PopCount() * pieceValues[pt]
	}
	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}

// IsEndgame reports whether the position has simplified into an endgame.
func IsEndgame(pos *board.Position) bool {
	return GamePhase(pos) <= 6
}

// isPassedPawn reports whether the pawn on sq has no enemy pawn ahead of
// it on its own or an adjacent file.
func isPassedPawn(pos *board.Position, sq board.Square, color board.Color) bool {
	file := sq.File()
	enemyPawns := pos.Pieces[color.Other()][board.Pawn]

	fileMask := board.FileMask[file]
	if file > 0 {
		fileMask |= board.FileMask[file-1]
	}
	if file < 7 {
		fileMask |= board.FileMask[file+1]
	}

	var frontMask board.Bitboard
	if color == board.White {
		frontMask = board.SquareBB(sq).NorthFill() &^ board.SquareBB(sq)
	} else {
		frontMask = board.SquareBB(sq).SouthFill() &^ board.SquareBB(sq)
	}

	return enemyPawns&fileMask&frontMask == 0
}

func evaluatePassedPawns(pos *board.Position) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}

		friendlyPawns := pos.Pieces[color][board.Pawn]

		for pawns := friendlyPawns; pawns != 0; {
			sq := pawns.PopLSB()
			if !isPassedPawn(pos, sq, color) {
				continue
			}

			file := sq.File()
			bonus := passedPawnBonus[sq.RelativeRank(color)]

			// Protected by an own pawn.
			if board.PawnAttacks(sq, color.Other())&friendlyPawns != 0 {
				bonus += passedPawnProtectedBonus
			}

			// Another passed pawn on an adjacent file.
			var adjacent board.Bitboard
			if file > 0 {
				adjacent |= board.FileMask[file-1]
			}
			if file < 7 {
				adjacent |= board.FileMask[file+1]
			}
			for others := friendlyPawns & adjacent; others != 0; {
				if isPassedPawn(pos, others.PopLSB(), color) {
					bonus += passedPawnConnectedBonus
					break
				}
			}

			// Nothing in the way to promotion.
			var front board.Bitboard
			if color == board.White {
				front = board.SquareBB(sq).NorthFill() &^ board.SquareBB(sq)
			} else {
				front = board.SquareBB(sq).SouthFill() &^ board.SquareBB(sq)
			}
			if front&board.FileMask[file]&pos.AllOccupied == 0 {
				bonus += passedPawnFreePathBonus
			}

			mgBonus += sign * bonus
			egBonus += sign * bonus * 3 / 2
		}
	}
	return mgBonus, egBonus
}

func evaluateMobility(pos *board.Position) (mgBonus, egBonus int) {
	occupied := pos.AllOccupied

	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}

		// Squares hit by enemy pawns or holding own pieces don't count as
		// mobility.
		enemyPawns := pos.Pieces[color.Other()][board.Pawn]
		var unsafe board.Bitboard
		if color == board.White {
			unsafe = enemyPawns.SouthEast() | enemyPawns.SouthWest()
		} else {
			unsafe = enemyPawns.NorthEast() | enemyPawns.NorthWest()
		}
		blocked := unsafe | pos.Occupied[color]

		for pt := board.Knight; pt <= board.Queen; pt++ {
			for bb := pos.Pieces[color][pt]; bb != 0; {
				sq := bb.PopLSB()
				var attacks board.Bitboard
				switch pt {
				case board.Knight:
					attacks = board.KnightAttacks(sq)
				case board.Bishop:
					attacks = board.BishopAttacks(sq, occupied)
				case board.Rook:
					attacks = board.RookAttacks(sq, occupied)
				case board.Queen:
					attacks = board.QueenAttacks(sq, occupied)
				}
				count := (attacks &^ blocked).PopCount()
				mgBonus += sign * mobilityMgWeight[pt] * count
				egBonus += sign * mobilityEgWeight[pt] * count
			}
		}
	}
	return mgBonus, egBonus
}

// evaluateKingSafety scores attacks on the king zone and the pawn shield.
// Middlegame only.
func evaluateKingSafety(pos *board.Position) int {
	var score int
	occupied := pos.AllOccupied

	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}

		kingSq := pos.KingSquare[color]
		kingZone := board.KingAttacks(kingSq) | board.SquareBB(kingSq)
		if color == board.White {
			kingZone |= kingZone.North()
		} else {
			kingZone |= kingZone.South()
		}

		enemy := color.Other()
		attackerCount := 0
		attackWeight := 0

		for pt := board.Knight; pt <= board.Queen; pt++ {
			for bb := pos.Pieces[enemy][pt]; bb != 0; {
				sq := bb.PopLSB()
				var attacks board.Bitboard
				switch pt {
				case board.Knight:
					attacks = board.KnightAttacks(sq)
				case board.Bishop:
					attacks = board.BishopAttacks(sq, occupied)
				case board.Rook:
					attacks = board.RookAttacks(sq, occupied)
				case board.Queen:
					attacks = board.QueenAttacks(sq, occupied)
				}
				if attacks&kingZone != 0 {
					attackerCount++
					attackWeight += attackerWeight[pt]
				}
			}
		}

		// Multiple attackers compound.
		if attackerCount >= 2 {
			attackWeight = attackWeight * attackerCount / 2
		}
		score -= sign * attackWeight

		ownPawns := pos.Pieces[color][board.Pawn]
		enemyPawns := pos.Pieces[enemy][board.Pawn]
		kingFile := kingSq.File()

		shieldRank := 1
		if color == board.Black {
			shieldRank = 6
		}

		for f := kingFile - 1; f <= kingFile+1; f++ {
			if f < 0 || f > 7 {
				continue
			}
			fileMask := board.FileMask[f]
			filePawns := ownPawns & fileMask

			if ownPawns&fileMask&board.RankMask[shieldRank] != 0 {
				score += sign * pawnShieldBonus
			} else if filePawns == 0 {
				score += sign * pawnShieldMissing
			}

			if filePawns == 0 {
				if enemyPawns&fileMask == 0 {
					score += sign * openFileNearKing
				} else {
					score += sign * semiOpenFileNearKing
				}
			}
		}
	}
	return score
}

func evaluateBishopPair(pos *board.Position) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}
		if pos.Pieces[color][board.Bishop].PopCount() >= 2 {
			mgBonus += sign * bishopPairMgBonus
			egBonus += sign * bishopPairEgBonus
		}
	}
	return mgBonus, egBonus
}

func evaluateRooksOnFiles(pos *board.Position) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}

		ownPawns := pos.Pieces[color][board.Pawn]
		enemyPawns := pos.Pieces[color.Other()][board.Pawn]

		for rooks := pos.Pieces[color][board.Rook]; rooks != 0; {
			fileMask := board.FileMask[rooks.PopLSB().File()]
			if ownPawns&fileMask != 0 {
				continue
			}
			if enemyPawns&fileMask == 0 {
				mgBonus += sign * rookOpenFileMg
				egBonus += sign * rookOpenFileEg
			} else {
				mgBonus += sign * rookSemiOpenFileMg
				egBonus += sign * rookSemiOpenFileEg
			}
		}
	}
	return mgBonus, egBonus
}

func evaluatePawnStructure(pos *board.Position) (mgPenalty, egPenalty int) {
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}

		allPawns := pos.Pieces[color][board.Pawn]
		enemyPawns := pos.Pieces[color.Other()][board.Pawn]

		for pawns := allPawns; pawns != 0; {
			sq := pawns.PopLSB()
			file := sq.File()
			fileMask := board.FileMask[file]

			// Doubled pawns, counted once per file at the forward pawn.
			pawnsOnFile := allPawns & fileMask
			if pawnsOnFile.PopCount() > 1 {
				forward := pawnsOnFile.MSB()
				if color == board.Black {
					forward = pawnsOnFile.LSB()
				}
				if sq == forward {
					mgPenalty += sign * doubledPawnMgPenalty
					egPenalty += sign * doubledPawnEgPenalty
				}
			}

			var adjacent board.Bitboard
			if file > 0 {
				adjacent |= board.FileMask[file-1]
			}
			if file < 7 {
				adjacent |= board.FileMask[file+1]
			}

			// Isolated pawns can't also be backward.
			if allPawns&adjacent == 0 {
				mgPenalty += sign * isolatedPawnMgPenalty
				egPenalty += sign * isolatedPawnEgPenalty
				continue
			}

			// Backward: every supporting pawn is ahead of it and the stop
			// square is covered by an enemy pawn.
			if sq.RelativeRank(color) > 1 {
				var behind board.Bitboard
				if color == board.White {
					for r := 0; r < sq.Rank(); r++ {
						behind |= board.RankMask[r]
					}
				} else {
					for r := sq.Rank() + 1; r < 8; r++ {
						behind |= board.RankMask[r]
					}
				}

				supporters := allPawns & adjacent
				if supporters&behind == supporters {
					continue
				}

				var stopSq board.Square
				if color == board.White {
					stopSq = sq + 8
				} else {
					stopSq = sq - 8
				}
				if stopSq.IsValid() && enemyPawns&board.PawnAttacks(stopSq, color) != 0 {
					mgPenalty += sign * backwardPawnMgPenalty
					egPenalty += sign * backwardPawnEgPenalty
				}
			}
		}
	}
	return mgPenalty, egPenalty
}

// evaluatePawnStructureWithCache caches pawn structure scores by pawn key.
func evaluatePawnStructureWithCache(pos *board.Position, pt *PawnTable) (mgScore, egScore int) {
	if pt == nil {
		return evaluatePawnStructure(pos)
	}
	if mg, eg, found := pt.Probe(pos.PawnKey); found {
		return mg, eg
	}
	mg, eg := evaluatePawnStructure(pos)
	pt.Store(pos.PawnKey, mg, eg)
	return mg, eg
}

package engine

import (
	"github.com/hailam/kingfisher/internal/board"
)

// Exchange values used by SEE. The king value is large enough that an
// exchange ending with the king being "captured" always loses.
var seeValues = [6]int{100, 320, 330, 500, 900, 20000}

// SEE returns the static exchange evaluation of a move in centipawns:
// the expected material outcome on the target square assuming both sides
// capture with their least valuable attacker while it is profitable.
func SEE(pos *board.Position, m board.Move) int {
	to := m.To()
	from := m.From()

	var gain [32]int
	occ := pos.AllOccupied

	if m.IsEnPassant() {
		gain[0] = seeValues[board.Pawn]
		capturedSq := board.Square(int(to) - 8)
		if pos.SideToMove == board.Black {
			capturedSq = board.Square(int(to) + 8)
		}
		occ ^= board.SquareBB(capturedSq)
	} else if captured := pos.PieceTypeAt(to); captured != board.NoPieceType {
		gain[0] = seeValues[captured]
	}

	attacker := pos.PieceTypeAt(from)
	if m.IsPromotion() {
		gain[0] += seeValues[m.Promotion()] - seeValues[board.Pawn]
		attacker = m.Promotion()
	}

	occ ^= board.SquareBB(from)
	attackers := pos.AttackersTo(to, occ)
	attackers |= xrayAttackers(pos, to, occ)
	attackers &= occ

	side := pos.SideToMove.Other()
	d := 0
	for {
		next, pt := leastValuableAttacker(pos, attackers&pos.Occupied[side], occ)
		if next == 0 {
			break
		}

		d++
		gain[d] = seeValues[attacker] - gain[d-1]
		// Neither side is forced to keep capturing at a loss.
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}

		attacker = pt
		occ ^= next
		attackers |= xrayAttackers(pos, to, occ)
		attackers &= occ
		side = side.Other()
	}

	for ; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

// SEEGE reports whether SEE(m) meets the given threshold.
func SEEGE(pos *board.Position, m board.Move, threshold int) bool {
	return SEE(pos, m) >= threshold
}

// xrayAttackers returns slider attacks to sq that are revealed by the
// current occupancy. Removing a pawn, bishop or queen can open a diagonal;
// removing a rook or queen can open a file or rank.
func xrayAttackers(pos *board.Position, sq board.Square, occ board.Bitboard) board.Bitboard {
	diag := pos.Pieces[board.White][board.Bishop] | pos.Pieces[board.Black][board.Bishop] |
		pos.Pieces[board.White][board.Queen] | pos.Pieces[board.Black][board.Queen]
	line := pos.Pieces[board.White][board.Rook] | pos.Pieces[board.Black][board.Rook] |
		pos.Pieces[board.White][board.Queen] | pos.Pieces[board.Black][board.Queen]

	return (board.BishopAttacks(sq, occ) & diag) | (board.RookAttacks(sq, occ) & line)
}

// leastValuableAttacker picks the cheapest piece among the given attackers
// that is still on the board.
func leastValuableAttacker(pos *board.Position, attackers, occ board.Bitboard) (board.Bitboard, board.PieceType) {
	attackers &= occ
	if attackers == 0 {
		return 0, board.NoPieceType
	}

	for pt := board.Pawn; pt <= board.King; pt++ {
		pieces := attackers & (pos.Pieces[board.White][pt] | pos.Pieces[board.Black][pt])
		if pieces != 0 {
			return pieces & -pieces, pt
		}
	}
	return 0, board.NoPieceType
}

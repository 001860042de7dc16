package board

var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard

	// betweenBB holds the squares strictly between two aligned squares,
	// lineBB the whole rank, file or diagonal through them (endpoints
	// included). Both are empty for unaligned pairs.
	betweenBB [64][64]Bitboard
	lineBB    [64][64]Bitboard
)

var (
	knightSteps = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [8][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
)

func init() {
	initMagics()

	for sq := A1; sq <= H8; sq++ {
		knightAttacks[sq] = stepAttacks(sq, knightSteps)
		kingAttacks[sq] = stepAttacks(sq, kingSteps)

		bb := SquareBB(sq)
		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}

	initLines()
}

func stepAttacks(sq Square, steps [8][2]int) Bitboard {
	attacks := Empty
	f, r := sq.File(), sq.Rank()
	for _, s := range steps {
		nf, nr := f+s[0], r+s[1]
		if nf >= 0 && nf <= 7 && nr >= 0 && nr <= 7 {
			attacks |= SquareBB(NewSquare(nf, nr))
		}
	}
	return attacks
}

// initLines derives the between and line tables from the slider attack
// tables, so it must run after initMagics. For aligned squares the
// strictly-between set is the intersection of the two sliders' attacks
// with only the other endpoint as a blocker.
func initLines() {
	for a := A1; a <= H8; a++ {
		for b := A1; b <= H8; b++ {
			if a == b {
				continue
			}
			switch {
			case getBishopAttacks(a, Empty)&SquareBB(b) != 0:
				lineBB[a][b] = (getBishopAttacks(a, Empty) & getBishopAttacks(b, Empty)) | SquareBB(a) | SquareBB(b)
				betweenBB[a][b] = getBishopAttacks(a, SquareBB(b)) & getBishopAttacks(b, SquareBB(a))
			case getRookAttacks(a, Empty)&SquareBB(b) != 0:
				lineBB[a][b] = (getRookAttacks(a, Empty) & getRookAttacks(b, Empty)) | SquareBB(a) | SquareBB(b)
				betweenBB[a][b] = getRookAttacks(a, SquareBB(b)) & getRookAttacks(b, SquareBB(a))
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// KnightAttacks returns the knight attack bitboard for a square.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack bitboard for a square.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the pawn capture bitboard for a square and color.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// BishopAttacks returns the bishop attack bitboard for a square with the
// given occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return getBishopAttacks(sq, occupied)
}

// RookAttacks returns the rook attack bitboard for a square with the
// given occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return getRookAttacks(sq, occupied)
}

// QueenAttacks returns the queen attack bitboard for a square with the
// given occupancy.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}

// Between returns the squares strictly between two aligned squares.
func Between(sq1, sq2 Square) Bitboard {
	return betweenBB[sq1][sq2]
}

// Line returns the full line through two aligned squares.
func Line(sq1, sq2 Square) Bitboard {
	return lineBB[sq1][sq2]
}

// AttackersTo returns all pieces of either color attacking a square.
func (p *Position) AttackersTo(sq Square, occupied Bitboard) Bitboard {
	return (pawnAttacks[Black][sq] & p.Pieces[White][Pawn]) |
		(pawnAttacks[White][sq] & p.Pieces[Black][Pawn]) |
		(knightAttacks[sq] & (p.Pieces[White][Knight] | p.Pieces[Black][Knight])) |
		(kingAttacks[sq] & (p.Pieces[White][King] | p.Pieces[Black][King])) |
		(BishopAttacks(sq, occupied) & (p.Pieces[White][Bishop] | p.Pieces[Black][Bishop] | p.Pieces[White][Queen] | p.Pieces[Black][Queen])) |
		(RookAttacks(sq, occupied) & (p.Pieces[White][Rook] | p.Pieces[Black][Rook] | p.Pieces[White][Queen] | p.Pieces[Black][Queen]))
}

// AttackersByColor returns the pieces of one color attacking a square.
func (p *Position) AttackersByColor(sq Square, c Color, occupied Bitboard) Bitboard {
	enemy := c.Other()
	return (pawnAttacks[enemy][sq] & p.Pieces[c][Pawn]) |
		(knightAttacks[sq] & p.Pieces[c][Knight]) |
		(kingAttacks[sq] & p.Pieces[c][King]) |
		(BishopAttacks(sq, occupied) & (p.Pieces[c][Bishop] | p.Pieces[c][Queen])) |
		(RookAttacks(sq, occupied) & (p.Pieces[c][Rook] | p.Pieces[c][Queen]))
}

// IsSquareAttacked reports whether the square is attacked by the given color.
func (p *Position) IsSquareAttacked(sq Square, byColor Color) bool {
	return p.AttackersByColor(sq, byColor, p.AllOccupied) != 0
}

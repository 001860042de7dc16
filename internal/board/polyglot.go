package board

// Offsets into polyglotRandom64.
const (
	polyglotCastleOffset = 768
	polyglotEPOffset     = 772
	polyglotTurnOffset   = 780
)

// PolyglotHash computes the position key used by Polyglot opening books.
// The piece kind ordering interleaves colors: black pawn 0, white pawn 1,
// black knight 2, and so on. The en passant file is hashed only when a
// pawn could actually capture, which is where this key diverges from a
// naive FEN-based one.
func (p *Position) PolyglotHash() uint64 {
	var hash uint64

	for color := White; color <= Black; color++ {
		colorBit := 0
		if color == White {
			colorBit = 1
		}
		for pt := Pawn; pt <= King; pt++ {
			kind := 2*int(pt) + colorBit
			for bb := p.Pieces[color][pt]; bb != 0; {
				sq := bb.PopLSB()
				hash ^= polyglotRandom64[64*kind+int(sq)]
			}
		}
	}

	if p.CastlingRights&WhiteKingSideCastle != 0 {
		hash ^= polyglotRandom64[polyglotCastleOffset]
	}
	if p.CastlingRights&WhiteQueenSideCastle != 0 {
		hash ^= polyglotRandom64[polyglotCastleOffset+1]
	}
	if p.CastlingRights&BlackKingSideCastle != 0 {
		hash ^= polyglotRandom64[polyglotCastleOffset+2]
	}
	if p.CastlingRights&BlackQueenSideCastle != 0 {
		hash ^= polyglotRandom64[polyglotCastleOffset+3]
	}

	if p.EnPassant != NoSquare && p.epCapturable() {
		hash ^= polyglotRandom64[polyglotEPOffset+p.EnPassant.File()]
	}

	if p.SideToMove == White {
		hash ^= polyglotRandom64[polyglotTurnOffset]
	}

	return hash
}

// epCapturable reports whether a pawn of the side to move stands next to
// the en passant square's file on the capturing rank.
func (p *Position) epCapturable() bool {
	file := p.EnPassant.File()
	rank := 4 // white pawns capture from rank 5 (index 4)
	if p.SideToMove == Black {
		rank = 3
	}

	pawns := p.Pieces[p.SideToMove][Pawn] & RankMask[rank]
	if file > 0 && pawns&SquareBB(NewSquare(file-1, rank)) != 0 {
		return true
	}
	if file < 7 && pawns&SquareBB(NewSquare(file+1, rank)) != 0 {
		return true
	}
	return false
}

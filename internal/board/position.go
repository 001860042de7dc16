package board

import "fmt"

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	if cr&WhiteKingSideCastle != 0 {
		s += "K"
	}
	if cr&WhiteQueenSideCastle != 0 {
		s += "Q"
	}
	if cr&BlackKingSideCastle != 0 {
		s += "k"
	}
	if cr&BlackQueenSideCastle != 0 {
		s += "q"
	}
	return s
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	if c == White {
		if kingSide {
			return cr&WhiteKingSideCastle != 0
		}
		return cr&WhiteQueenSideCastle != 0
	}
	if kingSide {
		return cr&BlackKingSideCastle != 0
	}
	return cr&BlackQueenSideCastle != 0
}

// castleRightsRevoke maps each square to the castling rights lost when a move
// touches that square as origin or destination. Covers king moves, rook
// moves, and rook captures with a single table lookup.
var castleRightsRevoke = [64]CastlingRights{
	A1: WhiteQueenSideCastle,
	E1: WhiteKingSideCastle | WhiteQueenSideCastle,
	H1: WhiteKingSideCastle,
	A8: BlackQueenSideCastle,
	E8: BlackKingSideCastle | BlackQueenSideCastle,
	H8: BlackKingSideCastle,
}

// Position represents a complete chess position.
//
// Position is a value type: Make and MakeNull return a new Position and never
// modify the receiver. Each search frame owns its own Position, so positions
// flow through recursion and across goroutines without synchronization.
type Position struct {
	// Piece bitboards: [Color][PieceType]
	Pieces [2][6]Bitboard

	// Occupancy bitboards (cached for efficiency)
	Occupied    [2]Bitboard // All pieces of each color
	AllOccupied Bitboard    // All pieces on the board

	// Game state
	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // Target square for en passant, NoSquare if none
	HalfMoveClock  int    // Moves since last pawn move or capture (for 50-move rule)
	FullMoveNumber int    // Full move counter, starts at 1

	// Zobrist hash for transposition table
	Hash uint64

	// Pawn hash key for pawn structure caching
	PawnKey uint64

	// King positions (cached for check detection)
	KingSquare [2]Square
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)

	if p.AllOccupied&bb == 0 {
		return NoPiece
	}

	var c Color
	if p.Occupied[White]&bb != 0 {
		c = White
	} else {
		c = Black
	}

	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}

	return NoPiece
}

// PieceTypeAt returns the piece type at the given square regardless of color.
func (p *Position) PieceTypeAt(sq Square) PieceType {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPieceType
	}
	for pt := Pawn; pt <= King; pt++ {
		if (p.Pieces[White][pt]|p.Pieces[Black][pt])&bb != 0 {
			return pt
		}
	}
	return NoPieceType
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

// setPiece places a piece on a square (does not update hash).
// Used by FEN parsing to build a position square by square.
func (p *Position) setPiece(piece Piece, sq Square) {
	if piece == NoPiece {
		return
	}
	c := piece.Color()
	pt := piece.Type()
	bb := SquareBB(sq)

	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb

	if pt == King {
		p.KingSquare[c] = sq
	}
}

// togglePiece flips a piece bit on a square and keeps occupancy in sync.
func (p *Position) togglePiece(pt PieceType, c Color, sq Square) {
	bb := SquareBB(sq)
	p.Pieces[c][pt] ^= bb
	p.Occupied[c] ^= bb
	p.AllOccupied ^= bb
}

// Make applies a move and returns the resulting position. The receiver is
// left untouched; the returned value carries an incrementally updated Zobrist
// hash and pawn key. The move must come from GenerateLegalMoves.
func (p *Position) Make(m Move) Position {
	next := *p
	us := next.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	pt := next.PieceTypeAt(from)

	// Hash out state that is about to change.
	if next.EnPassant != NoSquare {
		next.Hash ^= zobristEnPassant[next.EnPassant.File()]
	}
	next.Hash ^= zobristCastling[next.CastlingRights]
	next.EnPassant = NoSquare

	isCapture := p.AllOccupied&SquareBB(to) != 0 && !m.IsCastling()

	switch m.Flag() {
	case FlagNormal:
		if isCapture {
			captured := next.PieceTypeAt(to)
			next.togglePiece(captured, them, to)
			next.Hash ^= zobristPiece[them][captured][to]
			if captured == Pawn {
				next.PawnKey ^= zobristPiece[them][Pawn][to]
			}
		}
		next.togglePiece(pt, us, from)
		next.togglePiece(pt, us, to)
		next.Hash ^= zobristPiece[us][pt][from] ^ zobristPiece[us][pt][to]
		if pt == Pawn {
			next.PawnKey ^= zobristPiece[us][Pawn][from] ^ zobristPiece[us][Pawn][to]
			// A double push sets the en passant target behind the pawn.
			if diff := int(to) - int(from); diff == 16 || diff == -16 {
				next.EnPassant = Square((int(from) + int(to)) / 2)
			}
		}
		if pt == King {
			next.KingSquare[us] = to
		}

	case FlagPromotion:
		if isCapture {
			captured := next.PieceTypeAt(to)
			next.togglePiece(captured, them, to)
			next.Hash ^= zobristPiece[them][captured][to]
		}
		promo := m.Promotion()
		next.togglePiece(Pawn, us, from)
		next.togglePiece(promo, us, to)
		next.Hash ^= zobristPiece[us][Pawn][from] ^ zobristPiece[us][promo][to]
		next.PawnKey ^= zobristPiece[us][Pawn][from]

	case FlagEnPassant:
		next.togglePiece(Pawn, us, from)
		next.togglePiece(Pawn, us, to)
		next.Hash ^= zobristPiece[us][Pawn][from] ^ zobristPiece[us][Pawn][to]
		next.PawnKey ^= zobristPiece[us][Pawn][from] ^ zobristPiece[us][Pawn][to]

		// The captured pawn sits one rank behind the target square.
		var capturedSq Square
		if us == White {
			capturedSq = to - 8
		} else {
			capturedSq = to + 8
		}
		next.togglePiece(Pawn, them, capturedSq)
		next.Hash ^= zobristPiece[them][Pawn][capturedSq]
		next.PawnKey ^= zobristPiece[them][Pawn][capturedSq]
		isCapture = true

	case FlagCastling:
		next.togglePiece(King, us, from)
		next.togglePiece(King, us, to)
		next.Hash ^= zobristPiece[us][King][from] ^ zobristPiece[us][King][to]
		next.KingSquare[us] = to

		var rookFrom, rookTo Square
		switch to {
		case G1:
			rookFrom, rookTo = H1, F1
		case C1:
			rookFrom, rookTo = A1, D1
		case G8:
			rookFrom, rookTo = H8, F8
		case C8:
			rookFrom, rookTo = A8, D8
		}
		next.togglePiece(Rook, us, rookFrom)
		next.togglePiece(Rook, us, rookTo)
		next.Hash ^= zobristPiece[us][Rook][rookFrom] ^ zobristPiece[us][Rook][rookTo]
	}

	next.CastlingRights &^= castleRightsRevoke[from] | castleRightsRevoke[to]
	next.Hash ^= zobristCastling[next.CastlingRights]

	if next.EnPassant != NoSquare {
		next.Hash ^= zobristEnPassant[next.EnPassant.File()]
	}

	if pt == Pawn || isCapture {
		next.HalfMoveClock = 0
	} else {
		next.HalfMoveClock++
	}

	next.SideToMove = them
	next.Hash ^= zobristSideToMove

	if us == Black {
		next.FullMoveNumber++
	}

	return next
}

// MakeNull switches the side to move without moving a piece. Used by null
// move pruning; the en passant target is cleared because the skipped move
// could otherwise be refuted by a phantom capture.
func (p *Position) MakeNull() Position {
	next := *p
	if next.EnPassant != NoSquare {
		next.Hash ^= zobristEnPassant[next.EnPassant.File()]
		next.EnPassant = NoSquare
	}
	next.SideToMove = next.SideToMove.Other()
	next.Hash ^= zobristSideToMove
	next.HalfMoveClock++
	return next
}

// InCheck returns true if the side to move's king is attacked.
func (p *Position) InCheck() bool {
	return p.IsSquareAttacked(p.KingSquare[p.SideToMove], p.SideToMove.Other())
}

// HasNonPawnMaterial returns true if the side to move has at least one piece
// other than pawns and the king. Null move pruning requires this to avoid
// zugzwang blunders in pawn endings.
func (p *Position) HasNonPawnMaterial() bool {
	us := p.SideToMove
	return p.Pieces[us][Knight]|p.Pieces[us][Bishop]|p.Pieces[us][Rook]|p.Pieces[us][Queen] != 0
}

// Material returns the material balance in centipawns (positive favors white).
func (p *Position) Material() int {
	score := 0
	for pt := Pawn; pt < King; pt++ {
		score += p.Pieces[White][pt].PopCount() * PieceValue[pt]
		score -= p.Pieces[Black][pt].PopCount() * PieceValue[pt]
	}
	return score
}

// updateOccupied recalculates occupancy bitboards from piece bitboards.
func (p *Position) updateOccupied() {
	p.Occupied[White] = Empty
	p.Occupied[Black] = Empty

	for pt := Pawn; pt <= King; pt++ {
		p.Occupied[White] |= p.Pieces[White][pt]
		p.Occupied[Black] |= p.Pieces[Black][pt]
	}

	p.AllOccupied = p.Occupied[White] | p.Occupied[Black]
}

// findKings locates and caches the king positions.
func (p *Position) findKings() {
	p.KingSquare[White] = p.Pieces[White][King].LSB()
	p.KingSquare[Black] = p.Pieces[Black][King].LSB()
}

// Validate checks internal consistency of the position.
func (p *Position) Validate() error {
	if p.Pieces[White][King].PopCount() != 1 {
		return fmt.Errorf("white must have exactly one king")
	}
	if p.Pieces[Black][King].PopCount() != 1 {
		return fmt.Errorf("black must have exactly one king")
	}
	if p.Occupied[White]&p.Occupied[Black] != 0 {
		return fmt.Errorf("overlapping occupancy bitboards")
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fmt.Errorf("pawns cannot be on rank 1 or 8")
	}
	// The side that just moved must not have left its own king attacked.
	them := p.SideToMove.Other()
	if p.IsSquareAttacked(p.KingSquare[them], p.SideToMove) {
		return fmt.Errorf("side not to move is in check")
	}
	return nil
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	s := "\n"
	for rank := 7; rank >= 0; rank-- {
		s += fmt.Sprintf("%d  ", rank+1)
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			piece := p.PieceAt(sq)
			if piece == NoPiece {
				s += ". "
			} else {
				s += piece.String() + " "
			}
		}
		s += "\n"
	}
	s += "\n   a b c d e f g h\n\n"
	s += fmt.Sprintf("FEN: %s\n", p.ToFEN())
	s += fmt.Sprintf("Hash: %016x\n", p.Hash)
	return s
}

package board

import (
	"fmt"
	"strings"
)

// Move packs a move into 16 bits: from square in bits 0-5, to square
// in bits 6-11, promotion piece index in bits 12-13 and the move kind
// in bits 14-15. The compact form lets the transposition table store
// moves inline.
type Move uint16

const (
	FlagNormal Move = iota << 14
	FlagPromotion
	FlagEnPassant
	FlagCastling

	flagMask Move = 3 << 14
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

// promoChars maps the two promotion bits to UCI letters and back.
const promoChars = "nbrq"

func makeMove(from, to Square, flag Move) Move {
	return Move(from) | Move(to)<<6 | flag
}

// NewMove creates a normal move.
func NewMove(from, to Square) Move {
	return makeMove(from, to, FlagNormal)
}

// NewPromotion creates a promotion move. promo must be Knight, Bishop,
// Rook or Queen.
func NewPromotion(from, to Square, promo PieceType) Move {
	return makeMove(from, to, FlagPromotion) | Move(promo-Knight)<<12
}

// NewEnPassant creates an en passant capture.
func NewEnPassant(from, to Square) Move {
	return makeMove(from, to, FlagEnPassant)
}

// NewCastling creates a castling move, expressed as the king's hop.
func NewCastling(from, to Square) Move {
	return makeMove(from, to, FlagCastling)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square(m>>6) & 0x3F
}

// Flag returns the move kind bits.
func (m Move) Flag() Move {
	return m & flagMask
}

// Promotion returns the promotion piece type. Meaningful only when
// IsPromotion reports true.
func (m Move) Promotion() PieceType {
	return Knight + PieceType(m>>12)&3
}

// IsPromotion reports whether this is a promotion.
func (m Move) IsPromotion() bool {
	return m.Flag() == FlagPromotion
}

// IsCastling reports whether this is a castling move.
func (m Move) IsCastling() bool {
	return m.Flag() == FlagCastling
}

// IsEnPassant reports whether this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// IsCapture reports whether the move takes a piece in the given position.
func (m Move) IsCapture(pos *Position) bool {
	return m.IsEnPassant() || !pos.IsEmpty(m.To())
}

// IsQuiet reports whether the move is neither a capture nor a promotion.
func (m Move) IsQuiet(pos *Position) bool {
	return !m.IsCapture(pos) && !m.IsPromotion()
}

// String returns the UCI form of the move, for example "e2e4" or "e7e8q".
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(promoChars[m.Promotion()-Knight])
	}
	return s
}

// ParseMove parses a UCI move string against a position. The position
// decides whether a king hop is castling and whether a pawn capture is
// en passant; UCI notation does not distinguish them.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("malformed move %q", s)
	}

	from, err := ParseSquare(s[:2])
	if err != nil {
		return NoMove, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	if len(s) == 5 {
		idx := strings.IndexByte(promoChars, s[4])
		if idx < 0 {
			return NoMove, fmt.Errorf("bad promotion piece %q", s[4])
		}
		return NewPromotion(from, to, Knight+PieceType(idx)), nil
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece on %s", from)
	}

	switch piece.Type() {
	case King:
		if abs(int(to)-int(from)) == 2 {
			return NewCastling(from, to), nil
		}
	case Pawn:
		if to == pos.EnPassant {
			return NewEnPassant(from, to), nil
		}
	}
	return NewMove(from, to), nil
}

// MoveList is a fixed-capacity move buffer. Generation and ordering
// work in place so a node never allocates.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add appends a move.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves held.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set overwrites the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap exchanges the moves at i and j.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear empties the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains reports whether m is present.
func (ml *MoveList) Contains(m Move) bool {
	for _, have := range ml.moves[:ml.count] {
		if have == m {
			return true
		}
	}
	return false
}

// Slice returns the held moves backed by the list's own storage.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

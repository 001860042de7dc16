package board

// Color is the side a piece belongs to.
type Color uint8

const (
	White Color = 0
	Black Color = 1
)

// Other returns the opposing color.
func (c Color) Other() Color { return c ^ 1 }

func (c Color) String() string {
	if c == White {
		return "White"
	}
	return "Black"
}

// PieceType is a piece kind without color. The ordering ascends in
// rough material value so it doubles as an index into value tables.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType
)

var pieceTypeNames = [...]string{"Pawn", "Knight", "Bishop", "Rook", "Queen", "King", "None"}

func (pt PieceType) String() string {
	if pt > NoPieceType {
		return "None"
	}
	return pieceTypeNames[pt]
}

// PieceValue maps a piece type to its material worth in centipawns.
var PieceValue = [7]int{100, 320, 330, 500, 900, 20000, 0}

// Piece is a colored piece, encoded as type + 6*color. NoPiece marks an
// empty square.
type Piece uint8

const (
	WhitePawn Piece = iota
	WhiteKnight
	WhiteBishop
	WhiteRook
	WhiteQueen
	WhiteKing
	BlackPawn
	BlackKnight
	BlackBishop
	BlackRook
	BlackQueen
	BlackKing
	NoPiece
)

// NewPiece combines a type and color into a Piece.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType {
		return NoPiece
	}
	return Piece(pt) + Piece(c)*6
}

// Type returns the piece kind, or NoPieceType for NoPiece.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 6)
}

// Color returns the side owning the piece. Only meaningful for real
// pieces.
func (p Piece) Color() Color {
	return Color(p / 6)
}

const pieceChars = "PNBRQKpnbrqk"

// String returns the FEN letter, uppercase for White.
func (p Piece) String() string {
	if p >= NoPiece {
		return " "
	}
	return string(pieceChars[p])
}

// PieceFromChar decodes a FEN piece letter, NoPiece for anything else.
func PieceFromChar(c byte) Piece {
	for i := 0; i < len(pieceChars); i++ {
		if pieceChars[i] == c {
			return Piece(i)
		}
	}
	return NoPiece
}

// Package board implements the chess position model: bitboards, legal
// move generation and copy-make move application.
package board

import "fmt"

// Square indexes a board square in little-endian rank-file order, so
// a1 is 0, h1 is 7 and h8 is 63.
type Square uint8

const (
	A1, B1, C1, D1, E1, F1, G1, H1 = Square(0), Square(1), Square(2), Square(3), Square(4), Square(5), Square(6), Square(7)
	A2, B2, C2, D2, E2, F2, G2, H2 = Square(8), Square(9), Square(10), Square(11), Square(12), Square(13), Square(14), Square(15)
	A3, B3, C3, D3, E3, F3, G3, H3 = Square(16), Square(17), Square(18), Square(19), Square(20), Square(21), Square(22), Square(23)
	A4, B4, C4, D4, E4, F4, G4, H4 = Square(24), Square(25), Square(26), Square(27), Square(28), Square(29), Square(30), Square(31)
	A5, B5, C5, D5, E5, F5, G5, H5 = Square(32), Square(33), Square(34), Square(35), Square(36), Square(37), Square(38), Square(39)
	A6, B6, C6, D6, E6, F6, G6, H6 = Square(40), Square(41), Square(42), Square(43), Square(44), Square(45), Square(46), Square(47)
	A7, B7, C7, D7, E7, F7, G7, H7 = Square(48), Square(49), Square(50), Square(51), Square(52), Square(53), Square(54), Square(55)
	A8, B8, C8, D8, E8, F8, G8, H8 = Square(56), Square(57), Square(58), Square(59), Square(60), Square(61), Square(62), Square(63)

	// NoSquare marks the absence of a square, such as no en passant
	// target.
	NoSquare Square = 64
)

// NewSquare builds a square from zero-based file and rank.
func NewSquare(file, rank int) Square {
	return Square(rank<<3 | file)
}

// ParseSquare reads coordinate notation such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

// File returns the zero-based file, 0 for the a-file.
func (sq Square) File() int { return int(sq & 7) }

// Rank returns the zero-based rank, 0 for the first rank.
func (sq Square) Rank() int { return int(sq >> 3) }

// IsValid reports whether sq refers to one of the 64 board squares.
func (sq Square) IsValid() bool { return sq < NoSquare }

// Mirror flips the square to the other side's point of view (a1 <-> a8).
func (sq Square) Mirror() Square { return sq ^ 56 }

// RelativeRank returns the rank as seen by the given color: for Black,
// rank 0 is the eighth rank.
func (sq Square) RelativeRank(c Color) int {
	if c == White {
		return sq.Rank()
	}
	return 7 - sq.Rank()
}

func (sq Square) String() string {
	if !sq.IsValid() {
		return "-"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

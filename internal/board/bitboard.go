package board

import (
	"math/bits"
	"strings"
)

// Bitboard is a set of squares, one bit per square in the same
// little-endian rank-file order as Square.
type Bitboard uint64

const (
	FileA Bitboard = 0x0101010101010101 << iota
	FileB
	FileC
	FileD
	FileE
	FileF
	FileG
	FileH
)

const (
	Rank1 Bitboard = 0xFF << (8 * iota)
	Rank2
	Rank3
	Rank4
	Rank5
	Rank6
	Rank7
	Rank8
)

const (
	Empty    Bitboard = 0
	Universe Bitboard = ^Empty

	NotFileA  = ^FileA
	NotFileH  = ^FileH
	NotFileAB = ^(FileA | FileB)
	NotFileGH = ^(FileG | FileH)
)

// FileMask and RankMask index the file/rank constants by number.
var (
	FileMask = [8]Bitboard{FileA, FileB, FileC, FileD, FileE, FileF, FileG, FileH}
	RankMask = [8]Bitboard{Rank1, Rank2, Rank3, Rank4, Rank5, Rank6, Rank7, Rank8}
)

// SquareBB returns the bitboard with only sq set.
func SquareBB(sq Square) Bitboard {
	return 1 << sq
}

// PopCount returns the number of squares in the set.
func (b Bitboard) PopCount() int {
	return bits.OnesCount64(uint64(b))
}

// LSB returns the lowest set square, or NoSquare for the empty set.
func (b Bitboard) LSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(uint64(b)))
}

// MSB returns the highest set square, or NoSquare for the empty set.
func (b Bitboard) MSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(63 ^ bits.LeadingZeros64(uint64(b)))
}

// PopLSB removes the lowest set square from the set and returns it.
func (b *Bitboard) PopLSB() Square {
	sq := b.LSB()
	*b &= *b - 1
	return sq
}

// One-step shifts. The diagonal and horizontal ones mask off the wrap
// file.

func (b Bitboard) North() Bitboard     { return b << 8 }
func (b Bitboard) South() Bitboard     { return b >> 8 }
func (b Bitboard) East() Bitboard      { return b << 1 & NotFileA }
func (b Bitboard) West() Bitboard      { return b >> 1 & NotFileH }
func (b Bitboard) NorthEast() Bitboard { return b << 9 & NotFileA }
func (b Bitboard) NorthWest() Bitboard { return b << 7 & NotFileH }
func (b Bitboard) SouthEast() Bitboard { return b >> 7 & NotFileA }
func (b Bitboard) SouthWest() Bitboard { return b >> 9 & NotFileH }

// NorthFill smears every set square up to the eighth rank.
func (b Bitboard) NorthFill() Bitboard {
	b |= b << 8
	b |= b << 16
	b |= b << 32
	return b
}

// SouthFill smears every set square down to the first rank.
func (b Bitboard) SouthFill() Bitboard {
	b |= b >> 8
	b |= b >> 16
	b |= b >> 32
	return b
}

// String renders the set as an 8x8 diagram, rank 8 first.
func (b Bitboard) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		for file := 0; file < 8; file++ {
			if b&SquareBB(NewSquare(file, rank)) != 0 {
				sb.WriteString(" 1")
			} else {
				sb.WriteString(" .")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}

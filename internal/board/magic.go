package board

// Fancy magic bitboards for the sliding pieces. Each square maps its
// relevant occupancy subset through a magic multiplier into a shared
// attack table.

type magicEntry struct {
	mask   Bitboard // relevant blockers, edges excluded
	mul    uint64
	shift  uint8
	offset uint32
}

var (
	bishopMagics [64]magicEntry
	rookMagics   [64]magicEntry

	bishopTable [5248]Bitboard
	rookTable   [102400]Bitboard
)

// Known-good magic multipliers.
var bishopMagicNumbers = [64]uint64{
	0x0002020202020200, 0x0002020202020000, 0x0004010202000000, 0x0004040080000000,
	0x0001104000000000, 0x0000821040000000, 0x0000410410400000, 0x0000104104104000,
	0x0000040404040400, 0x0000020202020200, 0x0000040102020000, 0x0000040400800000,
	0x0000011040000000, 0x0000008210400000, 0x0000004104104000, 0x0000002082082000,
	0x0004000808080800, 0x0002000404040400, 0x0001000202020200, 0x0000800802004000,
	0x0000800400A00000, 0x0000200100884000, 0x0000400082082000, 0x0000200041041000,
	0x0002080010101000, 0x0001040008080800, 0x0000208004010400, 0x0000404004010200,
	0x0000840000802000, 0x0000404002011000, 0x0000808001041000, 0x0000404000820800,
	0x0001041000202000, 0x0000820800101000, 0x0000104400080800, 0x0000020080080080,
	0x0000404040040100, 0x0000808100020100, 0x0001010100020800, 0x0000808080010400,
	0x0000820820004000, 0x0000410410002000, 0x0000082088001000, 0x0000002011000800,
	0x0000080100400400, 0x0001010101000200, 0x0002020202000400, 0x0001010101000200,
	0x0000410410400000, 0x0000208208200000, 0x0000002084100000, 0x0000000020880000,
	0x0000001002020000, 0x0000040408020000, 0x0004040404040000, 0x0002020202020000,
	0x0000104104104000, 0x0000002082082000, 0x0000000020841000, 0x0000000000208800,
	0x0000000010020200, 0x0000000404080200, 0x0000040404040400, 0x0002020202020200,
}

var rookMagicNumbers = [64]uint64{
	0x0080001020400080, 0x0040001000200040, 0x0080081000200080, 0x0080040800100080,
	0x0080020400080080, 0x0080010200040080, 0x0080008001000200, 0x0080002040800100,
	0x0000800020400080, 0x0000400020005000, 0x0000801000200080, 0x0000800800100080,
	0x0000800400080080, 0x0000800200040080, 0x0000800100020080, 0x0000800040800100,
	0x0000208000400080, 0x0000404000201000, 0x0000808010002000, 0x0000808008001000,
	0x0000808004000800, 0x0000808002000400, 0x0000010100020004, 0x0000020000408104,
	0x0000208080004000, 0x0000200040005000, 0x0000100080200080, 0x0000080080100080,
	0x0000040080080080, 0x0000020080040080, 0x0000010080800200, 0x0000800080004100,
	0x0000204000800080, 0x0000200040401000, 0x0000100080802000, 0x0000080080801000,
	0x0000040080800800, 0x0000020080800400, 0x0000020001010004, 0x0000800040800100,
	0x0000204000808000, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000010002008080, 0x0000004081020004,
	0x0000204000800080, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000800100020080, 0x0000800041000080,
	0x00FFFCDDFCED714A, 0x007FFCDDFCED714A, 0x003FFFCDFFD88096, 0x0000040810002101,
	0x0001000204080011, 0x0001000204000801, 0x0001000082000401, 0x0001FFFAABFAD1A2,
}

var (
	bishopDeltas = [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	rookDeltas   = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
)

func initMagics() {
	fillMagics(bishopMagics[:], bishopTable[:], bishopMagicNumbers[:], bishopDeltas, bishopRelevantMask)
	fillMagics(rookMagics[:], rookTable[:], rookMagicNumbers[:], rookDeltas, rookRelevantMask)
}

func fillMagics(magics []magicEntry, table []Bitboard, numbers []uint64, deltas [4][2]int, relevant func(Square) Bitboard) {
	var offset uint32
	for sq := A1; sq <= H8; sq++ {
		mask := relevant(sq)
		bits := mask.PopCount()

		magics[sq] = magicEntry{
			mask:   mask,
			mul:    numbers[sq],
			shift:  uint8(64 - bits),
			offset: offset,
		}

		// Carry-rippler enumeration of every blocker subset of the mask.
		occ := Bitboard(0)
		for {
			idx := (uint64(occ) * numbers[sq]) >> (64 - bits)
			table[offset+uint32(idx)] = rayAttacks(sq, occ, deltas)
			occ = (occ - mask) & mask
			if occ == 0 {
				break
			}
		}
		offset += 1 << bits
	}
}

// bishopRelevantMask is the diagonal rays minus the board edge, which
// never changes the attack set.
func bishopRelevantMask(sq Square) Bitboard {
	return rayAttacks(sq, 0, bishopDeltas) &^ (Rank1 | Rank8 | FileA | FileH)
}

// rookRelevantMask keeps the rook's rays up to but excluding the last
// square of each ray.
func rookRelevantMask(sq Square) Bitboard {
	var mask Bitboard
	for f := 1; f < 7; f++ {
		if f != sq.File() {
			mask |= SquareBB(NewSquare(f, sq.Rank()))
		}
	}
	for r := 1; r < 7; r++ {
		if r != sq.Rank() {
			mask |= SquareBB(NewSquare(sq.File(), r))
		}
	}
	return mask
}

// rayAttacks walks each ray until a blocker, inclusive. Only used while
// building the tables.
func rayAttacks(sq Square, occupied Bitboard, deltas [4][2]int) Bitboard {
	var attacks Bitboard
	for _, d := range deltas {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
			s := SquareBB(NewSquare(f, r))
			attacks |= s
			if occupied&s != 0 {
				break
			}
			f += d[0]
			r += d[1]
		}
	}
	return attacks
}

func getBishopAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &bishopMagics[sq]
	idx := (uint64(occupied&m.mask) * m.mul) >> m.shift
	return bishopTable[m.offset+uint32(idx)]
}

func getRookAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &rookMagics[sq]
	idx := (uint64(occupied&m.mask) * m.mul) >> m.shift
	return rookTable[m.offset+uint32(idx)]
}

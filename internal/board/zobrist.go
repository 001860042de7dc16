package board

// Zobrist keys for incremental position hashing. Generated once at
// startup from a fixed seed so hashes are stable across runs.
var (
	zobristPiece      [2][7][64]uint64 // extra piece-type slot absorbs NoPieceType lookups
	zobristEnPassant  [8]uint64
	zobristCastling   [16]uint64
	zobristSideToMove uint64
)

// splitmix64, the usual generator for key tables.
func splitmix64(state *uint64) uint64 {
	*state += 0x9E3779B97F4A7C15
	z := *state
	z = (z ^ z>>30) * 0xBF58476D1CE4E5B9
	z = (z ^ z>>27) * 0x94D049BB133111EB
	return z ^ z>>31
}

func init() {
	state := uint64(0x6C078965D30F2E41)

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				zobristPiece[c][pt][sq] = splitmix64(&state)
			}
		}
	}
	for file := range zobristEnPassant {
		zobristEnPassant[file] = splitmix64(&state)
	}
	for rights := range zobristCastling {
		zobristCastling[rights] = splitmix64(&state)
	}
	zobristSideToMove = splitmix64(&state)
}

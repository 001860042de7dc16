package board

// Perft counts the leaf nodes of the legal move tree at the given depth.
// The standard correctness benchmark for move generation and Make.
func Perft(p *Position, depth int) int64 {
	if depth == 0 {
		return 1
	}

	moves := p.GenerateLegalMoves()
	if depth == 1 {
		return int64(moves.Len())
	}

	var nodes int64
	for i := 0; i < moves.Len(); i++ {
		child := p.Make(moves.Get(i))
		nodes += Perft(&child, depth-1)
	}
	return nodes
}

// PerftDivide returns the per-root-move node counts plus the total.
// Matches the output of other engines' "divide" commands for debugging.
func PerftDivide(p *Position, depth int) (map[Move]int64, int64) {
	counts := make(map[Move]int64)
	var total int64

	moves := p.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		child := p.Make(m)
		n := Perft(&child, depth-1)
		counts[m] = n
		total += n
	}
	return counts, total
}

package engine

import (
	"testing"

	"github.com/hailam/kingfisher/internal/board"
)

func searchFEN(t *testing.T, fen string, limits Limits) SearchResult {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	eng := NewEngine(Options{HashMB: 16, Threads: 1})
	return eng.Search(pos, nil, limits)
}

func TestSearchFindsMateInOne(t *testing.T) {
	tests := []struct {
		fen  string
		want string
	}{
		{"r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4", "h5f7"},
		{"6k1/5ppp/8/8/8/8/8/1R4K1 w - - 0 1", "b1b8"},
		{"3k4/8/3K4/8/8/8/8/7R w - - 0 1", "h1h8"},
	}
	for _, tc := range tests {
		res := searchFEN(t, tc.fen, Limits{Depth: 5})
		if got := res.BestMove.String(); got != tc.want {
			t.Errorf("fen %q: best move = %s, want %s", tc.fen, got, tc.want)
		}
		if res.Score < MateThreshold {
			t.Errorf("fen %q: score = %d, want a mate score", tc.fen, res.Score)
		}
	}
}

func TestSearchAvoidsStalemate(t *testing.T) {
	// White is up a queen; any careless queen move near the corner
	// stalemates. The search must keep winning chances alive.
	res := searchFEN(t, "7k/8/6QK/8/8/8/8/8 w - - 0 1", Limits{Depth: 6})
	pos, _ := board.ParseFEN("7k/8/6QK/8/8/8/8/8 w - - 0 1")
	child := pos.Make(res.BestMove)
	if child.IsStalemate() {
		t.Errorf("search chose stalemating move %s", res.BestMove)
	}
	if res.Score <= 0 {
		t.Errorf("score = %d, want winning", res.Score)
	}
}

func TestSearchReturnsNoMoveWhenMated(t *testing.T) {
	res := searchFEN(t, "7k/6Q1/5K2/8/8/8/8/8 b - - 0 1", Limits{Depth: 3})
	if res.BestMove != board.NoMove {
		t.Errorf("best move = %s in a mated position, want none", res.BestMove)
	}
}

func TestSearchSingleLegalMoveBypass(t *testing.T) {
	// Back-rank check; the g7 pawn leaves h7 as the only evasion. The
	// forced move should come back even with an absurd depth budget.
	pos, _ := board.ParseFEN("R6k/6p1/8/8/8/8/8/7K b - - 0 1")
	moves := pos.GenerateLegalMoves()
	if moves.Len() != 1 {
		t.Fatalf("fixture has %d legal moves, want 1", moves.Len())
	}
	eng := NewEngine(Options{HashMB: 16, Threads: 1})
	got := eng.Search(pos, nil, Limits{Depth: 64})
	if got.BestMove != moves.Get(0) {
		t.Errorf("best move = %s, want forced %s", got.BestMove, moves.Get(0))
	}
}

func TestSearchDeterministicSingleThread(t *testing.T) {
	fen := "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	first := searchFEN(t, fen, Limits{Depth: 6})
	for i := 0; i < 2; i++ {
		again := searchFEN(t, fen, Limits{Depth: 6})
		if again.BestMove != first.BestMove || again.Score != first.Score {
			t.Fatalf("run %d: got %s score %d, first run gave %s score %d",
				i+2, again.BestMove, again.Score, first.BestMove, first.Score)
		}
	}
}

func TestSearchRespectsNodeLimit(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(Options{HashMB: 16, Threads: 1})
	res := eng.Search(pos, nil, Limits{Nodes: 5000, Depth: 64})
	if res.BestMove == board.NoMove {
		t.Fatal("no move returned")
	}
	// Workers poll the limit, so allow one batch of overshoot.
	if res.Nodes > 5000*4 {
		t.Errorf("searched %d nodes with a 5000 node limit", res.Nodes)
	}
}

func TestSearchAvoidsRepetitionWhenWinning(t *testing.T) {
	// White to move, up a rook. The position two plies ago is in the game
	// history, so shuffling back is scored as a draw.
	fen := "6k1/6pp/8/8/8/8/6PP/R5K1 w - - 0 1"
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatal(err)
	}
	eng := NewEngine(Options{HashMB: 16, Threads: 1})
	res := eng.Search(pos, []uint64{pos.Hash}, Limits{Depth: 6})
	if res.Score <= 0 {
		t.Errorf("score = %d, want winning for the side up a rook", res.Score)
	}
}

func TestEvaluateSymmetry(t *testing.T) {
	// Mirrored positions evaluate to the same score for the side to move.
	tests := []struct{ white, black string }{
		{
			"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1",
		},
		{
			"4k3/8/8/3N4/8/8/8/4K3 w - - 0 1",
			"4k3/8/8/8/3n4/8/8/4K3 b - - 0 1",
		},
	}
	for _, tc := range tests {
		wp, err := board.ParseFEN(tc.white)
		if err != nil {
			t.Fatal(err)
		}
		bp, err := board.ParseFEN(tc.black)
		if err != nil {
			t.Fatal(err)
		}
		ws, bs := Evaluate(wp), Evaluate(bp)
		if ws != bs {
			t.Errorf("asymmetric eval: white view %d, black view %d", ws, bs)
		}
	}
}

func TestEvaluateMaterial(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if got := EvaluateMaterial(pos); got != RookValue {
		t.Errorf("material = %d, want %d", got, RookValue)
	}
	pos.SideToMove = board.Black
	if got := EvaluateMaterial(pos); got != -RookValue {
		t.Errorf("material from black = %d, want %d", got, -RookValue)
	}
}

func TestGamePhase(t *testing.T) {
	start := board.NewPosition()
	if got := GamePhase(start); got != maxPhase {
		t.Errorf("start phase = %d, want %d", got, maxPhase)
	}
	bare, _ := board.ParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if got := GamePhase(bare); got != 0 {
		t.Errorf("bare kings phase = %d, want 0", got)
	}
	ending, _ := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	if got := GamePhase(ending); got != 2 {
		t.Errorf("rook ending phase = %d, want 2", got)
	}
}

func TestPawnTableRoundTrip(t *testing.T) {
	pt := NewPawnTable(1)
	pos := board.NewPosition()

	if _, _, found := pt.Probe(pos.PawnKey); found {
		t.Error("hit on empty table")
	}
	pt.Store(pos.PawnKey, -15, -20)
	mg, eg, found := pt.Probe(pos.PawnKey)
	if !found || mg != -15 || eg != -20 {
		t.Errorf("probe = (%d, %d, %v), want (-15, -20, true)", mg, eg, found)
	}

	m, err := board.ParseMove("e2e4", pos)
	if err != nil {
		t.Fatal(err)
	}
	child := pos.Make(m)
	if child.PawnKey == pos.PawnKey {
		t.Error("pawn key unchanged after a pawn move")
	}
}

func TestCorrectionHistory(t *testing.T) {
	ch := NewCorrectionHistory()
	const hash = uint64(0xdeadbeefcafe)

	if got := ch.Get(hash); got != 0 {
		t.Fatalf("fresh correction = %d, want 0", got)
	}

	// Search keeps landing above the static eval; the correction should
	// drift positive and stay bounded.
	for i := 0; i < 100; i++ {
		ch.Update(hash, 150, 50, 8)
	}
	got := ch.Get(hash)
	if got <= 0 {
		t.Errorf("correction = %d, want positive after positive errors", got)
	}
	if got > corrHistMax {
		t.Errorf("correction = %d exceeds bound %d", got, corrHistMax)
	}

	ch.Age()
	if aged := ch.Get(hash); aged != got/2 {
		t.Errorf("aged correction = %d, want %d", aged, got/2)
	}
	ch.Clear()
	if got := ch.Get(hash); got != 0 {
		t.Errorf("correction after clear = %d, want 0", got)
	}
}

func TestDrawScoreContempt(t *testing.T) {
	w := NewWorker(0, NewTranspositionTable(1), nil, nil)
	w.contempt = 50
	w.rootColor = board.White

	pos := board.NewPosition()
	if got := w.drawScore(pos); got != -50 {
		t.Errorf("draw score for own side = %d, want -50", got)
	}

	m, err := board.ParseMove("e2e4", pos)
	if err != nil {
		t.Fatal(err)
	}
	next := pos.Make(m)
	if got := w.drawScore(&next); got != 50 {
		t.Errorf("draw score for opponent = %d, want 50", got)
	}
}

package engine

import (
	"testing"

	"github.com/hailam/kingfisher/internal/board"
)

func seeFor(t *testing.T, fen, uci string) int {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	m, err := board.ParseMove(uci, pos)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", uci, err)
	}
	return SEE(pos, m)
}

func TestSEE(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want int
	}{
		{
			"quiet move to a safe square",
			"4k3/8/8/4p3/8/8/8/4K2R w K - 0 1",
			"h1h4", 0,
		},
		{
			"undefended pawn capture",
			"4k3/8/8/4p3/8/8/8/4R1K1 w - - 0 1",
			"e1e5", PawnValue,
		},
		{
			"defended pawn, rook takes",
			"4k3/8/3p4/4p3/8/8/8/4R1K1 w - - 0 1",
			"e1e5", PawnValue - RookValue,
		},
		{
			"knight takes defended pawn",
			"4k3/8/3p4/4p3/8/3N4/8/6K1 w - - 0 1",
			"d3e5", PawnValue - KnightValue,
		},
		{
			"queen takes rook defended by pawn",
			"4k3/5p2/4r3/8/8/8/4Q3/4K3 w - - 0 1",
			"e2e6", RookValue - QueenValue,
		},
		{
			"rook takes rook defended by king",
			"8/4k3/4r3/8/8/8/4R3/4K3 w - - 0 1",
			"e2e6", 0,
		},
		{
			"battery behind the capture",
			"4k3/4q3/4r3/8/8/4R3/4R3/4K3 w - - 0 1",
			"e3e6", RookValue,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := seeFor(t, tc.fen, tc.move); got != tc.want {
				t.Errorf("SEE(%s) = %d, want %d", tc.move, got, tc.want)
			}
		})
	}
}

func TestSEEEnPassant(t *testing.T) {
	// The captured pawn sits on d5, not on the target square d6.
	got := seeFor(t, "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", "e5d6")
	if got != PawnValue {
		t.Errorf("SEE(e5d6 ep) = %d, want %d", got, PawnValue)
	}
}

func TestSEEPromotion(t *testing.T) {
	// Quiet promotion on an empty, unguarded square gains a queen for a pawn.
	got := seeFor(t, "4k3/8/8/8/8/8/p7/1N2K3 b - - 0 1", "a2a1q")
	if got != QueenValue-PawnValue {
		t.Errorf("SEE(a2a1q) = %d, want %d", got, QueenValue-PawnValue)
	}
}

func TestSEEXray(t *testing.T) {
	// After Rxe5 the rook behind on e1 is revealed and recaptures count it.
	got := seeFor(t, "4k3/4r3/8/4p3/8/8/4R3/4R1K1 w - - 0 1", "e2e5")
	want := PawnValue - RookValue + RookValue
	if got != want {
		t.Errorf("SEE(e2e5) = %d, want %d", got, want)
	}
}

func TestSEEGE(t *testing.T) {
	fen := "4k3/8/3p4/4p3/8/8/8/4R1K1 w - - 0 1"
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatal(err)
	}
	m, err := board.ParseMove("e1e5", pos)
	if err != nil {
		t.Fatal(err)
	}
	if SEEGE(pos, m, 0) {
		t.Error("losing capture passed a zero threshold")
	}
	if !SEEGE(pos, m, PawnValue-RookValue) {
		t.Error("capture failed its own exchange value as threshold")
	}
}

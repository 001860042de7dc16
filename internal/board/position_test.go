package board

import "testing"

func mustParseFEN(t *testing.T, fen string) *Position {
	t.Helper()
	pos, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func applyMoves(t *testing.T, pos *Position, moves ...string) *Position {
	t.Helper()
	for _, s := range moves {
		m, err := ParseMove(s, pos)
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", s, err)
		}
		child := pos.Make(m)
		pos = &child
	}
	return pos
}

// TestIncrementalHash replays move sequences that exercise every make path
// (quiet, capture, castling, en passant, promotion) and checks the
// incrementally maintained keys against full recomputation after each move.
func TestIncrementalHash(t *testing.T) {
	sequences := []struct {
		fen   string
		moves []string
	}{
		{StartFEN, []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5c6", "d7c6", "e1g1"}},
		{StartFEN, []string{"e2e4", "d7d5", "e4d5", "d8d5", "b1c3", "d5a5", "d2d4", "g8f6"}},
		{StartFEN, []string{"e2e4", "c7c5", "e4e5", "d7d5", "e5d6"}}, // en passant
		{"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
			[]string{"e1c1", "e8g8", "d5e6", "f7e6"}},
		{"1n4k1/P7/8/8/8/8/8/6K1 w - - 0 1", []string{"a7b8q"}}, // capture promotion
		{"6k1/8/8/8/8/8/p7/1N4K1 b - - 0 1", []string{"a2b1r"}}, // underpromotion
	}

	for _, seq := range sequences {
		pos := mustParseFEN(t, seq.fen)
		for _, s := range seq.moves {
			m, err := ParseMove(s, pos)
			if err != nil {
				t.Fatalf("%s: ParseMove(%q): %v", seq.fen, s, err)
			}
			child := pos.Make(m)
			if child.Hash != child.ComputeHash() {
				t.Errorf("%s after %s: hash %x != recomputed %x", seq.fen, s, child.Hash, child.ComputeHash())
			}
			if child.PawnKey != child.ComputePawnKey() {
				t.Errorf("%s after %s: pawn key mismatch", seq.fen, s)
			}
			if err := child.Validate(); err != nil {
				t.Errorf("%s after %s: %v", seq.fen, s, err)
			}
			pos = &child
		}
	}
}

// TestMakeDoesNotMutateReceiver verifies copy-make semantics: the parent
// position is unchanged after Make.
func TestMakeDoesNotMutateReceiver(t *testing.T) {
	pos := mustParseFEN(t, StartFEN)
	before := *pos

	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		_ = pos.Make(moves.Get(i))
	}

	if *pos != before {
		t.Error("Make mutated the receiver")
	}
}

// TestTranspositionHashEquality checks that move orders reaching the same
// position produce the same hash.
func TestTranspositionHashEquality(t *testing.T) {
	a := applyMoves(t, mustParseFEN(t, StartFEN), "g1f3", "g8f6", "d2d4", "d7d5")
	b := applyMoves(t, mustParseFEN(t, StartFEN), "d2d4", "d7d5", "g1f3", "g8f6")

	if a.Hash != b.Hash {
		t.Errorf("transposed hashes differ: %x vs %x", a.Hash, b.Hash)
	}
	if a.ToFEN() != b.ToFEN() {
		t.Errorf("transposed FENs differ: %s vs %s", a.ToFEN(), b.ToFEN())
	}
}

func TestCastlingRightsRevocation(t *testing.T) {
	pos := mustParseFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	tests := []struct {
		moves []string
		want  CastlingRights
	}{
		{[]string{"e1g1"}, BlackKingSideCastle | BlackQueenSideCastle},
		{[]string{"a1a2"}, WhiteKingSideCastle | BlackKingSideCastle | BlackQueenSideCastle},
		{[]string{"h1h8"}, WhiteQueenSideCastle | BlackQueenSideCastle}, // rook capture on h8
		{[]string{"e1e2", "e8e7"}, NoCastling},
	}

	for _, tc := range tests {
		got := applyMoves(t, pos, tc.moves...).CastlingRights
		if got != tc.want {
			t.Errorf("after %v: rights = %v, want %v", tc.moves, got, tc.want)
		}
	}
}

func TestHalfMoveClock(t *testing.T) {
	pos := applyMoves(t, mustParseFEN(t, StartFEN), "g1f3", "g8f6")
	if pos.HalfMoveClock != 2 {
		t.Errorf("HalfMoveClock = %d, want 2", pos.HalfMoveClock)
	}

	pos = applyMoves(t, pos, "e2e4") // pawn move resets
	if pos.HalfMoveClock != 0 {
		t.Errorf("HalfMoveClock after pawn move = %d, want 0", pos.HalfMoveClock)
	}

	pos = applyMoves(t, pos, "f6e4") // capture resets
	if pos.HalfMoveClock != 0 {
		t.Errorf("HalfMoveClock after capture = %d, want 0", pos.HalfMoveClock)
	}
	if pos.FullMoveNumber != 3 {
		t.Errorf("FullMoveNumber = %d, want 3", pos.FullMoveNumber)
	}
}

func TestMakeNull(t *testing.T) {
	pos := applyMoves(t, mustParseFEN(t, StartFEN), "e2e4")
	if pos.EnPassant == NoSquare {
		t.Fatal("expected en passant square after e2e4")
	}

	null := pos.MakeNull()
	if null.SideToMove != pos.SideToMove.Other() {
		t.Error("null move did not flip side to move")
	}
	if null.EnPassant != NoSquare {
		t.Error("null move did not clear en passant square")
	}
	if null.Hash != null.ComputeHash() {
		t.Error("null move hash mismatch")
	}
}

func TestEnPassantSquareSetOnlyOnDoublePush(t *testing.T) {
	pos := applyMoves(t, mustParseFEN(t, StartFEN), "e2e4")
	if pos.EnPassant != E3 {
		t.Errorf("EnPassant = %v, want e3", pos.EnPassant)
	}

	pos = applyMoves(t, pos, "g8f6")
	if pos.EnPassant != NoSquare {
		t.Errorf("EnPassant = %v, want none", pos.EnPassant)
	}
}

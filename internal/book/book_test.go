package book

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/hailam/kingfisher/internal/board"
)

// encodePolyglotMove builds the on-disk move encoding for quiet moves.
func encodePolyglotMove(from, to board.Square) uint16 {
	return uint16(to.File()) | uint16(to.Rank())<<3 |
		uint16(from.File())<<6 | uint16(from.Rank())<<9
}

func writeRecord(buf *bytes.Buffer, key uint64, move uint16, weight uint16) {
	binary.Write(buf, binary.BigEndian, key)
	binary.Write(buf, binary.BigEndian, move)
	binary.Write(buf, binary.BigEndian, weight)
	binary.Write(buf, binary.BigEndian, uint32(0)) // learn data
}

func TestPolyglotHashKnownValues(t *testing.T) {
	// Reference keys from the Polyglot book format description.
	tests := []struct {
		fen  string
		want uint64
	}{
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", 0x463b96181691fc9c},
		{"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", 0x823c9b50fd114196},
		{"rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2", 0x0756b94461c50fb0},
		{"rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR b KQkq - 0 2", 0x662fafb965db29d4},
	}
	for _, tc := range tests {
		pos, err := board.ParseFEN(tc.fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", tc.fen, err)
		}
		if got := pos.PolyglotHash(); got != tc.want {
			t.Errorf("PolyglotHash(%q) = %016x, want %016x", tc.fen, got, tc.want)
		}
	}
}

func TestBookLoadAndProbe(t *testing.T) {
	pos := board.NewPosition()
	key := pos.PolyglotHash()

	var buf bytes.Buffer
	writeRecord(&buf, key, encodePolyglotMove(board.E2, board.E4), 100)

	b, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Size() != 1 {
		t.Fatalf("book size = %d, want 1", b.Size())
	}

	m, found := b.Probe(pos)
	if !found {
		t.Fatal("probe missed the stored position")
	}
	if m.From() != board.E2 || m.To() != board.E4 {
		t.Errorf("book move = %s, want e2e4", m)
	}
}

func TestBookWeightedSelection(t *testing.T) {
	pos := board.NewPosition()
	key := pos.PolyglotHash()

	// d2d4 carries all the weight; e2e4 should never be picked.
	var buf bytes.Buffer
	writeRecord(&buf, key, encodePolyglotMove(board.E2, board.E4), 0)
	writeRecord(&buf, key, encodePolyglotMove(board.D2, board.D4), 500)

	b, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 50; i++ {
		m, found := b.Probe(pos)
		if !found {
			t.Fatal("probe missed")
		}
		if m.From() != board.D2 || m.To() != board.D4 {
			t.Fatalf("picked zero-weight move %s", m)
		}
	}
}

func TestBookRejectsIllegalMove(t *testing.T) {
	pos := board.NewPosition()

	// A book entry for this position with a move that is not legal here.
	var buf bytes.Buffer
	writeRecord(&buf, pos.PolyglotHash(), encodePolyglotMove(board.E2, board.E5), 100)

	b, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m, found := b.Probe(pos); found && m != board.NoMove {
		t.Errorf("probe returned illegal move %s", m)
	}
}

func TestBookCastlingConversion(t *testing.T) {
	// Polyglot encodes castling as king takes own rook (e1h1).
	m := decodePolyglotMove(encodePolyglotMove(board.E1, board.H1))
	if m.From() != board.E1 || m.To() != board.G1 {
		t.Errorf("decoded castling = %s%s, want e1g1", m.From(), m.To())
	}
	m = decodePolyglotMove(encodePolyglotMove(board.E8, board.A8))
	if m.From() != board.E8 || m.To() != board.C8 {
		t.Errorf("decoded castling = %s%s, want e8c8", m.From(), m.To())
	}

	// The probe maps the decoded move onto the real castling move.
	pos, err := board.ParseFEN("r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	writeRecord(&buf, pos.PolyglotHash(), encodePolyglotMove(board.E1, board.H1), 50)
	b, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	bm, found := b.Probe(pos)
	if !found || !bm.IsCastling() {
		t.Errorf("book castling move = %s (castling=%v), want e1g1 castling", bm, bm.IsCastling())
	}
}

func TestBookMiss(t *testing.T) {
	pos := board.NewPosition()
	if m, found := New().Probe(pos); found || m != board.NoMove {
		t.Error("hit on an empty book")
	}
	var nilBook *Book
	if m, found := nilBook.Probe(pos); found || m != board.NoMove {
		t.Error("hit on a nil book")
	}
	if nilBook.Size() != 0 {
		t.Error("nil book has nonzero size")
	}
}

func TestBookTruncatedFile(t *testing.T) {
	var buf bytes.Buffer
	writeRecord(&buf, 0x1234, encodePolyglotMove(board.E2, board.E4), 1)
	buf.Truncate(buf.Len() - 3)

	if _, err := LoadPolyglotReader(&buf); err == nil {
		t.Error("no error for a truncated book")
	}
}

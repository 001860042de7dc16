// Package book reads Polyglot opening books and picks book moves by
// weighted random selection.
package book

import (
	"encoding/binary"
	"io"
	"math/rand"
	"os"
	"sort"

	"github.com/hailam/kingfisher/internal/board"
)

// Entry is one weighted book move for a position.
type Entry struct {
	Move   board.Move
	Weight uint16
}

// Book maps Polyglot position keys to their book moves. A nil *Book is a
// valid empty book; all methods treat it as a miss.
type Book struct {
	entries map[uint64][]Entry
}

func New() *Book {
	return &Book{entries: make(map[uint64][]Entry)}
}

// LoadPolyglot reads a Polyglot book file.
func LoadPolyglot(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadPolyglotReader(f)
}

// LoadPolyglotReader reads Polyglot records until EOF. Each record is 16
// bytes big-endian: key, move, weight, and learn data (ignored).
func LoadPolyglotReader(r io.Reader) (*Book, error) {
	b := New()

	var rec [16]byte
	for {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			if err == io.EOF {
				return b, nil
			}
			return nil, err
		}

		key := binary.BigEndian.Uint64(rec[0:8])
		move := decodePolyglotMove(binary.BigEndian.Uint16(rec[8:10]))
		weight := binary.BigEndian.Uint16(rec[10:12])

		if move != board.NoMove {
			b.entries[key] = append(b.entries[key], Entry{Move: move, Weight: weight})
		}
	}
}

// decodePolyglotMove unpacks the Polyglot move encoding: to file/rank in
// the low six bits, from file/rank above, promotion piece in bits 12-14.
func decodePolyglotMove(data uint16) board.Move {
	to := board.NewSquare(int(data&7), int(data>>3&7))
	from := board.NewSquare(int(data>>6&7), int(data>>9&7))
	promo := data >> 12 & 7

	// Polyglot encodes castling as king takes own rook.
	switch {
	case from == board.E1 && to == board.H1:
		to = board.G1
	case from == board.E1 && to == board.A1:
		to = board.C1
	case from == board.E8 && to == board.H8:
		to = board.G8
	case from == board.E8 && to == board.A8:
		to = board.C8
	}

	if promo > 0 && promo <= 4 {
		promoTypes := [5]board.PieceType{0, board.Knight, board.Bishop, board.Rook, board.Queen}
		return board.NewPromotion(from, to, promoTypes[promo])
	}
	return board.NewMove(from, to)
}

// Probe returns a book move for the position, chosen at random with
// probability proportional to its weight.
func (b *Book) Probe(pos *board.Position) (board.Move, bool) {
	if b == nil {
		return board.NoMove, false
	}

	entries := b.entries[pos.PolyglotHash()]
	if len(entries) == 0 {
		return board.NoMove, false
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Weight > entries[j].Weight
	})

	var total uint32
	for _, e := range entries {
		total += uint32(e.Weight)
	}
	if total == 0 {
		return matchLegal(pos, entries[0].Move), true
	}

	r := rand.Uint32() % total
	var cum uint32
	for _, e := range entries {
		cum += uint32(e.Weight)
		if r < cum {
			return matchLegal(pos, e.Move), true
		}
	}
	return matchLegal(pos, entries[0].Move), true
}

// ProbeAll returns every book move for the position, heaviest first.
func (b *Book) ProbeAll(pos *board.Position) []Entry {
	if b == nil {
		return nil
	}
	entries := b.entries[pos.PolyglotHash()]
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}

// matchLegal maps a decoded book move onto the matching legal move so the
// returned move carries the right castling, en passant, and promotion
// flags. Returns NoMove when the book move is not legal here.
func matchLegal(pos *board.Position, m board.Move) board.Move {
	legal := pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		lm := legal.Get(i)
		if lm.From() != m.From() || lm.To() != m.To() {
			continue
		}
		if m.IsPromotion() != lm.IsPromotion() {
			continue
		}
		if m.IsPromotion() && m.Promotion() != lm.Promotion() {
			continue
		}
		return lm
	}
	return board.NoMove
}

// Size returns the number of distinct positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

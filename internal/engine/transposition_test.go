package engine

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/hailam/kingfisher/internal/board"
)

func TestSlotPackRoundTrip(t *testing.T) {
	entries := []TTEntry{
		{BestMove: board.NewMove(board.E2, board.E4), Score: 123, Eval: -45, Depth: 12, Flag: TTExact, IsPV: true, Gen: 7},
		{BestMove: board.NoMove, Score: -29000, Eval: 0, Depth: 0, Flag: TTUpperBound, Gen: 31},
		{BestMove: board.NewPromotion(board.A7, board.A8, board.Queen), Score: 32000, Eval: -32000, Depth: 127, Flag: TTLowerBound, IsPV: false, Gen: 0},
		{BestMove: board.NewCastling(board.E1, board.G1), Score: 0, Eval: 1, Depth: -1, Flag: TTExact, Gen: 15},
	}
	for _, e := range entries {
		key32 := uint32(0xdeadbeef)
		w0, w1 := packSlot(key32, e)
		got := unpackSlot(w0, w1)
		e.Key32 = key32
		if got != e {
			t.Errorf("round trip changed entry: got %+v, want %+v", got, e)
		}
	}
}

func TestTTStoreProbe(t *testing.T) {
	tt := NewTranspositionTable(1)
	m := board.NewMove(board.G1, board.F3)

	hash := uint64(0x1234567890abcdef)
	tt.Store(hash, 8, 42, 17, TTExact, m, true)

	e, ok := tt.Probe(hash)
	if !ok {
		t.Fatal("probe missed after store")
	}
	if e.BestMove != m || e.Score != 42 || e.Eval != 17 || e.Depth != 8 || e.Flag != TTExact || !e.IsPV {
		t.Errorf("wrong entry: %+v", e)
	}

	// Same slot, different upper key bits: must miss, not alias.
	if _, ok := tt.Probe(hash ^ (uint64(1) << 40)); ok {
		t.Error("probe hit for a different position")
	}
}

func TestTTMissOnEmpty(t *testing.T) {
	tt := NewTranspositionTable(1)
	if _, ok := tt.Probe(0); ok {
		t.Error("probe hit on an empty table")
	}
	if _, ok := tt.Probe(0xffffffffffffffff); ok {
		t.Error("probe hit on an empty table")
	}
}

func TestTTTornWriteDetected(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xabcdef0123456789)
	tt.Store(hash, 10, 100, 50, TTExact, board.NewMove(board.D2, board.D4), false)

	// Corrupt word1 as if another position's store landed between the two
	// word writes. The checksum must reject the pair.
	slot := &tt.slots[hash&tt.mask]
	slot.word1.Store(slot.word1.Load() ^ (uint64(1) << 35))

	if _, ok := tt.Probe(hash); ok {
		t.Error("probe accepted a torn slot")
	}
}

func TestTTReplacementPolicy(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xcafebabe12345678)
	deep := board.NewMove(board.E2, board.E4)
	shallow := board.NewMove(board.D2, board.D4)

	tt.Store(hash, 12, 50, 50, TTLowerBound, deep, false)

	// A shallower bound from the same search loses.
	tt.Store(hash, 4, -30, -30, TTUpperBound, shallow, false)
	e, _ := tt.Probe(hash)
	if e.Depth != 12 || e.BestMove != deep {
		t.Errorf("shallow entry replaced deeper one: %+v", e)
	}

	// A shallower exact score wins over a bound.
	tt.Store(hash, 4, 7, 7, TTExact, shallow, false)
	e, _ = tt.Probe(hash)
	if e.Depth != 4 || e.Flag != TTExact {
		t.Errorf("exact entry did not replace bound: %+v", e)
	}

	// Equal depth replaces.
	tt.Store(hash, 4, 9, 9, TTExact, deep, false)
	e, _ = tt.Probe(hash)
	if e.Score != 9 || e.BestMove != deep {
		t.Errorf("equal depth store lost: %+v", e)
	}

	// Storing without a move keeps the previous move for the position.
	tt.Store(hash, 6, 11, 11, TTUpperBound, board.NoMove, false)
	e, _ = tt.Probe(hash)
	if e.BestMove != deep {
		t.Errorf("move dropped on moveless store: got %s, want %s", e.BestMove, deep)
	}
}

func TestTTGenerationAging(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0x7777777777777777)

	tt.Store(hash, 20, 10, 10, TTExact, board.NoMove, false)

	// A new search makes even a shallow entry win the slot.
	tt.NewSearch()
	tt.Store(hash, 1, -5, -5, TTUpperBound, board.NoMove, false)

	e, ok := tt.Probe(hash)
	if !ok {
		t.Fatal("probe missed")
	}
	if e.Depth != 1 || e.Flag != TTUpperBound {
		t.Errorf("old generation entry survived: %+v", e)
	}
}

func TestTTMateScoreAdjustment(t *testing.T) {
	// A mate found 3 plies below a node at ply 5 is stored root-relative
	// and read back relative to the probing ply.
	score := MateIn(8) // mate in 8 plies from the root
	stored := AdjustScoreToTT(score, 5)
	if got := AdjustScoreFromTT(stored, 5); got != score {
		t.Errorf("round trip at same ply = %d, want %d", got, score)
	}
	// Probed from a shallower ply the mate is further away.
	if got := AdjustScoreFromTT(stored, 3); got != score+2 {
		t.Errorf("probe at ply 3 = %d, want %d", got, score+2)
	}
	if got := AdjustScoreFromTT(100, 5); got != 100 {
		t.Errorf("non-mate score adjusted: %d", got)
	}
}

func TestTTConcurrentAccess(t *testing.T) {
	tt := NewTranspositionTable(1)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 20000; i++ {
				hash := rng.Uint64()
				score := rng.Intn(2000) - 1000
				tt.Store(hash, rng.Intn(64), score, score, TTFlag(1+rng.Intn(3)), board.NewMove(board.E2, board.E4), false)
				if e, ok := tt.Probe(rng.Uint64()); ok {
					// Any hit must decode to a sane flag; torn pairs are
					// filtered out by the checksum.
					if e.Flag == TTNone {
						t.Error("probe returned an empty flag")
						return
					}
				}
			}
		}(int64(g))
	}
	wg.Wait()
}

func TestTTClear(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0x5555)
	tt.Store(hash, 5, 1, 1, TTExact, board.NoMove, false)
	tt.Clear()
	if _, ok := tt.Probe(hash); ok {
		t.Error("probe hit after clear")
	}
	if tt.HashFull() != 0 {
		t.Error("table reports entries after clear")
	}
}

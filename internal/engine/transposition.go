package engine

import (
	"sync/atomic"

	"github.com/hailam/kingfisher/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTNone       TTFlag = iota // Empty slot
	TTExact                    // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// ttGenCycle is the generation counter period. Five bits of the packed
// entry hold the generation, so it wraps at 32.
const ttGenCycle = 32

// TTEntry is the decoded form of a table slot.
type TTEntry struct {
	Key32    uint32     // Upper 32 bits of the Zobrist hash
	BestMove board.Move // Best move found
	Score    int16      // Score (bounded by flag)
	Eval     int16      // Static evaluation
	Depth    int8       // Search depth
	Flag     TTFlag     // Type of bound
	IsPV     bool       // Was this node ever on the principal variation
	Gen      uint8      // Generation for replacement
}

// ttSlot is one table slot: two words written and read with plain atomic
// loads and stores, no locks. A probe that races with a store can observe
// one old word and one new word; the checksum in the second word detects
// the tear and the probe reports a miss.
//
//	word0 = key32<<32 | gen<<27 | isPV<<26 | flag<<24 | depth<<16 | move
//	word1 = (key32 ^ lower32(word0))<<32 | score<<16 | eval
type ttSlot struct {
	word0 atomic.Uint64
	word1 atomic.Uint64
}

func packSlot(key32 uint32, e TTEntry) (uint64, uint64) {
	var pv uint64
	if e.IsPV {
		pv = 1
	}
	word0 := uint64(key32)<<32 |
		uint64(e.Gen%ttGenCycle)<<27 |
		pv<<26 |
		uint64(e.Flag)<<24 |
		uint64(uint8(e.Depth))<<16 |
		uint64(e.BestMove)
	word1 := uint64(key32^uint32(word0))<<32 |
		uint64(uint16(e.Score))<<16 |
		uint64(uint16(e.Eval))
	return word0, word1
}

func unpackSlot(word0, word1 uint64) TTEntry {
	return TTEntry{
		Key32:    uint32(word0 >> 32),
		Gen:      uint8(word0>>27) & (ttGenCycle - 1),
		IsPV:     word0&(1<<26) != 0,
		Flag:     TTFlag(word0>>24) & 3,
		Depth:    int8(uint8(word0 >> 16)),
		BestMove: board.Move(uint16(word0)),
		Score:    int16(uint16(word1 >> 16)),
		Eval:     int16(uint16(word1)),
	}
}

// TranspositionTable is a lock-free shared hash table for search results.
// All threads of a Lazy SMP search probe and store concurrently.
type TranspositionTable struct {
	slots []ttSlot
	size  uint64
	mask  uint64
	gen   atomic.Uint32

	// Statistics
	hits   atomic.Uint64
	probes atomic.Uint64
}

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	entrySize := uint64(16) // two 8-byte words per slot
	numEntries := (uint64(sizeMB) * 1024 * 1024) / entrySize
	numEntries = roundDownToPowerOf2(numEntries)

	return &TranspositionTable{
		slots: make([]ttSlot, numEntries),
		size:  numEntries,
		mask:  numEntries - 1,
	}
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe looks up a position in the transposition table.
// Returns the entry and true if found, otherwise returns an empty entry
// and false. Torn concurrent writes are detected and reported as misses.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes.Add(1)

	slot := &tt.slots[hash&tt.mask]
	word0 := slot.word0.Load()
	word1 := slot.word1.Load()

	key32 := uint32(word0 >> 32)
	if key32 != uint32(hash>>32) {
		return TTEntry{}, false
	}
	if uint32(word1>>32) != key32^uint32(word0) {
		// Tear: word0 and word1 belong to different writes.
		return TTEntry{}, false
	}

	entry := unpackSlot(word0, word1)
	if entry.Flag == TTNone {
		return TTEntry{}, false
	}

	tt.hits.Add(1)
	return entry, true
}

// Store saves a search result. The existing slot is kept only when it
// belongs to the current generation, is strictly deeper, and neither the
// exactness rule nor the key rule favors the new entry.
func (tt *TranspositionTable) Store(hash uint64, depth int, score, eval int, flag TTFlag, bestMove board.Move, isPV bool) {
	slot := &tt.slots[hash&tt.mask]
	key32 := uint32(hash >> 32)
	gen := uint8(tt.gen.Load()) % ttGenCycle

	word0 := slot.word0.Load()
	old := unpackSlot(word0, slot.word1.Load())

	replace := old.Flag == TTNone ||
		old.Gen != gen ||
		depth >= int(old.Depth) ||
		(flag == TTExact && old.Flag != TTExact)
	if !replace {
		return
	}

	// Keep the previously stored move when this store has none for the
	// same position.
	if bestMove == board.NoMove && old.Key32 == key32 {
		bestMove = old.BestMove
	}

	w0, w1 := packSlot(key32, TTEntry{
		BestMove: bestMove,
		Score:    int16(score),
		Eval:     int16(eval),
		Depth:    int8(depth),
		Flag:     flag,
		IsPV:     isPV,
		Gen:      gen,
	})
	slot.word0.Store(w0)
	slot.word1.Store(w1)
}

// NewSearch advances the generation counter for a new search, aging out
// entries from previous searches for replacement purposes.
func (tt *TranspositionTable) NewSearch() {
	tt.gen.Add(1)
}

// Clear clears the transposition table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.slots {
		tt.slots[i].word0.Store(0)
		tt.slots[i].word1.Store(0)
	}
	tt.gen.Store(0)
	tt.hits.Store(0)
	tt.probes.Store(0)
}

// HashFull returns the permille of the table holding entries from the
// current search.
func (tt *TranspositionTable) HashFull() int {
	sampleSize := 1000
	if uint64(sampleSize) > tt.size {
		sampleSize = int(tt.size)
	}
	if sampleSize == 0 {
		return 0
	}

	gen := uint8(tt.gen.Load()) % ttGenCycle
	used := 0
	for i := 0; i < sampleSize; i++ {
		e := unpackSlot(tt.slots[i].word0.Load(), tt.slots[i].word1.Load())
		if e.Flag != TTNone && e.Gen == gen {
			used++
		}
	}

	return (used * 1000) / sampleSize
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of slots in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}

// AdjustScoreFromTT converts a stored mate score back to a score relative
// to the probing node's ply.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateThreshold {
		return score - ply
	}
	if score < -MateThreshold {
		return score + ply
	}
	return score
}

// AdjustScoreToTT converts a mate score to root-relative form for storage.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateThreshold {
		return score + ply
	}
	if score < -MateThreshold {
		return score - ply
	}
	return score
}

package tablebase

import (
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/hailam/kingfisher/internal/board"
	"github.com/hailam/kingfisher/internal/storage"
)

// CachedProber wraps another prober with two cache tiers: a bounded
// in-memory map for the current process and an optional BadgerDB store
// that keeps verdicts across runs. Tablebase verdicts never change, so
// entries are valid forever.
type CachedProber struct {
	inner Prober
	store *storage.Store // nil means memory only

	mu      sync.RWMutex
	mem     map[uint64]ProbeResult
	maxSize int
	hits    uint64
	misses  uint64
}

// NewCachedProber wraps inner with an in-memory cache of at most maxSize
// positions.
func NewCachedProber(inner Prober, maxSize int) *CachedProber {
	return &CachedProber{
		inner:   inner,
		mem:     make(map[uint64]ProbeResult, maxSize),
		maxSize: maxSize,
	}
}

// NewPersistentCachedProber additionally writes verdicts through to the
// given store. The store stays owned by the caller.
func NewPersistentCachedProber(inner Prober, maxSize int, store *storage.Store) *CachedProber {
	cp := NewCachedProber(inner, maxSize)
	cp.store = store
	return cp
}

// NewCachedLichessProber is the default online setup.
func NewCachedLichessProber() *CachedProber {
	return NewCachedProber(NewLichessProber(), 100000)
}

// probeKey hashes the position identity relevant to a tablebase verdict.
// The halfmove clock and move number are deliberately excluded; WDL and
// DTZ do not depend on them.
func probeKey(pos *board.Position) uint64 {
	var d xxhash.Digest
	var buf [8]byte
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			binary.LittleEndian.PutUint64(buf[:], uint64(pos.Pieces[c][pt]))
			d.Write(buf[:])
		}
	}
	d.Write([]byte{byte(pos.SideToMove), byte(pos.CastlingRights), byte(pos.EnPassant)})
	return d.Sum64()
}

func storeKey(key uint64) []byte {
	out := make([]byte, 11)
	copy(out, "tb/")
	binary.BigEndian.PutUint64(out[3:], key)
	return out
}

func (cp *CachedProber) Probe(pos *board.Position) ProbeResult {
	key := probeKey(pos)

	cp.mu.RLock()
	result, ok := cp.mem[key]
	cp.mu.RUnlock()
	if ok {
		cp.mu.Lock()
		cp.hits++
		cp.mu.Unlock()
		return result
	}

	if result, ok := cp.fromStore(key); ok {
		cp.remember(key, result, false)
		return result
	}

	result = cp.inner.Probe(pos)
	cp.remember(key, result, result.Found)
	return result
}

// fromStore reads a verdict from the persistent tier.
func (cp *CachedProber) fromStore(key uint64) (ProbeResult, bool) {
	if cp.store == nil {
		return ProbeResult{}, false
	}
	val, err := cp.store.Get(storeKey(key))
	if err != nil {
		return ProbeResult{}, false
	}
	var result ProbeResult
	if err := json.Unmarshal(val, &result); err != nil {
		return ProbeResult{}, false
	}
	return result, true
}

// remember inserts into the memory tier and, when persist is set, writes
// through to the store. Failed lookups are cached in memory only, so a
// network outage does not poison the database.
func (cp *CachedProber) remember(key uint64, result ProbeResult, persist bool) {
	cp.mu.Lock()
	cp.misses++
	if len(cp.mem) >= cp.maxSize {
		// Drop half the map rather than tracking LRU order.
		n := 0
		for k := range cp.mem {
			if n >= cp.maxSize/2 {
				break
			}
			delete(cp.mem, k)
			n++
		}
	}
	cp.mem[key] = result
	cp.mu.Unlock()

	if persist && cp.store != nil {
		if val, err := json.Marshal(result); err == nil {
			cp.store.Set(storeKey(key), val)
		}
	}
}

// ProbeRoot always asks the backend; the ranked move list is not cached.
func (cp *CachedProber) ProbeRoot(pos *board.Position) RootResult {
	return cp.inner.ProbeRoot(pos)
}

func (cp *CachedProber) MaxPieces() int { return cp.inner.MaxPieces() }

func (cp *CachedProber) Available() bool { return cp.inner.Available() }

// HitRate returns the memory-tier hit rate as a percentage.
func (cp *CachedProber) HitRate() float64 {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	total := cp.hits + cp.misses
	if total == 0 {
		return 0
	}
	return float64(cp.hits) / float64(total) * 100
}

// CacheSize returns the number of positions in the memory tier.
func (cp *CachedProber) CacheSize() int {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return len(cp.mem)
}

// Clear drops the memory tier. The persistent tier is left alone.
func (cp *CachedProber) Clear() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.mem = make(map[uint64]ProbeResult, cp.maxSize)
	cp.hits = 0
	cp.misses = 0
}

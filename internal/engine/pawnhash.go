package engine

type pawnEntry struct {
	key     uint64
	mgScore int16
	egScore int16
}

// PawnTable caches pawn structure evaluation by pawn hash key. Pawn
// structure changes rarely between neighbouring search nodes, so hit rates
// are high even for a small table. Always-replace, one entry per slot.
type PawnTable struct {
	entries []pawnEntry
	mask    uint64
}

// NewPawnTable allocates a pawn hash table of roughly sizeMB megabytes.
func NewPawnTable(sizeMB int) *PawnTable {
	const entrySize = 12
	n := roundDownToPowerOf2(uint64(sizeMB * 1024 * 1024 / entrySize))
	return &PawnTable{
		entries: make([]pawnEntry, n),
		mask:    n - 1,
	}
}

func (pt *PawnTable) Probe(key uint64) (mg, eg int, found bool) {
	e := &pt.entries[key&pt.mask]
	if e.key != key {
		return 0, 0, false
	}
	return int(e.mgScore), int(e.egScore), true
}

func (pt *PawnTable) Store(key uint64, mg, eg int) {
	e := &pt.entries[key&pt.mask]
	e.key = key
	e.mgScore = int16(mg)
	e.egScore = int16(eg)
}

func (pt *PawnTable) Clear() {
	for i := range pt.entries {
		pt.entries[i] = pawnEntry{}
	}
}

package engine

const (
	corrHistSize = 1 << 18
	corrHistMask = corrHistSize - 1
	corrHistMax  = 16000
)

// CorrectionHistory tracks how far the static evaluation of recently
// searched positions diverged from their search scores, and feeds the
// observed error back into future static evaluations of the same position.
type CorrectionHistory struct {
	table [corrHistSize]int16
}

func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{}
}

func corrIndex(hash uint64) int {
	return int((hash ^ (hash >> 18)) & corrHistMask)
}

// Get returns the correction to add to the static evaluation of the
// position with the given hash.
func (ch *CorrectionHistory) Get(hash uint64) int {
	return int(ch.table[corrIndex(hash)])
}

// Update records the error between a search score and the static
// evaluation, weighted by depth.
func (ch *CorrectionHistory) Update(hash uint64, searchScore, staticEval, depth int) {
	if depth < 1 {
		return
	}

	bonus := (searchScore - staticEval) * depth / 8
	bonus = clamp(bonus, -256, 256)

	idx := corrIndex(hash)
	v := int(ch.table[idx])
	v += (bonus - v) / 16
	ch.table[idx] = int16(clamp(v, -corrHistMax, corrHistMax))
}

// Clear resets all corrections.
func (ch *CorrectionHistory) Clear() {
	for i := range ch.table {
		ch.table[i] = 0
	}
}

// Age halves all corrections. Called at the start of a new search so stale
// corrections fade instead of persisting across games.
func (ch *CorrectionHistory) Age() {
	for i := range ch.table {
		ch.table[i] /= 2
	}
}

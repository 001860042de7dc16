package tablebase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hailam/kingfisher/internal/board"
	"github.com/hailam/kingfisher/internal/storage"
)

// stubProber returns a fixed verdict and counts how often it is asked.
type stubProber struct {
	result ProbeResult
	calls  int
}

func (s *stubProber) Probe(*board.Position) ProbeResult {
	s.calls++
	return s.result
}
func (s *stubProber) ProbeRoot(*board.Position) RootResult { return RootResult{} }
func (s *stubProber) MaxPieces() int                       { return 7 }
func (s *stubProber) Available() bool                      { return true }

func TestNoopProber(t *testing.T) {
	var p NoopProber
	if p.Available() || p.MaxPieces() != 0 {
		t.Error("noop prober claims to be available")
	}
	pos := board.NewPosition()
	if p.Probe(pos).Found || p.ProbeRoot(pos).Found {
		t.Error("noop prober found something")
	}
}

func TestCountPieces(t *testing.T) {
	if got := CountPieces(board.NewPosition()); got != 32 {
		t.Errorf("start position pieces = %d, want 32", got)
	}
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if got := CountPieces(pos); got != 3 {
		t.Errorf("KRvK pieces = %d, want 3", got)
	}
}

func TestWDLToScore(t *testing.T) {
	if WDLToScore(WDLDraw, 10) != 0 {
		t.Error("draw does not score zero")
	}
	win := WDLToScore(WDLWin, 5)
	cursed := WDLToScore(WDLCursedWin, 5)
	if win <= cursed || cursed <= 0 {
		t.Errorf("win %d should outrank cursed win %d, both positive", win, cursed)
	}
	loss := WDLToScore(WDLLoss, 5)
	blessed := WDLToScore(WDLBlessedLoss, 5)
	if loss >= blessed || blessed >= 0 {
		t.Errorf("loss %d should be below blessed loss %d, both negative", loss, blessed)
	}
	// A nearer win scores higher.
	if WDLToScore(WDLWin, 2) <= WDLToScore(WDLWin, 20) {
		t.Error("deeper win scores at least as high as a near one")
	}
}

func TestCategoryToWDL(t *testing.T) {
	tests := []struct {
		category string
		want     WDL
	}{
		{"win", WDLWin},
		{"maybe-win", WDLCursedWin},
		{"cursed-win", WDLCursedWin},
		{"draw", WDLDraw},
		{"maybe-loss", WDLBlessedLoss},
		{"blessed-loss", WDLBlessedLoss},
		{"loss", WDLLoss},
		{"unknown", WDLDraw},
	}
	for _, tc := range tests {
		if got := categoryToWDL(tc.category); got != tc.want {
			t.Errorf("categoryToWDL(%q) = %d, want %d", tc.category, got, tc.want)
		}
	}
}

func TestCachedProberMemoryTier(t *testing.T) {
	stub := &stubProber{result: ProbeResult{Found: true, WDL: WDLWin, DTZ: 13}}
	cp := NewCachedProber(stub, 16)

	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	first := cp.Probe(pos)
	if !first.Found || first.WDL != WDLWin || first.DTZ != 13 {
		t.Fatalf("first probe = %+v", first)
	}
	for i := 0; i < 5; i++ {
		if got := cp.Probe(pos); got != first {
			t.Fatalf("cached probe = %+v, want %+v", got, first)
		}
	}
	if stub.calls != 1 {
		t.Errorf("backend asked %d times, want 1", stub.calls)
	}
	if cp.CacheSize() != 1 {
		t.Errorf("cache size = %d, want 1", cp.CacheSize())
	}
	if cp.HitRate() <= 0 {
		t.Error("hit rate not positive after repeated probes")
	}
}

func TestCachedProberPersistentTier(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	stub := &stubProber{result: ProbeResult{Found: true, WDL: WDLWin, DTZ: 7}}
	cp := NewPersistentCachedProber(stub, 16, store)
	want := cp.Probe(pos)

	// A fresh prober over the same store must not hit the backend.
	miss := &stubProber{result: ProbeResult{Found: true, WDL: WDLLoss}}
	cp2 := NewPersistentCachedProber(miss, 16, store)
	if got := cp2.Probe(pos); got != want {
		t.Errorf("persistent probe = %+v, want %+v", got, want)
	}
	if miss.calls != 0 {
		t.Errorf("backend asked %d times despite persisted verdict", miss.calls)
	}
}

func TestCachedProberDoesNotPersistMisses(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	pos := board.NewPosition()
	stub := &stubProber{result: ProbeResult{Found: false}}
	cp := NewPersistentCachedProber(stub, 16, store)
	cp.Probe(pos)

	cp2 := NewPersistentCachedProber(stub, 16, store)
	cp2.Probe(pos)
	if stub.calls != 2 {
		t.Errorf("backend asked %d times, want 2 (misses are not persisted)", stub.calls)
	}
}

func TestProbeKeyIgnoresMoveCounters(t *testing.T) {
	a, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 37 99")
	if err != nil {
		t.Fatal(err)
	}
	if probeKey(a) != probeKey(b) {
		t.Error("probe key depends on move counters")
	}

	c, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if probeKey(a) == probeKey(c) {
		t.Error("probe key ignores the side to move")
	}
}

func TestMaterialKey(t *testing.T) {
	tests := []struct {
		fen  string
		want string
	}{
		{"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", "KRvK"},
		{"4k3/4r3/8/8/8/8/3Q4/4K3 w - - 0 1", "KQvKR"},
		{"4k3/3qr3/8/8/8/8/2BN4/4K3 w - - 0 1", "KBNvKQR"},
	}
	for _, tc := range tests {
		pos, err := board.ParseFEN(tc.fen)
		if err != nil {
			t.Fatal(err)
		}
		if got := MaterialKey(pos); got != tc.want {
			t.Errorf("MaterialKey(%q) = %q, want %q", tc.fen, got, tc.want)
		}
	}
}

func TestDownloaderTableInventory(t *testing.T) {
	dir := t.TempDir()
	d := NewDownloader(dir)

	if d.HasTable("KQvK") {
		t.Error("empty directory reports a table")
	}
	if got := d.MaxPiecesAvailable(); got != 0 {
		t.Errorf("empty directory max pieces = %d", got)
	}

	for _, f := range []string{"KQvK.rtbw", "KQvK.rtbz", "KRPvKR.rtbw", "KRPvKR.rtbz", "KBvK.rtbw"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if !d.HasTable("KQvK") {
		t.Error("complete table not detected")
	}
	if d.HasTable("KBvK") {
		t.Error("table with missing DTZ file counted as complete")
	}
	tables := d.AvailableTables()
	if len(tables) != 2 || tables[0] != "KQvK" || tables[1] != "KRPvKR" {
		t.Errorf("available tables = %v", tables)
	}
	if got := d.MaxPiecesAvailable(); got != 5 {
		t.Errorf("max pieces = %d, want 5", got)
	}
}

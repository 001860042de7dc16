package uci

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hailam/kingfisher/internal/board"
	"github.com/hailam/kingfisher/internal/engine"
)

func newTestUCI(t *testing.T) (*UCI, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	eng := engine.NewEngine(engine.Options{HashMB: 16, Threads: 1})
	return New(eng, &out), &out
}

func TestHandleUCIIdentifies(t *testing.T) {
	u, out := newTestUCI(t)
	u.dispatch("uci")

	s := out.String()
	for _, want := range []string{"id name Kingfisher", "option name Hash", "option name Threads", "uciok"} {
		if !strings.Contains(s, want) {
			t.Errorf("uci output missing %q:\n%s", want, s)
		}
	}
}

func TestDispatchQuit(t *testing.T) {
	u, _ := newTestUCI(t)
	if u.dispatch("quit") {
		t.Error("quit should end the command loop")
	}
	if !u.dispatch("isready") {
		t.Error("isready should keep the loop running")
	}
}

func TestPositionStartposWithMoves(t *testing.T) {
	u, _ := newTestUCI(t)
	u.dispatch("position startpos moves e2e4 e7e5 g1f3")

	wantFEN := "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2"
	if got := u.position.ToFEN(); got != wantFEN {
		t.Errorf("position after moves = %q, want %q", got, wantFEN)
	}
	if len(u.history) != 3 {
		t.Errorf("history length = %d, want 3", len(u.history))
	}
	if u.history[0] != board.NewPosition().Hash {
		t.Error("history should start with the initial position hash")
	}
}

func TestPositionFEN(t *testing.T) {
	u, _ := newTestUCI(t)
	fen := "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	u.dispatch("position fen " + fen)

	if got := u.position.ToFEN(); got != fen {
		t.Errorf("position = %q, want %q", got, fen)
	}
	if len(u.history) != 0 {
		t.Errorf("history length = %d, want 0", len(u.history))
	}
}

func TestPositionRejectsIllegalMove(t *testing.T) {
	u, out := newTestUCI(t)
	before := u.position.ToFEN()
	u.dispatch("position startpos moves e2e5")

	if !strings.Contains(out.String(), "illegal move e2e5") {
		t.Errorf("expected illegal move report, got %q", out.String())
	}
	if u.position.ToFEN() != before {
		t.Error("position should be unchanged after an illegal move list")
	}
}

func TestParseGoParams(t *testing.T) {
	p := parseGoParams(strings.Fields("wtime 60000 btime 55000 winc 1000 binc 900 movestogo 30"))
	limits := p.limits()

	if limits.Time[board.White] != 60*time.Second {
		t.Errorf("wtime = %v", limits.Time[board.White])
	}
	if limits.Time[board.Black] != 55*time.Second {
		t.Errorf("btime = %v", limits.Time[board.Black])
	}
	if limits.Inc[board.White] != time.Second || limits.Inc[board.Black] != 900*time.Millisecond {
		t.Errorf("inc = %v", limits.Inc)
	}
	if limits.MovesToGo != 30 {
		t.Errorf("movestogo = %d", limits.MovesToGo)
	}

	p = parseGoParams(strings.Fields("depth 12 nodes 50000 movetime 2000"))
	limits = p.limits()
	if limits.Depth != 12 || limits.Nodes != 50000 || limits.MoveTime != 2*time.Second {
		t.Errorf("limits = %+v", limits)
	}

	p = parseGoParams(strings.Fields("infinite"))
	if !p.limits().Infinite {
		t.Error("infinite not parsed")
	}
	p = parseGoParams(strings.Fields("ponder wtime 1000 btime 1000"))
	if !p.limits().Ponder {
		t.Error("ponder not parsed")
	}
}

func TestParseOption(t *testing.T) {
	tests := []struct {
		args        string
		name, value string
	}{
		{"name Hash value 128", "Hash", "128"},
		{"name Clear Hash", "Clear Hash", ""},
		{"name BookFile value /tmp/my book.bin", "BookFile", "/tmp/my book.bin"},
		{"value 12", "", ""},
		{"", "", ""},
	}
	for _, tc := range tests {
		name, value := parseOption(strings.Fields(tc.args))
		if name != tc.name || value != tc.value {
			t.Errorf("parseOption(%q) = (%q, %q), want (%q, %q)",
				tc.args, name, value, tc.name, tc.value)
		}
	}
}

func TestSetOptionContempt(t *testing.T) {
	u, _ := newTestUCI(t)
	u.dispatch("setoption name Contempt value 25")
	u.dispatch("setoption name Hash value 0")      // out of range, ignored
	u.dispatch("setoption name Threads value bad") // not a number, ignored
}

func TestGoProducesBestmove(t *testing.T) {
	u, out := newTestUCI(t)
	u.dispatch("position startpos")
	u.dispatch("go depth 1")
	u.stopSearch()

	s := out.String()
	if !strings.Contains(s, "bestmove ") {
		t.Fatalf("no bestmove in output: %q", s)
	}
	if !strings.Contains(s, "info depth 1") {
		t.Errorf("no depth 1 info line in output: %q", s)
	}
}

func TestGoWhileSearchingIgnored(t *testing.T) {
	u, _ := newTestUCI(t)
	u.dispatch("go infinite")
	u.dispatch("go depth 1") // must not start a second search
	u.dispatch("stop")
}

func TestBestmoveWhenMated(t *testing.T) {
	u, out := newTestUCI(t)
	u.dispatch("position fen 7k/5KQ1/8/8/8/8/8/8 b - - 0 1")
	u.dispatch("go depth 1")
	u.stopSearch()

	if !strings.Contains(out.String(), "bestmove 0000") {
		t.Errorf("expected null bestmove, got %q", out.String())
	}
}

func TestPerftCommand(t *testing.T) {
	u, out := newTestUCI(t)
	u.dispatch("position startpos")
	u.dispatch("perft 3")

	if !strings.Contains(out.String(), "nodes 8902") {
		t.Errorf("perft 3 output = %q, want nodes 8902", out.String())
	}
}

func TestDivideCommand(t *testing.T) {
	u, out := newTestUCI(t)
	u.dispatch("position startpos")
	u.dispatch("divide 2")

	s := out.String()
	if !strings.Contains(s, "e2e4: 20") {
		t.Errorf("divide output missing e2e4 line: %q", s)
	}
	if !strings.Contains(s, "nodes 400") {
		t.Errorf("divide output missing total: %q", s)
	}
}

func TestSendInfoFormat(t *testing.T) {
	u, out := newTestUCI(t)
	m1, _ := board.ParseMove("e2e4", board.NewPosition())

	u.sendInfo(engine.SearchInfo{
		Depth: 8, SelDepth: 12, Score: 35, Nodes: 100000, NPS: 1000000,
		Time: 100 * time.Millisecond, PV: []board.Move{m1}, HashFull: 42,
	})
	got := strings.TrimSpace(out.String())
	want := "info depth 8 seldepth 12 score cp 35 nodes 100000 nps 1000000 hashfull 42 time 100 pv e2e4"
	if got != want {
		t.Errorf("info line = %q, want %q", got, want)
	}

	out.Reset()
	u.sendInfo(engine.SearchInfo{Depth: 5, Score: engine.MateIn(3)})
	if !strings.Contains(out.String(), "score mate 2") {
		t.Errorf("mate score line = %q", out.String())
	}
}

func TestUcinewgameResetsPosition(t *testing.T) {
	u, _ := newTestUCI(t)
	u.dispatch("position startpos moves e2e4")
	u.dispatch("ucinewgame")

	if u.position.ToFEN() != board.NewPosition().ToFEN() {
		t.Error("ucinewgame should reset to the initial position")
	}
	if len(u.history) != 0 {
		t.Error("ucinewgame should clear the history")
	}
}

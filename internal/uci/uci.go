// Package uci implements the Universal Chess Interface protocol on top of
// the search engine. One UCI instance serves one GUI connection.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hailam/kingfisher/internal/board"
	"github.com/hailam/kingfisher/internal/book"
	"github.com/hailam/kingfisher/internal/engine"
	"github.com/hailam/kingfisher/internal/storage"
	"github.com/hailam/kingfisher/internal/tablebase"
)

const (
	engineName   = "Kingfisher"
	engineAuthor = "hailam"

	maxHashMB  = 4096
	maxThreads = 256
)

// UCI speaks the protocol over an input stream and an output writer.
type UCI struct {
	engine *engine.Engine
	out    io.Writer

	position *board.Position
	// Hashes of every position reached before the current one, oldest
	// first. Passed to the search for repetition detection.
	history []uint64

	searchMu   sync.Mutex
	searchDone chan struct{}

	ownBook      bool
	bookPath     string
	moveOverhead time.Duration
	store        *storage.Store
}

// New creates a UCI frontend around the given engine, writing protocol
// output to out.
func New(eng *engine.Engine, out io.Writer) *UCI {
	u := &UCI{
		engine:   eng,
		out:      out,
		position: board.NewPosition(),
	}
	eng.OnInfo = u.sendInfo
	return u
}

// Run reads commands from in until quit or EOF. It blocks the caller.
func (u *UCI) Run(in io.Reader) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !u.dispatch(line) {
			break
		}
	}
	u.shutdown()
}

func (u *UCI) dispatch(line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.send("readyok")
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(args)
	case "stop":
		u.stopSearch()
	case "ponderhit":
		u.engine.PonderHit()
	case "setoption":
		u.handleSetOption(args)
	case "d":
		u.handleDisplay()
	case "eval":
		u.send("eval %d", u.engine.Evaluate(u.position))
	case "perft":
		u.handlePerft(args, false)
	case "divide":
		u.handlePerft(args, true)
	case "quit":
		return false
	default:
		// Unknown commands are ignored per protocol.
	}
	return true
}

func (u *UCI) handleUCI() {
	u.send("id name %s", engineName)
	u.send("id author %s", engineAuthor)
	u.send("option name Hash type spin default 64 min 1 max %d", maxHashMB)
	u.send("option name Threads type spin default 1 min 1 max %d", maxThreads)
	u.send("option name Contempt type spin default 0 min -100 max 100")
	u.send("option name MoveOverhead type spin default 10 min 0 max 5000")
	u.send("option name Ponder type check default false")
	u.send("option name OwnBook type check default false")
	u.send("option name BookFile type string default <empty>")
	u.send("option name UseTablebase type check default false")
	u.send("uciok")
}

func (u *UCI) handleNewGame() {
	u.stopSearch()
	u.engine.NewGame()
	u.position = board.NewPosition()
	u.history = u.history[:0]
}

// handlePosition parses "position [startpos | fen <fen>] [moves ...]".
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var pos *board.Position
	moveIdx := -1

	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
		if len(args) > 1 && args[1] == "moves" {
			moveIdx = 2
		}
	case "fen":
		fenEnd := len(args)
		for i := 1; i < len(args); i++ {
			if args[i] == "moves" {
				fenEnd = i
				moveIdx = i + 1
				break
			}
		}
		p, err := board.ParseFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			u.send("info string invalid fen: %v", err)
			return
		}
		pos = p
	default:
		return
	}

	history := make([]uint64, 0, len(args))
	if moveIdx > 0 {
		for _, s := range args[moveIdx:] {
			m, err := board.ParseMove(s, pos)
			if err != nil || !pos.GenerateLegalMoves().Contains(m) {
				u.send("info string illegal move %s", s)
				return
			}
			history = append(history, pos.Hash)
			next := pos.Make(m)
			pos = &next
		}
	}
	u.position = pos
	u.history = history
}

// goParams are the search bounds parsed from a "go" command.
type goParams struct {
	wtime, btime int
	winc, binc   int
	movestogo    int
	depth        int
	nodes        uint64
	movetime     int
	infinite     bool
	ponder       bool
}

func parseGoParams(args []string) goParams {
	var p goParams
	for i := 0; i < len(args); i++ {
		next := func() int {
			if i+1 < len(args) {
				i++
				n, _ := strconv.Atoi(args[i])
				return n
			}
			return 0
		}
		switch args[i] {
		case "wtime":
			p.wtime = next()
		case "btime":
			p.btime = next()
		case "winc":
			p.winc = next()
		case "binc":
			p.binc = next()
		case "movestogo":
			p.movestogo = next()
		case "depth":
			p.depth = next()
		case "nodes":
			p.nodes = uint64(next())
		case "movetime":
			p.movetime = next()
		case "infinite":
			p.infinite = true
		case "ponder":
			p.ponder = true
		}
	}
	return p
}

func (p goParams) limits() engine.Limits {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return engine.Limits{
		Time:      [2]time.Duration{ms(p.wtime), ms(p.btime)},
		Inc:       [2]time.Duration{ms(p.winc), ms(p.binc)},
		MovesToGo: p.movestogo,
		MoveTime:  ms(p.movetime),
		Depth:     p.depth,
		Nodes:     p.nodes,
		Infinite:  p.infinite,
		Ponder:    p.ponder,
	}
}

func (u *UCI) handleGo(args []string) {
	u.searchMu.Lock()
	if u.searchDone != nil {
		u.searchMu.Unlock()
		return // already searching
	}
	done := make(chan struct{})
	u.searchDone = done
	u.searchMu.Unlock()

	limits := parseGoParams(args).limits()
	limits.Overhead = u.moveOverhead
	pos := u.position
	history := append([]uint64(nil), u.history...)

	go func() {
		defer func() {
			u.searchMu.Lock()
			u.searchDone = nil
			u.searchMu.Unlock()
			close(done)
		}()

		result := u.engine.Search(pos, history, limits)
		if result.BestMove == board.NoMove {
			u.send("bestmove 0000")
			return
		}
		if result.Ponder != board.NoMove {
			u.send("bestmove %s ponder %s", result.BestMove, result.Ponder)
		} else {
			u.send("bestmove %s", result.BestMove)
		}
	}()
}

// stopSearch aborts a running search and waits for its bestmove to be
// printed. A no-op when idle.
func (u *UCI) stopSearch() {
	u.searchMu.Lock()
	done := u.searchDone
	u.searchMu.Unlock()
	if done == nil {
		return
	}
	u.engine.Stop()
	<-done
}

func (u *UCI) handleSetOption(args []string) {
	name, value := parseOption(args)
	if name == "" {
		return
	}

	switch strings.ToLower(name) {
	case "hash":
		if mb, err := strconv.Atoi(value); err == nil && mb >= 1 && mb <= maxHashMB {
			u.engine.SetHashSize(mb)
		}
	case "threads":
		if n, err := strconv.Atoi(value); err == nil && n >= 1 && n <= maxThreads {
			u.engine.SetThreads(n)
		}
	case "contempt":
		if c, err := strconv.Atoi(value); err == nil {
			u.engine.SetContempt(c)
		}
	case "moveoverhead":
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 && ms <= 5000 {
			u.moveOverhead = time.Duration(ms) * time.Millisecond
		}
	case "ponder":
		// The GUI drives pondering through "go ponder"; nothing to set.
	case "ownbook":
		u.ownBook = value == "true"
		u.reloadBook()
	case "bookfile":
		u.bookPath = value
		u.reloadBook()
	case "usetablebase":
		if value == "true" {
			u.engine.SetProber(u.openProber())
		} else {
			u.engine.SetProber(nil)
		}
	}
}

// parseOption splits "name <n> [value <v>]", where both the name and the
// value may contain spaces.
func parseOption(args []string) (name, value string) {
	if len(args) == 0 || args[0] != "name" {
		return "", ""
	}
	valueIdx := len(args)
	for i := 1; i < len(args); i++ {
		if args[i] == "value" {
			valueIdx = i
			break
		}
	}
	name = strings.Join(args[1:valueIdx], " ")
	if valueIdx+1 < len(args) {
		value = strings.Join(args[valueIdx+1:], " ")
	}
	return name, value
}

func (u *UCI) reloadBook() {
	if !u.ownBook || u.bookPath == "" || u.bookPath == "<empty>" {
		u.engine.SetBook(nil)
		return
	}
	b, err := book.LoadPolyglot(u.bookPath)
	if err != nil {
		u.send("info string book load failed: %v", err)
		u.engine.SetBook(nil)
		return
	}
	u.send("info string book loaded, %d entries", b.Size())
	u.engine.SetBook(b)
}

// openProber builds the tablebase prober, backed by the on-disk cache
// when the database opens cleanly and memory-only otherwise.
func (u *UCI) openProber() tablebase.Prober {
	if u.store == nil {
		if dir, err := storage.DatabaseDir(); err == nil {
			if st, err := storage.Open(dir); err == nil {
				u.store = st
			}
		}
	}
	if u.store != nil {
		return tablebase.NewPersistentCachedProber(tablebase.NewLichessProber(), 100000, u.store)
	}
	return tablebase.NewCachedLichessProber()
}

func (u *UCI) handleDisplay() {
	fmt.Fprintln(u.out, u.position.String())
	u.send("fen %s", u.position.ToFEN())
	u.send("hash %016x", u.position.Hash)
}

func (u *UCI) handlePerft(args []string, divide bool) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil && d > 0 {
			depth = d
		}
	}

	start := time.Now()
	var total int64
	if divide {
		counts, sum := board.PerftDivide(u.position, depth)
		moves := make([]board.Move, 0, len(counts))
		for m := range counts {
			moves = append(moves, m)
		}
		sort.Slice(moves, func(i, j int) bool { return moves[i].String() < moves[j].String() })
		for _, m := range moves {
			u.send("%s: %d", m, counts[m])
		}
		total = sum
	} else {
		total = u.engine.Perft(u.position, depth)
	}

	elapsed := time.Since(start)
	var nps int64
	if elapsed > 0 {
		nps = total * int64(time.Second) / int64(elapsed)
	}
	u.send("nodes %d time %d nps %d", total, elapsed.Milliseconds(), nps)
}

// sendInfo reports one completed iteration to the GUI.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d", info.Depth, info.SelDepth)

	if engine.IsMateScore(info.Score) {
		fmt.Fprintf(&sb, " score mate %d", engine.MovesToMate(info.Score))
	} else {
		fmt.Fprintf(&sb, " score cp %d", info.Score)
	}

	fmt.Fprintf(&sb, " nodes %d nps %d hashfull %d time %d",
		info.Nodes, info.NPS, info.HashFull, info.Time.Milliseconds())

	if len(info.PV) > 0 {
		sb.WriteString(" pv")
		for _, m := range info.PV {
			sb.WriteByte(' ')
			sb.WriteString(m.String())
		}
	}
	u.send("%s", sb.String())
}

func (u *UCI) send(format string, args ...any) {
	fmt.Fprintf(u.out, format+"\n", args...)
}

func (u *UCI) shutdown() {
	u.stopSearch()
	if u.store != nil {
		u.store.Close()
		u.store = nil
	}
}

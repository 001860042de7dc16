package tablebase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hailam/kingfisher/internal/board"
)

const lichessBaseURL = "https://tablebase.lichess.ovh/standard"

// LichessProber queries the Lichess online tablebase, which covers all
// positions with up to seven pieces. Lookups need network access and are
// rate limited, so production setups wrap this in a CachedProber.
type LichessProber struct {
	client  *http.Client
	baseURL string
}

func NewLichessProber() *LichessProber {
	return &LichessProber{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: lichessBaseURL,
	}
}

type lichessResponse struct {
	Category string `json:"category"`
	DTZ      int    `json:"dtz"`
	Moves    []struct {
		UCI      string `json:"uci"`
		Category string `json:"category"`
		DTZ      int    `json:"dtz"`
	} `json:"moves"`
}

func (lp *LichessProber) lookup(pos *board.Position) (*lichessResponse, bool) {
	if CountPieces(pos) > lp.MaxPieces() {
		return nil, false
	}

	// Lichess takes the FEN with spaces replaced by underscores.
	fen := strings.ReplaceAll(pos.ToFEN(), " ", "_")
	resp, err := lp.client.Get(fmt.Sprintf("%s?fen=%s", lp.baseURL, fen))
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	var result lichessResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false
	}
	return &result, true
}

func (lp *LichessProber) Probe(pos *board.Position) ProbeResult {
	result, ok := lp.lookup(pos)
	if !ok {
		return ProbeResult{}
	}
	return ProbeResult{
		Found: true,
		WDL:   categoryToWDL(result.Category),
		DTZ:   result.DTZ,
	}
}

func (lp *LichessProber) ProbeRoot(pos *board.Position) RootResult {
	result, ok := lp.lookup(pos)
	if !ok || len(result.Moves) == 0 {
		return RootResult{}
	}

	// Moves come back ranked, best for the side to move first.
	best := result.Moves[0]
	move := matchUCIMove(pos, best.UCI)
	if move == board.NoMove {
		return RootResult{}
	}

	// The per-move category is given from the opponent's side.
	return RootResult{
		Found: true,
		Move:  move,
		WDL:   -categoryToWDL(best.Category),
		DTZ:   best.DTZ,
	}
}

func (lp *LichessProber) MaxPieces() int { return 7 }

func (lp *LichessProber) Available() bool { return true }

func categoryToWDL(category string) WDL {
	switch category {
	case "win":
		return WDLWin
	case "maybe-win", "cursed-win":
		return WDLCursedWin
	case "maybe-loss", "blessed-loss":
		return WDLBlessedLoss
	case "loss":
		return WDLLoss
	default:
		return WDLDraw
	}
}

// matchUCIMove resolves a UCI move string against the position's legal
// moves, so the result carries the right special-move flags and anything
// illegal is rejected.
func matchUCIMove(pos *board.Position, uci string) board.Move {
	m, err := board.ParseMove(uci, pos)
	if err != nil {
		return board.NoMove
	}
	legal := pos.GenerateLegalMoves()
	if !legal.Contains(m) {
		return board.NoMove
	}
	return m
}

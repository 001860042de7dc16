package engine

import (
	"testing"

	"github.com/hailam/kingfisher/internal/board"
)

func TestDecideDraw(t *testing.T) {
	endgame, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	middlegame := board.NewPosition()

	tests := []struct {
		name     string
		contempt int
		pos      *board.Position
		score    int
		offered  bool
		want     DrawDecision
	}{
		{"accept when worse", 0, endgame, -50, true, AcceptDraw},
		{"accept dead level without contempt", 0, endgame, 0, true, AcceptDraw},
		{"decline when better", 0, endgame, 80, true, PlayOn},
		{"contempt declines an equal draw", 50, endgame, 0, true, PlayOn},
		{"contempt accepts when losing badly", 50, endgame, -120, true, AcceptDraw},
		{"offer in a level endgame", 0, endgame, 5, false, OfferDraw},
		{"no offer in the middlegame", 0, middlegame, 0, false, PlayOn},
		{"no offer when winning", 0, endgame, 40, false, PlayOn},
		{"no offer with contempt", 50, endgame, 0, false, PlayOn},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			eng := NewEngine(Options{HashMB: 1, Threads: 1, Contempt: tc.contempt})
			if got := eng.DecideDraw(tc.pos, tc.score, tc.offered); got != tc.want {
				t.Errorf("DecideDraw(score=%d, offered=%v) = %v, want %v", tc.score, tc.offered, got, tc.want)
			}
		})
	}
}

func TestDrawDecisionString(t *testing.T) {
	if PlayOn.String() != "play" || OfferDraw.String() != "offer" || AcceptDraw.String() != "accept" {
		t.Error("unexpected decision strings")
	}
}

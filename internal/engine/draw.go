package engine

import (
	"github.com/hailam/kingfisher/internal/board"
)

// DrawDecision is the engine's stance on a draw by agreement.
type DrawDecision int

const (
	PlayOn DrawDecision = iota
	OfferDraw
	AcceptDraw
)

func (d DrawDecision) String() string {
	switch d {
	case OfferDraw:
		return "offer"
	case AcceptDraw:
		return "accept"
	default:
		return "play"
	}
}

// DecideDraw decides whether to accept a pending draw offer or make one.
// score is the engine's view of the position in centipawns. A positive
// contempt makes the engine fight on in equal positions; acceptance
// requires being worse off than the contempt, offers only happen without
// contempt, in a late phase, with a dead-level score.
func (e *Engine) DecideDraw(pos *board.Position, score int, offered bool) DrawDecision {
	if offered {
		if score <= -e.contempt {
			return AcceptDraw
		}
		return PlayOn
	}

	if e.contempt <= 0 && GamePhase(pos) <= 6 && abs(score) <= 10 {
		return OfferDraw
	}
	return PlayOn
}

package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var castlingFlags = map[byte]CastlingRights{
	'K': WhiteKingSideCastle,
	'Q': WhiteQueenSideCastle,
	'k': BlackKingSideCastle,
	'q': BlackQueenSideCastle,
}

// ParseFEN parses a FEN string and returns a Position. The halfmove
// clock and fullmove number fields may be omitted.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return nil, fmt.Errorf("invalid FEN %q: want at least 4 fields, got %d", fen, len(fields))
	}

	pos := &Position{EnPassant: NoSquare, FullMoveNumber: 1}
	pos.KingSquare[White] = NoSquare
	pos.KingSquare[Black] = NoSquare

	if err := pos.readPlacement(fields[0]); err != nil {
		return nil, err
	}

	switch fields[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("bad side to move %q", fields[1])
	}

	if err := pos.readCastling(fields[2]); err != nil {
		return nil, err
	}

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return nil, fmt.Errorf("bad en passant square %q", fields[3])
		}
		pos.EnPassant = sq
	}

	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil {
			return nil, fmt.Errorf("bad halfmove clock %q", fields[4])
		}
		pos.HalfMoveClock = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil {
			return nil, fmt.Errorf("bad fullmove number %q", fields[5])
		}
		pos.FullMoveNumber = n
	}

	pos.updateOccupied()
	pos.findKings()
	pos.Hash = pos.ComputeHash()
	pos.PawnKey = pos.ComputePawnKey()

	if err := pos.Validate(); err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	return pos, nil
}

// readPlacement scans the board field in one pass, tracking the file
// and rank cursors instead of splitting on '/'.
func (p *Position) readPlacement(placement string) error {
	file, rank := 0, 7
	for i := 0; i < len(placement); i++ {
		switch c := placement[i]; {
		case c == '/':
			if file != 8 {
				return fmt.Errorf("rank %d covers %d files", rank+1, file)
			}
			if rank == 0 {
				return fmt.Errorf("too many ranks in %q", placement)
			}
			file, rank = 0, rank-1
		case c >= '1' && c <= '8':
			file += int(c - '0')
			if file > 8 {
				return fmt.Errorf("rank %d overflows the board", rank+1)
			}
		default:
			piece := PieceFromChar(c)
			if piece == NoPiece || file > 7 {
				return fmt.Errorf("bad placement character %q", c)
			}
			p.setPiece(piece, NewSquare(file, rank))
			file++
		}
	}
	if rank != 0 || file != 8 {
		return fmt.Errorf("placement %q does not cover the board", placement)
	}
	return nil
}

func (p *Position) readCastling(s string) error {
	if s == "-" {
		p.CastlingRights = NoCastling
		return nil
	}
	for i := 0; i < len(s); i++ {
		flag, ok := castlingFlags[s[i]]
		if !ok {
			return fmt.Errorf("bad castling character %q", s[i])
		}
		p.CastlingRights |= flag
	}
	return nil
}

// ToFEN returns the FEN representation of the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := byte('0')
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > '0' {
				sb.WriteByte(empty)
				empty = '0'
			}
			sb.WriteString(piece.String())
		}
		if empty > '0' {
			sb.WriteByte(empty)
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	stm := byte('w')
	if p.SideToMove == Black {
		stm = 'b'
	}
	fmt.Fprintf(&sb, " %c %s %s %d %d",
		stm, p.CastlingRights, p.EnPassant, p.HalfMoveClock, p.FullMoveNumber)
	return sb.String()
}

// ComputeHash computes the Zobrist hash for the position from scratch.
// Make maintains the hash incrementally; this is the reference computation.
func (p *Position) ComputeHash() uint64 {
	hash := zobristCastling[p.CastlingRights]
	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}
	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for bb := p.Pieces[c][pt]; bb != 0; {
				hash ^= zobristPiece[c][pt][bb.PopLSB()]
			}
		}
	}
	return hash
}

// ComputePawnKey computes the pawn-structure hash key from scratch.
func (p *Position) ComputePawnKey() uint64 {
	var key uint64
	for c := White; c <= Black; c++ {
		for bb := p.Pieces[c][Pawn]; bb != 0; {
			key ^= zobristPiece[c][Pawn][bb.PopLSB()]
		}
	}
	return key
}

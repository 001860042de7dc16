package board

// Legal move generation.
//
// Legality is enforced at generation time: per-piece generators intersect
// their targets with a check mask and restrict pinned pieces to their pin
// ray, so the emitted list needs no post-filtering. With two or more
// checkers only king moves are generated.

// CheckersAndPinned computes the enemy pieces giving check and the friendly
// pieces pinned to the king, for the side to move.
func (p *Position) CheckersAndPinned() (checkers, pinned Bitboard) {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	// Leaper checks.
	checkers = knightAttacks[ksq] & p.Pieces[them][Knight]
	checkers |= pawnAttacks[us][ksq] & p.Pieces[them][Pawn]

	// Slider checks and pins: cast empty-board rays from the king and count
	// the blockers between the king and each candidate sniper.
	snipers := RookAttacks(ksq, 0) & (p.Pieces[them][Rook] | p.Pieces[them][Queen])
	snipers |= BishopAttacks(ksq, 0) & (p.Pieces[them][Bishop] | p.Pieces[them][Queen])

	for snipers != 0 {
		sq := snipers.PopLSB()
		blockers := Between(ksq, sq) & p.AllOccupied
		switch blockers.PopCount() {
		case 0:
			checkers |= SquareBB(sq)
		case 1:
			if blockers&p.Occupied[us] != 0 {
				pinned |= blockers
			}
		}
	}

	return checkers, pinned
}

// GenerateLegalMoves generates exactly the legal moves for the position.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	us := p.SideToMove
	ksq := p.KingSquare[us]
	checkers, pinned := p.CheckersAndPinned()

	switch checkers.PopCount() {
	case 0:
		p.genPawnMoves(ml, ksq, pinned, Universe, false)
		p.genKnightMoves(ml, pinned, Universe)
		p.genSliderMoves(ml, ksq, pinned, Universe)
		p.genKingMoves(ml, ksq, false)
	case 1:
		// Non-king moves must capture the checker or block the ray.
		checkMask := Between(ksq, checkers.LSB()) | checkers
		p.genPawnMoves(ml, ksq, pinned, checkMask, true)
		p.genKnightMoves(ml, pinned, checkMask)
		p.genSliderMoves(ml, ksq, pinned, checkMask)
		p.genKingMoves(ml, ksq, true)
	default:
		// Double check: only the king can resolve it.
		p.genKingMoves(ml, ksq, true)
	}

	return ml
}

// genPawnMoves generates legal pawn pushes, captures, promotions, and en
// passant captures, restricted by the check mask and pin rays.
func (p *Position) genPawnMoves(ml *MoveList, ksq Square, pinned, checkMask Bitboard, inCheck bool) {
	us := p.SideToMove
	them := us.Other()
	pawns := p.Pieces[us][Pawn]
	enemies := p.Occupied[them]
	empty := ^p.AllOccupied

	var singlePush, doublePush, promoRank Bitboard
	var pushDir int
	if us == White {
		singlePush = pawns.North() & empty
		doublePush = singlePush.North() & empty & Rank4
		promoRank = Rank8
		pushDir = 8
	} else {
		singlePush = pawns.South() & empty
		doublePush = singlePush.South() & empty & Rank5
		promoRank = Rank1
		pushDir = -8
	}

	// Quiet single pushes.
	targets := singlePush & ^promoRank & checkMask
	for targets != 0 {
		to := targets.PopLSB()
		from := Square(int(to) - pushDir)
		if pinned&SquareBB(from) == 0 || Line(ksq, from)&SquareBB(to) != 0 {
			ml.Add(NewMove(from, to))
		}
	}

	// Push promotions.
	targets = singlePush & promoRank & checkMask
	for targets != 0 {
		to := targets.PopLSB()
		from := Square(int(to) - pushDir)
		if pinned&SquareBB(from) == 0 || Line(ksq, from)&SquareBB(to) != 0 {
			addPromotions(ml, from, to)
		}
	}

	// Double pushes.
	targets = doublePush & checkMask
	for targets != 0 {
		to := targets.PopLSB()
		from := Square(int(to) - 2*pushDir)
		if pinned&SquareBB(from) == 0 || Line(ksq, from)&SquareBB(to) != 0 {
			ml.Add(NewMove(from, to))
		}
	}

	// Captures.
	for capturers := pawns; capturers != 0; {
		from := capturers.PopLSB()
		attacks := pawnAttacks[us][from] & enemies & checkMask
		for attacks != 0 {
			to := attacks.PopLSB()
			if pinned&SquareBB(from) != 0 && Line(ksq, from)&SquareBB(to) == 0 {
				continue
			}
			if promoRank&SquareBB(to) != 0 {
				addPromotions(ml, from, to)
			} else {
				ml.Add(NewMove(from, to))
			}
		}
	}

	// En passant.
	if p.EnPassant == NoSquare {
		return
	}
	epSq := p.EnPassant
	var capturedSq Square
	if us == White {
		capturedSq = epSq - 8
	} else {
		capturedSq = epSq + 8
	}

	for candidates := pawnAttacks[them][epSq] & pawns; candidates != 0; {
		from := candidates.PopLSB()

		// In check, the capture must take the checker or land on the ray.
		if inCheck && checkMask&SquareBB(epSq) == 0 && checkMask&SquareBB(capturedSq) == 0 {
			continue
		}
		if pinned&SquareBB(from) != 0 && Line(ksq, from)&SquareBB(epSq) == 0 {
			continue
		}

		// Both pawns leave their shared rank at once, which can uncover a
		// rook or queen attacking the king horizontally. Test with both
		// removed and the capturer placed on the target square.
		occ := p.AllOccupied ^ SquareBB(from) ^ SquareBB(capturedSq) | SquareBB(epSq)
		rookQueen := p.Pieces[them][Rook] | p.Pieces[them][Queen]
		if RookAttacks(ksq, occ)&rookQueen != 0 {
			continue
		}

		ml.Add(NewEnPassant(from, epSq))
	}
}

// addPromotions adds all four promotion moves.
func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// genKnightMoves generates legal knight moves. A pinned knight can never
// move: no knight jump stays on the pin ray.
func (p *Position) genKnightMoves(ml *MoveList, pinned, checkMask Bitboard) {
	us := p.SideToMove
	knights := p.Pieces[us][Knight] &^ pinned
	for knights != 0 {
		from := knights.PopLSB()
		targets := knightAttacks[from] &^ p.Occupied[us] & checkMask
		for targets != 0 {
			ml.Add(NewMove(from, targets.PopLSB()))
		}
	}
}

// genSliderMoves generates legal bishop, rook, and queen moves. Pinned
// sliders are restricted to the line through their square and the king.
func (p *Position) genSliderMoves(ml *MoveList, ksq Square, pinned, checkMask Bitboard) {
	us := p.SideToMove
	occ := p.AllOccupied

	for pt := Bishop; pt <= Queen; pt++ {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			var attacks Bitboard
			switch pt {
			case Bishop:
				attacks = BishopAttacks(from, occ)
			case Rook:
				attacks = RookAttacks(from, occ)
			case Queen:
				attacks = QueenAttacks(from, occ)
			}
			targets := attacks &^ p.Occupied[us] & checkMask
			if pinned&SquareBB(from) != 0 {
				targets &= Line(ksq, from)
			}
			for targets != 0 {
				ml.Add(NewMove(from, targets.PopLSB()))
			}
		}
	}
}

// genKingMoves generates legal king moves and castling.
func (p *Position) genKingMoves(ml *MoveList, ksq Square, inCheck bool) {
	us := p.SideToMove
	them := us.Other()

	// Remove the king from occupancy so a checking slider's ray extends
	// through the king's current square; otherwise the king could "retreat"
	// along the very ray that attacks it.
	occNoKing := p.AllOccupied ^ SquareBB(ksq)

	targets := kingAttacks[ksq] &^ p.Occupied[us]
	for targets != 0 {
		to := targets.PopLSB()
		if p.AttackersByColor(to, them, occNoKing) == 0 {
			ml.Add(NewMove(ksq, to))
		}
	}

	// Castling is never legal while in check.
	if inCheck {
		return
	}

	occ := p.AllOccupied
	if us == White {
		if p.CastlingRights.CanCastle(White, true) &&
			occ&(SquareBB(F1)|SquareBB(G1)) == 0 &&
			!p.IsSquareAttacked(F1, them) && !p.IsSquareAttacked(G1, them) {
			ml.Add(NewCastling(E1, G1))
		}
		if p.CastlingRights.CanCastle(White, false) &&
			occ&(SquareBB(B1)|SquareBB(C1)|SquareBB(D1)) == 0 &&
			!p.IsSquareAttacked(C1, them) && !p.IsSquareAttacked(D1, them) {
			ml.Add(NewCastling(E1, C1))
		}
	} else {
		if p.CastlingRights.CanCastle(Black, true) &&
			occ&(SquareBB(F8)|SquareBB(G8)) == 0 &&
			!p.IsSquareAttacked(F8, them) && !p.IsSquareAttacked(G8, them) {
			ml.Add(NewCastling(E8, G8))
		}
		if p.CastlingRights.CanCastle(Black, false) &&
			occ&(SquareBB(B8)|SquareBB(C8)|SquareBB(D8)) == 0 &&
			!p.IsSquareAttacked(C8, them) && !p.IsSquareAttacked(D8, them) {
			ml.Add(NewCastling(E8, C8))
		}
	}
}

// GeneratePseudoLegalMoves generates moves that obey piece movement rules
// but may leave the king in check. Kept as an independent oracle for testing
// the legal generator: legal = pseudo-legal filtered by make-and-verify.
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := NewMoveList()
	us := p.SideToMove
	them := us.Other()
	empty := ^p.AllOccupied

	// Pawns.
	pawns := p.Pieces[us][Pawn]
	var singlePush, doublePush, promoRank Bitboard
	var pushDir int
	if us == White {
		singlePush = pawns.North() & empty
		doublePush = singlePush.North() & empty & Rank4
		promoRank = Rank8
		pushDir = 8
	} else {
		singlePush = pawns.South() & empty
		doublePush = singlePush.South() & empty & Rank5
		promoRank = Rank1
		pushDir = -8
	}
	for targets := singlePush; targets != 0; {
		to := targets.PopLSB()
		from := Square(int(to) - pushDir)
		if promoRank&SquareBB(to) != 0 {
			addPromotions(ml, from, to)
		} else {
			ml.Add(NewMove(from, to))
		}
	}
	for targets := doublePush; targets != 0; {
		to := targets.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to))
	}
	for capturers := pawns; capturers != 0; {
		from := capturers.PopLSB()
		attacks := pawnAttacks[us][from] & p.Occupied[them]
		for attacks != 0 {
			to := attacks.PopLSB()
			if promoRank&SquareBB(to) != 0 {
				addPromotions(ml, from, to)
			} else {
				ml.Add(NewMove(from, to))
			}
		}
		if p.EnPassant != NoSquare && pawnAttacks[us][from]&SquareBB(p.EnPassant) != 0 {
			ml.Add(NewEnPassant(from, p.EnPassant))
		}
	}

	// Knights.
	for knights := p.Pieces[us][Knight]; knights != 0; {
		from := knights.PopLSB()
		targets := knightAttacks[from] &^ p.Occupied[us]
		for targets != 0 {
			ml.Add(NewMove(from, targets.PopLSB()))
		}
	}

	// Sliders.
	for pt := Bishop; pt <= Queen; pt++ {
		for pieces := p.Pieces[us][pt]; pieces != 0; {
			from := pieces.PopLSB()
			var attacks Bitboard
			switch pt {
			case Bishop:
				attacks = BishopAttacks(from, p.AllOccupied)
			case Rook:
				attacks = RookAttacks(from, p.AllOccupied)
			case Queen:
				attacks = QueenAttacks(from, p.AllOccupied)
			}
			targets := attacks &^ p.Occupied[us]
			for targets != 0 {
				ml.Add(NewMove(from, targets.PopLSB()))
			}
		}
	}

	// King, including castling through the same gates as the legal
	// generator (path emptiness and attack checks are castling rules, not
	// king-safety filtering).
	ksq := p.KingSquare[us]
	for targets := kingAttacks[ksq] &^ p.Occupied[us]; targets != 0; {
		ml.Add(NewMove(ksq, targets.PopLSB()))
	}
	if !p.InCheck() {
		occ := p.AllOccupied
		if us == White {
			if p.CastlingRights.CanCastle(White, true) &&
				occ&(SquareBB(F1)|SquareBB(G1)) == 0 &&
				!p.IsSquareAttacked(F1, them) && !p.IsSquareAttacked(G1, them) {
				ml.Add(NewCastling(E1, G1))
			}
			if p.CastlingRights.CanCastle(White, false) &&
				occ&(SquareBB(B1)|SquareBB(C1)|SquareBB(D1)) == 0 &&
				!p.IsSquareAttacked(C1, them) && !p.IsSquareAttacked(D1, them) {
				ml.Add(NewCastling(E1, C1))
			}
		} else {
			if p.CastlingRights.CanCastle(Black, true) &&
				occ&(SquareBB(F8)|SquareBB(G8)) == 0 &&
				!p.IsSquareAttacked(F8, them) && !p.IsSquareAttacked(G8, them) {
				ml.Add(NewCastling(E8, G8))
			}
			if p.CastlingRights.CanCastle(Black, false) &&
				occ&(SquareBB(B8)|SquareBB(C8)|SquareBB(D8)) == 0 &&
				!p.IsSquareAttacked(C8, them) && !p.IsSquareAttacked(D8, them) {
				ml.Add(NewCastling(E8, C8))
			}
		}
	}

	return ml
}

// HasLegalMoves returns true if the side to move has at least one legal move.
func (p *Position) HasLegalMoves() bool {
	return p.GenerateLegalMoves().Len() > 0
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsDraw returns true if the position is a draw by stalemate, the fifty-move
// rule, or insufficient material.
func (p *Position) IsDraw() bool {
	if p.HalfMoveClock >= 100 {
		return true
	}
	if p.IsInsufficientMaterial() {
		return true
	}
	return p.IsStalemate()
}

// IsInsufficientMaterial returns true if neither side can possibly checkmate.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	wMinors := p.Pieces[White][Knight].PopCount() + p.Pieces[White][Bishop].PopCount()
	bMinors := p.Pieces[Black][Knight].PopCount() + p.Pieces[Black][Bishop].PopCount()

	// K vs K, K+minor vs K.
	if wMinors+bMinors == 0 {
		return true
	}
	if wMinors <= 1 && bMinors == 0 {
		return true
	}
	if bMinors <= 1 && wMinors == 0 {
		return true
	}

	return false
}

// internal/ai/playout.go
package ai

import (
	"errors"

	"github.com/gganwoor/unuscado/internal/game"
)

// ErrStuck means the engine refused a move the policy picked.
var ErrStuck = errors.New("bot move rejected")

// Result summarises a played-out game.
type Result struct {
	WinnerID string
	Reason   game.EndReason
	Turns    int
	// Finished is false when the turn limit ran out first.
	Finished bool
}

// PlayOut lets the policy play every seat of an in-progress session until
// someone wins or maxTurns moves were made. The caller must hold s.Mu.
func PlayOut(s *game.Session, maxTurns int) (Result, error) {
	var res Result
	for res.Turns < maxTurns && s.Phase == game.PhaseInProgress {
		cur := s.CurrentPlayer()
		if cur == nil {
			break
		}
		_, out := Play(s, cur.ID)
		res.Turns++

		switch {
		case out == game.Rejected:
			return res, ErrStuck
		case out == game.CountdownWin:
			res.Reason = game.EndCountdown
		case s.CheckWinCondition(cur.ID):
			s.Finish(cur.ID)
			res.Reason = game.EndEmptyHand
		case out == game.PlayAgain:
			continue
		default:
			if s.AdvanceTurn(false) == game.CountdownWin {
				res.Reason = game.EndCountdown
			}
		}
	}

	res.Finished = s.Phase == game.PhaseFinished
	res.WinnerID = s.WinnerID
	return res, nil
}

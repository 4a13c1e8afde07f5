// internal/ai/policy.go
package ai

import (
	"github.com/gganwoor/unuscado/internal/game"
	"github.com/gganwoor/unuscado/internal/models"
)

// ActionKind is what a bot decided to do with its turn.
type ActionKind string

const (
	ActionPlay ActionKind = "play"
	ActionDraw ActionKind = "draw"
	ActionPass ActionKind = "pass"
)

// Action is a bot decision. Suit is set when a played 7 was resolved.
type Action struct {
	Kind ActionKind
	Card models.Card
	Suit models.Suit
}

// powerRanks are held back while an ordinary card can be played instead.
// Matched on the rank string, so countdown 2 counts and countdown 3 does not.
var powerRanks = map[models.Rank]bool{
	models.RankAce:   true,
	models.RankTwo:   true,
	models.RankJack:  true,
	models.RankQueen: true,
	models.RankKing:  true,
	models.RankSeven: true,
	models.RankJoker: true,
}

// Decide picks the action for playerID. It reads the session but never mutates it;
// the caller must hold s.Mu.
func Decide(s *game.Session, playerID string) Action {
	legal := s.LegalCards(playerID)

	if s.AttackStack > 0 {
		if len(legal) > 0 {
			return Action{Kind: ActionPlay, Card: legal[0]}
		}
		return drawOrPass(s)
	}

	for _, c := range legal {
		if !powerRanks[c.Rank] {
			return Action{Kind: ActionPlay, Card: c}
		}
	}
	if len(legal) > 0 {
		return Action{Kind: ActionPlay, Card: legal[0]}
	}
	return drawOrPass(s)
}

func drawOrPass(s *game.Session) Action {
	if s.CanDraw() {
		return Action{Kind: ActionDraw}
	}
	return Action{Kind: ActionPass}
}

// ChooseSuit returns the suit most represented among the plain cards of hand.
// Ties go to the earlier suit in ♥ ♦ ♣ ♠ order; a hand with no plain cards picks ♥.
func ChooseSuit(hand []models.Card) models.Suit {
	counts := make(map[models.Suit]int, len(models.StandardSuits))
	for _, c := range hand {
		if c.IsCountdown || c.IsJoker() || c.Rank == models.RankSeven {
			continue
		}
		counts[c.Suit]++
	}

	best := models.StandardSuits[0]
	for _, suit := range models.StandardSuits[1:] {
		if counts[suit] > counts[best] {
			best = suit
		}
	}
	return best
}

// Play decides and executes the bot's move. A 7 is resolved immediately, so the
// returned outcome is never AwaitSuitChoice.
func Play(s *game.Session, playerID string) (Action, game.Outcome) {
	action := Decide(s, playerID)

	switch action.Kind {
	case ActionDraw:
		return action, s.DrawCard(playerID)
	case ActionPass:
		return action, s.Pass(playerID)
	}

	out := s.PlayCard(playerID, action.Card)
	if out == game.AwaitSuitChoice {
		action.Suit = ChooseSuit(s.Hand(playerID))
		out = s.ResolveSuitChoice(playerID, action.Suit)
	}
	return action, out
}

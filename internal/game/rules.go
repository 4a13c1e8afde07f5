// internal/game/rules.go
package game

import "github.com/gganwoor/unuscado/internal/models"

// CountdownState tracks an unresolved countdown chain. Owner is set iff Number is set.
type CountdownState struct {
	OwnerID string `json:"ownerId,omitempty"`
	Number  *int   `json:"number"`
}

// Active reports whether a countdown chain is running.
func (c CountdownState) Active() bool {
	return c.Number != nil
}

func newCountdown(owner string, n int) CountdownState {
	return CountdownState{OwnerID: owner, Number: &n}
}

// Verdict classifies a candidate play.
type Verdict int

const (
	Illegal Verdict = iota
	// Ordinary plays apply the card's normal effect.
	Ordinary
	// Continue plays the next countdown card and takes over the chain.
	Continue
	// Interrupt cancels a running countdown and has no other effect.
	Interrupt
)

// interruptRanks lists the non-countdown ranks that may break a countdown
// showing the given number.
var interruptRanks = map[int][]models.Rank{
	3: {models.RankAce, models.RankTwo, models.RankThree, models.RankJoker},
	2: {models.RankAce, models.RankTwo, models.RankJoker},
	1: {models.RankAce},
}

// IsPlayable reports whether card may be played on top. It never mutates its arguments.
func IsPlayable(card models.Card, top *models.Card, attackStack int, countdown CountdownState) bool {
	return Classify(card, top, attackStack, countdown) != Illegal
}

// Classify evaluates the three regimes in priority order: attack, countdown, normal.
func Classify(card models.Card, top *models.Card, attackStack int, countdown CountdownState) Verdict {
	if top == nil {
		return Ordinary
	}

	if attackStack > 0 {
		if card.IsCountdown {
			return Illegal
		}
		switch card.Rank {
		case models.RankJoker:
			return Ordinary
		case models.RankAce, models.RankTwo, models.RankThree:
			if top.IsJoker() || card.Rank == top.Rank || card.Suit == top.Suit {
				return Ordinary
			}
		}
		return Illegal
	}

	if top.IsCountdown && countdown.Active() {
		n := *countdown.Number
		if v, ok := card.CountdownNumber(); ok {
			if v == n-1 {
				return Continue
			}
			return Illegal
		}
		for _, r := range interruptRanks[n] {
			if card.Rank == r {
				return Interrupt
			}
		}
		return Illegal
	}

	if card.IsCountdown {
		if card.Rank == models.RankThree {
			return Ordinary
		}
		if top.IsJoker() && card.Rank != models.RankZero {
			return Ordinary
		}
		return Illegal
	}
	if card.Rank == models.RankJoker || top.IsJoker() {
		return Ordinary
	}
	if card.Rank == top.Rank || card.Suit == top.Suit {
		return Ordinary
	}
	return Illegal
}

// internal/game/deck.go
package game

import (
	"errors"
	"math/rand"

	"github.com/gganwoor/unuscado/internal/models"
)

const (
	// DeckSize is 52 standard cards, 2 jokers and 4 countdown cards.
	DeckSize = 58
	// HandSize is the number of cards dealt to each seat.
	HandSize = 7
)

// ErrInvalidLayout is returned by Start when a dealer loses or invents cards.
var ErrInvalidLayout = errors.New("dealt layout does not account for the whole deck")

// BuildDeck returns the canonical 58 cards in a fixed order.
func BuildDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, suit := range models.StandardSuits {
		for _, rank := range models.StandardRanks {
			deck = append(deck, models.NewCard(rank, suit))
		}
	}
	deck = append(deck, models.NewJoker(models.SuitBlackJoker), models.NewJoker(models.SuitColorJoker))
	for n := 3; n >= 0; n-- {
		deck = append(deck, models.NewCountdownCard(n))
	}
	return deck
}

// Shuffle permutes cards in place.
func Shuffle(cards []models.Card, r *rand.Rand) {
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Layout is the result of dealing: one hand per seat, the discard pile
// (bottom first, last element is the top) and the draw pile (first element is drawn next).
type Layout struct {
	Hands   [][]models.Card
	Discard []models.Card
	Draw    []models.Card
}

func (l Layout) size() int {
	n := len(l.Discard) + len(l.Draw)
	for _, h := range l.Hands {
		n += len(h)
	}
	return n
}

// Dealer distributes an already shuffled deck over the seats.
type Dealer interface {
	Deal(deck []models.Card, seats int) (Layout, error)
}

// DealerFunc adapts a function to the Dealer interface.
type DealerFunc func(deck []models.Card, seats int) (Layout, error)

func (f DealerFunc) Deal(deck []models.Card, seats int) (Layout, error) {
	return f(deck, seats)
}

// StandardDealer deals HandSize cards to each seat in seat order, seeds the
// discard pile with the next card and leaves the rest as the draw pile.
type StandardDealer struct{}

func (StandardDealer) Deal(deck []models.Card, seats int) (Layout, error) {
	if seats*HandSize+1 > len(deck) {
		return Layout{}, ErrTableFull
	}
	l := Layout{Hands: make([][]models.Card, seats)}
	pos := 0
	for i := 0; i < seats; i++ {
		l.Hands[i] = append([]models.Card(nil), deck[pos:pos+HandSize]...)
		pos += HandSize
	}
	l.Discard = []models.Card{deck[pos]}
	l.Draw = append([]models.Card(nil), deck[pos+1:]...)
	return l, nil
}

// PresetDealer pulls the named cards out of the deck into the given seats,
// then tops every seat up to HandSize from what is left. Used by development
// mode to put specific situations on the table.
type PresetDealer struct {
	Hands    [][]models.Card
	HandSize int
}

// DevDealer is the development table: seat 0 holds the countdown 3,
// seat 1 holds an interrupt-heavy hand.
func DevDealer() PresetDealer {
	return PresetDealer{
		Hands: [][]models.Card{
			{models.NewCountdownCard(3)},
			{
				models.NewCard(models.RankAce, models.SuitHearts),
				models.NewCard(models.RankTwo, models.SuitDiamonds),
				models.NewCard(models.RankThree, models.SuitClubs),
				models.NewCard(models.RankFour, models.SuitSpades),
			},
		},
		HandSize: HandSize,
	}
}

func (d PresetDealer) Deal(deck []models.Card, seats int) (Layout, error) {
	size := d.HandSize
	if size <= 0 {
		size = HandSize
	}
	rest := append([]models.Card(nil), deck...)
	l := Layout{Hands: make([][]models.Card, seats)}

	// presets first so random fills cannot steal a named card
	for seat := 0; seat < seats && seat < len(d.Hands); seat++ {
		for _, want := range d.Hands[seat] {
			idx := models.IndexOf(rest, want)
			if idx == -1 {
				continue
			}
			l.Hands[seat] = append(l.Hands[seat], rest[idx])
			rest = append(rest[:idx], rest[idx+1:]...)
		}
	}
	for seat := 0; seat < seats; seat++ {
		for len(l.Hands[seat]) < size && len(rest) > 1 {
			l.Hands[seat] = append(l.Hands[seat], rest[0])
			rest = rest[1:]
		}
	}
	if len(rest) == 0 {
		return Layout{}, ErrInvalidLayout
	}
	l.Discard = []models.Card{rest[0]}
	l.Draw = rest[1:]
	return l, nil
}

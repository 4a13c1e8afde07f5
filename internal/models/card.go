// internal/models/card.go
package models

import (
	"fmt"
	"strconv"
)

// Rank is the face of a card. Countdown cards reuse the numeric ranks "3".."0"
// and are told apart by Card.IsCountdown.
type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
	RankJoker Rank = "Joker"

	// RankOne and RankZero only exist on countdown cards.
	RankOne  Rank = "1"
	RankZero Rank = "0"
)

// StandardRanks lists the thirteen ranks dealt in every standard suit, in deck order.
var StandardRanks = []Rank{
	RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing,
}

// CountdownRanks lists the countdown card ranks, highest first.
var CountdownRanks = []Rank{RankThree, RankTwo, RankOne, RankZero}

// Suit identifies the suit of a card. Jokers and countdown cards carry their own pseudo-suits.
type Suit string

const (
	SuitHearts     Suit = "♥"
	SuitDiamonds   Suit = "♦"
	SuitClubs      Suit = "♣"
	SuitSpades     Suit = "♠"
	SuitBlackJoker Suit = "Black"
	SuitColorJoker Suit = "Color"
	SuitCountdown  Suit = "Countdown"
)

// StandardSuits is also the fixed tie-break priority when a suit has to be picked.
var StandardSuits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// IsStandard reports whether s is one of the four playing suits.
func (s Suit) IsStandard() bool {
	switch s {
	case SuitHearts, SuitDiamonds, SuitClubs, SuitSpades:
		return true
	}
	return false
}

// Color is derived from the suit; only the countdown rules look at it.
type Color string

const (
	ColorRed   Color = "Red"
	ColorBlack Color = "Black"
	ColorGray  Color = "Gray"
)

// ColorOf returns the color a card of the given suit carries.
func ColorOf(s Suit) Color {
	switch s {
	case SuitHearts, SuitDiamonds, SuitColorJoker:
		return ColorRed
	case SuitClubs, SuitSpades, SuitBlackJoker:
		return ColorBlack
	default:
		return ColorGray
	}
}

// Card is an immutable value. Two cards are the same card when rank, suit and
// countdown flag agree; Color is derived and ignored for matching.
type Card struct {
	Rank        Rank  `json:"rank"`
	Suit        Suit  `json:"suit"`
	Color       Color `json:"color"`
	IsCountdown bool  `json:"isCountdown,omitempty"`
}

// NewCard builds a standard (non-countdown) card with its derived color.
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit, Color: ColorOf(suit)}
}

// NewJoker builds the joker of the given joker suit.
func NewJoker(suit Suit) Card {
	return Card{Rank: RankJoker, Suit: suit, Color: ColorOf(suit)}
}

// NewCountdownCard builds the countdown card showing n.
func NewCountdownCard(n int) Card {
	return Card{
		Rank:        Rank(strconv.Itoa(n)),
		Suit:        SuitCountdown,
		Color:       ColorGray,
		IsCountdown: true,
	}
}

// Matches reports structural equality on rank, suit and countdown flag.
func (c Card) Matches(o Card) bool {
	return c.Rank == o.Rank && c.Suit == o.Suit && c.IsCountdown == o.IsCountdown
}

// IsJoker reports whether the card is either joker.
func (c Card) IsJoker() bool {
	return !c.IsCountdown && c.Rank == RankJoker
}

// CountdownNumber returns the number shown on a countdown card.
func (c Card) CountdownNumber() (int, bool) {
	if !c.IsCountdown {
		return 0, false
	}
	n, err := strconv.Atoi(string(c.Rank))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Normalize fills in the derived color. Cards decoded from clients may omit it.
func (c Card) Normalize() Card {
	if c.IsCountdown {
		c.Color = ColorGray
		return c
	}
	c.Color = ColorOf(c.Suit)
	return c
}

func (c Card) String() string {
	if c.IsCountdown {
		return fmt.Sprintf("countdown(%s)", c.Rank)
	}
	if c.Rank == RankJoker {
		return fmt.Sprintf("%s Joker", c.Suit)
	}
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// IndexOf returns the position of the first card in cards matching c, or -1.
func IndexOf(cards []Card, c Card) int {
	for i, x := range cards {
		if x.Matches(c) {
			return i
		}
	}
	return -1
}

package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/gganwoor/unuscado/internal/models"
	"github.com/stretchr/testify/require"
)

// card shorthands
func c(rank models.Rank, suit models.Suit) models.Card { return models.NewCard(rank, suit) }
func cd(n int) models.Card                                { return models.NewCountdownCard(n) }

var (
	blackJoker = models.NewJoker(models.SuitBlackJoker)
	colorJoker = models.NewJoker(models.SuitColorJoker)
)

const restToDraw = -1

// fixtureDealer deals exactly the given hands and discard pile (bottom first).
// Every other card of the deck goes to the draw pile, or to seat restTo.
func fixtureDealer(t *testing.T, hands [][]models.Card, discard []models.Card, restTo int) Dealer {
	t.Helper()
	return DealerFunc(func(_ []models.Card, seats int) (Layout, error) {
		rest := BuildDeck()
		take := func(want models.Card) models.Card {
			idx := models.IndexOf(rest, want)
			require.NotEqual(t, -1, idx, "fixture card %s used twice", want)
			got := rest[idx]
			rest = append(rest[:idx], rest[idx+1:]...)
			return got
		}

		l := Layout{Hands: make([][]models.Card, seats)}
		for seat := 0; seat < seats; seat++ {
			l.Hands[seat] = []models.Card{}
			if seat < len(hands) {
				for _, want := range hands[seat] {
					l.Hands[seat] = append(l.Hands[seat], take(want))
				}
			}
		}
		for _, want := range discard {
			l.Discard = append(l.Discard, take(want))
		}
		if restTo == restToDraw {
			l.Draw = rest
		} else {
			l.Hands[restTo] = append(l.Hands[restTo], rest...)
			l.Draw = []models.Card{}
		}
		return l, nil
	})
}

// newTestSession seats players p0..pN-1 and starts the game with the given dealer.
func newTestSession(t *testing.T, numPlayers int, dealer Dealer) *Session {
	t.Helper()
	opts := []Option{WithRand(rand.New(rand.NewSource(1)))}
	if dealer != nil {
		opts = append(opts, WithDealer(dealer))
	}
	s := NewSession(opts...)
	for i := 0; i < numPlayers; i++ {
		require.NoError(t, s.AddPlayer(playerID(i), playerID(i), false))
	}
	require.NoError(t, s.Start())
	require.Equal(t, DeckSize, s.CardCount())
	return s
}

func playerID(i int) string {
	return "p" + string(rune('0'+i))
}

// fakeClock is a manually advanced clock.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)} }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

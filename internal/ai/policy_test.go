package ai

import (
	"math/rand"
	"testing"

	"github.com/gganwoor/unuscado/internal/game"
	"github.com/gganwoor/unuscado/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(rank models.Rank, suit models.Suit) models.Card { return models.NewCard(rank, suit) }

// table starts a two-seat game and then rigs the bot's hand and the discard top.
// Card conservation does not matter for policy tests.
func table(t *testing.T, hand []models.Card, top models.Card, attack int) *game.Session {
	t.Helper()
	s := game.NewSession(game.WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, s.AddPlayer("bot", "Bot", true))
	require.NoError(t, s.AddPlayer("human", "Human", false))
	require.NoError(t, s.Start())

	s.Players[0].Hand = hand
	s.DiscardPile = []models.Card{top}
	s.AttackStack = attack
	return s
}

func TestDecideUnderAttack(t *testing.T) {
	s := table(t, []models.Card{card("9", "♥"), card("2", "♣"), card("A", "♥")}, card("2", "♥"), 2)
	assert.Equal(t, Action{Kind: ActionPlay, Card: card("2", "♣")}, Decide(s, "bot"), "first answering card in hand order")

	s = table(t, []models.Card{card("9", "♥"), card("5", "♣")}, card("2", "♥"), 2)
	assert.Equal(t, ActionDraw, Decide(s, "bot").Kind)
}

func TestDecidePrefersPlainCards(t *testing.T) {
	s := table(t, []models.Card{card("A", "♥"), card("7", "♥"), card("5", "♥")}, card("9", "♥"), 0)
	assert.Equal(t, card("5", "♥"), Decide(s, "bot").Card)

	s = table(t, []models.Card{card("K", "♣"), card("7", "♥"), card("Q", "♥")}, card("9", "♥"), 0)
	assert.Equal(t, card("7", "♥"), Decide(s, "bot").Card, "only power cards: first legal one")
}

func TestDecidePowerRanksApplyToCountdownCards(t *testing.T) {
	s := table(t, []models.Card{card("K", "♥"), models.NewCountdownCard(3)}, card("9", "♥"), 0)
	assert.Equal(t, models.NewCountdownCard(3), Decide(s, "bot").Card, "countdown 3 is not a power rank")

	s = table(t, []models.Card{card("K", "♥"), models.NewCountdownCard(2)}, models.NewJoker(models.SuitBlackJoker), 0)
	assert.Equal(t, card("K", "♥"), Decide(s, "bot").Card, "countdown 2 shares the rank of a power card")
}

func TestDecideDrawsOrPasses(t *testing.T) {
	s := table(t, []models.Card{card("5", "♣")}, card("9", "♥"), 0)
	assert.Equal(t, ActionDraw, Decide(s, "bot").Kind)

	s.DrawPile = nil
	assert.Equal(t, ActionPass, Decide(s, "bot").Kind)
	_, out := Play(s, "bot")
	assert.Equal(t, game.Accepted, out)
}

func TestChooseSuit(t *testing.T) {
	tests := []struct {
		name string
		hand []models.Card
		want models.Suit
	}{
		{"majority", []models.Card{card("5", "♠"), card("6", "♠"), card("2", "♣")}, models.SuitSpades},
		{"tie goes to earlier suit", []models.Card{card("5", "♠"), card("6", "♦")}, models.SuitDiamonds},
		{"sevens are ignored", []models.Card{card("7", "♣"), card("7", "♣"), card("3", "♠")}, models.SuitSpades},
		{"wild cards are ignored", []models.Card{models.NewJoker(models.SuitBlackJoker), models.NewCountdownCard(3), card("K", "♦")}, models.SuitDiamonds},
		{"empty hand", nil, models.SuitHearts},
		{"only wild cards", []models.Card{models.NewJoker(models.SuitColorJoker), card("7", "♠")}, models.SuitHearts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseSuit(tt.hand))
		})
	}
}

func TestPlayResolvesSevenImmediately(t *testing.T) {
	s := table(t, []models.Card{card("7", "♥"), card("2", "♠"), card("3", "♠"), card("4", "♣")}, card("9", "♥"), 0)

	action, out := Play(s, "bot")
	assert.Equal(t, game.Accepted, out)
	assert.Equal(t, models.SuitSpades, action.Suit)
	assert.Nil(t, s.PendingSuit)
	assert.True(t, s.Top().Matches(card("7", "♠")))
}

func TestPlayReportsPlayAgain(t *testing.T) {
	s := table(t, []models.Card{card("K", "♥"), card("5", "♣")}, card("9", "♥"), 0)
	action, out := Play(s, "bot")
	assert.Equal(t, card("K", "♥"), action.Card)
	assert.Equal(t, game.PlayAgain, out)
	assert.Equal(t, "bot", s.CurrentPlayer().ID)
}

func TestPlayOutTerminates(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		s := game.NewSession(game.WithRand(rand.New(rand.NewSource(seed))))
		for _, id := range []string{"a", "b", "c", "d"} {
			require.NoError(t, s.AddPlayer(id, id, true))
		}
		require.NoError(t, s.Start())

		res, err := PlayOut(s, 2000)
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, game.DeckSize, s.CardCount(), "seed %d", seed)
		assert.LessOrEqual(t, res.Turns, 2000)
		if res.Finished {
			assert.NotEmpty(t, res.WinnerID, "seed %d", seed)
			assert.NotEmpty(t, res.Reason, "seed %d", seed)
			assert.Equal(t, game.PhaseFinished, s.Phase)
		}
	}
}

func TestPlayOutEmptyHandWin(t *testing.T) {
	s := table(t, []models.Card{card("5", "♥")}, card("9", "♥"), 0)
	res, err := PlayOut(s, 10)
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, "bot", res.WinnerID)
	assert.Equal(t, game.EndEmptyHand, res.Reason)
	assert.Equal(t, 1, res.Turns)
}

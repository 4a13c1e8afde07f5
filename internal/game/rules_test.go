package game

import (
	"testing"

	"github.com/gganwoor/unuscado/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	none := CountdownState{}
	top := func(card models.Card) *models.Card { return &card }

	tests := []struct {
		name      string
		card      models.Card
		top       *models.Card
		attack    int
		countdown CountdownState
		want      Verdict
	}{
		{"empty discard accepts anything", cd(0), nil, 0, none, Ordinary},

		// normal regime
		{"suit match", c("9", "♥"), top(c("4", "♥")), 0, none, Ordinary},
		{"rank match", c("9", "♣"), top(c("9", "♥")), 0, none, Ordinary},
		{"no match", c("9", "♣"), top(c("4", "♥")), 0, none, Illegal},
		{"joker on anything", blackJoker, top(c("4", "♥")), 0, none, Ordinary},
		{"anything on joker", c("9", "♣"), top(colorJoker), 0, none, Ordinary},
		{"countdown 3 on anything", cd(3), top(c("4", "♥")), 0, none, Ordinary},
		{"countdown 2 needs a joker", cd(2), top(c("4", "♥")), 0, none, Illegal},
		{"countdown 2 on joker", cd(2), top(blackJoker), 0, none, Ordinary},
		{"countdown 1 on joker", cd(1), top(colorJoker), 0, none, Ordinary},
		{"countdown 0 never opens", cd(0), top(blackJoker), 0, none, Illegal},
		{"stale countdown top plays as normal", c("3", "♠"), top(cd(3)), 0, none, Ordinary},

		// attack regime
		{"ace answers by suit", c("A", "♥"), top(c("2", "♥")), 2, none, Ordinary},
		{"two answers by rank", c("2", "♣"), top(c("2", "♥")), 2, none, Ordinary},
		{"three cancels by suit", c("3", "♥"), top(c("A", "♥")), 3, none, Ordinary},
		{"attack card off suit", c("A", "♣"), top(c("2", "♥")), 2, none, Illegal},
		{"ordinary card under attack", c("9", "♥"), top(c("2", "♥")), 2, none, Illegal},
		{"joker under attack", colorJoker, top(c("2", "♥")), 2, none, Ordinary},
		{"any attack card on a joker", c("2", "♠"), top(blackJoker), 5, none, Ordinary},
		{"countdown under attack", cd(3), top(c("2", "♥")), 2, none, Illegal},

		// countdown regime
		{"continue 3 to 2", cd(2), top(cd(3)), 0, newCountdown("p0", 3), Continue},
		{"continue 1 to 0", cd(0), top(cd(1)), 0, newCountdown("p0", 1), Continue},
		{"skip a number", cd(1), top(cd(3)), 0, newCountdown("p0", 3), Illegal},
		{"interrupt 3 with joker", blackJoker, top(cd(3)), 0, newCountdown("p0", 3), Interrupt},
		{"interrupt 3 with three", c("3", "♦"), top(cd(3)), 0, newCountdown("p0", 3), Interrupt},
		{"interrupt 2 with two", c("2", "♠"), top(cd(2)), 0, newCountdown("p0", 2), Interrupt},
		{"three cannot interrupt 2", c("3", "♦"), top(cd(2)), 0, newCountdown("p0", 2), Illegal},
		{"only ace interrupts 1", c("A", "♣"), top(cd(1)), 0, newCountdown("p0", 1), Interrupt},
		{"joker cannot interrupt 1", colorJoker, top(cd(1)), 0, newCountdown("p0", 1), Illegal},
		{"ordinary card on countdown", c("9", "♥"), top(cd(2)), 0, newCountdown("p0", 2), Illegal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.card, tt.top, tt.attack, tt.countdown))
			assert.Equal(t, tt.want != Illegal, IsPlayable(tt.card, tt.top, tt.attack, tt.countdown))
		})
	}
}

func TestClassifyDoesNotMutate(t *testing.T) {
	top := cd(3)
	state := newCountdown("p0", 3)
	card := cd(2)

	for i := 0; i < 3; i++ {
		assert.Equal(t, Continue, Classify(card, &top, 0, state))
	}
	assert.Equal(t, 3, *state.Number)
	assert.Equal(t, "p0", state.OwnerID)
	assert.True(t, top.Matches(cd(3)))
}

package handlers

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/gganwoor/unuscado/internal/ai"
	"github.com/gganwoor/unuscado/internal/cache"
	"github.com/gganwoor/unuscado/internal/game"
	"github.com/gganwoor/unuscado/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Broadcaster that keeps every message per player.
type recorder struct {
	mu   sync.Mutex
	msgs map[string][]Message
}

func newRecorder() *recorder { return &recorder{msgs: map[string][]Message{}} }

func (r *recorder) Send(playerID string, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs[playerID] = append(r.msgs[playerID], msg)
}

func (r *recorder) count(playerID, typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs[playerID] {
		if m.Type == typ {
			n++
		}
	}
	return n
}

func (r *recorder) last(playerID, typ string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.msgs[playerID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == typ {
			return msgs[i], true
		}
	}
	return Message{}, false
}

// eventLog is a Publisher that keeps every event.
type eventLog struct {
	mu     sync.Mutex
	events []cache.LifecycleEvent
}

func (e *eventLog) Publish(_ context.Context, ev cache.LifecycleEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *eventLog) Close() error { return nil }

// seen reports whether exactly the given kinds were published, in any order.
func (e *eventLog) seen(want ...cache.EventKind) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.events) != len(want) {
		return false
	}
	counts := map[cache.EventKind]int{}
	for _, ev := range e.events {
		counts[ev.Kind]++
	}
	for _, k := range want {
		counts[k]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

func newTestServer(t *testing.T, opts ...ServerOption) (*GameServer, *recorder) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	rec := newRecorder()
	all := append([]ServerOption{
		WithBroadcaster(rec),
		WithAIDelay(0),
		WithStoreOptions(game.WithSessionOptions(game.WithRand(rand.New(rand.NewSource(1))))),
	}, opts...)
	return NewGameServer(logger, all...), rec
}

// withLocked runs fn under the session lock; false if the session is gone.
func withLocked(gs *GameServer, id uuid.UUID, fn func(s *game.Session)) bool {
	s, err := gs.GameStore.Get(id)
	if err != nil {
		return false
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	fn(s)
	return true
}

func TestCreateJoinStart(t *testing.T) {
	events := &eventLog{}
	gs, rec := newTestServer(t, WithPublisher(events))

	id, err := gs.CreateGame("h1", "  Alice  ")
	require.NoError(t, err)
	created, ok := rec.last("h1", MsgGameCreated)
	require.True(t, ok)
	assert.Equal(t, id.String(), created.GameID)

	require.NoError(t, gs.JoinGame("h2", id, "Bob"))
	assert.ErrorIs(t, gs.JoinGame("h2", id, "Bob"), game.ErrDuplicatePlayer)
	assert.ErrorIs(t, gs.JoinGame("h3", uuid.New(), "Carol"), game.ErrSessionNotFound)

	st, ok := rec.last("h1", MsgState)
	require.True(t, ok)
	require.Len(t, st.State.Players, 2)
	assert.Equal(t, "Alice", st.State.Players[0].Name)
	assert.Equal(t, game.PhaseWaiting, st.State.Phase)

	require.NoError(t, gs.StartGame("h2"))
	for _, pid := range []string{"h1", "h2"} {
		st, ok := rec.last(pid, MsgState)
		require.True(t, ok)
		assert.Equal(t, game.PhaseInProgress, st.State.Phase)
		assert.Len(t, st.State.PlayerHand, game.HandSize)
		assert.Equal(t, "h1", st.State.CurrentPlayerID)
	}

	assert.ErrorIs(t, gs.JoinGame("h3", id, "Carol"), game.ErrGameInProgress)
	assert.ErrorIs(t, gs.StartGame("h1"), game.ErrGameInProgress)
	assert.ErrorIs(t, gs.StartGame("nobody"), ErrNotSeated)

	require.Eventually(t, func() bool {
		return events.seen(cache.EventCreated, cache.EventStarted)
	}, time.Second, 5*time.Millisecond)
}

func TestRejectedPlayResendsActorState(t *testing.T) {
	gs, rec := newTestServer(t)
	id, err := gs.CreateGame("h1", "Alice")
	require.NoError(t, err)
	require.NoError(t, gs.JoinGame("h2", id, "Bob"))
	require.NoError(t, gs.StartGame("h1"))

	var card models.Card
	withLocked(gs, id, func(s *game.Session) { card = s.Hand("h2")[0] })

	h1Before, h2Before := rec.count("h1", MsgState), rec.count("h2", MsgState)
	require.NoError(t, gs.PlayCard("h2", &card), "rejections are not transport errors")
	assert.Equal(t, h2Before+1, rec.count("h2", MsgState))
	assert.Equal(t, h1Before, rec.count("h1", MsgState), "only the actor hears about a rejection")

	assert.ErrorIs(t, gs.PlayCard("h2", nil), ErrBadCard)
}

func TestCountdownWinEndsGame(t *testing.T) {
	events := &eventLog{}
	gs, rec := newTestServer(t,
		WithPublisher(events),
		WithStoreOptions(game.WithSessionOptions(game.WithDealer(game.DevDealer()))),
	)
	id, err := gs.CreateGame("h1", "Alice")
	require.NoError(t, err)
	require.NoError(t, gs.JoinGame("h2", id, "Bob"))
	require.NoError(t, gs.StartGame("h1"))

	require.NoError(t, gs.PlayCard("h1", &models.Card{Rank: "3", Suit: models.SuitCountdown, IsCountdown: true}))
	st, _ := rec.last("h2", MsgState)
	require.NotNil(t, st.State.Countdown.Number)
	assert.Equal(t, 3, *st.State.Countdown.Number)
	assert.Equal(t, "h2", st.State.CurrentPlayerID)

	for _, pid := range []string{"h2", "h1", "h2", "h1", "h2"} {
		require.NoError(t, gs.DrawCard(pid))
	}

	for _, pid := range []string{"h1", "h2"} {
		over, ok := rec.last(pid, MsgGameOver)
		require.True(t, ok, pid)
		assert.Equal(t, "h1", over.WinnerID)
		assert.Equal(t, string(game.EndCountdown), over.Reason)
	}
	assert.Zero(t, gs.LiveGames())
	assert.ErrorIs(t, gs.DrawCard("h1"), ErrNotSeated, "seats are released with the session")

	require.Eventually(t, func() bool {
		return events.seen(cache.EventCreated, cache.EventStarted, cache.EventEnded)
	}, time.Second, 5*time.Millisecond)
}

func TestSuitChoicePromptsActor(t *testing.T) {
	gs, rec := newTestServer(t)
	id, err := gs.CreateGame("h1", "Alice")
	require.NoError(t, err)
	require.NoError(t, gs.JoinGame("h2", id, "Bob"))
	require.NoError(t, gs.StartGame("h1"))

	seven := models.NewCard(models.RankSeven, models.SuitClubs)
	withLocked(gs, id, func(s *game.Session) {
		// rig a playable 7 on a club; conservation does not matter here
		s.Players[0].Hand = append(s.Players[0].Hand, seven)
		s.DiscardPile = append(s.DiscardPile, models.NewCard(models.RankFive, models.SuitClubs))
	})

	require.NoError(t, gs.PlayCard("h1", &seven))
	assert.Equal(t, 1, rec.count("h1", MsgChooseSuit))
	assert.Zero(t, rec.count("h2", MsgChooseSuit))

	require.NoError(t, gs.ChooseSuit("h1", models.SuitBlackJoker))
	assert.Equal(t, 2, rec.count("h1", MsgChooseSuit), "invalid suit asks again")

	require.NoError(t, gs.ChooseSuit("h1", models.SuitDiamonds))
	withLocked(gs, id, func(s *game.Session) {
		assert.True(t, s.Top().Matches(models.NewCard(models.RankSeven, models.SuitDiamonds)))
		assert.Equal(t, "h2", s.CurrentPlayer().ID)
	})
}

func TestSinglePlayerBotsTakeTheirTurns(t *testing.T) {
	gs, rec := newTestServer(t)
	id, err := gs.CreateSinglePlayerGame("h1", "Alice")
	require.NoError(t, err)

	withLocked(gs, id, func(s *game.Session) {
		require.Len(t, s.Players, 4)
		assert.Equal(t, game.PhaseInProgress, s.Phase)
		assert.Equal(t, "h1", s.CurrentPlayer().ID)
		assert.True(t, s.IsBot("bot-1"))
	})

	humanTurnOrOver := func() bool {
		turn := true
		alive := withLocked(gs, id, func(s *game.Session) {
			turn = s.Phase != game.PhaseInProgress || s.CurrentPlayer().ID == "h1"
		})
		return !alive || turn
	}

	for round := 0; round < 5; round++ {
		var action ai.Action
		alive := withLocked(gs, id, func(s *game.Session) {
			assert.Equal(t, game.DeckSize, s.CardCount())
			action = ai.Decide(s, "h1")
		})
		if !alive {
			break
		}
		switch action.Kind {
		case ai.ActionPlay:
			require.NoError(t, gs.PlayCard("h1", &action.Card))
			var pending bool
			var hand []models.Card
			withLocked(gs, id, func(s *game.Session) {
				pending = s.PendingSuit != nil
				hand = s.Hand("h1")
			})
			if pending {
				require.NoError(t, gs.ChooseSuit("h1", ai.ChooseSuit(hand)))
			}
		default:
			require.NoError(t, gs.DrawCard("h1"))
		}
		require.Eventually(t, humanTurnOrOver, 2*time.Second, 5*time.Millisecond)
	}

	_, ok := rec.last("bot-1", MsgState)
	assert.False(t, ok, "bots get no messages")
}

func TestLeaveEndsGameWithBots(t *testing.T) {
	events := &eventLog{}
	gs, rec := newTestServer(t, WithPublisher(events))
	_, err := gs.CreateSinglePlayerGame("h1", "Alice")
	require.NoError(t, err)

	gs.Leave("h1")
	assert.Zero(t, gs.LiveGames())
	over, ok := rec.last("h1", MsgGameOver)
	require.True(t, ok)
	assert.Equal(t, string(game.EndAbandoned), over.Reason)
	assert.Empty(t, over.WinnerID)

	require.Eventually(t, func() bool {
		return events.seen(cache.EventCreated, cache.EventStarted, cache.EventEnded)
	}, time.Second, 5*time.Millisecond)
}

func TestLeaveWaitingAndInProgress(t *testing.T) {
	gs, rec := newTestServer(t)
	id, err := gs.CreateGame("h1", "Alice")
	require.NoError(t, err)
	require.NoError(t, gs.JoinGame("h2", id, "Bob"))

	gs.Leave("h2")
	assert.Equal(t, 1, gs.LiveGames())
	st, _ := rec.last("h1", MsgState)
	assert.Len(t, st.State.Players, 1)

	require.NoError(t, gs.JoinGame("h2", id, "Bob"))
	require.NoError(t, gs.StartGame("h1"))
	gs.Leave("h1")
	over, ok := rec.last("h2", MsgGameOver)
	require.True(t, ok)
	assert.Equal(t, "h2", over.WinnerID, "last player standing wins")
	assert.Equal(t, string(game.EndAbandoned), over.Reason)
	assert.Zero(t, gs.LiveGames())

	// an empty waiting session is dropped
	_, err = gs.CreateGame("h3", "Carol")
	require.NoError(t, err)
	gs.Leave("h3")
	assert.Zero(t, gs.LiveGames())
}

func TestIdleSweepNotifiesSeatedPlayers(t *testing.T) {
	gs, rec := newTestServer(t, WithStoreOptions(game.WithIdleTimeout(time.Minute)))
	_, err := gs.CreateGame("h1", "Alice")
	require.NoError(t, err)

	removed := gs.GameStore.Sweep(time.Now().Add(2 * time.Minute))
	require.Len(t, removed, 1)

	over, ok := rec.last("h1", MsgGameOver)
	require.True(t, ok)
	assert.Equal(t, string(game.ReasonIdle), over.Reason)
	assert.ErrorIs(t, gs.StartGame("h1"), ErrNotSeated)
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "Player", cleanName("   "))
	assert.Equal(t, "Ana", cleanName(" Ana "))
	assert.Len(t, []rune(cleanName("ÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄ")), maxNameLength)
}

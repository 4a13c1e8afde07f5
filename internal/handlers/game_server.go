// internal/handlers/game_server.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gganwoor/unuscado/internal/ai"
	"github.com/gganwoor/unuscado/internal/cache"
	"github.com/gganwoor/unuscado/internal/game"
	"github.com/gganwoor/unuscado/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxNameLength = 24

var (
	ErrNotSeated = errors.New("player is not in a game")
	ErrBadCard   = errors.New("no card given")
)

// GameServer is a high-level struct that holds a reference to a GameStore,
// routes player intents to sessions and runs the scripted opponents.
//
// Lock order: a session's Mu, then the store's lock, then gs.mu.
type GameServer struct {
	GameStore   *game.GameStore
	Broadcaster Broadcaster
	Publisher   cache.Publisher

	AIDelay  time.Duration
	BotCount int

	logger    *logrus.Logger
	storeOpts []game.StoreOption

	mu    sync.Mutex
	seats map[string]uuid.UUID // player id -> game id
}

// ServerOption configures a GameServer.
type ServerOption func(*GameServer)

func WithPublisher(p cache.Publisher) ServerOption {
	return func(gs *GameServer) { gs.Publisher = p }
}

func WithAIDelay(d time.Duration) ServerOption {
	return func(gs *GameServer) { gs.AIDelay = d }
}

func WithBotCount(n int) ServerOption {
	return func(gs *GameServer) { gs.BotCount = n }
}

// WithBroadcaster sets where messages go. NewHub installs itself.
func WithBroadcaster(b Broadcaster) ServerOption {
	return func(gs *GameServer) { gs.Broadcaster = b }
}

// WithStoreOptions passes options through to the session store.
func WithStoreOptions(opts ...game.StoreOption) ServerOption {
	return func(gs *GameServer) { gs.storeOpts = append(gs.storeOpts, opts...) }
}

func NewGameServer(logger *logrus.Logger, opts ...ServerOption) *GameServer {
	gs := &GameServer{
		Broadcaster: nopBroadcaster{},
		Publisher:   cache.Nop{},
		AIDelay:     time.Second,
		BotCount:    3,
		logger:      logger,
		seats:       make(map[string]uuid.UUID),
	}
	for _, opt := range opts {
		opt(gs)
	}

	storeOpts := append([]game.StoreOption{
		game.WithStoreLogger(logger),
		game.WithCleanup(gs.onSessionRemoved),
		game.WithSessionOptions(game.WithLogger(logger)),
	}, gs.storeOpts...)
	gs.GameStore = game.NewGameStore(storeOpts...)
	gs.storeOpts = nil
	return gs
}

// Run sweeps idle sessions until ctx is done.
func (gs *GameServer) Run(ctx context.Context, interval time.Duration) {
	gs.GameStore.RunSweeper(ctx, interval)
}

// CreateGame opens a new waiting session with the player seated.
func (gs *GameServer) CreateGame(playerID, name string) (uuid.UUID, error) {
	gs.Leave(playerID)

	s := gs.GameStore.Create()
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if err := s.AddPlayer(playerID, cleanName(name), false); err != nil {
		return uuid.Nil, err
	}
	gs.seat(playerID, s.ID)
	gs.publish(cache.LifecycleEvent{Kind: cache.EventCreated, GameID: s.ID, Players: len(s.Players)})

	gs.Broadcaster.Send(playerID, Message{Type: MsgGameCreated, GameID: s.ID.String()})
	gs.sendState(s, playerID)
	return s.ID, nil
}

// JoinGame seats the player in a waiting session.
func (gs *GameServer) JoinGame(playerID string, gameID uuid.UUID, name string) error {
	s, err := gs.GameStore.Get(gameID)
	if err != nil {
		return err
	}
	if cur, ok := gs.seatOf(playerID); ok && cur == gameID {
		return game.ErrDuplicatePlayer
	}
	gs.Leave(playerID)

	s.Mu.Lock()
	defer s.Mu.Unlock()
	if err := s.AddPlayer(playerID, cleanName(name), false); err != nil {
		return err
	}
	gs.seat(playerID, s.ID)
	gs.broadcastState(s)
	return nil
}

// CreateSinglePlayerGame seats the player against BotCount bots and starts at once.
func (gs *GameServer) CreateSinglePlayerGame(playerID, name string) (uuid.UUID, error) {
	gs.Leave(playerID)

	s := gs.GameStore.Create()
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if err := s.AddPlayer(playerID, cleanName(name), false); err != nil {
		return uuid.Nil, err
	}
	for i := 1; i <= gs.BotCount; i++ {
		if err := s.AddPlayer(fmt.Sprintf("bot-%d", i), fmt.Sprintf("Bot %d", i), true); err != nil {
			return uuid.Nil, err
		}
	}
	gs.seat(playerID, s.ID)
	gs.publish(cache.LifecycleEvent{Kind: cache.EventCreated, GameID: s.ID, Players: len(s.Players)})

	if err := s.Start(); err != nil {
		return uuid.Nil, err
	}
	gs.publish(cache.LifecycleEvent{Kind: cache.EventStarted, GameID: s.ID, Players: len(s.Players)})

	gs.Broadcaster.Send(playerID, Message{Type: MsgGameCreated, GameID: s.ID.String()})
	gs.broadcastState(s)
	gs.scheduleBot(s)
	return s.ID, nil
}

// StartGame deals the player's waiting session.
func (gs *GameServer) StartGame(playerID string) error {
	return gs.withSession(playerID, func(s *game.Session) error {
		if err := s.Start(); err != nil {
			return err
		}
		gs.publish(cache.LifecycleEvent{Kind: cache.EventStarted, GameID: s.ID, Players: len(s.Players)})
		gs.broadcastState(s)
		gs.scheduleBot(s)
		return nil
	})
}

// PlayCard plays a card for a human player.
func (gs *GameServer) PlayCard(playerID string, card *models.Card) error {
	if card == nil {
		return ErrBadCard
	}
	return gs.withSession(playerID, func(s *game.Session) error {
		gs.afterAction(s, playerID, s.PlayCard(playerID, card.Normalize()))
		return nil
	})
}

// ChooseSuit resolves the player's pending 7.
func (gs *GameServer) ChooseSuit(playerID string, suit models.Suit) error {
	return gs.withSession(playerID, func(s *game.Session) error {
		out := s.ResolveSuitChoice(playerID, suit)
		if out == game.Rejected {
			gs.sendState(s, playerID)
			if s.PendingSuit != nil && s.PendingSuit.PlayerID == playerID {
				gs.Broadcaster.Send(playerID, Message{Type: MsgChooseSuit})
			}
			return nil
		}
		gs.afterAction(s, playerID, out)
		return nil
	})
}

// DrawCard draws for the player, or passes when nothing can be drawn or played.
func (gs *GameServer) DrawCard(playerID string) error {
	return gs.withSession(playerID, func(s *game.Session) error {
		out := s.DrawCard(playerID)
		if out == game.Rejected {
			out = s.Pass(playerID)
		}
		gs.afterAction(s, playerID, out)
		return nil
	})
}

// Leave takes the player out of their session. A human leaving a game with
// bots ends it; a session without humans is removed.
func (gs *GameServer) Leave(playerID string) {
	gameID, ok := gs.seatOf(playerID)
	if !ok {
		return
	}
	gs.unseat(playerID)
	s, err := gs.GameStore.Get(gameID)
	if err != nil {
		return
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	log := gs.logger.WithFields(logrus.Fields{"game_id": s.ID, "player": playerID})

	if s.Phase == game.PhaseFinished {
		return
	}
	if s.Phase == game.PhaseInProgress && s.HasBots() {
		log.Info("human left a game with bots, ending it")
		gs.endGame(s, "", game.EndAbandoned)
		return
	}
	if err := s.RemovePlayer(playerID); err != nil {
		return
	}
	log.Info("player left")

	switch {
	case !s.HasHumans():
		gs.removeSession(s)
	case s.Phase == game.PhaseInProgress && len(s.Players) < game.MinPlayers:
		gs.endGame(s, s.Players[0].ID, game.EndAbandoned)
	default:
		gs.broadcastState(s)
	}
}

// LiveGames returns the number of sessions in the store.
func (gs *GameServer) LiveGames() int {
	return gs.GameStore.Len()
}

func (gs *GameServer) withSession(playerID string, fn func(s *game.Session) error) error {
	gameID, ok := gs.seatOf(playerID)
	if !ok {
		return ErrNotSeated
	}
	s, err := gs.GameStore.Get(gameID)
	if err != nil {
		gs.unseat(playerID)
		return err
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return fn(s)
}

// afterAction interprets an engine outcome. s.Mu must be held.
func (gs *GameServer) afterAction(s *game.Session, actorID string, out game.Outcome) {
	switch out {
	case game.Rejected:
		gs.sendState(s, actorID)
	case game.AwaitSuitChoice:
		gs.broadcastState(s)
		gs.Broadcaster.Send(actorID, Message{Type: MsgChooseSuit})
	case game.CountdownWin:
		gs.endGame(s, actorID, game.EndCountdown)
	case game.PlayAgain:
		if s.CheckWinCondition(actorID) {
			gs.endGame(s, actorID, game.EndEmptyHand)
			return
		}
		gs.broadcastState(s)
		gs.scheduleBot(s)
	default:
		gs.handleTurnAdvancement(s, actorID)
	}
}

func (gs *GameServer) handleTurnAdvancement(s *game.Session, actorID string) {
	if s.CheckWinCondition(actorID) {
		gs.endGame(s, actorID, game.EndEmptyHand)
		return
	}
	if s.AdvanceTurn(false) == game.CountdownWin {
		gs.endGame(s, s.WinnerID, game.EndCountdown)
		return
	}
	gs.broadcastState(s)
	gs.scheduleBot(s)
}

// scheduleBot arms a timer if the seat on turn is a bot.
func (gs *GameServer) scheduleBot(s *game.Session) {
	cur := s.CurrentPlayer()
	if s.Phase != game.PhaseInProgress || cur == nil || !cur.IsBot {
		return
	}
	id := s.ID
	time.AfterFunc(gs.AIDelay, func() { gs.runBot(id) })
}

func (gs *GameServer) runBot(gameID uuid.UUID) {
	s, err := gs.GameStore.Get(gameID)
	if err != nil {
		return
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()

	cur := s.CurrentPlayer()
	if s.Phase != game.PhaseInProgress || cur == nil || !cur.IsBot {
		return
	}
	action, out := ai.Play(s, cur.ID)
	gs.logger.WithFields(logrus.Fields{
		"game_id": s.ID,
		"bot":     cur.ID,
		"action":  action.Kind,
		"card":    action.Card,
		"outcome": out,
	}).Debug("bot moved")
	if out == game.Rejected {
		gs.logger.WithFields(logrus.Fields{"game_id": s.ID, "bot": cur.ID}).Error("bot move rejected, game stalled")
		return
	}
	gs.afterAction(s, cur.ID, out)
}

// endGame finishes s, tells every human and drops the session. s.Mu must be held.
func (gs *GameServer) endGame(s *game.Session, winnerID string, reason game.EndReason) {
	s.Finish(winnerID)
	gs.broadcastState(s)
	for _, p := range s.Players {
		if !p.IsBot {
			gs.Broadcaster.Send(p.ID, Message{Type: MsgGameOver, WinnerID: s.WinnerID, Reason: string(reason)})
		}
	}
	gs.publish(cache.LifecycleEvent{Kind: cache.EventEnded, GameID: s.ID, WinnerID: s.WinnerID, Reason: string(reason)})
	gs.removeSession(s)
}

func (gs *GameServer) removeSession(s *game.Session) {
	if err := gs.GameStore.Remove(s.ID); err != nil && !errors.Is(err, game.ErrSessionNotFound) {
		gs.logger.WithError(err).WithField("game_id", s.ID).Warn("failed to remove session")
	}
}

// onSessionRemoved is the store's cleanup hook. It must not lock the session.
func (gs *GameServer) onSessionRemoved(s *game.Session, reason game.RemoveReason) {
	var players []string
	gs.mu.Lock()
	for pid, gid := range gs.seats {
		if gid == s.ID {
			players = append(players, pid)
			delete(gs.seats, pid)
		}
	}
	gs.mu.Unlock()

	if reason != game.ReasonIdle {
		return
	}
	for _, pid := range players {
		gs.Broadcaster.Send(pid, Message{Type: MsgGameOver, Reason: string(reason)})
	}
	gs.publish(cache.LifecycleEvent{Kind: cache.EventEnded, GameID: s.ID, Reason: string(reason)})
}

func (gs *GameServer) sendState(s *game.Session, playerID string) {
	if s.IsBot(playerID) {
		return
	}
	view, err := s.GetStateView(playerID)
	if err != nil {
		return
	}
	gs.Broadcaster.Send(playerID, Message{Type: MsgState, State: &view})
}

func (gs *GameServer) broadcastState(s *game.Session) {
	for _, p := range s.Players {
		gs.sendState(s, p.ID)
	}
}

// publish is fire-and-forget; failures are only logged.
func (gs *GameServer) publish(ev cache.LifecycleEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := gs.Publisher.Publish(ctx, ev); err != nil {
			gs.logger.WithError(err).WithField("kind", ev.Kind).Warn("lifecycle publish failed")
		}
	}()
}

func (gs *GameServer) seat(playerID string, gameID uuid.UUID) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.seats[playerID] = gameID
}

func (gs *GameServer) unseat(playerID string) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	delete(gs.seats, playerID)
}

func (gs *GameServer) seatOf(playerID string) (uuid.UUID, bool) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	id, ok := gs.seats[playerID]
	return id, ok
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Player"
	}
	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	return name
}

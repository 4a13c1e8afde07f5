// internal/game/game.go
package game

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gganwoor/unuscado/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MinPlayers = 2
	// MaxPlayers is the most seats a full deal can serve (8*7 + 1 seed card).
	MaxPlayers = 8
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrDuplicatePlayer  = errors.New("player already seated")
	ErrTableFull        = errors.New("table is full")
	ErrGameInProgress   = errors.New("game already started")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
)

// Outcome is the tag every engine operation reports back to the orchestrator.
type Outcome string

const (
	Accepted        Outcome = "accepted"
	Rejected        Outcome = "rejected"
	AwaitSuitChoice Outcome = "choose-suit"
	PlayAgain       Outcome = "play-again"
	CountdownWin    Outcome = "countdown-win"
	CountdownTick   Outcome = "countdown-tick"
	// Normal is returned by AdvanceTurn when no countdown ticked.
	Normal Outcome = "normal"
)

// Phase is the coarse lifecycle state of a session.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseInProgress Phase = "in-progress"
	PhaseFinished   Phase = "finished"
)

// EndReason says how a game finished.
type EndReason string

const (
	EndEmptyHand EndReason = "empty-hand"
	EndCountdown EndReason = "countdown"
	EndAbandoned EndReason = "abandoned"
)

// PendingSuitChoice holds a played 7 until its owner names the new suit.
type PendingSuitChoice struct {
	Card     models.Card `json:"card"`
	PlayerID string      `json:"playerId"`
}

// Session owns one game's mutable state.
//
// Operations do not lock; callers serialize every call on a session through Mu.
// LastActivity is the only field safe to read without holding Mu.
type Session struct {
	ID uuid.UUID
	Mu sync.Mutex

	Players     []*models.Player
	DrawPile    []models.Card // index 0 is drawn next
	DiscardPile []models.Card // last element is the top

	CurrentPlayerIndex int
	Direction          int
	AttackStack        int
	Countdown          CountdownState
	PendingSuit        *PendingSuitChoice
	Phase              Phase
	WinnerID           string

	// skipNext is set by a Jack and consumed by the next AdvanceTurn.
	skipNext bool

	lastActivity atomic.Int64
	dealer       Dealer
	rng          *rand.Rand
	now          func() time.Time
	log          *logrus.Entry
}

// Option configures a Session at construction.
type Option func(*Session)

// WithDealer replaces the standard deal, e.g. with fixture hands.
func WithDealer(d Dealer) Option {
	return func(s *Session) { s.dealer = d }
}

// WithRand fixes the shuffle source.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// WithClock overrides the activity clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the base logger; the session adds its game_id field.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Session) { s.log = logrus.NewEntry(l) }
}

// NewSession builds an empty session waiting for players.
func NewSession(opts ...Option) *Session {
	id, _ := uuid.NewRandom()
	s := &Session{
		ID:        id,
		Direction: 1,
		Phase:     PhaseWaiting,
		dealer:    StandardDealer{},
		now:       time.Now,
		log:       logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.now().UnixNano()))
	}
	s.log = s.log.WithField("game_id", s.ID)
	s.touch()
	return s
}

func (s *Session) touch() {
	s.lastActivity.Store(s.now().UnixNano())
}

// LastActivity returns when the session was last mutated.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// AddPlayer seats a new player at the end of the turn order.
func (s *Session) AddPlayer(id, name string, isBot bool) error {
	if s.Phase != PhaseWaiting {
		return ErrGameInProgress
	}
	if s.getPlayerByID(id) != nil {
		return ErrDuplicatePlayer
	}
	if len(s.Players) >= MaxPlayers {
		return ErrTableFull
	}
	s.Players = append(s.Players, &models.Player{ID: id, Name: name, IsBot: isBot})
	s.touch()
	s.log.WithFields(logrus.Fields{"player": id, "bot": isBot}).Debug("player seated")
	return nil
}

// RemovePlayer drops a seat. The turn pointer keeps pointing at the same
// player, or at the seat that slid into the removed current seat.
func (s *Session) RemovePlayer(id string) error {
	idx := s.playerIndex(id)
	if idx == -1 {
		return ErrPlayerNotFound
	}
	// a departing hand goes under the draw pile so no card leaves the game
	s.DrawPile = append(s.DrawPile, s.Players[idx].Hand...)
	s.Players = append(s.Players[:idx], s.Players[idx+1:]...)

	switch {
	case len(s.Players) == 0:
		s.CurrentPlayerIndex = 0
	case idx < s.CurrentPlayerIndex:
		s.CurrentPlayerIndex--
	case idx == s.CurrentPlayerIndex:
		s.CurrentPlayerIndex %= len(s.Players)
	}

	if s.Countdown.Active() && s.Countdown.OwnerID == id {
		s.Countdown = CountdownState{}
	}
	if s.PendingSuit != nil && s.PendingSuit.PlayerID == id {
		s.PendingSuit = nil
	}
	s.touch()
	s.log.WithField("player", id).Debug("player removed")
	return nil
}

// Start builds, shuffles and deals a fresh deck and resets all turn state.
func (s *Session) Start() error {
	if s.Phase != PhaseWaiting {
		return ErrGameInProgress
	}
	if len(s.Players) < MinPlayers {
		return ErrNotEnoughPlayers
	}

	deck := BuildDeck()
	Shuffle(deck, s.rng)
	layout, err := s.dealer.Deal(deck, len(s.Players))
	if err != nil {
		return err
	}
	if layout.size() != DeckSize || len(layout.Discard) == 0 || len(layout.Hands) != len(s.Players) {
		return ErrInvalidLayout
	}

	for i, p := range s.Players {
		p.Hand = layout.Hands[i]
	}
	s.DiscardPile = layout.Discard
	s.DrawPile = layout.Draw

	s.CurrentPlayerIndex = 0
	s.Direction = 1
	s.AttackStack = 0
	s.Countdown = CountdownState{}
	s.PendingSuit = nil
	s.skipNext = false
	s.WinnerID = ""
	s.Phase = PhaseInProgress
	s.touch()
	s.log.WithField("players", len(s.Players)).Info("game started")
	return nil
}

// PlayCard moves card from the player's hand to the discard top if the play is legal.
func (s *Session) PlayCard(playerID string, card models.Card) Outcome {
	player, ok := s.actingPlayer(playerID)
	if !ok {
		return Rejected
	}
	if !player.HasCard(card) {
		s.log.WithFields(logrus.Fields{"player": playerID, "card": card}).Debug("card not in hand")
		return Rejected
	}

	verdict := Classify(card, s.Top(), s.AttackStack, s.Countdown)
	if verdict == Illegal {
		s.log.WithFields(logrus.Fields{"player": playerID, "card": card}).Debug("illegal play")
		return Rejected
	}

	played, _ := player.RemoveCard(card)
	s.DiscardPile = append(s.DiscardPile, played)
	s.touch()

	if played.IsCountdown {
		n, _ := played.CountdownNumber()
		s.Countdown = newCountdown(playerID, n)
		if n == 0 {
			s.Finish(playerID)
			return CountdownWin
		}
		return Accepted
	}

	s.Countdown = CountdownState{}
	if verdict == Interrupt {
		return Accepted
	}

	s.applySpecialCardEffect(played)

	switch played.Rank {
	case models.RankSeven:
		s.PendingSuit = &PendingSuitChoice{Card: played, PlayerID: playerID}
		return AwaitSuitChoice
	case models.RankKing:
		return PlayAgain
	}
	return Accepted
}

// applySpecialCardEffect applies the ordinary effect of a non-countdown card.
func (s *Session) applySpecialCardEffect(c models.Card) {
	switch c.Rank {
	case models.RankJack:
		s.skipNext = true
	case models.RankQueen:
		s.Direction = -s.Direction
	case models.RankTwo:
		s.AttackStack += 2
	case models.RankAce:
		s.AttackStack += 3
	case models.RankThree:
		s.AttackStack = 0
	case models.RankJoker:
		switch c.Suit {
		case models.SuitBlackJoker:
			s.AttackStack += 5
		case models.SuitColorJoker:
			s.AttackStack += 10
		}
	}
}

// ResolveSuitChoice rewrites the pending 7 to the chosen suit.
func (s *Session) ResolveSuitChoice(playerID string, suit models.Suit) Outcome {
	if s.Phase != PhaseInProgress || s.PendingSuit == nil || s.PendingSuit.PlayerID != playerID {
		return Rejected
	}
	if !suit.IsStandard() || len(s.DiscardPile) == 0 {
		return Rejected
	}
	top := len(s.DiscardPile) - 1
	s.DiscardPile[top] = models.NewCard(s.PendingSuit.Card.Rank, suit)
	s.PendingSuit = nil
	s.touch()
	return Accepted
}

// DrawCard gives the current player max(1, AttackStack) cards and clears the attack.
func (s *Session) DrawCard(playerID string) Outcome {
	player, ok := s.actingPlayer(playerID)
	if !ok {
		return Rejected
	}
	if !s.CanDraw() {
		return Rejected
	}

	n := max(1, s.AttackStack)
	drawn := 0
	for drawn < n {
		if len(s.DrawPile) == 0 && !s.recycleDiscard() {
			break
		}
		player.Hand = append(player.Hand, s.DrawPile[0])
		s.DrawPile = s.DrawPile[1:]
		drawn++
	}
	s.AttackStack = 0
	s.touch()
	s.log.WithFields(logrus.Fields{"player": playerID, "drawn": drawn}).Debug("cards drawn")
	return Accepted
}

// CanDraw reports whether at least one card can reach a hand, recycling included.
func (s *Session) CanDraw() bool {
	return len(s.DrawPile) > 0 || len(s.DiscardPile) > 1
}

// recycleDiscard keeps the discard top and shuffles the rest into a new draw pile.
func (s *Session) recycleDiscard() bool {
	if len(s.DiscardPile) <= 1 {
		return false
	}
	top := s.DiscardPile[len(s.DiscardPile)-1]
	pile := append([]models.Card(nil), s.DiscardPile[:len(s.DiscardPile)-1]...)
	Shuffle(pile, s.rng)
	s.DrawPile = append(s.DrawPile, pile...)
	s.DiscardPile = []models.Card{top}
	s.log.WithField("size", len(s.DrawPile)).Debug("discard pile recycled")
	return true
}

// Pass lets a player who can neither play nor draw give up the turn.
func (s *Session) Pass(playerID string) Outcome {
	if _, ok := s.actingPlayer(playerID); !ok {
		return Rejected
	}
	if s.CanDraw() || len(s.LegalCards(playerID)) > 0 {
		return Rejected
	}
	s.touch()
	return Accepted
}

// AdvanceTurn moves the turn pointer and ticks the countdown when play
// returns to its owner.
func (s *Session) AdvanceTurn(skip bool) Outcome {
	n := len(s.Players)
	if n == 0 {
		return Normal
	}
	step := s.Direction
	if skip || s.skipNext {
		step *= 2
	}
	s.skipNext = false
	s.CurrentPlayerIndex = ((s.CurrentPlayerIndex+step)%n + n) % n
	s.touch()

	if !s.Countdown.Active() || s.Players[s.CurrentPlayerIndex].ID != s.Countdown.OwnerID {
		return Normal
	}

	owner := s.Countdown.OwnerID
	next := *s.Countdown.Number - 1
	s.Countdown = newCountdown(owner, next)
	if len(s.DiscardPile) > 0 {
		s.DiscardPile[len(s.DiscardPile)-1] = models.NewCountdownCard(next)
	}
	s.log.WithFields(logrus.Fields{"owner": owner, "number": next}).Debug("countdown ticked")
	if next == 0 {
		s.Finish(owner)
		return CountdownWin
	}
	return CountdownTick
}

// CheckWinCondition reports whether the player has emptied their hand.
func (s *Session) CheckWinCondition(playerID string) bool {
	p := s.getPlayerByID(playerID)
	return p != nil && len(p.Hand) == 0
}

// Finish ends the game with the given winner.
func (s *Session) Finish(winnerID string) {
	if s.Phase == PhaseFinished {
		return
	}
	s.Phase = PhaseFinished
	s.WinnerID = winnerID
	s.PendingSuit = nil
	s.touch()
	s.log.WithField("winner", winnerID).Info("game finished")
}

// Top returns a copy of the discard top, or nil before the deal.
func (s *Session) Top() *models.Card {
	if len(s.DiscardPile) == 0 {
		return nil
	}
	top := s.DiscardPile[len(s.DiscardPile)-1]
	return &top
}

// CurrentPlayer returns the player whose turn it is, or nil at an empty table.
func (s *Session) CurrentPlayer() *models.Player {
	if len(s.Players) == 0 {
		return nil
	}
	return s.Players[s.CurrentPlayerIndex]
}

// Hand returns a copy of the player's hand.
func (s *Session) Hand(playerID string) []models.Card {
	p := s.getPlayerByID(playerID)
	if p == nil {
		return nil
	}
	return append([]models.Card(nil), p.Hand...)
}

// LegalCards returns the cards in the player's hand the validator accepts, in hand order.
func (s *Session) LegalCards(playerID string) []models.Card {
	p := s.getPlayerByID(playerID)
	if p == nil {
		return nil
	}
	top := s.Top()
	var legal []models.Card
	for _, c := range p.Hand {
		if IsPlayable(c, top, s.AttackStack, s.Countdown) {
			legal = append(legal, c)
		}
	}
	return legal
}

// IsBot reports whether the seat is a scripted opponent.
func (s *Session) IsBot(playerID string) bool {
	p := s.getPlayerByID(playerID)
	return p != nil && p.IsBot
}

// HasHumans reports whether any seat belongs to a real player.
func (s *Session) HasHumans() bool {
	for _, p := range s.Players {
		if !p.IsBot {
			return true
		}
	}
	return false
}

// HasBots reports whether any seat is scripted.
func (s *Session) HasBots() bool {
	for _, p := range s.Players {
		if p.IsBot {
			return true
		}
	}
	return false
}

// CardCount sums every card the session holds; 58 for a dealt game.
func (s *Session) CardCount() int {
	n := len(s.DrawPile) + len(s.DiscardPile)
	for _, p := range s.Players {
		n += len(p.Hand)
	}
	return n
}

// actingPlayer returns the player if they may take a normal action right now.
func (s *Session) actingPlayer(playerID string) (*models.Player, bool) {
	if s.Phase != PhaseInProgress || s.PendingSuit != nil {
		return nil, false
	}
	cur := s.CurrentPlayer()
	if cur == nil || cur.ID != playerID {
		return nil, false
	}
	return cur, true
}

func (s *Session) playerIndex(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// getPlayerByID is a helper to find a player by their ID.
func (s *Session) getPlayerByID(id string) *models.Player {
	if i := s.playerIndex(id); i != -1 {
		return s.Players[i]
	}
	return nil
}

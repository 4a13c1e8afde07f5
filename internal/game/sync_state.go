// internal/game/sync_state.go
package game

import (
	"github.com/gganwoor/unuscado/internal/models"
	"github.com/google/uuid"
)

// PlayerView is what everybody may know about a seat.
type PlayerView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	HandSize      int    `json:"handSize"`
	IsBot         bool   `json:"isBot"`
	IsCurrentTurn bool   `json:"isCurrentTurn"`
}

// StateView is the per-player projection sent to clients. It carries the
// requesting player's own hand and only the sizes of everyone else's.
type StateView struct {
	GameID          uuid.UUID      `json:"gameId"`
	MyPlayerID      string         `json:"myPlayerId"`
	Phase           Phase          `json:"phase"`
	PlayerHand      []models.Card  `json:"playerHand"`
	DiscardTop      *models.Card   `json:"discardTop,omitempty"`
	DiscardSize     int            `json:"discardPileSize"`
	DrawPileSize    int            `json:"drawPileSize"`
	CurrentPlayerID string         `json:"currentPlayerId,omitempty"`
	Direction       int            `json:"direction"`
	AttackStack     int            `json:"attackStack"`
	Countdown       CountdownState `json:"countdownState"`
	AwaitingSuitBy  string         `json:"awaitingSuitBy,omitempty"`
	Players         []PlayerView   `json:"players"`
	WinnerID        string         `json:"winnerId,omitempty"`
}

// GetStateView builds the snapshot for one seated player.
func (s *Session) GetStateView(playerID string) (StateView, error) {
	me := s.getPlayerByID(playerID)
	if me == nil {
		return StateView{}, ErrPlayerNotFound
	}

	view := StateView{
		GameID:       s.ID,
		MyPlayerID:   playerID,
		Phase:        s.Phase,
		PlayerHand:   append([]models.Card{}, me.Hand...),
		DiscardTop:   s.Top(),
		DiscardSize:  len(s.DiscardPile),
		DrawPileSize: len(s.DrawPile),
		Direction:    s.Direction,
		AttackStack:  s.AttackStack,
		WinnerID:     s.WinnerID,
		Players:      make([]PlayerView, 0, len(s.Players)),
	}
	if s.Countdown.Active() {
		n := *s.Countdown.Number
		view.Countdown = CountdownState{OwnerID: s.Countdown.OwnerID, Number: &n}
	}
	if s.PendingSuit != nil {
		view.AwaitingSuitBy = s.PendingSuit.PlayerID
	}
	if cur := s.CurrentPlayer(); cur != nil {
		view.CurrentPlayerID = cur.ID
	}

	for i, p := range s.Players {
		view.Players = append(view.Players, PlayerView{
			ID:            p.ID,
			Name:          p.Name,
			HandSize:      len(p.Hand),
			IsBot:         p.IsBot,
			IsCurrentTurn: i == s.CurrentPlayerIndex,
		})
	}
	return view, nil
}

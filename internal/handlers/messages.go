// internal/handlers/messages.go
package handlers

import (
	"github.com/gganwoor/unuscado/internal/game"
	"github.com/gganwoor/unuscado/internal/models"
)

// Outgoing message types.
const (
	MsgConnected   = "connected"
	MsgGameCreated = "game-created"
	MsgUnknownGame = "unknown-game"
	MsgState       = "game-state-update"
	MsgChooseSuit  = "choose-suit"
	MsgGameOver    = "game-over"
	MsgError       = "error"
	MsgPong        = "pong"
)

// Incoming message types.
const (
	MsgCreateGame             = "create-game"
	MsgJoinGame               = "join-game"
	MsgCreateSinglePlayerGame = "create-single-player-game"
	MsgStartGame              = "start-game"
	MsgPlayCard               = "play-card"
	MsgSuitChosen             = "suit-chosen"
	MsgDrawCard               = "draw-card"
	MsgPing                   = "ping"
)

// Message is everything the server sends to a client.
type Message struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId,omitempty"`
	GameID   string          `json:"gameId,omitempty"`
	State    *game.StateView `json:"state,omitempty"`
	WinnerID string          `json:"winnerId,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// ClientMessage is everything a client may send.
type ClientMessage struct {
	Type       string       `json:"type"`
	PlayerName string       `json:"playerName,omitempty"`
	GameID     string       `json:"gameId,omitempty"`
	Card       *models.Card `json:"card,omitempty"`
	ChosenSuit models.Suit  `json:"chosenSuit,omitempty"`
}

// Broadcaster delivers messages to connected players. Send must not block.
type Broadcaster interface {
	Send(playerID string, msg Message)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Send(string, Message) {}

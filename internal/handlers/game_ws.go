// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/gganwoor/unuscado/internal/game"
	"github.com/gganwoor/unuscado/internal/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the WebSocket subprotocol clients must request.
const Subprotocol = "unuscado"

const outChanSize = 32

// Connection wraps a single player's active WebSocket connection.
type Connection struct {
	PlayerID string
	OutChan  chan Message
	ws       *websocket.Conn
}

// Hub tracks live connections by player id and implements Broadcaster for the GameServer.
type Hub struct {
	server         *GameServer
	logger         *logrus.Logger
	originPatterns []string

	mu    sync.Mutex
	conns map[string]*Connection
}

// NewHub builds a hub and installs it as gs's broadcaster. allowedOrigins may
// carry a scheme ("https://example.com"); only the host part is matched.
func NewHub(logger *logrus.Logger, gs *GameServer, allowedOrigins []string) *Hub {
	h := &Hub{
		server:         gs,
		logger:         logger,
		originPatterns: originPatterns(allowedOrigins),
		conns:          make(map[string]*Connection),
	}
	gs.Broadcaster = h
	return h
}

// Send queues msg for the player. A connection whose queue is full is closed.
func (h *Hub) Send(playerID string, msg Message) {
	h.mu.Lock()
	conn := h.conns[playerID]
	h.mu.Unlock()
	if conn == nil {
		return
	}
	select {
	case conn.OutChan <- msg:
	default:
		h.logger.WithField("player", playerID).Warn("outgoing queue full, closing connection")
		go conn.ws.Close(SlowConsumerError, "client is not reading")
	}
}

// Connections returns the number of open connections.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.PlayerID] = conn
}

func (h *Hub) unregister(playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, playerID)
}

// GameWSHandler upgrades the connection, gives it a fresh player id and runs
// the read and write pumps until the client goes away.
func GameWSHandler(logger *logrus.Logger, h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: h.originPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the unuscado subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := &Connection{
			PlayerID: uuid.NewString(),
			OutChan:  make(chan Message, outChanSize),
			ws:       c,
		}
		h.register(conn)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, conn.PlayerID)
		h.Send(conn.PlayerID, Message{Type: MsgConnected, PlayerID: conn.PlayerID})

		go writePump(ctx, c, conn, logger)
		err = readPump(ctx, c, h, conn, logger)

		cancel()
		h.unregister(conn.PlayerID)
		h.server.Leave(conn.PlayerID)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, conn.PlayerID, err)
	}
}

// readPump decodes client messages and dispatches them until the connection
// fails. A normal closure returns nil.
func readPump(ctx context.Context, c *websocket.Conn, h *Hub, conn *Connection, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from player %s. Ignoring.", typ, conn.PlayerID)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.WithField("player", conn.PlayerID).Warnf("invalid json: %v", err)
			h.Send(conn.PlayerID, Message{Type: MsgError, Message: "Invalid JSON format."})
			continue
		}
		logger.WithFields(logrus.Fields{"player": conn.PlayerID, "type": msg.Type}).Debug("message received")
		h.dispatch(conn.PlayerID, msg)
	}
}

// dispatch routes one client message to the GameServer and reports failures back.
func (h *Hub) dispatch(playerID string, msg ClientMessage) {
	var err error
	switch msg.Type {
	case MsgCreateGame:
		_, err = h.server.CreateGame(playerID, msg.PlayerName)
	case MsgJoinGame:
		id, perr := uuid.Parse(msg.GameID)
		if perr != nil {
			err = game.ErrSessionNotFound
		} else {
			err = h.server.JoinGame(playerID, id, msg.PlayerName)
		}
	case MsgCreateSinglePlayerGame:
		_, err = h.server.CreateSinglePlayerGame(playerID, msg.PlayerName)
	case MsgStartGame:
		err = h.server.StartGame(playerID)
	case MsgPlayCard:
		err = h.server.PlayCard(playerID, msg.Card)
	case MsgSuitChosen:
		err = h.server.ChooseSuit(playerID, msg.ChosenSuit)
	case MsgDrawCard:
		err = h.server.DrawCard(playerID)
	case MsgPing:
		h.Send(playerID, Message{Type: MsgPong})
	default:
		err = fmt.Errorf("unknown message type: %s", msg.Type)
	}

	switch {
	case err == nil:
	case errors.Is(err, game.ErrSessionNotFound):
		h.Send(playerID, Message{Type: MsgUnknownGame, GameID: msg.GameID})
	default:
		h.Send(playerID, Message{Type: MsgError, Message: err.Error()})
	}
}

// writePump drains the connection's queue onto the socket and pings periodically.
func writePump(ctx context.Context, c *websocket.Conn, conn *Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer c.Close(websocket.StatusGoingAway, "write pump stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("Failed to marshal outgoing msg for player %s: %v", conn.PlayerID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write to websocket for player %s: %v", conn.PlayerID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Failed to ping player %s: %v. Assuming disconnect.", conn.PlayerID, err)
				return
			}
		}
	}
}

// originPatterns strips schemes so "https://app.example" matches the Origin host.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

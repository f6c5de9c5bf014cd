// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/mrtonymu/bigtwo-sub001/internal/game"
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

// GameMessage represents an incoming WebSocket frame during the game phase.
// Every mutating frame carries the turn count the client observed when the
// user acted; the engine fences on it.
type GameMessage struct {
	Type              string        `json:"type"` // "play", "pass", "hint", "sync"
	Cards             []models.Card `json:"cards,omitempty"`
	ExpectedTurnCount int           `json:"expectedTurnCount"`
}

// GameWSHandler upgrades the HTTP connection to WebSocket for a specific
// game. It authenticates the session, registers the connection so engine
// events reach this viewer, sends an initial state sync, and then reads
// action frames until the client leaves.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Extract game ID from URL path: /game/ws/{game_id}
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing game_id in path (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}
		gameID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "Invalid game_id format", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			logger.Warnf("Client for game %s connected with invalid subprotocol: %s", gameID, c.Subprotocol())
			c.Close(websocket.StatusCode(BadSubprotocolError), "Client must use the 'game' subprotocol.")
			return
		}

		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			c.Close(websocket.StatusCode(InvalidGameIDError), "Game not found.")
			return
		}

		token := extractCookieToken(r.Header.Get("Cookie"), sessionCookieName)
		sess, err := gs.Keyring.Authenticate(token)
		if err != nil || sess.GameID != gameID {
			logger.Warnf("Session authentication failed for game %s: %v", gameID, err)
			c.Close(websocket.StatusCode(InvalidAuthTokenError), "Authentication failed.")
			return
		}
		logger.Infof("WebSocket connection established for game %s viewer %q from %s", gameID, sess.Name, r.RemoteAddr)

		ctx := r.Context()
		gs.registerConn(gameID, sess.Name, c)
		defer gs.unregisterConn(gameID, sess.Name, c)

		// Initial sync so reconnecting clients converge immediately; the
		// payload reveals only this viewer's hand.
		gs.sendSync(ctx, c, g, sess.Name)

		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				logger.Infof("WebSocket closed for game %s viewer %q: %v", gameID, sess.Name, err)
				return
			}
			var msg GameMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				gs.sendRejection(ctx, c, &game.Rejection{Code: game.CodeInvalidCombo, Message: "malformed frame"})
				continue
			}

			switch msg.Type {
			case "play":
				if rej := g.ApplyPlay(sess.Seat, msg.Cards, msg.ExpectedTurnCount); rej != nil {
					gs.sendRejection(ctx, c, rej)
				}
			case "pass":
				if rej := g.ApplyPass(sess.Seat, msg.ExpectedTurnCount); rej != nil {
					gs.sendRejection(ctx, c, rej)
				}
			case "hint":
				cards, rej := g.Hint(sess.Seat)
				if rej != nil {
					gs.sendRejection(ctx, c, rej)
					continue
				}
				gs.writeFrame(ctx, c, map[string]interface{}{"type": "hint", "cards": cards})
			case "sync":
				gs.sendSync(ctx, c, g, sess.Name)
			default:
				gs.sendRejection(ctx, c, &game.Rejection{Code: game.CodeInvalidCombo, Message: "unknown frame type " + msg.Type})
			}
		}
	}
}

func (gs *GameServer) sendSync(ctx context.Context, c *websocket.Conn, g *game.BigTwoGame, viewer string) {
	state := g.SyncStateFor(viewer)
	gs.writeFrame(ctx, c, map[string]interface{}{"type": string(game.EventStateSync), "state": state})
}

func (gs *GameServer) sendRejection(ctx context.Context, c *websocket.Conn, rej *game.Rejection) {
	gs.writeFrame(ctx, c, map[string]interface{}{"type": "rejected", "code": rej.Code, "message": rej.Message})
}

func (gs *GameServer) writeFrame(ctx context.Context, c *websocket.Conn, frame map[string]interface{}) {
	data, err := json.Marshal(frame)
	if err != nil {
		gs.Logger.Warnf("failed to marshal ws frame: %v", err)
		return
	}
	if err := c.Write(ctx, websocket.MessageText, data); err != nil {
		gs.Logger.Warnf("ws frame write failed: %v", err)
	}
}

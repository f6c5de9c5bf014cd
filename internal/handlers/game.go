// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mrtonymu/bigtwo-sub001/internal/auth"
	"github.com/mrtonymu/bigtwo-sub001/internal/game"
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
)

type createGameRequest struct {
	Name     string             `json:"name"`
	HostName string             `json:"hostName"`
	Options  *models.HouseRules `json:"options,omitempty"`
}

type joinGameRequest struct {
	Name      string `json:"name"`
	Spectate  bool   `json:"spectate"`
}

type playRequest struct {
	Cards             []models.Card `json:"cards"`
	ExpectedTurnCount int           `json:"expectedTurnCount"`
}

type passRequest struct {
	ExpectedTurnCount int `json:"expectedTurnCount"`
}

// CreateGameHandler handles POST /game/create.
func CreateGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req createGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		rules := models.DefaultHouseRules()
		if req.Options != nil {
			rules = *req.Options
		}
		g, host, err := gs.NewGame(r.Context(), req.Name, req.HostName, rules)
		if err != nil {
			writeError(w, err)
			return
		}
		gs.setSessionCookie(w, g.ID, host)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"game_id": g.ID,
			"seat":    host.Position,
		})
	}
}

// ListGamesHandler handles GET /game/list?status=waiting.
func ListGamesHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := models.GameStatus(r.URL.Query().Get("status"))
		games, err := gs.Store.ListGames(r.Context(), status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"games": games})
	}
}

// GameActionHandler routes /game/{id}/<action> for join, start, play, pass,
// hint, end, reset, and the joined detail read.
func GameActionHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/game/"), "/")
		if len(parts) < 1 || parts[0] == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}
		gameID, err := uuid.Parse(parts[0])
		if err != nil {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		action := ""
		if len(parts) > 1 {
			action = parts[1]
		}

		switch action {
		case "":
			gs.handleDetails(w, r, gameID)
		case "join":
			gs.handleJoin(w, r, gameID)
		case "start":
			gs.handleStart(w, r, gameID)
		case "play":
			gs.handlePlay(w, r, gameID)
		case "pass":
			gs.handlePass(w, r, gameID)
		case "hint":
			gs.handleHint(w, r, gameID)
		case "end":
			gs.handleEnd(w, r, gameID)
		case "reset":
			gs.handleReset(w, r, gameID)
		default:
			http.Error(w, "unknown action", http.StatusNotFound)
		}
	}
}

func (gs *GameServer) liveGame(w http.ResponseWriter, gameID uuid.UUID) (*game.BigTwoGame, bool) {
	g, ok := gs.GameStore.GetGame(gameID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "not_found", "message": "game not found"})
		return nil, false
	}
	return g, true
}

// session authenticates the request's cookie and checks it names this game.
func (gs *GameServer) session(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) (*auth.Session, bool) {
	token := extractCookieToken(r.Header.Get("Cookie"), sessionCookieName)
	sess, err := gs.Keyring.Authenticate(token)
	if err != nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"code": "invalid_session", "message": "invalid or missing session token"})
		return nil, false
	}
	if sess.GameID != gameID {
		writeJSON(w, http.StatusForbidden, map[string]string{"code": "invalid_session", "message": "session is for a different game"})
		return nil, false
	}
	return sess, true
}

func (gs *GameServer) setSessionCookie(w http.ResponseWriter, gameID uuid.UUID, p *models.Player) {
	token, err := gs.Keyring.CreateToken(auth.Session{GameID: gameID, Name: p.Name, Seat: p.Position})
	if err != nil {
		gs.Logger.Warnf("failed to mint session token for %q: %v", p.Name, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// handleDetails returns the joined view: the per-viewer live snapshot when
// the instance is resident, else the stored rows.
func (gs *GameServer) handleDetails(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	if g, ok := gs.GameStore.GetGame(gameID); ok {
		viewer := ""
		if token := extractCookieToken(r.Header.Get("Cookie"), sessionCookieName); token != "" {
			if sess, err := gs.Keyring.Authenticate(token); err == nil && sess.GameID == gameID {
				viewer = sess.Name
			}
		}
		writeJSON(w, http.StatusOK, g.SyncStateFor(viewer))
		return
	}
	details, err := gs.Store.GetGameDetails(r.Context(), gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	// Stored hands are never exposed on the unauthenticated path.
	for _, p := range details.Players {
		p.Hand = nil
	}
	writeJSON(w, http.StatusOK, details)
}

func (gs *GameServer) handleJoin(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g, ok := gs.liveGame(w, gameID)
	if !ok {
		return
	}
	var req joinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, rej := g.AddPlayer(req.Name, req.Spectate)
	if rej != nil {
		writeError(w, rej)
		return
	}
	if err := gs.Store.AddPlayer(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	gs.publish(r.Context(), "game_players", gameID)
	gs.setSessionCookie(w, gameID, p)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"seat":        p.Position,
		"isSpectator": p.IsSpectator,
	})
}

func (gs *GameServer) handleStart(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g, ok := gs.liveGame(w, gameID)
	if !ok {
		return
	}
	sess, ok := gs.session(w, r, gameID)
	if !ok {
		return
	}
	if sess.Seat != g.HostSeat {
		writeError(w, &game.Rejection{Code: game.CodeNotHost, Message: "only the host can start the game"})
		return
	}
	if rej := g.Start(); rej != nil {
		writeError(w, rej)
		return
	}
	writeJSON(w, http.StatusOK, g.SyncStateFor(sess.Name))
}

func (gs *GameServer) handlePlay(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g, ok := gs.liveGame(w, gameID)
	if !ok {
		return
	}
	sess, ok := gs.session(w, r, gameID)
	if !ok {
		return
	}
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if rej := g.ApplyPlay(sess.Seat, req.Cards, req.ExpectedTurnCount); rej != nil {
		writeError(w, rej)
		return
	}
	writeJSON(w, http.StatusOK, g.SyncStateFor(sess.Name))
}

func (gs *GameServer) handlePass(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g, ok := gs.liveGame(w, gameID)
	if !ok {
		return
	}
	sess, ok := gs.session(w, r, gameID)
	if !ok {
		return
	}
	var req passRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if rej := g.ApplyPass(sess.Seat, req.ExpectedTurnCount); rej != nil {
		writeError(w, rej)
		return
	}
	writeJSON(w, http.StatusOK, g.SyncStateFor(sess.Name))
}

func (gs *GameServer) handleHint(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	g, ok := gs.liveGame(w, gameID)
	if !ok {
		return
	}
	sess, ok := gs.session(w, r, gameID)
	if !ok {
		return
	}
	cards, rej := g.Hint(sess.Seat)
	if rej != nil {
		writeError(w, rej)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

func (gs *GameServer) handleEnd(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g, ok := gs.liveGame(w, gameID)
	if !ok {
		return
	}
	sess, ok := gs.session(w, r, gameID)
	if !ok {
		return
	}
	if rej := g.EndGame(sess.Seat); rej != nil {
		writeError(w, rej)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusFinished)})
}

func (gs *GameServer) handleReset(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g, ok := gs.liveGame(w, gameID)
	if !ok {
		return
	}
	sess, ok := gs.session(w, r, gameID)
	if !ok {
		return
	}
	if rej := g.Reset(sess.Seat); rej != nil {
		writeError(w, rej)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusWaiting)})
}

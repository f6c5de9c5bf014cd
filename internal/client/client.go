// Package client is the HTTP adapter a remote game view reconciles through:
// it speaks the /game endpoints, carries the session cookie minted at join,
// and satisfies sync.Backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mrtonymu/bigtwo-sub001/internal/game"
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
)

// sessionCookieName must match the cookie the server sets on join.
const sessionCookieName = "bigtwo_session"

// Client talks to one game of one server. Join (or SetToken) must run
// before the Backend methods; the zero token fails authentication.
type Client struct {
	base   string
	gameID uuid.UUID
	http   *http.Client
	token  string
}

func New(base string, gameID uuid.UUID) *Client {
	return &Client{
		base:   base,
		gameID: gameID,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken installs a previously minted session token, for reconnects that
// skip the join round trip.
func (c *Client) SetToken(token string) { c.token = token }

// Join enters the game (seated, or as a spectator) and captures the session
// cookie for every later request.
func (c *Client) Join(ctx context.Context, name string, spectate bool) error {
	body, err := json.Marshal(map[string]interface{}{"name": name, "spectate": spectate})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gameURL("join"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("join game %s: %w", c.gameID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeRejection(resp)
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == sessionCookieName {
			c.token = ck.Value
		}
	}
	if c.token == "" {
		return fmt.Errorf("join game %s: no session cookie in response", c.gameID)
	}
	return nil
}

// FetchDetails reads the authoritative snapshot. Live games answer with the
// per-viewer view, evicted games with the stored row join; both decode into
// the same GameDetails shape for the reconciler.
func (c *Client) FetchDetails(ctx context.Context) (*models.GameDetails, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gameURL(""), nil)
	if err != nil {
		return nil, err
	}
	c.attachSession(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch game %s: %w", c.gameID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeRejection(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// The live view carries its status at the top level; the stored join
	// nests it. Try the live shape first.
	var snap game.PublicState
	if err := json.Unmarshal(data, &snap); err == nil && snap.Status != "" {
		return detailsFromSnapshot(&snap), nil
	}
	var details models.GameDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, fmt.Errorf("fetch game %s: undecodable payload: %w", c.gameID, err)
	}
	return &details, nil
}

// SubmitPlay posts a fenced play.
func (c *Client) SubmitPlay(ctx context.Context, seat int, cards []models.Card, expectedTurn int) error {
	return c.postAction(ctx, "play", map[string]interface{}{
		"cards":             cards,
		"expectedTurnCount": expectedTurn,
	})
}

// SubmitPass posts a fenced pass.
func (c *Client) SubmitPass(ctx context.Context, seat int, expectedTurn int) error {
	return c.postAction(ctx, "pass", map[string]interface{}{
		"expectedTurnCount": expectedTurn,
	})
}

func (c *Client) postAction(ctx context.Context, action string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gameURL(action), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.attachSession(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s game %s: %w", action, c.gameID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeRejection(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) gameURL(action string) string {
	u := c.base + "/game/" + c.gameID.String()
	if action != "" {
		u += "/" + action
	}
	return u
}

func (c *Client) attachSession(req *http.Request) {
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: c.token})
	}
}

// decodeRejection maps an error response body to a *game.Rejection so the
// caller can branch on the reason code; unparseable bodies degrade to a
// plain error carrying the HTTP status.
func decodeRejection(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	var rej game.Rejection
	if err := json.Unmarshal(data, &rej); err == nil && rej.Code != "" {
		return &rej
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, data)
}

// detailsFromSnapshot lifts the per-viewer live view into the row shape the
// reconciler consumes. Opponent hands stay nil; only sizes are known.
func detailsFromSnapshot(snap *game.PublicState) *models.GameDetails {
	details := &models.GameDetails{
		Game: models.Game{
			ID:     snap.GameID,
			Status: snap.Status,
		},
		State: models.GameState{
			GameID:        snap.GameID,
			CurrentPlayer: snap.CurrentPlayer,
			LastPlay:      snap.LastPlay,
			LastPlayer:    snap.LastPlayer,
			TurnCount:     snap.TurnCount,
			PlayHistory:   snap.History,
			Status:        snap.Status,
			Winner:        snap.Winner,
		},
	}
	for _, p := range snap.Players {
		details.Players = append(details.Players, &models.Player{
			GameID:      snap.GameID,
			Name:        p.Name,
			Position:    p.Position,
			Hand:        p.Hand,
			IsSpectator: p.IsSpectator,
		})
		if p.IsSpectator {
			details.Game.Spectators++
		} else {
			details.Game.Players++
		}
	}
	return details
}

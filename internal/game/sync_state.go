// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
)

// ObfPlayer is one player's state from the perspective of a requesting
// viewer: hand contents are revealed only for the viewer's own seat.
type ObfPlayer struct {
	Name        string        `json:"name"`
	Position    int           `json:"position"`
	HandSize    int           `json:"handSize"`
	IsSpectator bool          `json:"isSpectator"`
	IsCurrent   bool          `json:"isCurrentTurn"`
	Hand        []models.Card `json:"hand,omitempty"`
}

// PublicState is the viewer-neutral slice of game state broadcast with
// events: everything except hand contents.
type PublicState struct {
	GameID        uuid.UUID          `json:"game_id"`
	Status        models.GameStatus  `json:"status"`
	CurrentPlayer int                `json:"currentPlayer"`
	LastPlay      []models.Card      `json:"lastPlay,omitempty"`
	LastPlayer    *int               `json:"lastPlayer,omitempty"`
	TurnCount     int                `json:"turnCount"`
	Winner        *int               `json:"winner,omitempty"`
	Players       []ObfPlayer        `json:"players"`
	History       []models.PlayEntry `json:"playHistory,omitempty"`
}

// publicStateLocked builds a PublicState. Callers must hold g.Mu.
func (g *BigTwoGame) publicStateLocked() *PublicState {
	ps := &PublicState{
		GameID:        g.ID,
		Status:        g.State.Status,
		CurrentPlayer: g.State.CurrentPlayer,
		LastPlay:      append([]models.Card{}, g.State.LastPlay...),
		TurnCount:     g.State.TurnCount,
	}
	if g.State.LastPlayer != nil {
		lp := *g.State.LastPlayer
		ps.LastPlayer = &lp
	}
	if g.State.Winner != nil {
		w := *g.State.Winner
		ps.Winner = &w
	}
	for i, p := range g.Players {
		ps.Players = append(ps.Players, ObfPlayer{
			Name:        p.Name,
			Position:    p.Position,
			HandSize:    len(p.Hand),
			IsSpectator: p.IsSpectator,
			IsCurrent:   !p.IsSpectator && i == g.State.CurrentPlayer && g.State.Status == models.StatusInProgress,
		})
	}
	return ps
}

// SyncStateFor generates a reconnect snapshot for one viewer, revealing
// only that viewer's hand. Spectators see hand sizes only.
func (g *BigTwoGame) SyncStateFor(viewer string) *PublicState {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	ps := g.publicStateLocked()
	ps.History = append([]models.PlayEntry{}, g.State.PlayHistory...)
	for i, p := range g.Players {
		if p.Name == viewer && !p.IsSpectator {
			hand := append([]models.Card{}, p.Hand...)
			SortCards(hand)
			ps.Players[i].Hand = hand
		}
	}
	return ps
}

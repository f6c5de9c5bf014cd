// internal/models/player.go
package models

import "github.com/google/uuid"

// SpectatorPosition is the seat index assigned to spectators.
const SpectatorPosition = -1

// MaxNameLength bounds player names stored in the players table.
const MaxNameLength = 32

// Player is one participant row of a game. Position is the fixed turn-order
// seat index, or SpectatorPosition for spectators, who never hold cards.
type Player struct {
	ID          uuid.UUID `json:"id"`
	GameID      uuid.UUID `json:"game_id"`
	Name        string    `json:"name"`
	Position    int       `json:"position"`
	Hand        []Card    `json:"hand"`
	IsSpectator bool      `json:"isSpectator"`
}

// HasCard reports whether the player's hand contains the given card.
func (p *Player) HasCard(c Card) bool {
	for _, h := range p.Hand {
		if h.Equal(c) {
			return true
		}
	}
	return false
}

// RemoveCards deletes the given cards from the hand. It returns false and
// leaves the hand untouched if any card is missing.
func (p *Player) RemoveCards(cards []Card) bool {
	used := make([]bool, len(p.Hand))
	for _, c := range cards {
		found := false
		for i, h := range p.Hand {
			if !used[i] && h.Equal(c) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	remaining := make([]Card, 0, len(p.Hand)-len(cards))
	for i, h := range p.Hand {
		if !used[i] {
			remaining = append(remaining, h)
		}
	}
	p.Hand = remaining
	return true
}

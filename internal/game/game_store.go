// internal/game/game_store.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// GameStore is the in-memory registry of live game instances.
type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*BigTwoGame
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*BigTwoGame),
	}
}

func (s *GameStore) AddGame(game *BigTwoGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
}

func (s *GameStore) GetGame(id uuid.UUID) (*BigTwoGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[id]
	return g, exists
}

// DeleteGame evicts an instance and releases its timers.
func (s *GameStore) DeleteGame(id uuid.UUID) {
	s.mu.Lock()
	g, exists := s.games[id]
	delete(s.games, id)
	s.mu.Unlock()
	if exists {
		g.Close()
	}
}

// List returns all live instances, for the lobby listing endpoint.
func (s *GameStore) List() []*BigTwoGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*BigTwoGame, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, g)
	}
	return out
}

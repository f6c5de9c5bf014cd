// internal/database/player.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
)

// AddPlayer inserts a player (or spectator) row.
func (s *Store) AddPlayer(ctx context.Context, p *models.Player) error {
	hand, err := json.Marshal(p.Hand)
	if err != nil {
		return fmt.Errorf("marshal hand: %w", err)
	}
	q := `
		INSERT INTO game_players (id, game_id, name, position, hand, is_spectator)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.pool.Exec(ctx, q, p.ID, p.GameID, p.Name, p.Position, hand, p.IsSpectator)
	if err != nil {
		return fmt.Errorf("add player %q to %s: %w", p.Name, p.GameID, err)
	}
	return nil
}

// GetPlayers returns every player row of a game, seats first.
func (s *Store) GetPlayers(ctx context.Context, gameID uuid.UUID) ([]*models.Player, error) {
	q := `
		SELECT id, game_id, name, position, hand, is_spectator
		FROM game_players
		WHERE game_id = $1
		ORDER BY is_spectator, position
	`
	rows, err := s.pool.Query(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("get players %s: %w", gameID, err)
	}
	defer rows.Close()

	var out []*models.Player
	for rows.Next() {
		var p models.Player
		var hand []byte
		if err := rows.Scan(&p.ID, &p.GameID, &p.Name, &p.Position, &hand, &p.IsSpectator); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(hand, &p.Hand); err != nil {
			return nil, fmt.Errorf("%w: game_players.hand for %q: %v", ErrCorruptRow, p.Name, err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// UpdatePlayerHand replaces one player's stored hand.
func (s *Store) UpdatePlayerHand(ctx context.Context, gameID uuid.UUID, name string, hand []models.Card) error {
	doc, err := json.Marshal(hand)
	if err != nil {
		return fmt.Errorf("marshal hand: %w", err)
	}
	q := `UPDATE game_players SET hand = $1 WHERE game_id = $2 AND name = $3`
	tag, err := s.pool.Exec(ctx, q, doc, gameID, name)
	if err != nil {
		return fmt.Errorf("update hand for %q in %s: %w", name, gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePlayerHands rewrites every seat's hand in one transaction, used
// after a deal so clients never observe a half-dealt game.
func (s *Store) UpdatePlayerHands(ctx context.Context, gameID uuid.UUID, players []*models.Player) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `UPDATE game_players SET hand = $1 WHERE game_id = $2 AND name = $3`
		for _, p := range players {
			doc, err := json.Marshal(p.Hand)
			if err != nil {
				return fmt.Errorf("marshal hand for %q: %w", p.Name, err)
			}
			if _, err := tx.Exec(ctx, q, doc, gameID, p.Name); err != nil {
				return err
			}
		}
		return nil
	})
}

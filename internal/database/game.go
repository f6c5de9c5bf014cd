// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
)

// CreateGame inserts the game row plus its initial game_states row in one
// transaction.
func (s *Store) CreateGame(ctx context.Context, g *models.Game, st *models.GameState) error {
	rules, err := json.Marshal(g.Rules)
	if err != nil {
		return fmt.Errorf("marshal house rules: %w", err)
	}
	stateDoc, err := marshalState(st)
	if err != nil {
		return err
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		insGame := `
			INSERT INTO games (id, name, status, max_players, host_name, options)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, e := tx.Exec(ctx, insGame, g.ID, g.Name, g.Status, g.MaxPlayers, g.HostName, rules); e != nil {
			return e
		}
		insState := `
			INSERT INTO game_states (game_id, turn_count, state)
			VALUES ($1, $2, $3)
		`
		_, e := tx.Exec(ctx, insState, g.ID, st.TurnCount, stateDoc)
		return e
	})
}

// GetGame fetches a single game row.
func (s *Store) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	q := `
		SELECT id, name, status, max_players, host_name, options,
		       (SELECT COUNT(*) FROM game_players p WHERE p.game_id = games.id AND NOT p.is_spectator),
		       (SELECT COUNT(*) FROM game_players p WHERE p.game_id = games.id AND p.is_spectator)
		FROM games
		WHERE id = $1
	`
	var g models.Game
	var rules []byte
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&g.ID, &g.Name, &g.Status, &g.MaxPlayers, &g.HostName, &rules, &g.Players, &g.Spectators,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", id, err)
	}
	if err := json.Unmarshal(rules, &g.Rules); err != nil {
		return nil, fmt.Errorf("%w: games.options for %s: %v", ErrCorruptRow, id, err)
	}
	return &g, nil
}

// ListGames returns all game rows, optionally filtered by status.
func (s *Store) ListGames(ctx context.Context, status models.GameStatus) ([]*models.Game, error) {
	q := `
		SELECT id, name, status, max_players, host_name, options,
		       (SELECT COUNT(*) FROM game_players p WHERE p.game_id = games.id AND NOT p.is_spectator),
		       (SELECT COUNT(*) FROM game_players p WHERE p.game_id = games.id AND p.is_spectator)
		FROM games
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
	`
	rows, err := s.pool.Query(ctx, q, string(status))
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []*models.Game
	for rows.Next() {
		var g models.Game
		var rules []byte
		if err := rows.Scan(&g.ID, &g.Name, &g.Status, &g.MaxPlayers, &g.HostName, &rules, &g.Players, &g.Spectators); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rules, &g.Rules); err != nil {
			return nil, fmt.Errorf("%w: games.options for %s: %v", ErrCorruptRow, g.ID, err)
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

// UpdateGame patches mutable game row fields (status today; name reserved).
func (s *Store) UpdateGame(ctx context.Context, id uuid.UUID, status models.GameStatus) error {
	q := `UPDATE games SET status = $1 WHERE id = $2`
	tag, err := s.pool.Exec(ctx, q, status, id)
	if err != nil {
		return fmt.Errorf("update game %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetGameDetails is the joined read: game row, players, and state.
func (s *Store) GetGameDetails(ctx context.Context, id uuid.UUID) (*models.GameDetails, error) {
	g, err := s.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	players, err := s.GetPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	st, err := s.GetGameState(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.GameDetails{Game: *g, Players: players, State: *st}, nil
}

// GetGameState fetches and decodes the authoritative state document.
func (s *Store) GetGameState(ctx context.Context, gameID uuid.UUID) (*models.GameState, error) {
	q := `SELECT state FROM game_states WHERE game_id = $1`
	var doc []byte
	err := s.pool.QueryRow(ctx, q, gameID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game state %s: %w", gameID, err)
	}
	return unmarshalState(gameID, doc)
}

// UpdateGameState writes the state document unconditionally. Use
// UpdateGameStateCAS for turn-advancing commits.
func (s *Store) UpdateGameState(ctx context.Context, gameID uuid.UUID, st *models.GameState) error {
	doc, err := marshalState(st)
	if err != nil {
		return err
	}
	q := `UPDATE game_states SET turn_count = $1, state = $2 WHERE game_id = $3`
	tag, err := s.pool.Exec(ctx, q, st.TurnCount, doc, gameID)
	if err != nil {
		return fmt.Errorf("update game state %s: %w", gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateGameStateCAS commits the state document as a single conditional
// write fenced on the expected turn count. Losing the race affects zero
// rows and returns ErrStaleTurn; there is no read-then-write window.
func (s *Store) UpdateGameStateCAS(ctx context.Context, gameID uuid.UUID, expectedTurn int, st *models.GameState) error {
	doc, err := marshalState(st)
	if err != nil {
		return err
	}
	q := `
		UPDATE game_states
		SET turn_count = $1, state = $2
		WHERE game_id = $3 AND turn_count = $4
	`
	tag, err := s.pool.Exec(ctx, q, st.TurnCount, doc, gameID, expectedTurn)
	if err != nil {
		return fmt.Errorf("cas update game state %s: %w", gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleTurn
	}
	return nil
}

func marshalState(st *models.GameState) ([]byte, error) {
	doc, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal game state: %w", err)
	}
	return doc, nil
}

func unmarshalState(gameID uuid.UUID, doc []byte) (*models.GameState, error) {
	var st models.GameState
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, fmt.Errorf("%w: game_states.state for %s: %v", ErrCorruptRow, gameID, err)
	}
	if st.Status != models.StatusWaiting && st.Status != models.StatusInProgress && st.Status != models.StatusFinished {
		return nil, fmt.Errorf("%w: game_states.state for %s: unknown status %q", ErrCorruptRow, gameID, st.Status)
	}
	return &st, nil
}

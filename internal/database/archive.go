// internal/database/archive.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mrtonymu/bigtwo-sub001/internal/pubsub"
)

// ArchivePlays inserts a batch of play records into game_plays in a single
// transaction. Records are keyed (game_id, turn); replays of the same turn
// are ignored so at-least-once queue delivery stays idempotent.
func (s *Store) ArchivePlays(ctx context.Context, records []pubsub.PlayRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO game_plays (game_id, turn, player_name, play_type, cards, played_at)
			VALUES ($1, $2, $3, $4, $5, to_timestamp($6 / 1000.0))
			ON CONFLICT (game_id, turn) DO NOTHING
		`
		for _, rec := range records {
			cards, err := json.Marshal(rec.Cards)
			if err != nil {
				return fmt.Errorf("marshal cards for %s turn %d: %w", rec.GameID, rec.Turn, err)
			}
			if _, err := tx.Exec(ctx, q, rec.GameID, rec.Turn, rec.Player, rec.PlayType, cards, rec.Timestamp); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkAbandoned finishes a game that went inactive while in progress.
func (s *Store) MarkAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error) {
	q := `
		UPDATE games
		SET status = 'finished'
		WHERE id = $1 AND status = 'in_progress'
	`
	tag, err := s.pool.Exec(ctx, q, gameID)
	if err != nil {
		return false, fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return tag.RowsAffected() > 0, nil
}

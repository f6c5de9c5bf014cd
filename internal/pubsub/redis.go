// internal/pubsub/redis.go
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for play archive records.
var DefaultQueueName = "bigtwo_plays"

// changeChannel returns the pub/sub channel name for one game's change feed.
func changeChannel(gameID uuid.UUID) string {
	return "bigtwo:games:" + gameID.String()
}

// ChangeEvent notifies subscribers that a row of this game changed. The
// payload is a hint only: delivery is at-least-once and possibly reordered,
// so consumers must re-fetch authoritative state rather than apply deltas.
type ChangeEvent struct {
	Table  string    `json:"table"` // "games", "game_players" or "game_states"
	GameID uuid.UUID `json:"game_id"`
}

// PlayRecord is one accepted action queued for the historian service.
type PlayRecord struct {
	GameID    uuid.UUID        `json:"game_id"`
	Turn      int              `json:"turn"`
	Player    string           `json:"player"`
	PlayType  models.PlayType  `json:"play_type"`
	Cards     []models.Card    `json:"cards,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// Bus wraps one Redis client used for both the per-game change feed and the
// play archive queue. Construct it once at startup and inject it; there is
// no package-level client.
type Bus struct {
	rdb       *redis.Client
	queueName string
}

// New connects a Bus and verifies the connection with a bounded ping.
func New(addr string, db int, queueName string) (*Bus, error) {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Bus{rdb: rdb, queueName: queueName}, nil
}

// Close releases the underlying client.
func (b *Bus) Close() error {
	return b.rdb.Close()
}

// PublishChange fans a change hint out to every subscriber of the game.
func (b *Bus) PublishChange(ctx context.Context, table string, gameID uuid.UUID) error {
	data, err := json.Marshal(ChangeEvent{Table: table, GameID: gameID})
	if err != nil {
		return fmt.Errorf("failed to marshal ChangeEvent: %w", err)
	}
	if err := b.rdb.Publish(ctx, changeChannel(gameID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish change for game %s: %w", gameID, err)
	}
	return nil
}

// Subscribe opens the change feed for one game. Events arrive on the
// returned channel until the context is cancelled or Close is called on the
// subscription; both release the underlying Redis subscription.
func (b *Bus) Subscribe(ctx context.Context, gameID uuid.UUID) (*Subscription, error) {
	ps := b.rdb.Subscribe(ctx, changeChannel(gameID))
	// Force the SUBSCRIBE round trip so failures surface here, not later.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to game %s: %w", gameID, err)
	}

	sub := &Subscription{ps: ps, ch: make(chan ChangeEvent, 16)}
	go sub.pump(ctx)
	return sub, nil
}

// Subscription is a live change feed for one game.
type Subscription struct {
	ps *redis.PubSub
	ch chan ChangeEvent
}

// Events is the stream of change hints. It closes when the subscription is
// released.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.ch
}

// Close releases the Redis subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	return s.ps.Close()
}

func (s *Subscription) pump(ctx context.Context) {
	defer close(s.ch)
	in := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			s.ps.Close()
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				// Malformed hint; subscribers re-fetch anyway, so emit a
				// bare event rather than dropping the wakeup.
				ev = ChangeEvent{}
			}
			select {
			case s.ch <- ev:
			case <-ctx.Done():
				s.ps.Close()
				return
			}
		}
	}
}

// EnqueuePlay serializes the record and pushes it to the historian queue.
// This does not block the calling logic beyond a quick network send.
func (b *Bus) EnqueuePlay(ctx context.Context, record PlayRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal PlayRecord: %w", err)
	}
	if err := b.rdb.RPush(ctx, b.queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", b.queueName, err)
	}
	return nil
}

// DequeuePlay pops one record with a blocking wait, for the historian.
// Returns (nil, nil) on timeout with no record available.
func (b *Bus) DequeuePlay(ctx context.Context, timeout time.Duration) (*PlayRecord, error) {
	res, err := b.rdb.BLPop(ctx, timeout, b.queueName).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop: %w", err)
	}
	if len(res) < 2 {
		return nil, nil
	}
	var record PlayRecord
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return nil, fmt.Errorf("invalid play record: %w", err)
	}
	return &record, nil
}

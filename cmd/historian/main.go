// cmd/historian/main.go is an asynchronous service that pops play records
// from the Redis queue and persists them to PostgreSQL, and finishes games
// that have gone inactive.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/mrtonymu/bigtwo-sub001/internal/database"
	"github.com/mrtonymu/bigtwo-sub001/internal/pubsub"
)

// Historian encapsulates the queue + DB logic for capturing play records
// and marking games abandoned when the inactivity threshold is reached.
type Historian struct {
	store  *database.Store
	bus    *pubsub.Bus
	logger *logrus.Logger

	batchSize  int
	flushDelay time.Duration
	inactivity time.Duration

	lastActivity sync.Map // map[uuid.UUID]time.Time

	batchMu sync.Mutex
	batch   []pubsub.PlayRecord
}

func newHistorian(store *database.Store, bus *pubsub.Bus, logger *logrus.Logger) *Historian {
	return &Historian{
		store:      store,
		bus:        bus,
		logger:     logger,
		batchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		flushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		inactivity: time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
	}
}

// run drives the two loops: queue consumption with batched flushes, and a
// periodic inactivity sweep.
func (h *Historian) run(ctx context.Context) {
	go h.readQueueLoop(ctx)
	go h.inactivityLoop(ctx)

	h.logger.Info("bigtwo-historian service started")
	<-ctx.Done()
	h.flushBatch()
	h.logger.Info("bigtwo-historian shutting down")
}

func (h *Historian) readQueueLoop(ctx context.Context) {
	ticker := time.NewTicker(h.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.flushBatch()
		default:
			// Blocking pop with a short timeout so cancellation is handled.
			rec, err := h.bus.DequeuePlay(ctx, 3*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				h.logger.Warnf("dequeue: %v", err)
				continue
			}
			if rec == nil {
				continue
			}
			h.lastActivity.Store(rec.GameID, time.Now())
			h.appendToBatch(*rec)
		}
	}
}

func (h *Historian) appendToBatch(rec pubsub.PlayRecord) {
	h.batchMu.Lock()
	h.batch = append(h.batch, rec)
	full := len(h.batch) >= h.batchSize
	h.batchMu.Unlock()
	if full {
		h.flushBatch()
	}
}

func (h *Historian) flushBatch() {
	h.batchMu.Lock()
	if len(h.batch) == 0 {
		h.batchMu.Unlock()
		return
	}
	batch := h.batch
	h.batch = nil
	h.batchMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.store.ArchivePlays(ctx, batch); err != nil {
		h.logger.Errorf("flush batch: %v", err)
		return
	}
	h.logger.Debugf("flushed %d plays to DB", len(batch))
}

func (h *Historian) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			h.lastActivity.Range(func(key, val interface{}) bool {
				gameID, ok1 := key.(uuid.UUID)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > h.inactivity {
					h.markAbandoned(gameID)
					h.lastActivity.Delete(gameID)
				}
				return true
			})
		}
	}
}

func (h *Historian) markAbandoned(gameID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	changed, err := h.store.MarkAbandoned(ctx, gameID)
	if err != nil {
		h.logger.Errorf("mark game %v abandoned: %v", gameID, err)
		return
	}
	if changed {
		h.logger.Infof("marked game %v finished due to inactivity", gameID)
	}
}

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.New(ctx, postgresDSN())
	if err != nil {
		logger.Fatalf("database connect: %v", err)
	}
	defer store.Close()

	bus, err := pubsub.New(getEnv("REDIS_ADDR", "localhost:6379"), getEnvInt("REDIS_DB", 0), os.Getenv("HISTORIAN_QUEUE_NAME"))
	if err != nil {
		logger.Fatalf("redis connect: %v", err)
	}
	defer bus.Close()

	newHistorian(store, bus, logger).run(ctx)
}

func postgresDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return "postgres://" + os.Getenv("POSTGRES_USER") + ":" + os.Getenv("POSTGRES_PASSWORD") +
		"@" + getEnv("PG_HOST", "localhost") + ":" + getEnv("PG_PORT", "5432") + "/" + os.Getenv("PG_DATABASE")
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

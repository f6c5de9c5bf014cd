// cmd/client/main.go is a headless game client: it joins a game over HTTP,
// subscribes to the game's change feed on Redis and runs a sync session that
// keeps a local snapshot reconciled with the server.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/mrtonymu/bigtwo-sub001/internal/client"
	"github.com/mrtonymu/bigtwo-sub001/internal/pubsub"
	gamesync "github.com/mrtonymu/bigtwo-sub001/internal/sync"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	gameID, err := uuid.Parse(os.Getenv("GAME_ID"))
	if err != nil {
		logger.Fatalf("GAME_ID must be a game uuid: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cl := client.New(getEnv("SERVER_URL", "http://localhost:8080"), gameID)
	if token := os.Getenv("SESSION_TOKEN"); token != "" {
		cl.SetToken(token)
	} else if err := cl.Join(ctx, getEnv("PLAYER_NAME", "observer"), getEnvBool("SPECTATE", true)); err != nil {
		logger.Fatalf("join game %v: %v", gameID, err)
	}

	bus, err := pubsub.New(getEnv("REDIS_ADDR", "localhost:6379"), getEnvInt("REDIS_DB", 0), "")
	if err != nil {
		logger.Fatalf("redis connect: %v", err)
	}
	defer bus.Close()

	sub, err := bus.Subscribe(ctx, gameID)
	if err != nil {
		logger.Fatalf("subscribe to game %v: %v", gameID, err)
	}

	sess := gamesync.NewSession(logger, cl, sub, gamesync.Options{})
	go sess.Run(ctx)
	defer sess.Close()

	logger.Infof("bigtwo-client following game %v", gameID)
	for {
		select {
		case <-ctx.Done():
			return
		case details := <-sess.Snapshots():
			logger.WithFields(logrus.Fields{
				"status":  details.State.Status,
				"turn":    details.State.TurnCount,
				"current": details.State.CurrentPlayer,
			}).Info("snapshot reconciled")
		case status := <-sess.StatusUpdates():
			logger.Infof("session status: %s", status)
			if status == gamesync.StatusFailed {
				logger.Error("sync session gave up, exiting")
				return
			}
		}
	}
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

func getEnvBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/mrtonymu/bigtwo-sub001/internal/auth"
	"github.com/mrtonymu/bigtwo-sub001/internal/database"
	"github.com/mrtonymu/bigtwo-sub001/internal/handlers"
	"github.com/mrtonymu/bigtwo-sub001/internal/middleware"
	"github.com/mrtonymu/bigtwo-sub001/internal/pubsub"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx := context.Background()

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

	keyring, err := auth.NewKeyring()
	if err != nil {
		logger.Fatalf("keyring init: %v", err)
	}

	srv := handlers.NewGameServer(store, bus, keyring, logger)

	mux := http.NewServeMux()

	mux.Handle("/game/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateGameHandler(srv),
	)))
	mux.Handle("/game/list", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListGamesHandler(srv),
	)))
	mux.Handle("/game/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameWSHandler(logger, srv),
	)))
	mux.Handle("/game/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameActionHandler(srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
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

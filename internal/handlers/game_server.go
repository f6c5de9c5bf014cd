// internal/handlers/game_server.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coder/websocket"
	"github.com/mrtonymu/bigtwo-sub001/internal/auth"
	"github.com/mrtonymu/bigtwo-sub001/internal/database"
	"github.com/mrtonymu/bigtwo-sub001/internal/game"
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
	"github.com/mrtonymu/bigtwo-sub001/internal/pubsub"
)

// persistTimeout bounds the storage commit of one accepted action.
const persistTimeout = 5 * time.Second

// GameServer owns the live game instances and their connections, and wires
// each instance to the store and the change feed. All dependencies are
// injected; the server holds no package-level state.
type GameServer struct {
	GameStore *game.GameStore
	Store     *database.Store
	Bus       *pubsub.Bus
	Keyring   *auth.Keyring
	Logger    *logrus.Logger

	connMu sync.Mutex
	// conns maps gameID -> viewer name -> live websocket.
	conns map[uuid.UUID]map[string]*websocket.Conn
}

func NewGameServer(store *database.Store, bus *pubsub.Bus, keyring *auth.Keyring, logger *logrus.Logger) *GameServer {
	return &GameServer{
		GameStore: game.NewGameStore(),
		Store:     store,
		Bus:       bus,
		Keyring:   keyring,
		Logger:    logger,
		conns:     make(map[uuid.UUID]map[string]*websocket.Conn),
	}
}

// NewGame builds a live instance wired for persistence and broadcast, and
// writes its initial rows.
func (gs *GameServer) NewGame(ctx context.Context, name, hostName string, rules models.HouseRules) (*game.BigTwoGame, *models.Player, error) {
	g := game.NewBigTwoGame(name)
	g.HouseRules = rules

	host, rej := g.AddPlayer(hostName, false)
	if rej != nil {
		return nil, nil, rej
	}

	g.PersistFn = gs.persistFunc(g)
	g.BroadcastFn = gs.broadcastFunc(g.ID)
	g.OnGameEnd = func(gameID uuid.UUID, winnerSeat int, winnerName string) {
		gs.Logger.WithFields(logrus.Fields{
			"game":   gameID,
			"seat":   winnerSeat,
			"winner": winnerName,
		}).Info("game finished")
	}

	row := &models.Game{
		ID:         g.ID,
		Name:       name,
		Status:     models.StatusWaiting,
		MaxPlayers: models.MaxSeats,
		HostName:   hostName,
		Rules:      rules,
	}
	if err := gs.Store.CreateGame(ctx, row, &g.State); err != nil {
		return nil, nil, err
	}
	if err := gs.Store.AddPlayer(ctx, host); err != nil {
		return nil, nil, err
	}

	gs.GameStore.AddGame(g)
	gs.publish(ctx, "games", g.ID)
	return g, host, nil
}

// persistFunc commits an accepted action: conditional state write fenced on
// the validated turn count, player hands, game row status, a play record
// for the historian, and a change hint for subscribers.
func (gs *GameServer) persistFunc(g *game.BigTwoGame) game.PersistFunc {
	return func(expectedTurn int, st models.GameState, players []*models.Player) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		err := gs.Store.UpdateGameStateCAS(ctx, g.ID, expectedTurn, &st)
		if err == database.ErrStaleTurn {
			// Another writer won this turn; the in-memory instance is the
			// authority on this node, so this indicates a split authority
			// and is worth surfacing loudly.
			gs.Logger.WithFields(logrus.Fields{
				"game": g.ID,
				"turn": expectedTurn,
			}).Error("state commit lost fencing race")
			return
		}
		if err != nil {
			gs.Logger.WithFields(logrus.Fields{"game": g.ID, "error": err}).Error("state commit failed")
			return
		}

		seats := make([]*models.Player, 0, len(players))
		for _, p := range players {
			if !p.IsSpectator {
				seats = append(seats, p)
			}
		}
		if err := gs.Store.UpdatePlayerHands(ctx, g.ID, seats); err != nil {
			gs.Logger.WithFields(logrus.Fields{"game": g.ID, "error": err}).Error("hand commit failed")
		}
		if err := gs.Store.UpdateGame(ctx, g.ID, st.Status); err != nil {
			gs.Logger.WithFields(logrus.Fields{"game": g.ID, "error": err}).Error("game row update failed")
		}

		if n := len(st.PlayHistory); n > 0 {
			last := st.PlayHistory[n-1]
			rec := pubsub.PlayRecord{
				GameID:    g.ID,
				Turn:      last.Turn,
				Player:    last.PlayerName,
				PlayType:  last.PlayType,
				Cards:     last.Cards,
				Timestamp: time.Now().UnixMilli(),
			}
			if err := gs.Bus.EnqueuePlay(ctx, rec); err != nil {
				gs.Logger.WithFields(logrus.Fields{"game": g.ID, "error": err}).Warn("play record enqueue failed")
			}
		}

		gs.publish(ctx, "game_states", g.ID)
	}
}

func (gs *GameServer) publish(ctx context.Context, table string, gameID uuid.UUID) {
	if err := gs.Bus.PublishChange(ctx, table, gameID); err != nil {
		gs.Logger.WithFields(logrus.Fields{"game": gameID, "table": table, "error": err}).Warn("change publish failed")
	}
}

// broadcastFunc pushes a game event to every websocket attached to the game.
func (gs *GameServer) broadcastFunc(gameID uuid.UUID) func(ev game.GameEvent) {
	return func(ev game.GameEvent) {
		data := marshalEvent(ev, gs.Logger)

		gs.connMu.Lock()
		viewers := make(map[string]*websocket.Conn, len(gs.conns[gameID]))
		for name, c := range gs.conns[gameID] {
			viewers[name] = c
		}
		gs.connMu.Unlock()

		for name, c := range viewers {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				gs.Logger.WithFields(logrus.Fields{
					"game":   gameID,
					"viewer": name,
					"error":  err,
				}).Warn("event write failed")
			}
			cancel()
		}
	}
}

func (gs *GameServer) registerConn(gameID uuid.UUID, viewer string, c *websocket.Conn) {
	gs.connMu.Lock()
	defer gs.connMu.Unlock()
	if gs.conns[gameID] == nil {
		gs.conns[gameID] = make(map[string]*websocket.Conn)
	}
	gs.conns[gameID][viewer] = c
}

func (gs *GameServer) unregisterConn(gameID uuid.UUID, viewer string, c *websocket.Conn) {
	gs.connMu.Lock()
	defer gs.connMu.Unlock()
	if cur, ok := gs.conns[gameID][viewer]; ok && cur == c {
		delete(gs.conns[gameID], viewer)
		if len(gs.conns[gameID]) == 0 {
			delete(gs.conns, gameID)
		}
	}
}

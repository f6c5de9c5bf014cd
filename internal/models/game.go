// internal/models/game.go
package models

import "github.com/google/uuid"

// GameStatus is the lifecycle state of a game row.
type GameStatus string

const (
	// StatusWaiting accepts joins; no turns are taken.
	StatusWaiting GameStatus = "waiting"
	// StatusInProgress means turns proceed until a win or a host abort.
	StatusInProgress GameStatus = "in_progress"
	// StatusFinished is terminal until an explicit reset re-deals.
	StatusFinished GameStatus = "finished"
)

// MaxSeats is the hard cap on active hands. The 52-card deck math assumes
// at most four players hold cards.
const MaxSeats = 4

// PlayType labels an entry in the play history.
type PlayType string

const (
	PlaySingle   PlayType = "single"
	PlayPair     PlayType = "pair"
	PlayTriple   PlayType = "triple"
	PlayFiveCard PlayType = "five_card_hand"
	PlayPass     PlayType = "pass"
)

// PlayEntry is one record of the append-only play history. Entries are
// ordered by Turn and never mutated retroactively; no two entries of a game
// share a Turn.
type PlayEntry struct {
	Turn       int      `json:"turn"`
	PlayerName string   `json:"playerName"`
	PlayType   PlayType `json:"playType"`
	Cards      []Card   `json:"cards,omitempty"`
}

// GameState is the single shared mutable document for a game. TurnCount
// increases by exactly one per accepted action and is the fencing token for
// every write (see database.UpdateGameStateCAS).
type GameState struct {
	GameID        uuid.UUID   `json:"game_id"`
	CurrentPlayer int         `json:"currentPlayer"`
	LastPlay      []Card      `json:"lastPlay"`
	LastPlayer    *int        `json:"lastPlayer,omitempty"`
	TurnCount     int         `json:"turnCount"`
	PlayHistory   []PlayEntry `json:"playHistory"`
	Status        GameStatus  `json:"status"`
	Winner        *int        `json:"winner,omitempty"`
}

// Game is the lobby-visible game row. One Game owns one GameState and a set
// of Player rows.
type Game struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Status     GameStatus `json:"status"`
	MaxPlayers int        `json:"maxPlayers"`
	HostName   string     `json:"hostName"`
	Players    int        `json:"currentPlayers"`
	Spectators int        `json:"spectators"`
	Rules      HouseRules `json:"options"`
}

// GameDetails is the joined read of a game: row, players and state together.
type GameDetails struct {
	Game    Game      `json:"game"`
	Players []*Player `json:"players"`
	State   GameState `json:"state"`
}

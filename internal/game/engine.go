// internal/game/engine.go
package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
)

// GameEventType is an enum-like type for broadcasting game actions.
type GameEventType string

const (
	EventGameStart    GameEventType = "game_start"
	EventPlayMade     GameEventType = "play_made"
	EventTurnPassed   GameEventType = "turn_passed"
	EventTrickCleared GameEventType = "trick_cleared"
	EventGameEnd      GameEventType = "game_end"
	EventGameReset    GameEventType = "game_reset"
	EventStateSync    GameEventType = "state_sync"
)

// GameEvent holds data about an event broadcast to the clients of a game.
type GameEvent struct {
	Type GameEventType `json:"type"`
	Seat *int          `json:"seat,omitempty"`
	Name string        `json:"name,omitempty"`
	// Cards carries the played cards for play_made events.
	Cards []models.Card `json:"cards,omitempty"`
	// State carries a viewer-neutral snapshot for state_sync and game_start.
	State   *PublicState           `json:"state,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// PersistFunc commits an accepted action to durable storage. expectedTurn is
// the fencing token the write must be conditioned on (the turn count the
// action was validated against).
type PersistFunc func(expectedTurn int, st models.GameState, players []*models.Player)

// OnGameEndFunc handles a finished game: broadcast results, release rows.
type OnGameEndFunc func(gameID uuid.UUID, winnerSeat int, winnerName string)

// BigTwoGame holds the authoritative state for a single game instance in
// memory. All mutation funnels through ApplyPlay/ApplyPass/Start/EndGame
// under Mu; the turn timer resolves expiring turns through the exact same
// ApplyPass path as a manual pass.
type BigTwoGame struct {
	ID   uuid.UUID
	Name string

	HouseRules models.HouseRules

	// Players is ordered by seat for the first activeSeats entries;
	// spectators follow with Position == models.SpectatorPosition.
	Players []*models.Player
	State   models.GameState

	HostSeat int

	// activeSeats is the number of card-holding seats fixed at deal time.
	activeSeats int
	// opened flips after the first accepted play of a deal.
	opened bool

	TurnDuration time.Duration
	turnTimer    *time.Timer

	rng *rand.Rand
	Mu  sync.Mutex

	// BroadcastFn is used to send events to all subscribers. Nil disables it.
	BroadcastFn func(ev GameEvent)
	// PersistFn commits accepted actions to the store. Nil disables it.
	PersistFn PersistFunc
	// OnGameEnd is invoked once when the game reaches finished.
	OnGameEnd OnGameEndFunc

	// corrupt is latched when deck conservation fails; every further
	// operation is refused until the host ends or resets the game.
	corrupt bool
}

// NewBigTwoGame builds an empty instance in waiting status.
func NewBigTwoGame(name string) *BigTwoGame {
	id, _ := uuid.NewRandom()
	g := &BigTwoGame{
		ID:         id,
		Name:       name,
		HouseRules: models.DefaultHouseRules(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		State: models.GameState{
			GameID: id,
			Status: models.StatusWaiting,
		},
	}
	return g
}

// AddPlayer seats a player, or registers a spectator when the table is full
// or spectate is requested. Names must be unique, non-empty and bounded.
func (g *BigTwoGame) AddPlayer(name string, spectate bool) (*models.Player, *Rejection) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if name == "" || len(name) > models.MaxNameLength {
		return nil, reject(CodeNotASeat, "player name must be 1..%d characters", models.MaxNameLength)
	}
	for _, p := range g.Players {
		if p.Name == name {
			return nil, reject(CodeNotASeat, "name %q is already taken in this game", name)
		}
	}

	seats := g.seatedCount()
	if spectate || g.State.Status != models.StatusWaiting || seats >= models.MaxSeats {
		p := &models.Player{
			ID:          uuid.New(),
			GameID:      g.ID,
			Name:        name,
			Position:    models.SpectatorPosition,
			IsSpectator: true,
		}
		g.Players = append(g.Players, p)
		return p, nil
	}

	p := &models.Player{
		ID:       uuid.New(),
		GameID:   g.ID,
		Name:     name,
		Position: seats,
	}
	// Seats stay contiguous at the front of Players.
	g.Players = append(g.Players, nil)
	copy(g.Players[seats+1:], g.Players[seats:])
	g.Players[seats] = p
	return p, nil
}

func (g *BigTwoGame) seatedCount() int {
	n := 0
	for _, p := range g.Players {
		if !p.IsSpectator {
			n++
		}
	}
	return n
}

// Start deals a fresh deck and moves the game to in_progress. With fewer
// than four seats the 3 of diamonds holder leads; with a full table seat 0
// leads and may open with any combination.
func (g *BigTwoGame) Start() *Rejection {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.State.Status != models.StatusWaiting {
		return reject(CodeNotInProgress, "game is %s, not waiting", g.State.Status)
	}
	seats := g.seatedCount()
	if seats < 2 {
		return reject(CodeNotEnoughPlayers, "need at least 2 players, have %d", seats)
	}

	hands, rej := Deal(g.rng, seats)
	if rej != nil {
		return rej
	}
	if rej := VerifyConservation(hands, nil); rej != nil {
		g.corrupt = true
		return rej
	}
	for seat := 0; seat < seats; seat++ {
		g.Players[seat].Hand = hands[seat]
	}
	g.activeSeats = seats
	g.opened = false

	opener := 0
	if seats < models.MaxSeats {
		opener = g.seatHolding(models.ThreeOfDiamonds())
	}

	g.State.Status = models.StatusInProgress
	g.State.CurrentPlayer = opener
	g.State.LastPlay = nil
	g.State.LastPlayer = nil
	g.State.TurnCount = 0
	g.State.PlayHistory = nil
	g.State.Winner = nil

	g.persistLocked(0)
	g.fire(GameEvent{Type: EventGameStart, Seat: &opener, State: g.publicStateLocked()})
	g.scheduleTurnTimerLocked()
	return nil
}

func (g *BigTwoGame) seatHolding(c models.Card) int {
	for seat := 0; seat < g.activeSeats; seat++ {
		if g.Players[seat].HasCard(c) {
			return seat
		}
	}
	return 0
}

// ApplyPlay validates and commits a play for the given seat. expectedTurn is
// the turn count the caller observed when the user acted; a mismatch is
// rejected as stale with no side effects (optimistic fencing, not a lock).
func (g *BigTwoGame) ApplyPlay(seat int, cards []models.Card, expectedTurn int) *Rejection {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if rej := g.fenceLocked(seat, expectedTurn); rej != nil {
		return rej
	}

	p := g.Players[seat]
	if !ownsAll(p, cards) {
		return reject(CodeCardsNotInHand, "play contains cards not in your hand")
	}
	handAfter := handWithout(p.Hand, cards)
	opening := !g.opened
	if rej := ValidatePlay(cards, g.State.LastPlay, g.activeSeats, handAfter, g.HouseRules, opening); rej != nil {
		return rej
	}

	// Commit.
	if !p.RemoveCards(cards) {
		return reject(CodeCardsNotInHand, "play contains cards not in your hand")
	}
	played := append([]models.Card{}, cards...)
	SortCards(played)
	g.opened = true
	g.State.LastPlay = played
	lp := seat
	g.State.LastPlayer = &lp
	g.State.PlayHistory = append(g.State.PlayHistory, models.PlayEntry{
		Turn:       g.State.TurnCount,
		PlayerName: p.Name,
		PlayType:   PlayTypeOf(Classify(played)),
		Cards:      played,
	})
	g.State.TurnCount++

	if len(p.Hand) == 0 {
		g.finishLocked(seat, expectedTurn)
		return nil
	}

	g.advanceTurnLocked()
	g.persistLocked(expectedTurn)
	g.fire(GameEvent{Type: EventPlayMade, Seat: &seat, Name: p.Name, Cards: played, State: g.publicStateLocked()})
	g.scheduleTurnTimerLocked()
	return nil
}

// ApplyPass validates and commits a pass under the same fencing rules as
// ApplyPlay. When every other active seat has passed since the last play,
// the table clears and the last player opens a new trick.
func (g *BigTwoGame) ApplyPass(seat int, expectedTurn int) *Rejection {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if rej := g.fenceLocked(seat, expectedTurn); rej != nil {
		return rej
	}
	if rej := ValidatePass(g.State.LastPlay, g.HouseRules); rej != nil {
		return rej
	}

	p := g.Players[seat]
	g.State.PlayHistory = append(g.State.PlayHistory, models.PlayEntry{
		Turn:       g.State.TurnCount,
		PlayerName: p.Name,
		PlayType:   models.PlayPass,
	})
	g.State.TurnCount++
	g.advanceTurnLocked()

	cleared := false
	if g.State.LastPlayer != nil && g.State.CurrentPlayer == *g.State.LastPlayer {
		// Everyone else passed since the last play: new trick.
		g.State.LastPlay = nil
		g.State.LastPlayer = nil
		cleared = true
	}

	g.persistLocked(expectedTurn)
	g.fire(GameEvent{Type: EventTurnPassed, Seat: &seat, Name: p.Name, State: g.publicStateLocked()})
	if cleared {
		cur := g.State.CurrentPlayer
		g.fire(GameEvent{Type: EventTrickCleared, Seat: &cur})
	}
	g.scheduleTurnTimerLocked()
	return nil
}

// EndGame force-finishes the game regardless of progress. Only the host
// seat may do this.
func (g *BigTwoGame) EndGame(seat int) *Rejection {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if seat != g.HostSeat {
		return reject(CodeNotHost, "only the host can end the game")
	}
	if g.State.Status == models.StatusFinished {
		return nil
	}
	g.stopTurnTimerLocked()
	g.State.Status = models.StatusFinished
	g.corrupt = false
	g.persistLocked(g.State.TurnCount)
	g.fire(GameEvent{Type: EventGameEnd, Payload: map[string]interface{}{"aborted": true}})
	return nil
}

// Reset returns a finished game to waiting so a new deal can start.
func (g *BigTwoGame) Reset(seat int) *Rejection {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if seat != g.HostSeat {
		return reject(CodeNotHost, "only the host can reset the game")
	}
	if g.State.Status != models.StatusFinished {
		return reject(CodeNotInProgress, "game is %s, not finished", g.State.Status)
	}
	g.stopTurnTimerLocked()
	for _, p := range g.Players {
		p.Hand = nil
	}
	g.corrupt = false
	g.opened = false
	// The stored row is still fenced on the finished game's turn count.
	prevTurn := g.State.TurnCount
	g.State = models.GameState{GameID: g.ID, Status: models.StatusWaiting}
	g.persistLocked(prevTurn)
	g.fire(GameEvent{Type: EventGameReset})
	return nil
}

// Hint suggests the lowest legal play for the seat, or nil when passing is
// the only option.
func (g *BigTwoGame) Hint(seat int) ([]models.Card, *Rejection) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.State.Status != models.StatusInProgress {
		return nil, reject(CodeNotInProgress, "game is %s", g.State.Status)
	}
	if seat < 0 || seat >= g.activeSeats {
		return nil, reject(CodeNotASeat, "seat %d is not an active seat", seat)
	}
	return FindHint(g.Players[seat].Hand, g.State.LastPlay, g.activeSeats, g.HouseRules, !g.opened), nil
}

// fenceLocked applies the shared preconditions of every mutating action:
// game in progress, deck sane, acting seat is current, and the caller's
// observed turn count matches the authoritative one.
func (g *BigTwoGame) fenceLocked(seat, expectedTurn int) *Rejection {
	if g.corrupt {
		return reject(CodeCorruptDeck, "game state failed deck reconciliation; host must end or reset")
	}
	if g.State.Status != models.StatusInProgress {
		return reject(CodeNotInProgress, "game is %s", g.State.Status)
	}
	if seat < 0 || seat >= g.activeSeats {
		return reject(CodeNotASeat, "seat %d is not an active seat", seat)
	}
	if seat != g.State.CurrentPlayer {
		return reject(CodeNotYourTurn, "it is seat %d's turn", g.State.CurrentPlayer)
	}
	if expectedTurn != g.State.TurnCount {
		return reject(CodeStaleTurn, "turn %d has already been taken (now at %d)", expectedTurn, g.State.TurnCount)
	}
	return nil
}

// advanceTurnLocked moves CurrentPlayer to the next seat still holding
// cards, in fixed rotation order.
func (g *BigTwoGame) advanceTurnLocked() {
	for i := 1; i <= g.activeSeats; i++ {
		next := (g.State.CurrentPlayer + i) % g.activeSeats
		if len(g.Players[next].Hand) > 0 {
			g.State.CurrentPlayer = next
			return
		}
	}
}

func (g *BigTwoGame) finishLocked(winner int, expectedTurn int) {
	g.stopTurnTimerLocked()
	g.State.Status = models.StatusFinished
	w := winner
	g.State.Winner = &w
	name := g.Players[winner].Name

	g.persistLocked(expectedTurn)
	g.fire(GameEvent{Type: EventGameEnd, Seat: &w, Name: name, State: g.publicStateLocked()})
	if g.OnGameEnd != nil {
		go g.OnGameEnd(g.ID, winner, name)
	}
}

// scheduleTurnTimerLocked arms the countdown for the current turn. On
// expiry the turn is resolved through ApplyPass; when passing is illegal
// (the seat is opening a trick) the hint play is submitted instead, so the
// timer never bypasses validation.
func (g *BigTwoGame) scheduleTurnTimerLocked() {
	g.stopTurnTimerLocked()
	if g.HouseRules.TurnTimerSec <= 0 || g.State.Status != models.StatusInProgress {
		return
	}
	d := g.TurnDuration
	if d == 0 {
		d = time.Duration(g.HouseRules.TurnTimerSec) * time.Second
	}
	seat := g.State.CurrentPlayer
	turn := g.State.TurnCount
	g.turnTimer = time.AfterFunc(d, func() {
		g.autoResolve(seat, turn)
	})
}

func (g *BigTwoGame) autoResolve(seat, turn int) {
	if rej := g.ApplyPass(seat, turn); rej == nil {
		return
	} else if rej.Code != CodeCannotPassOnOpen {
		// Stale or already resolved; nothing to do.
		return
	}
	g.Mu.Lock()
	hint := FindHint(g.Players[seat].Hand, g.State.LastPlay, g.activeSeats, g.HouseRules, !g.opened)
	g.Mu.Unlock()
	if hint != nil {
		g.ApplyPlay(seat, hint, turn)
	}
}

func (g *BigTwoGame) stopTurnTimerLocked() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
}

// persistLocked pushes the current snapshot through PersistFn, fenced on
// the turn count the action was validated against.
func (g *BigTwoGame) persistLocked(expectedTurn int) {
	if g.PersistFn == nil {
		return
	}
	st := g.snapshotStateLocked()
	players := make([]*models.Player, len(g.Players))
	for i, p := range g.Players {
		cp := *p
		cp.Hand = append([]models.Card{}, p.Hand...)
		players[i] = &cp
	}
	g.PersistFn(expectedTurn, st, players)
}

func (g *BigTwoGame) snapshotStateLocked() models.GameState {
	st := g.State
	st.LastPlay = append([]models.Card{}, g.State.LastPlay...)
	st.PlayHistory = append([]models.PlayEntry{}, g.State.PlayHistory...)
	if g.State.LastPlayer != nil {
		lp := *g.State.LastPlayer
		st.LastPlayer = &lp
	}
	if g.State.Winner != nil {
		w := *g.State.Winner
		st.Winner = &w
	}
	return st
}

func (g *BigTwoGame) fire(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// Close releases the turn timer. Call when the instance is evicted.
func (g *BigTwoGame) Close() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.stopTurnTimerLocked()
}

func ownsAll(p *models.Player, cards []models.Card) bool {
	used := make([]bool, len(p.Hand))
	for _, c := range cards {
		found := false
		for i, h := range p.Hand {
			if !used[i] && h.Equal(c) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func handWithout(hand, cards []models.Card) []models.Card {
	cp := models.Player{Hand: append([]models.Card{}, hand...)}
	cp.RemoveCards(cards)
	return cp.Hand
}

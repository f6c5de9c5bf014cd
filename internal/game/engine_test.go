// internal/game/engine_test.go
package game

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []GameEvent
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) ofType(t GameEventType) []GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []GameEvent
	for _, ev := range mb.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = nil
}

// persistRecorder captures every PersistFn invocation.
type persistRecorder struct {
	mu    sync.Mutex
	calls []persistCall
}

type persistCall struct {
	expectedTurn int
	state        models.GameState
}

func (pr *persistRecorder) persistFn(expectedTurn int, st models.GameState, players []*models.Player) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.calls = append(pr.calls, persistCall{expectedTurn: expectedTurn, state: st})
}

func (pr *persistRecorder) last() *persistCall {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if len(pr.calls) == 0 {
		return nil
	}
	return &pr.calls[len(pr.calls)-1]
}

// setupRiggedGame builds an in-progress game with fixed hands, bypassing the
// shuffle so turn-machine tests are deterministic. Seat 0 acts first.
func setupRiggedGame(t *testing.T, hands [][]models.Card) (*BigTwoGame, *mockBroadcaster) {
	t.Helper()
	g := NewBigTwoGame("test table")
	mb := &mockBroadcaster{}
	g.BroadcastFn = mb.broadcastFn

	names := []string{"alice", "bob", "carol", "dave"}
	for i := range hands {
		p, rej := g.AddPlayer(names[i], false)
		require.Nil(t, rej)
		p.Hand = append([]models.Card{}, hands[i]...)
	}
	g.activeSeats = len(hands)
	g.opened = true
	g.State.Status = models.StatusInProgress
	g.State.CurrentPlayer = 0
	return g, mb
}

func TestStartPicksThreeOfDiamondsOpener(t *testing.T) {
	g := NewBigTwoGame("three seats")
	mb := &mockBroadcaster{}
	g.BroadcastFn = mb.broadcastFn
	for _, name := range []string{"alice", "bob", "carol"} {
		_, rej := g.AddPlayer(name, false)
		require.Nil(t, rej)
	}

	require.Nil(t, g.Start())
	assert.Equal(t, models.StatusInProgress, g.State.Status)

	opener := g.State.CurrentPlayer
	assert.True(t, g.Players[opener].HasCard(models.ThreeOfDiamonds()),
		"with fewer than four seats the 3 of diamonds holder leads")

	// Uneven deal: 18/17/17, extras to the lowest seats.
	assert.Len(t, g.Players[0].Hand, 18)
	assert.Len(t, g.Players[1].Hand, 17)
	assert.Len(t, g.Players[2].Hand, 17)

	require.Len(t, mb.ofType(EventGameStart), 1)

	// The opener's first play must include the 3 of diamonds.
	var other models.Card
	for _, c := range g.Players[opener].Hand {
		if !c.Equal(models.ThreeOfDiamonds()) {
			other = c
			break
		}
	}
	rej := g.ApplyPlay(opener, []models.Card{other}, 0)
	require.NotNil(t, rej)
	assert.Equal(t, CodeMustOpenWithLow, rej.Code)

	require.Nil(t, g.ApplyPlay(opener, []models.Card{models.ThreeOfDiamonds()}, 0))
}

func TestStartFullTableSeatZeroLeads(t *testing.T) {
	g := NewBigTwoGame("full table")
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		_, rej := g.AddPlayer(name, false)
		require.Nil(t, rej)
	}
	require.Nil(t, g.Start())

	assert.Equal(t, 0, g.State.CurrentPlayer)
	for seat := 0; seat < 4; seat++ {
		assert.Len(t, g.Players[seat].Hand, 13)
	}

	// Seat 0 may open with any combination, not just the 3 of diamonds.
	low := sorted(g.Players[0].Hand)[0]
	require.Nil(t, g.ApplyPlay(0, []models.Card{low}, 0))
}

func TestApplyPlayFencing(t *testing.T) {
	g, _ := setupRiggedGame(t, [][]models.Card{
		{card(models.SuitHearts, "5"), card(models.SuitClubs, "8")},
		{card(models.SuitHearts, "6"), card(models.SuitClubs, "9")},
		{card(models.SuitHearts, "7"), card(models.SuitClubs, "10")},
	})

	// Acting out of turn is refused.
	rej := g.ApplyPlay(1, []models.Card{card(models.SuitHearts, "6")}, 0)
	require.NotNil(t, rej)
	assert.Equal(t, CodeNotYourTurn, rej.Code)

	// A wrong fencing token is refused before validation.
	rej = g.ApplyPlay(0, []models.Card{card(models.SuitHearts, "5")}, 3)
	require.NotNil(t, rej)
	assert.Equal(t, CodeStaleTurn, rej.Code)

	require.Nil(t, g.ApplyPlay(0, []models.Card{card(models.SuitHearts, "5")}, 0))
	assert.Equal(t, 1, g.State.TurnCount)
	assert.Equal(t, 1, g.State.CurrentPlayer)

	// A duplicate submission of the same action carries the old token and
	// lands as stale, with no state change.
	rej = g.ApplyPlay(0, []models.Card{card(models.SuitClubs, "8")}, 0)
	require.NotNil(t, rej)
	assert.Equal(t, CodeNotYourTurn, rej.Code)
	rej = g.ApplyPlay(1, []models.Card{card(models.SuitHearts, "6")}, 0)
	require.NotNil(t, rej)
	assert.Equal(t, CodeStaleTurn, rej.Code)
	assert.Equal(t, 1, g.State.TurnCount)
	assert.Len(t, g.State.PlayHistory, 1)
}

func TestApplyPlayRejectsForeignCards(t *testing.T) {
	g, _ := setupRiggedGame(t, [][]models.Card{
		{card(models.SuitHearts, "5")},
		{card(models.SuitHearts, "6")},
	})

	rej := g.ApplyPlay(0, []models.Card{card(models.SuitSpades, "A")}, 0)
	require.NotNil(t, rej)
	assert.Equal(t, CodeCardsNotInHand, rej.Code)
	assert.Len(t, g.Players[0].Hand, 1, "hand untouched after rejection")
}

func TestTrickClearsWhenAllOthersPass(t *testing.T) {
	g, mb := setupRiggedGame(t, [][]models.Card{
		{card(models.SuitHearts, "5"), card(models.SuitClubs, "8")},
		{card(models.SuitHearts, "6"), card(models.SuitClubs, "9")},
		{card(models.SuitHearts, "7"), card(models.SuitClubs, "10")},
	})

	require.Nil(t, g.ApplyPlay(0, []models.Card{card(models.SuitHearts, "5")}, 0))
	require.Nil(t, g.ApplyPass(1, 1))
	assert.NotNil(t, g.State.LastPlay, "trick stands while a player remains to act")

	require.Nil(t, g.ApplyPass(2, 2))

	assert.Nil(t, g.State.LastPlay, "table clears once every other seat passed")
	assert.Nil(t, g.State.LastPlayer)
	assert.Equal(t, 0, g.State.CurrentPlayer, "last player opens the new trick")
	require.Len(t, mb.ofType(EventTrickCleared), 1)

	// The new trick is open: seat 0 may play any shape, but may not pass.
	rej := g.ApplyPass(0, 3)
	require.NotNil(t, rej)
	assert.Equal(t, CodeCannotPassOnOpen, rej.Code)
	require.Nil(t, g.ApplyPlay(0, []models.Card{card(models.SuitClubs, "8")}, 3))
}

func TestWinFinishesGame(t *testing.T) {
	g, mb := setupRiggedGame(t, [][]models.Card{
		{card(models.SuitHearts, "5")},
		{card(models.SuitHearts, "6"), card(models.SuitClubs, "9")},
	})
	ended := make(chan string, 1)
	g.OnGameEnd = func(gameID uuid.UUID, winnerSeat int, winnerName string) {
		ended <- winnerName
	}

	require.Nil(t, g.ApplyPlay(0, []models.Card{card(models.SuitHearts, "5")}, 0))

	assert.Equal(t, models.StatusFinished, g.State.Status)
	require.NotNil(t, g.State.Winner)
	assert.Equal(t, 0, *g.State.Winner)
	require.Len(t, mb.ofType(EventGameEnd), 1)

	select {
	case name := <-ended:
		assert.Equal(t, "alice", name)
	case <-time.After(time.Second):
		t.Fatal("OnGameEnd was not invoked")
	}

	// No further actions once finished.
	rej := g.ApplyPlay(1, []models.Card{card(models.SuitHearts, "6")}, 1)
	require.NotNil(t, rej)
	assert.Equal(t, CodeNotInProgress, rej.Code)
}

func TestPersistCarriesFencingToken(t *testing.T) {
	g, _ := setupRiggedGame(t, [][]models.Card{
		{card(models.SuitHearts, "5"), card(models.SuitClubs, "8")},
		{card(models.SuitHearts, "6"), card(models.SuitClubs, "9")},
	})
	pr := &persistRecorder{}
	g.PersistFn = pr.persistFn

	require.Nil(t, g.ApplyPlay(0, []models.Card{card(models.SuitHearts, "5")}, 0))
	call := pr.last()
	require.NotNil(t, call)
	assert.Equal(t, 0, call.expectedTurn, "write is fenced on the turn the play was validated against")
	assert.Equal(t, 1, call.state.TurnCount)

	require.Nil(t, g.ApplyPass(1, 1))
	call = pr.last()
	require.NotNil(t, call)
	assert.Equal(t, 1, call.expectedTurn)
	assert.Equal(t, 2, call.state.TurnCount)
}

func TestEndAndResetAreHostOnly(t *testing.T) {
	g, mb := setupRiggedGame(t, [][]models.Card{
		{card(models.SuitHearts, "5")},
		{card(models.SuitHearts, "6")},
	})

	rej := g.EndGame(1)
	require.NotNil(t, rej)
	assert.Equal(t, CodeNotHost, rej.Code)

	require.Nil(t, g.EndGame(0))
	assert.Equal(t, models.StatusFinished, g.State.Status)

	rej = g.Reset(1)
	require.NotNil(t, rej)
	assert.Equal(t, CodeNotHost, rej.Code)

	require.Nil(t, g.Reset(0))
	assert.Equal(t, models.StatusWaiting, g.State.Status)
	assert.Equal(t, 0, g.State.TurnCount)
	assert.Empty(t, g.Players[0].Hand)
	require.Len(t, mb.ofType(EventGameReset), 1)

	// A reset table can deal again.
	require.Nil(t, g.Start())
	assert.Equal(t, models.StatusInProgress, g.State.Status)
}

func TestSpectatorsJoinWithoutSeats(t *testing.T) {
	g := NewBigTwoGame("busy table")
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		_, rej := g.AddPlayer(name, false)
		require.Nil(t, rej)
	}

	// A fifth join spectates: the table is full.
	p, rej := g.AddPlayer("eve", false)
	require.Nil(t, rej)
	assert.True(t, p.IsSpectator)
	assert.Equal(t, models.SpectatorPosition, p.Position)

	// Explicit spectate works even with seats free.
	g2 := NewBigTwoGame("quiet table")
	p, rej = g2.AddPlayer("walt", true)
	require.Nil(t, rej)
	assert.True(t, p.IsSpectator)

	// Duplicate names are refused.
	_, rej = g.AddPlayer("alice", false)
	require.NotNil(t, rej)
}

func TestSyncStateHidesOtherHands(t *testing.T) {
	g, _ := setupRiggedGame(t, [][]models.Card{
		{card(models.SuitHearts, "5"), card(models.SuitClubs, "8")},
		{card(models.SuitHearts, "6"), card(models.SuitClubs, "9")},
	})

	view := g.SyncStateFor("alice")
	require.NotNil(t, view)
	for _, p := range view.Players {
		if p.Name == "alice" {
			assert.Len(t, p.Hand, 2, "viewer sees their own cards")
		} else {
			assert.Nil(t, p.Hand, "opponent hands are sizes only")
			assert.Equal(t, 2, p.HandSize)
		}
	}
}

func TestTurnTimerAutoResolves(t *testing.T) {
	g, _ := setupRiggedGame(t, [][]models.Card{
		{card(models.SuitHearts, "5"), card(models.SuitClubs, "8")},
		{card(models.SuitHearts, "6"), card(models.SuitClubs, "9")},
	})
	g.HouseRules.TurnTimerSec = 30
	g.TurnDuration = 50 * time.Millisecond

	// Seat 0 plays; seat 1 lets the clock run out and is passed automatically.
	require.Nil(t, g.ApplyPlay(0, []models.Card{card(models.SuitHearts, "5")}, 0))
	time.Sleep(200 * time.Millisecond)

	g.Mu.Lock()
	defer g.Mu.Unlock()
	require.GreaterOrEqual(t, len(g.State.PlayHistory), 2)
	auto := g.State.PlayHistory[1]
	assert.Equal(t, models.PlayPass, auto.PlayType)
	assert.Equal(t, "bob", auto.PlayerName)
}

func TestTurnTimerPlaysHintWhenPassIsIllegal(t *testing.T) {
	g := NewBigTwoGame("timer table")
	g.HouseRules.TurnTimerSec = 30
	g.TurnDuration = 50 * time.Millisecond
	for _, name := range []string{"alice", "bob"} {
		_, rej := g.AddPlayer(name, false)
		require.Nil(t, rej)
	}

	// The opener cannot pass, so expiry submits the hint play instead.
	require.Nil(t, g.Start())
	time.Sleep(200 * time.Millisecond)

	g.Mu.Lock()
	defer g.Mu.Unlock()
	require.NotEmpty(t, g.State.PlayHistory)
	first := g.State.PlayHistory[0]
	assert.NotEqual(t, models.PlayPass, first.PlayType)
	assert.True(t, containsCard(first.Cards, models.ThreeOfDiamonds()),
		"an uneven deal opens on the 3 of diamonds")
}

func TestConcurrentPlaysOneWinsTheFence(t *testing.T) {
	g, _ := setupRiggedGame(t, [][]models.Card{
		{card(models.SuitHearts, "5"), card(models.SuitClubs, "8")},
		{card(models.SuitHearts, "6"), card(models.SuitClubs, "9")},
	})

	// Two submissions race for turn 0 from the same seat (a double-tap or a
	// reconnect replay). Exactly one may win.
	var wg sync.WaitGroup
	results := make([]*Rejection, 2)
	plays := [][]models.Card{
		{card(models.SuitHearts, "5")},
		{card(models.SuitClubs, "8")},
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.ApplyPlay(0, plays[i], 0)
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, rej := range results {
		if rej == nil {
			accepted++
		} else {
			assert.Contains(t, []RejectCode{CodeStaleTurn, CodeNotYourTurn}, rej.Code)
		}
	}
	assert.Equal(t, 1, accepted, "exactly one racer wins the turn")
	assert.Equal(t, 1, g.State.TurnCount, "turn count advances exactly once")
	assert.Len(t, g.State.PlayHistory, 1)
}

func TestFullTableRoundTrip(t *testing.T) {
	g := NewBigTwoGame("friday night")
	mb := &mockBroadcaster{}
	g.BroadcastFn = mb.broadcastFn
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		_, rej := g.AddPlayer(name, false)
		require.Nil(t, rej)
	}

	require.Nil(t, g.Start())
	require.Equal(t, 0, g.State.CurrentPlayer)

	opening := []models.Card{sorted(g.Players[0].Hand)[0]}
	require.Nil(t, g.ApplyPlay(0, opening, 0))
	assert.Equal(t, 1, g.State.TurnCount)
	assert.Equal(t, opening, g.State.LastPlay)
	assert.Equal(t, 1, g.State.CurrentPlayer)
	assert.Len(t, g.Players[0].Hand, 12)

	// The other three seats pass in turn; the table then clears back to the
	// opener for a fresh trick.
	require.Nil(t, g.ApplyPass(1, 1))
	require.Nil(t, g.ApplyPass(2, 2))
	require.Nil(t, g.ApplyPass(3, 3))

	assert.Nil(t, g.State.LastPlay)
	assert.Equal(t, 0, g.State.CurrentPlayer)
	assert.Equal(t, 4, g.State.TurnCount)
	require.Len(t, mb.ofType(EventTrickCleared), 1)

	// Every card is still accounted for across hands and history.
	hands := make([][]models.Card, 0, 4)
	for seat := 0; seat < 4; seat++ {
		hands = append(hands, g.Players[seat].Hand)
	}
	assert.Nil(t, VerifyConservation(hands, opening))
}

// internal/game/deck_test.go
package game

import (
	"math/rand"
	"testing"

	"github.com/mrtonymu/bigtwo-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealPartitionsFullDeck(t *testing.T) {
	tests := []struct {
		seats     int
		wantSizes []int
	}{
		{2, []int{26, 26}},
		{3, []int{18, 17, 17}},
		{4, []int{13, 13, 13, 13}},
	}
	for _, tc := range tests {
		rng := rand.New(rand.NewSource(42))
		hands, rej := Deal(rng, tc.seats)
		require.Nil(t, rej)
		require.Len(t, hands, tc.seats)
		for seat, want := range tc.wantSizes {
			assert.Len(t, hands[seat], want, "seat %d of %d", seat, tc.seats)
		}
		assert.Nil(t, VerifyConservation(hands, nil), "dealt hands must reconcile to one deck")
	}
}

func TestDealRejectsBadSeatCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, seats := range []int{0, 1, 5} {
		_, rej := Deal(rng, seats)
		require.NotNil(t, rej, "%d seats", seats)
		assert.Equal(t, CodeNotEnoughPlayers, rej.Code)
	}
}

func TestVerifyConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	hands, rej := Deal(rng, 4)
	require.Nil(t, rej)

	// Moving cards from a hand to the played pile still reconciles.
	played := hands[0][:3]
	hands[0] = hands[0][3:]
	assert.Nil(t, VerifyConservation(hands, played))

	// A missing card is fatal.
	short := [][]models.Card{hands[1], hands[2], hands[3]}
	rej = VerifyConservation(short, played)
	require.NotNil(t, rej)
	assert.Equal(t, CodeCorruptDeck, rej.Code)

	// A duplicated card is fatal even when the count is right.
	dup := make([][]models.Card, 4)
	for i := range hands {
		dup[i] = append([]models.Card{}, hands[i]...)
	}
	dup[1][0] = dup[2][0]
	rej = VerifyConservation(dup, played)
	require.NotNil(t, rej)
	assert.Equal(t, CodeCorruptDeck, rej.Code)
}

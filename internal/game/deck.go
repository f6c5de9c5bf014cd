// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/mrtonymu/bigtwo-sub001/internal/models"
)

// DeckSize is the number of cards in one physical deck.
const DeckSize = 52

// NewDeck builds the full 52-card deck in canonical order.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, s := range models.Suits {
		for _, r := range models.Ranks {
			deck = append(deck, models.NewCard(s, r))
		}
	}
	return deck
}

// Deal shuffles one deck and partitions it into seatCount hands. When 52
// does not divide evenly, the extra cards go to the lowest-indexed seats,
// so hand sizes differ by at most one.
func Deal(rng *rand.Rand, seatCount int) ([][]models.Card, *Rejection) {
	if seatCount < 2 || seatCount > models.MaxSeats {
		return nil, reject(CodeNotEnoughPlayers, "cannot deal to %d seats", seatCount)
	}

	deck := NewDeck()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	base := DeckSize / seatCount
	extra := DeckSize % seatCount
	hands := make([][]models.Card, seatCount)
	off := 0
	for seat := 0; seat < seatCount; seat++ {
		n := base
		if seat < extra {
			n++
		}
		hands[seat] = append([]models.Card{}, deck[off:off+n]...)
		off += n
	}
	return hands, nil
}

// VerifyConservation checks that the union of all hands plus the played
// cards reconciles to exactly one full deck. A failure is fatal for the
// game instance; no silent repair is attempted.
func VerifyConservation(hands [][]models.Card, played []models.Card) *Rejection {
	seen := make(map[models.Card]int, DeckSize)
	total := 0
	count := func(cs []models.Card) {
		for _, c := range cs {
			seen[models.Card{Suit: c.Suit, Rank: c.Rank}]++
			total++
		}
	}
	for _, h := range hands {
		count(h)
	}
	count(played)

	if total != DeckSize {
		return reject(CodeCorruptDeck, "deck reconciles to %d cards, want %d", total, DeckSize)
	}
	for c, n := range seen {
		if n != 1 {
			return reject(CodeCorruptDeck, "card %s of %s appears %d times", c.Rank, c.Suit, n)
		}
	}
	return nil
}

// internal/models/card.go
package models

import "fmt"

// Suit is one of the four French suits. The zero value is invalid.
type Suit string

const (
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitHearts   Suit = "hearts"
	SuitSpades   Suit = "spades"
)

// Suits lists all suits in ascending tie-break order.
var Suits = []Suit{SuitDiamonds, SuitClubs, SuitHearts, SuitSpades}

// Rank is the face label of a card: "3".."10", "J", "Q", "K", "A", "2".
type Rank string

// Ranks lists all ranks in ascending Big Two order. The 2 is the highest
// rank and the 3 the lowest; never compare face values directly.
var Ranks = []Rank{"3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "2"}

var rankOrder = func() map[Rank]int {
	m := make(map[Rank]int, len(Ranks))
	for i, r := range Ranks {
		m[r] = i
	}
	return m
}()

var suitOrder = map[Suit]int{
	SuitDiamonds: 0,
	SuitClubs:    1,
	SuitHearts:   2,
	SuitSpades:   3,
}

// Card is a single playing card. Display is the human label shown in clients.
type Card struct {
	Suit    Suit   `json:"suit"`
	Rank    Rank   `json:"rank"`
	Display string `json:"display,omitempty"`
}

// NewCard builds a card with its display label filled in.
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank, Display: fmt.Sprintf("%s of %s", rank, suit)}
}

// RankValue maps a rank to its position in the Big Two order 3..K, A, 2.
// RankValue("2") is maximal. Unknown ranks map to -1.
func RankValue(r Rank) int {
	v, ok := rankOrder[r]
	if !ok {
		return -1
	}
	return v
}

// SuitValue maps a suit to its tie-break position, diamonds lowest and
// spades highest. Unknown suits map to -1.
func SuitValue(s Suit) int {
	v, ok := suitOrder[s]
	if !ok {
		return -1
	}
	return v
}

// Power is the absolute comparison value of a card: rank first, suit as
// tie-break. Two cards never share a power within one deck.
func (c Card) Power() int {
	return RankValue(c.Rank)*4 + SuitValue(c.Suit)
}

// Equal reports whether two cards are the same physical card.
func (c Card) Equal(o Card) bool {
	return c.Suit == o.Suit && c.Rank == o.Rank
}

// ThreeOfDiamonds is the mandatory opener for games with fewer than four
// active seats.
func ThreeOfDiamonds() Card {
	return NewCard(SuitDiamonds, "3")
}

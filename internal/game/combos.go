// internal/game/combos.go
package game

import (
	"sort"

	"github.com/mrtonymu/bigtwo-sub001/internal/models"
)

// ComboKind classifies a legal play shape.
type ComboKind string

const (
	ComboInvalid       ComboKind = ""
	ComboSingle        ComboKind = "single"
	ComboPair          ComboKind = "pair"
	ComboTriple        ComboKind = "triple"
	ComboStraight      ComboKind = "straight"
	ComboFlush         ComboKind = "flush"
	ComboFullHouse     ComboKind = "full_house"
	ComboFourOfAKind   ComboKind = "four_of_a_kind"
	ComboStraightFlush ComboKind = "straight_flush"
)

// fiveCardRank orders the five-card kinds among themselves, ascending.
// A higher kind beats any lower kind regardless of card ranks.
var fiveCardRank = map[ComboKind]int{
	ComboStraight:      0,
	ComboFlush:         1,
	ComboFullHouse:     2,
	ComboFourOfAKind:   3,
	ComboStraightFlush: 4,
}

// Ordering is the result of comparing two classified hands.
type Ordering int

const (
	Less Ordering = iota - 1
	Incomparable
	Greater
)

// SortCards sorts ascending by power (rank, then suit).
func SortCards(cards []models.Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Power() < cards[j].Power()
	})
}

// sorted returns an ascending copy, leaving the input untouched.
func sorted(cards []models.Card) []models.Card {
	out := make([]models.Card, len(cards))
	copy(out, cards)
	SortCards(out)
	return out
}

// Classify determines the combination kind of a set of 1, 2, 3 or 5 cards.
// Any other shape, and any malformed set, classifies as ComboInvalid.
func Classify(cards []models.Card) ComboKind {
	switch len(cards) {
	case 1:
		if models.RankValue(cards[0].Rank) < 0 || models.SuitValue(cards[0].Suit) < 0 {
			return ComboInvalid
		}
		return ComboSingle
	case 2:
		if cards[0].Rank == cards[1].Rank && !cards[0].Equal(cards[1]) {
			return ComboPair
		}
		return ComboInvalid
	case 3:
		if cards[0].Rank == cards[1].Rank && cards[1].Rank == cards[2].Rank {
			return ComboTriple
		}
		return ComboInvalid
	case 5:
		return classifyFive(sorted(cards))
	}
	return ComboInvalid
}

func classifyFive(cs []models.Card) ComboKind {
	straight := isStraight(cs)
	flush := true
	for _, c := range cs[1:] {
		if c.Suit != cs[0].Suit {
			flush = false
			break
		}
	}
	switch {
	case straight && flush:
		return ComboStraightFlush
	case straight:
		return ComboStraight
	case flush:
		return ComboFlush
	}
	// Sorted by rank, so a full house is aabbb/aaabb and quads are aaaab/abbbb.
	counts := rankRuns(cs)
	switch {
	case len(counts) == 2 && (counts[0] == 2 || counts[0] == 3):
		return ComboFullHouse
	case len(counts) == 2 && (counts[0] == 1 || counts[0] == 4):
		return ComboFourOfAKind
	}
	return ComboInvalid
}

// rankRuns returns the run lengths of equal ranks in a sorted hand.
func rankRuns(cs []models.Card) []int {
	var runs []int
	n := 1
	for i := 1; i < len(cs); i++ {
		if cs[i].Rank == cs[i-1].Rank {
			n++
			continue
		}
		runs = append(runs, n)
		n = 1
	}
	return append(runs, n)
}

// isStraight reports whether five rank-sorted cards form a straight.
//
// Besides five consecutive rank values, the wheel A-2-3-4-5 is a straight
// even though 2 sorts above A here, so it needs its own check. 10-J-Q-K-A is
// covered by the consecutive rule. 2-3-4-5-6 and J-Q-K-A-2 are intentionally
// NOT straights: the 2 only participates via the wheel.
func isStraight(cs []models.Card) bool {
	if isWheel(cs) {
		return true
	}
	for i := 1; i < len(cs); i++ {
		if models.RankValue(cs[i].Rank) != models.RankValue(cs[i-1].Rank)+1 {
			return false
		}
	}
	return true
}

func isWheel(cs []models.Card) bool {
	want := []models.Rank{"3", "4", "5", "A", "2"}
	for i, r := range want {
		if cs[i].Rank != r {
			return false
		}
	}
	return true
}

// keyCard is the card a combination compares by: the highest card for
// singles, pairs, triples, straights and flushes; the highest card of the
// dominant group for full houses and quads. For the wheel the 5 is the key,
// not the 2, so A-2-3-4-5 is the lowest straight.
func keyCard(kind ComboKind, cs []models.Card) models.Card {
	switch kind {
	case ComboFullHouse, ComboFourOfAKind:
		// Dominant group is whichever rank repeats most; sorted order puts
		// a run of it at the front or the back.
		runs := rankRuns(cs)
		if runs[0] > runs[1] {
			return cs[runs[0]-1]
		}
		return cs[len(cs)-1]
	case ComboStraight, ComboStraightFlush:
		if isWheel(cs) {
			return cs[2] // the 5
		}
		return cs[len(cs)-1]
	default:
		return cs[len(cs)-1]
	}
}

// Compare orders two hands. Hands of different cardinality are incomparable.
// Equal kinds compare by key card power. Five-card hands of different kinds
// follow the fixed kind order: straight < flush < full house < four of a
// kind < straight flush. A pair never beats a single, and so on.
func Compare(a, b []models.Card) Ordering {
	if len(a) != len(b) {
		return Incomparable
	}
	ka, kb := Classify(a), Classify(b)
	if ka == ComboInvalid || kb == ComboInvalid {
		return Incomparable
	}
	as, bs := sorted(a), sorted(b)
	if ka != kb {
		ra, aok := fiveCardRank[ka]
		rb, bok := fiveCardRank[kb]
		if !aok || !bok {
			return Incomparable
		}
		if ra > rb {
			return Greater
		}
		return Less
	}
	pa := keyCard(ka, as).Power()
	pb := keyCard(kb, bs).Power()
	switch {
	case pa > pb:
		return Greater
	case pa < pb:
		return Less
	}
	return Incomparable
}

// PlayTypeOf maps a combination kind to its history label.
func PlayTypeOf(kind ComboKind) models.PlayType {
	switch kind {
	case ComboSingle:
		return models.PlaySingle
	case ComboPair:
		return models.PlayPair
	case ComboTriple:
		return models.PlayTriple
	default:
		return models.PlayFiveCard
	}
}

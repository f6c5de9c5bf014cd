// internal/game/combos_test.go
package game

import (
	"testing"

	"github.com/mrtonymu/bigtwo-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(s models.Suit, r models.Rank) models.Card {
	return models.NewCard(s, r)
}

func TestPowerOrdering(t *testing.T) {
	low := card(models.SuitDiamonds, "3")
	high := card(models.SuitSpades, "2")

	assert.Equal(t, 0, low.Power(), "3 of diamonds is the weakest card")
	assert.Equal(t, 51, high.Power(), "2 of spades is the strongest card")

	// Rank dominates suit: the weakest 4 still beats the strongest 3.
	assert.Greater(t, card(models.SuitDiamonds, "4").Power(), card(models.SuitSpades, "3").Power())

	// Suit breaks rank ties: diamonds < clubs < hearts < spades.
	assert.Greater(t, card(models.SuitClubs, "9").Power(), card(models.SuitDiamonds, "9").Power())
	assert.Greater(t, card(models.SuitHearts, "9").Power(), card(models.SuitClubs, "9").Power())
	assert.Greater(t, card(models.SuitSpades, "9").Power(), card(models.SuitHearts, "9").Power())
}

func TestClassifySmallShapes(t *testing.T) {
	assert.Equal(t, ComboSingle, Classify([]models.Card{card(models.SuitHearts, "7")}))

	assert.Equal(t, ComboPair, Classify([]models.Card{
		card(models.SuitHearts, "7"), card(models.SuitSpades, "7"),
	}))
	assert.Equal(t, ComboInvalid, Classify([]models.Card{
		card(models.SuitHearts, "7"), card(models.SuitSpades, "8"),
	}), "mismatched ranks are not a pair")
	assert.Equal(t, ComboInvalid, Classify([]models.Card{
		card(models.SuitHearts, "7"), card(models.SuitHearts, "7"),
	}), "a duplicated card is not a pair")

	assert.Equal(t, ComboTriple, Classify([]models.Card{
		card(models.SuitHearts, "J"), card(models.SuitSpades, "J"), card(models.SuitClubs, "J"),
	}))

	// Four cards are never a playable shape.
	assert.Equal(t, ComboInvalid, Classify([]models.Card{
		card(models.SuitHearts, "J"), card(models.SuitSpades, "J"),
		card(models.SuitClubs, "J"), card(models.SuitDiamonds, "J"),
	}))
}

func TestClassifyFiveCard(t *testing.T) {
	tests := []struct {
		name  string
		cards []models.Card
		want  ComboKind
	}{
		{
			"plain straight",
			[]models.Card{
				card(models.SuitHearts, "5"), card(models.SuitClubs, "6"), card(models.SuitSpades, "7"),
				card(models.SuitDiamonds, "8"), card(models.SuitHearts, "9"),
			},
			ComboStraight,
		},
		{
			"ten to ace straight",
			[]models.Card{
				card(models.SuitHearts, "10"), card(models.SuitClubs, "J"), card(models.SuitSpades, "Q"),
				card(models.SuitDiamonds, "K"), card(models.SuitHearts, "A"),
			},
			ComboStraight,
		},
		{
			"wheel counts as a straight",
			[]models.Card{
				card(models.SuitHearts, "A"), card(models.SuitClubs, "2"), card(models.SuitSpades, "3"),
				card(models.SuitDiamonds, "4"), card(models.SuitHearts, "5"),
			},
			ComboStraight,
		},
		{
			"two through six is not a straight",
			[]models.Card{
				card(models.SuitHearts, "2"), card(models.SuitClubs, "3"), card(models.SuitSpades, "4"),
				card(models.SuitDiamonds, "5"), card(models.SuitHearts, "6"),
			},
			ComboInvalid,
		},
		{
			"jack to two is not a straight",
			[]models.Card{
				card(models.SuitHearts, "J"), card(models.SuitClubs, "Q"), card(models.SuitSpades, "K"),
				card(models.SuitDiamonds, "A"), card(models.SuitHearts, "2"),
			},
			ComboInvalid,
		},
		{
			"flush",
			[]models.Card{
				card(models.SuitHearts, "3"), card(models.SuitHearts, "6"), card(models.SuitHearts, "9"),
				card(models.SuitHearts, "J"), card(models.SuitHearts, "K"),
			},
			ComboFlush,
		},
		{
			"full house",
			[]models.Card{
				card(models.SuitHearts, "8"), card(models.SuitClubs, "8"), card(models.SuitSpades, "8"),
				card(models.SuitDiamonds, "K"), card(models.SuitHearts, "K"),
			},
			ComboFullHouse,
		},
		{
			"four of a kind with kicker",
			[]models.Card{
				card(models.SuitHearts, "9"), card(models.SuitClubs, "9"), card(models.SuitSpades, "9"),
				card(models.SuitDiamonds, "9"), card(models.SuitHearts, "3"),
			},
			ComboFourOfAKind,
		},
		{
			"straight flush",
			[]models.Card{
				card(models.SuitClubs, "5"), card(models.SuitClubs, "6"), card(models.SuitClubs, "7"),
				card(models.SuitClubs, "8"), card(models.SuitClubs, "9"),
			},
			ComboStraightFlush,
		},
		{
			"garbage",
			[]models.Card{
				card(models.SuitClubs, "3"), card(models.SuitHearts, "5"), card(models.SuitClubs, "7"),
				card(models.SuitClubs, "9"), card(models.SuitSpades, "J"),
			},
			ComboInvalid,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.cards))
		})
	}
}

func TestCompareSameKind(t *testing.T) {
	// Higher pair wins regardless of suits.
	lowPair := []models.Card{card(models.SuitHearts, "9"), card(models.SuitSpades, "9")}
	highPair := []models.Card{card(models.SuitDiamonds, "Q"), card(models.SuitClubs, "Q")}
	assert.Equal(t, Greater, Compare(highPair, lowPair))
	assert.Equal(t, Less, Compare(lowPair, highPair))

	// Equal-rank pairs tie-break on the stronger suit in the pair.
	spadePair := []models.Card{card(models.SuitDiamonds, "9"), card(models.SuitSpades, "9")}
	heartPair := []models.Card{card(models.SuitClubs, "9"), card(models.SuitHearts, "9")}
	assert.Equal(t, Greater, Compare(spadePair, heartPair))

	// Full houses compare by the triple, not the pair.
	kingsFullOfThrees := []models.Card{
		card(models.SuitHearts, "K"), card(models.SuitClubs, "K"), card(models.SuitSpades, "K"),
		card(models.SuitDiamonds, "3"), card(models.SuitHearts, "3"),
	}
	foursFullOfAces := []models.Card{
		card(models.SuitHearts, "4"), card(models.SuitClubs, "4"), card(models.SuitSpades, "4"),
		card(models.SuitDiamonds, "A"), card(models.SuitHearts, "A"),
	}
	assert.Equal(t, Greater, Compare(kingsFullOfThrees, foursFullOfAces))

	// The wheel is the lowest straight: its key card is the 5.
	wheel := []models.Card{
		card(models.SuitHearts, "A"), card(models.SuitClubs, "2"), card(models.SuitSpades, "3"),
		card(models.SuitDiamonds, "4"), card(models.SuitHearts, "5"),
	}
	threeToSeven := []models.Card{
		card(models.SuitHearts, "3"), card(models.SuitClubs, "4"), card(models.SuitSpades, "5"),
		card(models.SuitDiamonds, "6"), card(models.SuitClubs, "7"),
	}
	assert.Equal(t, Less, Compare(wheel, threeToSeven))
}

func TestCompareAcrossFiveCardKinds(t *testing.T) {
	straight := []models.Card{
		card(models.SuitHearts, "9"), card(models.SuitClubs, "10"), card(models.SuitSpades, "J"),
		card(models.SuitDiamonds, "Q"), card(models.SuitHearts, "K"),
	}
	flush := []models.Card{
		card(models.SuitClubs, "3"), card(models.SuitClubs, "5"), card(models.SuitClubs, "7"),
		card(models.SuitClubs, "9"), card(models.SuitClubs, "J"),
	}
	fullHouse := []models.Card{
		card(models.SuitHearts, "4"), card(models.SuitClubs, "4"), card(models.SuitSpades, "4"),
		card(models.SuitDiamonds, "6"), card(models.SuitHearts, "6"),
	}
	quads := []models.Card{
		card(models.SuitHearts, "5"), card(models.SuitClubs, "5"), card(models.SuitSpades, "5"),
		card(models.SuitDiamonds, "5"), card(models.SuitHearts, "8"),
	}
	straightFlush := []models.Card{
		card(models.SuitDiamonds, "3"), card(models.SuitDiamonds, "4"), card(models.SuitDiamonds, "5"),
		card(models.SuitDiamonds, "6"), card(models.SuitDiamonds, "7"),
	}

	// A higher kind beats any lower kind no matter the card ranks.
	assert.Equal(t, Greater, Compare(flush, straight))
	assert.Equal(t, Greater, Compare(fullHouse, flush))
	assert.Equal(t, Greater, Compare(quads, fullHouse))
	assert.Equal(t, Greater, Compare(straightFlush, quads))
	assert.Equal(t, Less, Compare(straight, straightFlush))
}

func TestCompareIncomparable(t *testing.T) {
	single := []models.Card{card(models.SuitSpades, "2")}
	pair := []models.Card{card(models.SuitHearts, "3"), card(models.SuitSpades, "3")}

	// Different cardinality never compares, even the strongest single.
	assert.Equal(t, Incomparable, Compare(single, pair))
	assert.Equal(t, Incomparable, Compare(pair, single))

	// Identical key power is a tie, which cannot beat.
	require.Equal(t, Incomparable, Compare(single, single))
}

func TestFindHint(t *testing.T) {
	hand := []models.Card{
		card(models.SuitSpades, "2"),
		card(models.SuitHearts, "9"),
		card(models.SuitClubs, "9"),
		card(models.SuitDiamonds, "4"),
	}
	rules := models.DefaultHouseRules()

	// Against a single, the lowest beating single is suggested.
	hint := FindHint(hand, []models.Card{card(models.SuitSpades, "7")}, 4, rules, false)
	require.Len(t, hint, 1)
	assert.True(t, hint[0].Equal(card(models.SuitClubs, "9")))

	// Against a pair, only the nines qualify.
	hint = FindHint(hand, []models.Card{card(models.SuitHearts, "8"), card(models.SuitSpades, "8")}, 4, rules, false)
	require.Len(t, hint, 2)
	assert.Equal(t, ComboPair, Classify(hint))

	// Nothing beats a pair of twos here.
	hint = FindHint(hand, []models.Card{card(models.SuitHearts, "2"), card(models.SuitClubs, "2")}, 4, rules, false)
	assert.Nil(t, hint)

	// Opening the trick suggests the lowest single.
	hint = FindHint(hand, nil, 4, rules, false)
	require.Len(t, hint, 1)
	assert.True(t, hint[0].Equal(card(models.SuitDiamonds, "4")))
}

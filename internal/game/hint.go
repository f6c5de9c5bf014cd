// internal/game/hint.go
package game

import (
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
)

// FindHint returns the lowest legal play for a hand against the table, or
// nil when no legal play exists (the player should pass). The search tries
// every subset of the required size and keeps the weakest legal one, so the
// result always satisfies ValidatePlay.
func FindHint(hand, lastPlay []models.Card, activePlayers int, rules models.HouseRules, opening bool) []models.Card {
	size := len(lastPlay)
	var best []models.Card
	consider := func(cand []models.Card) {
		after := handWithout(hand, cand)
		if ValidatePlay(cand, lastPlay, activePlayers, after, rules, opening) != nil {
			return
		}
		if best == nil || Compare(best, cand) == Greater {
			best = append([]models.Card{}, cand...)
		}
	}

	sortedHand := sorted(hand)
	if size == 0 {
		// Opening a trick: prefer the lowest single; fall back to larger
		// shapes only if the lone-spade guard blocks every single.
		for _, n := range []int{1, 2, 3, 5} {
			eachCombination(sortedHand, n, consider)
			if best != nil {
				return best
			}
		}
		return nil
	}
	eachCombination(sortedHand, size, consider)
	return best
}

// eachCombination visits every size-n subset of cards.
func eachCombination(cards []models.Card, n int, visit func([]models.Card)) {
	if n > len(cards) {
		return
	}
	idx := make([]int, n)
	var walk func(start, depth int)
	cand := make([]models.Card, n)
	walk = func(start, depth int) {
		if depth == n {
			for i, j := range idx {
				cand[i] = cards[j]
			}
			visit(cand)
			return
		}
		for i := start; i <= len(cards)-(n-depth); i++ {
			idx[depth] = i
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
	return
}

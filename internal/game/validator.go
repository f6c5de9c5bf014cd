// internal/game/validator.go
package game

import (
	"github.com/mrtonymu/bigtwo-sub001/internal/models"
)

// ValidatePlay decides whether a proposed set of cards is a legal play
// against the current table. It is pure: all side effects happen in the
// engine after validation succeeds.
//
//   - proposed: the cards the player wants to lay down
//   - lastPlay: the play currently on the table (nil/empty when opening a trick)
//   - activePlayers: number of non-spectator seats holding cards at deal time
//   - handAfter: the player's remaining hand if the play were accepted
//   - opening: true only for the very first play of a fresh deal
//
// A nil return means the play is legal.
func ValidatePlay(proposed, lastPlay []models.Card, activePlayers int, handAfter []models.Card, rules models.HouseRules, opening bool) *Rejection {
	if len(proposed) == 0 {
		return reject(CodeInvalidCombo, "a play must contain at least one card")
	}
	kind := Classify(proposed)
	if kind == ComboInvalid {
		return reject(CodeInvalidCombo, "%d card(s) do not form a playable combination", len(proposed))
	}

	// With fewer than four seats the deal is uneven, so the 3 of diamonds
	// deterministically opens the game. A full table may open with anything.
	if opening && activePlayers < models.MaxSeats {
		if !containsCard(proposed, models.ThreeOfDiamonds()) {
			return reject(CodeMustOpenWithLow, "the first play must include the 3 of diamonds")
		}
	}

	if len(lastPlay) > 0 {
		if len(proposed) != len(lastPlay) {
			return reject(CodeMustBeatLastPlay, "play %d card(s) to match the last play", len(lastPlay))
		}
		if Compare(proposed, lastPlay) != Greater {
			return reject(CodeMustBeatLastPlay, "your %s does not beat the last play", kind)
		}
	}

	// House rule: a hand may not be left holding only a spade, since a lone
	// spade single is trivially unbeatable to finish on.
	if rules.NoLoneSpadeFinish && len(handAfter) == 1 && handAfter[0].Suit == models.SuitSpades {
		return reject(CodeLoneSpadeFinish, "this play would leave a lone spade as your final card")
	}

	return nil
}

// ValidatePass decides whether a pass is legal given the table state.
func ValidatePass(lastPlay []models.Card, rules models.HouseRules) *Rejection {
	if len(lastPlay) == 0 && !rules.PassOnOpenAllowed {
		return reject(CodeCannotPassOnOpen, "you are opening the trick and must play")
	}
	return nil
}

func containsCard(cards []models.Card, want models.Card) bool {
	for _, c := range cards {
		if c.Equal(want) {
			return true
		}
	}
	return false
}

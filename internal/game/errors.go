// internal/game/errors.go
package game

import "fmt"

// RejectCode is a machine-readable reason for refusing an operation. Codes
// are stable; the UI layer maps them to localized messages.
type RejectCode string

const (
	CodeNotYourTurn      RejectCode = "not_your_turn"
	CodeStaleTurn        RejectCode = "stale_turn"
	CodeInvalidCombo     RejectCode = "invalid_combination"
	CodeMustBeatLastPlay RejectCode = "must_beat_last_play"
	CodeMustOpenWithLow  RejectCode = "must_open_with_three_of_diamonds"
	CodeLoneSpadeFinish  RejectCode = "cannot_leave_lone_spade"
	CodeCannotPassOnOpen RejectCode = "cannot_pass_on_open"
	CodeNotInProgress    RejectCode = "game_not_in_progress"
	CodeNotEnoughPlayers RejectCode = "not_enough_players"
	CodeNotHost          RejectCode = "not_host"
	CodeNotASeat         RejectCode = "not_a_seat"
	CodeCardsNotInHand   RejectCode = "cards_not_in_hand"
	CodeCorruptDeck      RejectCode = "corrupt_deck"
)

// Rejection refuses a single operation, leaving state untouched. It is
// always recoverable by the caller except for CodeCorruptDeck, which marks
// the game instance unrecoverable.
type Rejection struct {
	Code    RejectCode `json:"code"`
	Message string     `json:"message"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Fatal reports whether the rejection is a data-integrity failure that the
// host must resolve by ending or resetting the game.
func (r *Rejection) Fatal() bool {
	return r.Code == CodeCorruptDeck
}

func reject(code RejectCode, format string, args ...interface{}) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

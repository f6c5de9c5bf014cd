// internal/models/house_rules.go
package models

// HouseRules captures the per-game rule options chosen at creation time.
// These are variant choices, not universal Big Two law; validation consults
// them instead of hardcoding either behavior.
type HouseRules struct {
	// NoLoneSpadeFinish rejects a play that would leave a single spade as
	// the player's last card.
	NoLoneSpadeFinish bool `json:"noLoneSpadeFinish"`

	// PassOnOpenAllowed permits passing while the table is clear (the
	// passer is the trick opener). Off by default: the opener must play.
	PassOnOpenAllowed bool `json:"passOnOpenAllowed"`

	// TurnTimerSec is how many seconds a player has before the turn is
	// auto-resolved (0 => no limit).
	TurnTimerSec int `json:"turnTimerSec"`
}

// DefaultHouseRules returns the standard ruleset.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		NoLoneSpadeFinish: true,
		PassOnOpenAllowed: false,
		TurnTimerSec:      0,
	}
}

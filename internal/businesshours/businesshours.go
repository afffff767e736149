// Package businesshours implements §6's business-hours predicate: the Idle
// Gate that determines whether the Engine should be actively parsing or
// sleeping with output resources closed (§4/§2's "Idle/Business-Hours
// Gate").
package businesshours

import "time"

// Gate reports whether the current wall-clock hour falls within
// [OpeningHour, ClosingHour). Both bounds are 24h integers in [0, 24).
type Gate struct {
	OpeningHour int
	ClosingHour int
}

// New returns a Gate for the given opening/closing hours.
func New(opening, closing int) Gate {
	return Gate{OpeningHour: opening, ClosingHour: closing}
}

// IsOpen reports whether t falls within business hours. A closing hour less
// than or equal to the opening hour is treated as wrapping past midnight
// (e.g. opening 8, closing 2 means open 08:00-02:00).
func (g Gate) IsOpen(t time.Time) bool {
	h := t.Hour()
	if g.ClosingHour > g.OpeningHour {
		return h >= g.OpeningHour && h < g.ClosingHour
	}
	return h >= g.OpeningHour || h < g.ClosingHour
}

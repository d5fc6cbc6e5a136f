// Package authority applies judgment deltas to the player's authority
// scalar and records them in an append-only ledger.
//
// The judge persona claims authority has "no hard max" while the original
// simulator clamped to [0, 100]. The ledger clamps to a configured closed
// range, defaulting to [0, 100], which is the only behavior the system
// ever actually executed. Authority *level* (the coarser rank that unlocks
// unit types) is a separate, slower-changing value this package does not
// touch.
package authority

import (
	"time"

	"github.com/cixus/warsim/internal/engine"
	"github.com/cixus/warsim/internal/judge"
	"github.com/cixus/warsim/internal/sitrep"
)

// Bounds is the closed range authority is clamped to.
type Bounds struct {
	Min int
	Max int
}

// DefaultBounds matches the original simulator's clamp.
var DefaultBounds = Bounds{Min: 0, Max: 100}

// Apply returns current + delta clamped to the bounds.
func (b Bounds) Apply(current, delta int) int {
	v := current + delta
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Context is the full judgment context snapshot stored with a ledger
// entry for audit: exactly what the oracle saw and what it said.
type Context struct {
	Intent   engine.TacticalIntent `json:"intent"`
	Report   sitrep.Report         `json:"sitrep"`
	Judgment judge.Judgment        `json:"judgment"`
}

// Entry is one append-only ledger row. Entries are never edited or
// deleted.
type Entry struct {
	ID        string    `json:"id"`
	WarID     string    `json:"war_id"`
	TurnID    int       `json:"turn_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Context   Context   `json:"context_snapshot"`
	CreatedAt time.Time `json:"created_at"`
}

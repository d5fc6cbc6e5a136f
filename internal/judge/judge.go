// Package judge abstracts the external judgment oracle that scores each
// turn and moves the player's authority. The oracle is untrusted and
// possibly unavailable: every failure path resolves to the neutral
// judgment instead of failing the turn.
package judge

import (
	"context"

	"github.com/cixus/warsim/internal/engine"
	"github.com/cixus/warsim/internal/sitrep"
)

// Judgment is the oracle's verdict on one turn. AuthorityDelta is advisory
// text-derived data; it is not validated beyond being a usable integer.
type Judgment struct {
	AuthorityDelta int      `json:"authority_delta"`
	Commentary     string   `json:"commentary"`
	HiddenEffects  []string `json:"hidden_effects,omitempty"`
	Confidence     float64  `json:"confidence"`
}

// Judge evaluates a turn's intent against its outcome.
type Judge interface {
	Judge(ctx context.Context, in engine.TacticalIntent, report sitrep.Report) (Judgment, error)
}

// Neutral is the fallback judgment used when the oracle is unreachable,
// times out, or returns unparseable data: a weak-signal turn, not an error.
func Neutral() Judgment {
	return Judgment{
		AuthorityDelta: 0,
		Commentary:     "Signal weak. Cixus observes only static.",
		Confidence:     0,
	}
}

// Static is a deterministic test double returning a fixed judgment.
type Static struct {
	Result Judgment
	Err    error
}

func (s Static) Judge(ctx context.Context, in engine.TacticalIntent, report sitrep.Report) (Judgment, error) {
	return s.Result, s.Err
}

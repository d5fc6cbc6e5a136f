// Package friction computes the Clausewitzian signal-degradation profile
// for a command from the player's authority and the order's tone. It does
// not judge the player; it only simulates the fog-of-war physics. The
// profile is applied (the refusal draw) later, by the simulator.
package friction

import (
	"strings"

	"github.com/cixus/warsim/internal/engine"
	"github.com/cixus/warsim/internal/entropy"
)

// Authority tier cutoffs.
const (
	tierHigh     = 80 // > 80: crisp execution
	tierModerate = 50 // 51-80: minor static
	tierLow      = 20 // 21-50: significant drag; <= 20: command collapse
)

// complexRefusalBump is added when a high-complexity intent meets low
// authority: coordination-heavy orders are the first to fray.
const (
	complexityThreshold = 0.7
	complexRefusalBump  = 0.05
	criticalRefusalCap  = 0.4
)

// Compute builds the friction profile for one command. Pure given the
// random source; the source only widens the in-tier latency/refusal bands.
func Compute(authority int, rawText string, in engine.TacticalIntent, src entropy.Source) engine.CommandFriction {
	fr := base(authority, src)

	lower := strings.ToLower(rawText)

	// Hesitant phrasing: the men hear the doubt before the order.
	if containsAny(lower, "maybe", "try to", "perhaps", "if possible") {
		fr.LatencyTicks++
		fr.Message = "Hesitation detected."
	}

	// Urgent phrasing can cancel a latency tick, never go negative.
	if fr.LatencyTicks > 0 && containsAny(lower, "now", "immediately", "at once") {
		fr.LatencyTicks--
	}

	// Coordination-heavy intents under shaky authority add refusal risk.
	if in.CoordinationComplexity >= complexityThreshold && authority <= tierModerate {
		fr.RefusalChance += complexRefusalBump
		if authority <= tierLow && fr.RefusalChance > criticalRefusalCap {
			fr.RefusalChance = criticalRefusalCap
		}
	}

	return fr
}

// base returns the tier profile from the authority table.
func base(authority int, src entropy.Source) engine.CommandFriction {
	switch {
	case authority > tierHigh:
		return engine.CommandFriction{Corruption: engine.CorruptionNone}

	case authority > tierModerate:
		fr := engine.CommandFriction{Corruption: engine.CorruptionNone}
		fr.LatencyTicks = src.Intn(2) // 0-1
		if fr.LatencyTicks > 0 {
			fr.Message = "Signal relaying..."
		}
		return fr

	case authority > tierLow:
		return engine.CommandFriction{
			LatencyTicks:  1 + src.Intn(3), // 1-3
			Corruption:    engine.CorruptionMinor,
			RefusalChance: 0.1,
			Message:       "Unit verifying encryption...",
		}

	default:
		// Command collapse: they can hear you, they just don't believe you.
		return engine.CommandFriction{
			LatencyTicks:  2 + src.Intn(4), // 2-5
			Corruption:    engine.CorruptionMajor,
			RefusalChance: 0.3 + src.Float()*0.1, // 0.3-0.4
			Message:       "Static interference. Unit unresponsive.",
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

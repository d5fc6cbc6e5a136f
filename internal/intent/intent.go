// Package intent interprets free-form player orders into structured
// tactical intent. The interpreter is a pure pattern-mapper: deterministic,
// no I/O, so it can be unit-tested without mocks and swapped for a learned
// classifier behind the same signature later.
package intent

import (
	"regexp"
	"strings"

	"github.com/cixus/warsim/internal/engine"
)

// Context is the slice of player state the interpreter is allowed to see.
type Context struct {
	Authority     int
	PlayerUnitIDs []string
}

// Well-known primary patterns. The vocabulary is open; anything outside
// this set flows through the "other" path of CanonicalAction.
const (
	PatternMovement  = "movement"
	PatternHold      = "hold_position"
	PatternAssault   = "assault"
	PatternAmbush    = "ambush"
	PatternPhalanx   = "phalanx_defense"
	PatternSiege     = "siege_attrition"
	PatternPsyops    = "psychological_terror"
	PatternSacrifice = "sacrificial_charge"
	PatternBlitz     = "blitzkrieg_shock"
	PatternFeint     = "deception_feint"
	PatternRetreat   = "strategic_withdrawal"
)

// pattern rule table: first keyword hit wins, in listed order.
type rule struct {
	keyword    string
	pattern    string
	risk       engine.RiskProfile
	ethics     engine.EthicalWeight
	complexity float64
}

var rules = []rule{
	{"ambush", PatternAmbush, engine.RiskAsymmetric, engine.EthicsStandard, 0.7},
	{"phalanx", PatternPhalanx, engine.RiskLow, engine.EthicsStandard, 0.3},
	{"siege", PatternSiege, engine.RiskLow, engine.EthicsStandard, 0.5},
	{"psyops", PatternPsyops, engine.RiskCalculated, engine.EthicsTerror, 0.6},
	{"sacrifice", PatternSacrifice, engine.RiskReckless, engine.EthicsSacrifice, 0.5},
	{"blitz", PatternBlitz, engine.RiskDecisive, engine.EthicsStandard, 0.8},
	{"feint", PatternFeint, engine.RiskCalculated, engine.EthicsStandard, 0.6},
	{"retreat", PatternRetreat, engine.RiskLow, engine.EthicsStandard, 0.3},
	{"fall back", PatternRetreat, engine.RiskLow, engine.EthicsStandard, 0.3},
	{"attack", PatternAssault, engine.RiskDecisive, engine.EthicsStandard, 0.4},
	{"assault", PatternAssault, engine.RiskDecisive, engine.EthicsStandard, 0.4},
	{"charge", PatternAssault, engine.RiskDecisive, engine.EthicsStandard, 0.4},
	{"hold", PatternHold, engine.RiskLow, engine.EthicsStandard, 0.1},
	{"halt", PatternHold, engine.RiskLow, engine.EthicsStandard, 0.1},
	{"defend", PatternPhalanx, engine.RiskLow, engine.EthicsStandard, 0.3},
}

// actionTable translates well-known patterns to engine actions. This is the
// single canonical lookup at the simulation boundary.
var actionTable = map[string]string{
	PatternMovement:  "MOVE",
	PatternHold:      engine.ActionHold,
	PatternAssault:   "ATTACK",
	PatternAmbush:    "AMBUSH",
	PatternPhalanx:   "DEFEND",
	PatternSiege:     "SIEGE",
	PatternPsyops:    "PSYOPS",
	PatternSacrifice: "CHARGE",
	PatternBlitz:     "BLITZ",
	PatternFeint:     "FEINT",
	PatternRetreat:   "RETREAT",
}

// CanonicalAction maps a primary pattern to its engine action label.
// Unknown patterns fall through carrying their own label, uppercased, so an
// extended vocabulary degrades gracefully instead of failing the boundary.
func CanonicalAction(pattern string) string {
	if action, ok := actionTable[pattern]; ok {
		return action
	}
	return strings.ToUpper(strings.ReplaceAll(pattern, " ", "_"))
}

var sectorRe = regexp.MustCompile(`sector\s*([1-9])`)

// BattlefieldCenter is the default destination when no sector or
// destination cue is matched.
var BattlefieldCenter = engine.Position{X: 50.0, Z: 50.0}

// Interpret parses a raw order into (intent, target unit ids, destination,
// meta-intent label). Unknown text resolves to a safe default: movement
// toward the battlefield center, never a failed request.
func Interpret(rawText string, pctx Context) (engine.TacticalIntent, []string, *engine.Position, string) {
	raw := strings.ToLower(rawText)

	in := engine.TacticalIntent{
		PrimaryPattern:         PatternMovement,
		RiskProfile:            engine.RiskCalculated,
		CoordinationComplexity: 0.2,
		EthicalWeight:          engine.EthicsStandard,
	}
	for _, r := range rules {
		if strings.Contains(raw, r.keyword) {
			in.PrimaryPattern = r.pattern
			in.RiskProfile = r.risk
			in.EthicalWeight = r.ethics
			in.CoordinationComplexity = r.complexity
			break
		}
	}

	targets := resolveTargets(raw, pctx)
	dest := resolveDestination(raw)
	meta := in.PrimaryPattern + " (" + string(in.RiskProfile) + ")"

	return in, targets, dest, meta
}

// resolveTargets picks target units from the order text. "all"/"every"
// addresses the full force; a literal unit id addresses that unit; anything
// else falls back to the lead unit.
func resolveTargets(raw string, pctx Context) []string {
	ids := pctx.PlayerUnitIDs
	if len(ids) == 0 {
		return []string{"unit_alpha"}
	}

	if strings.Contains(raw, "all units") || strings.Contains(raw, "everyone") || strings.Contains(raw, "every unit") {
		return append([]string(nil), ids...)
	}

	for _, id := range ids {
		if strings.Contains(raw, strings.ToLower(id)) {
			return []string{id}
		}
	}

	return []string{ids[0]}
}

// resolveDestination maps a "sector N" reference onto the 3x3 keypad grid
// over the battlefield plane. Unmatched references keep the default
// destination at the center.
func resolveDestination(raw string) *engine.Position {
	dest := BattlefieldCenter

	if m := sectorRe.FindStringSubmatch(raw); m != nil {
		n := int(m[1][0] - '0')
		dest = SectorCenter(n)
	}

	return &dest
}

// SectorCenter returns the center of keypad sector n (1..9, row-major from
// the top-left) on the default battlefield grid.
func SectorCenter(n int) engine.Position {
	col := (n - 1) % 3
	row := (n - 1) / 3
	step := engine.DefaultGridSize / 3
	return engine.Position{
		X: (float64(col) + 0.5) * step,
		Z: (float64(row) + 0.5) * step,
	}
}

// Package engine provides the deterministic battlefield simulation:
// snapshot state, command friction, and the two-phase turn resolver
// (ValidateAndClamp + ProcessTurn).
package engine

// UnitStatus is the lifecycle state of a unit on the field.
type UnitStatus string

const (
	UnitActive UnitStatus = "ACTIVE"
	UnitRouted UnitStatus = "ROUTED"
	UnitDead   UnitStatus = "DEAD"
)

// GeneralStatus tracks the enemy general, whose death ends the war.
type GeneralStatus string

const (
	GeneralAlive      GeneralStatus = "ALIVE"
	GeneralRetreating GeneralStatus = "RETREATING"
	GeneralDead       GeneralStatus = "DEAD"
)

// Position is a point on the battlefield plane.
type Position struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// UnitState is one unit's full state within a snapshot. IDs are unique
// within a snapshot and stable across ticks.
type UnitState struct {
	ID       string     `json:"unit_id"`
	Type     string     `json:"type"` // INFANTRY, TANK, SCOUT
	Health   float64    `json:"health"`
	Position Position   `json:"position"`
	Status   UnitStatus `json:"status"`

	// Psychology layer.
	Obedience  float64  `json:"obedience"`  // 0.0 to 1.0
	Hesitation bool     `json:"hesitation"` // if true, unit may stall on orders
	Morale     float64  `json:"morale"`     // 0 to 100
	Tags       []string `json:"tags,omitempty"`
}

// HasTag reports whether the unit carries the given free-form tag.
func (u *UnitState) HasTag(tag string) bool {
	for _, t := range u.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// BattlefieldSnapshot is the complete battlefield state at one turn.
// Snapshots are immutable once produced: each tick yields a new one.
type BattlefieldSnapshot struct {
	TurnCount        int                `json:"turn_count"`
	PlayerUnits      []UnitState        `json:"player_units"`
	EnemyUnits       []UnitState        `json:"enemy_units"`
	GeneralStatus    GeneralStatus      `json:"general_status"`
	TerrainModifiers map[string]float64 `json:"terrain_modifiers,omitempty"`
	GridSize         float64            `json:"grid_size"`
	VisibleSectors   []int              `json:"visible_sectors,omitempty"`
}

// Unit returns the player unit with the given id, or nil.
func (s *BattlefieldSnapshot) Unit(id string) *UnitState {
	for i := range s.PlayerUnits {
		if s.PlayerUnits[i].ID == id {
			return &s.PlayerUnits[i]
		}
	}
	return nil
}

// PlayerUnitIDs lists the ids of all non-dead player units in snapshot order.
func (s *BattlefieldSnapshot) PlayerUnitIDs() []string {
	ids := make([]string, 0, len(s.PlayerUnits))
	for i := range s.PlayerUnits {
		if s.PlayerUnits[i].Status != UnitDead {
			ids = append(ids, s.PlayerUnits[i].ID)
		}
	}
	return ids
}

// RiskProfile classifies how much an intent gambles.
type RiskProfile string

const (
	RiskLow        RiskProfile = "low"
	RiskCalculated RiskProfile = "calculated"
	RiskDecisive   RiskProfile = "decisive"
	RiskReckless   RiskProfile = "reckless"
	RiskAsymmetric RiskProfile = "asymmetric"
)

// EthicalWeight marks intents the judge treats as morally loaded.
type EthicalWeight string

const (
	EthicsStandard  EthicalWeight = "standard"
	EthicsSacrifice EthicalWeight = "sacrifice"
	EthicsTerror    EthicalWeight = "terror"
	EthicsHonor     EthicalWeight = "honor"
)

// TacticalIntent is the structured interpretation of a free-form order.
// PrimaryPattern is an open vocabulary; well-known patterns translate to
// engine actions through intent.CanonicalAction.
type TacticalIntent struct {
	PrimaryPattern         string        `json:"primary_pattern"`
	RiskProfile            RiskProfile   `json:"risk_profile"`
	CoordinationComplexity float64       `json:"coordination_complexity"` // 0 to 1
	EthicalWeight          EthicalWeight `json:"ethical_weight"`
}

// CorruptionLevel grades how badly friction garbles a command.
type CorruptionLevel string

const (
	CorruptionNone  CorruptionLevel = "none"
	CorruptionMinor CorruptionLevel = "minor"
	CorruptionMajor CorruptionLevel = "major"
)

// CommandFriction is the signal-degradation profile applied to one command
// before simulation. Computed once per command, consumed exactly once by
// ValidateAndClamp.
type CommandFriction struct {
	LatencyTicks  int             `json:"latency_ticks"`
	Corruption    CorruptionLevel `json:"corruption"`
	RefusalChance float64         `json:"refusal_chance"`
	Message       string          `json:"message,omitempty"`
}

// InstructionParams carries the per-instruction execution parameters.
// The key set is fixed; absent fields are omitted on the wire.
type InstructionParams struct {
	TargetPos      *Position `json:"target_pos,omitempty"`
	Speed          float64   `json:"speed,omitempty"`
	ExecutionDelay int       `json:"execution_delay,omitempty"`
	Reason         string    `json:"reason,omitempty"`
}

// EngineInstruction is one deterministic instruction for one unit.
// CostDeducted is retained for forward compatibility and is always zero:
// command validation is gated by friction alone, not authority cost.
type EngineInstruction struct {
	ID           string            `json:"instruction_id"`
	UnitID       string            `json:"unit_id"`
	Action       string            `json:"action"`
	Parameters   InstructionParams `json:"parameters"`
	CostDeducted int               `json:"cost_deducted"`
}

// ActionHold is the fallback action for refused or stationary commands.
const ActionHold = "HOLD"

// StateDelta summarizes what the tick changed, for clients that render
// the battlefield incrementally.
type StateDelta struct {
	UnitsMoved int `json:"units_moved"`
	UnitsLost  int `json:"units_lost"`
}

// Command is a fully resolved order: canonical action, targets, and the
// friction profile already computed for it.
type Command struct {
	Action        string
	TargetUnitIDs []string
	Destination   *Position
	Friction      CommandFriction
}

// TurnResult is the atomic unit of a turn: either the whole result is
// committed (snapshot, ledger, logs) or none of it is.
type TurnResult struct {
	TurnID       int                 `json:"turn_id"`
	Instructions []EngineInstruction `json:"instructions"`
	StateDelta   StateDelta          `json:"state_delta"`
	Events       []string            `json:"events"`
	GameOver     bool                `json:"game_over"`
	NewSnapshot  BattlefieldSnapshot `json:"new_snapshot"`
}

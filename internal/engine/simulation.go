package engine

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/cixus/warsim/internal/entropy"
)

// NominalSpeed is how far a unit travels in one tick.
const NominalSpeed = 1.0

// Flavor layer probabilities. These events exist purely for sitrep texture
// and never affect win/loss logic.
const (
	interceptChance = 0.10
	suppressChance  = 0.05
	suppressHit     = 5.0
)

// ValidateAndClamp is the safety valve: a pure signal degrade/clamp layer.
// It does not judge authority or reject on cost. One uniform draw decides
// whether the friction profile corrupts the command into an all-HOLD; the
// request still succeeds either way, just with degraded effect.
func ValidateAndClamp(cmd Command, src entropy.Source) []EngineInstruction {
	instructions := make([]EngineInstruction, 0, len(cmd.TargetUnitIDs))

	if cmd.Friction.RefusalChance > 0 && src.Float() < cmd.Friction.RefusalChance {
		reason := cmd.Friction.Message
		if reason == "" {
			reason = "SIGNAL_LOST"
		}
		for _, uid := range cmd.TargetUnitIDs {
			instructions = append(instructions, EngineInstruction{
				ID:           uuid.NewString(),
				UnitID:       uid,
				Action:       ActionHold,
				Parameters:   InstructionParams{Reason: reason},
				CostDeducted: 0,
			})
		}
		return instructions
	}

	for _, uid := range cmd.TargetUnitIDs {
		params := InstructionParams{}
		if cmd.Destination != nil && cmd.Action != ActionHold {
			dest := *cmd.Destination
			params.TargetPos = &dest
			params.Speed = NominalSpeed
		}
		if cmd.Friction.LatencyTicks > 0 {
			params.ExecutionDelay = cmd.Friction.LatencyTicks
		}
		if cmd.Action == ActionHold {
			params.Reason = "Holding as ordered."
		}

		instructions = append(instructions, EngineInstruction{
			ID:           uuid.NewString(),
			UnitID:       uid,
			Action:       cmd.Action,
			Parameters:   params,
			CostDeducted: 0, // costs are dead
		})
	}

	return instructions
}

// ProcessTurn advances the battlefield by exactly one tick. The input
// snapshot is never mutated; the result carries a fresh snapshot. Pure
// given the random source: identical snapshot + instructions + source
// sequence produce identical results.
func ProcessTurn(current BattlefieldSnapshot, instructions []EngineInstruction, src entropy.Source) TurnResult {
	newTurn := current.TurnCount + 1
	events := []string{}
	delta := StateDelta{}

	newUnits := cloneUnits(current.PlayerUnits)
	gridSize := current.GridSize
	if gridSize <= 0 {
		gridSize = DefaultGridSize
	}

	for _, instr := range instructions {
		if instr.Action == ActionHold {
			events = append(events, fmt.Sprintf("Unit %s holding position (%s)", instr.UnitID, instr.Parameters.Reason))
			continue
		}
		if instr.Parameters.TargetPos == nil {
			continue
		}

		target := *instr.Parameters.TargetPos
		speed := instr.Parameters.Speed
		if speed <= 0 {
			speed = NominalSpeed
		}

		for i := range newUnits {
			u := &newUnits[i]
			if u.ID != instr.UnitID || u.Status == UnitDead {
				continue
			}

			dx := target.X - u.Position.X
			dz := target.Z - u.Position.Z
			dist := math.Hypot(dx, dz)

			if dist <= speed {
				u.Position = target
				events = append(events, fmt.Sprintf("Unit %s executed %s at (%.1f, %.1f)", u.ID, instr.Action, target.X, target.Z))
			} else {
				ratio := speed / dist
				u.Position.X += dx * ratio
				u.Position.Z += dz * ratio
				events = append(events, fmt.Sprintf("Unit %s executing %s (Dist: %.1f)", u.ID, instr.Action, dist))
			}

			u.Position.X = clamp(u.Position.X, 0, gridSize)
			u.Position.Z = clamp(u.Position.Z, 0, gridSize)
			delta.UnitsMoved++
		}
	}

	// Stochastic narrative layer: sitrep texture only.
	if src.Float() < interceptChance {
		events = append(events, "Signal intercept: fragmented enemy chatter on an open channel")
	}
	if src.Float() < suppressChance && len(newUnits) > 0 {
		u := &newUnits[src.Intn(len(newUnits))]
		if u.Status != UnitDead {
			u.Morale = math.Max(0, u.Morale-suppressHit)
			if !u.HasTag("suppressed") {
				u.Tags = append(u.Tags, "suppressed")
			}
			events = append(events, fmt.Sprintf("Unit %s pinned by sporadic fire, morale slipping", u.ID))
		}
	}

	normalizeUnits(newUnits, &delta)

	gameOver := false
	if current.GeneralStatus == GeneralDead {
		events = append(events, "Enemy general confirmed dead. The war is over.")
		gameOver = true
	}

	newSnapshot := current
	newSnapshot.TurnCount = newTurn
	newSnapshot.PlayerUnits = newUnits
	newSnapshot.EnemyUnits = cloneUnits(current.EnemyUnits)
	newSnapshot.TerrainModifiers = cloneModifiers(current.TerrainModifiers)
	newSnapshot.VisibleSectors = append([]int(nil), current.VisibleSectors...)

	return TurnResult{
		TurnID:       newTurn,
		Instructions: instructions,
		StateDelta:   delta,
		Events:       events,
		GameOver:     gameOver,
		NewSnapshot:  newSnapshot,
	}
}

// normalizeUnits enforces the health invariant: health 0 implies DEAD.
func normalizeUnits(units []UnitState, delta *StateDelta) {
	for i := range units {
		if units[i].Health <= 0 && units[i].Status != UnitDead {
			units[i].Health = 0
			units[i].Status = UnitDead
			delta.UnitsLost++
		}
	}
}

func cloneUnits(units []UnitState) []UnitState {
	out := make([]UnitState, len(units))
	copy(out, units)
	for i := range out {
		out[i].Tags = append([]string(nil), units[i].Tags...)
	}
	return out
}

func cloneModifiers(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

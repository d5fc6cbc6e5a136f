// Package sitrep assembles the situation report sent to the judgment
// oracle. The report plus the raw intent is the entire input surface the
// oracle sees; no other session data crosses that boundary.
package sitrep

import (
	"fmt"
	"strings"

	"github.com/cixus/warsim/internal/engine"
)

// Casualties is a fresh count of DEAD units on each side, taken from the
// snapshot itself — not cumulative across turns.
type Casualties struct {
	PlayerLost int `json:"player_lost"`
	EnemyLost  int `json:"enemy_lost"`
}

// TrendStable is the default coarse authority trend label.
const TrendStable = "stable"

// Report is the structured judgment payload.
type Report struct {
	WarID            string             `json:"war_id"`
	EnemyTraits      []string           `json:"enemy_traits"`
	TurnCount        int                `json:"turn_count"`
	Casualties       Casualties         `json:"casualties"`
	RecentEvents     []string           `json:"recent_events"`
	TerrainModifiers map[string]float64 `json:"terrain_modifiers,omitempty"`
	PlayerAuthority  int                `json:"player_authority"`
	AuthorityTrend   string             `json:"authority_trend"`
}

// Build combines enemy personality, fresh casualty counts, the turn
// number, the raw event list, terrain, and the player's authority into one
// report.
func Build(warID string, enemyTraits []string, snap engine.BattlefieldSnapshot, events []string, authority int) Report {
	if len(enemyTraits) == 0 {
		enemyTraits = []string{"Aggressive", "Observant", "Ruthless"}
	}

	return Report{
		WarID:            warID,
		EnemyTraits:      enemyTraits,
		TurnCount:        snap.TurnCount,
		Casualties:       countCasualties(snap),
		RecentEvents:     events,
		TerrainModifiers: snap.TerrainModifiers,
		PlayerAuthority:  authority,
		AuthorityTrend:   TrendStable,
	}
}

// Summary renders the one-line human-readable sitrep stored alongside the
// structured payload.
func (r Report) Summary() string {
	eventLine := "No contact."
	if len(r.RecentEvents) > 0 {
		eventLine = strings.Join(r.RecentEvents, ", ")
	}
	return fmt.Sprintf("Turn %d. Events: %s. Casualties: %d friendly, %d enemy.",
		r.TurnCount, eventLine, r.Casualties.PlayerLost, r.Casualties.EnemyLost)
}

func countCasualties(snap engine.BattlefieldSnapshot) Casualties {
	var c Casualties
	for _, u := range snap.PlayerUnits {
		if u.Status == engine.UnitDead {
			c.PlayerLost++
		}
	}
	for _, u := range snap.EnemyUnits {
		if u.Status == engine.UnitDead {
			c.EnemyLost++
		}
	}
	return c
}

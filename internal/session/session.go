// Package session owns the WarSession aggregate and the turn resolver:
// one command in, one atomically committed TurnResult plus ledger entry
// out. Each war is processed under a per-session exclusivity guarantee.
package session

import (
	"errors"
	"time"

	"github.com/cixus/warsim/internal/authority"
	"github.com/cixus/warsim/internal/engine"
	"github.com/cixus/warsim/internal/judge"
	"github.com/cixus/warsim/internal/sitrep"
)

// War status values.
const (
	StatusActive = "ACTIVE"
	StatusPaused = "PAUSED"
	StatusEnded  = "ENDED"
)

var (
	// ErrWarNotFound means the war id is unknown.
	ErrWarNotFound = errors.New("war not found")
	// ErrPlayerNotFound means the player id is unknown.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrMalformedSnapshot means the persisted snapshot failed to parse.
	// Fatal for the session: it goes inert rather than producing a
	// corrupted next state.
	ErrMalformedSnapshot = errors.New("malformed battlefield snapshot")
	// ErrSessionBusy means another command holds the session; retry.
	ErrSessionBusy = errors.New("session busy, retry")
	// ErrWarEnded means the war has reached a terminal state.
	ErrWarEnded = errors.New("war has ended")
)

// WarSession is one active campaign instance. It exclusively owns its
// current snapshot and turn counter; both are mutated only by the turn
// resolver's output.
type WarSession struct {
	ID             string
	PlayerID       string
	Status         string
	TurnCount      int
	Snapshot       engine.BattlefieldSnapshot
	HistorySummary string
	LastRegenAt    *time.Time
	StartedAt      time.Time
	EndedAt        *time.Time
	LastCommandAt  *time.Time
}

// Player is the slice of the player record the resolver needs.
type Player struct {
	ID              string
	Username        string
	AuthorityPoints int
	AuthorityLevel  int
	Reputation      map[string]float64
	CreatedAt       time.Time
}

// General is the enemy commander attached to a war.
type General struct {
	ID             string
	WarID          string
	Name           string
	Traits         []string
	DifficultyTier int
	Status         engine.GeneralStatus
}

// ActionRecord logs one command end to end.
type ActionRecord struct {
	ID         string
	WarID      string
	RawCommand string
	Intent     engine.TacticalIntent
	Outcome    string
	StateDelta engine.StateDelta
	Judgment   judge.Judgment
	CreatedAt  time.Time
}

// SitRepRecord logs one turn's report, text plus structured payload.
type SitRepRecord struct {
	ID         string
	WarID      string
	TurnID     int
	Text       string
	Structured sitrep.Report
	CreatedAt  time.Time
}

// TurnCommit is everything one turn writes. The store must commit it
// atomically: either all of it lands or none of it does.
type TurnCommit struct {
	War          *WarSession
	PlayerID     string
	NewAuthority int
	Ledger       authority.Entry
	Action       ActionRecord
	SitRep       SitRepRecord
}

// Store is the persistence boundary the resolver depends on.
type Store interface {
	GetWar(id string) (*WarSession, error)
	GetPlayer(id string) (*Player, error)
	GetGeneral(warID string) (*General, error)
	CommitTurn(commit TurnCommit) error
}

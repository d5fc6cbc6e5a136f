package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cixus/warsim/internal/authority"
	"github.com/cixus/warsim/internal/engine"
	"github.com/cixus/warsim/internal/entropy"
	"github.com/cixus/warsim/internal/friction"
	"github.com/cixus/warsim/internal/intent"
	"github.com/cixus/warsim/internal/judge"
	"github.com/cixus/warsim/internal/sitrep"
)

// TurnOutcome is the full result of one resolved command, shaped for the
// API response.
type TurnOutcome struct {
	TurnID       int                        `json:"turn_id"`
	Instructions []engine.EngineInstruction `json:"instructions"`
	Judgment     judge.Judgment             `json:"judgment"`
	NewState     engine.BattlefieldSnapshot `json:"new_state"`
	Friction     engine.CommandFriction     `json:"friction"`
	Intent       engine.TacticalIntent      `json:"intent"`
	MetaIntent   string                     `json:"meta_intent"`
	SitRep       string                     `json:"sitrep"`
	GameOver     bool                       `json:"game_over"`
}

// Resolver runs the full turn pipeline: interpret, friction, validate,
// advance, report, judge, apply, commit.
type Resolver struct {
	Store        Store
	Oracle       judge.Judge
	Rand         entropy.Source
	Bounds       authority.Bounds
	JudgeTimeout time.Duration

	locks *Locks
}

// NewResolver wires a resolver with a fresh lock table.
func NewResolver(store Store, oracle judge.Judge, src entropy.Source, bounds authority.Bounds, judgeTimeout time.Duration) *Resolver {
	if judgeTimeout <= 0 {
		judgeTimeout = 20 * time.Second
	}
	return &Resolver{
		Store:        store,
		Oracle:       oracle,
		Rand:         src,
		Bounds:       bounds,
		JudgeTimeout: judgeTimeout,
		locks:        NewLocks(),
	}
}

// ResolveCommand processes one free-form command against a war. The
// session lock is held from interpretation through the durable commit and
// released on every exit path. Oracle failure degrades to the neutral
// judgment; it never fails the turn.
func (r *Resolver) ResolveCommand(ctx context.Context, warID, rawText string) (*TurnOutcome, error) {
	release, err := r.locks.Acquire(warID)
	if err != nil {
		return nil, err
	}
	defer release()

	war, err := r.Store.GetWar(warID)
	if err != nil {
		return nil, err
	}
	if war.Status == StatusEnded {
		return nil, ErrWarEnded
	}

	player, err := r.Store.GetPlayer(war.PlayerID)
	if err != nil {
		return nil, err
	}

	// 1. Interpret.
	in, targets, dest, meta := intent.Interpret(rawText, intent.Context{
		Authority:     player.AuthorityPoints,
		PlayerUnitIDs: war.Snapshot.PlayerUnitIDs(),
	})

	// 2. Friction.
	fr := friction.Compute(player.AuthorityPoints, rawText, in, r.Rand)

	// 3. Simulate: clamp, then advance one tick.
	instructions := engine.ValidateAndClamp(engine.Command{
		Action:        intent.CanonicalAction(in.PrimaryPattern),
		TargetUnitIDs: targets,
		Destination:   dest,
		Friction:      fr,
	}, r.Rand)

	result := engine.ProcessTurn(war.Snapshot, instructions, r.Rand)

	// 4. Assemble the report.
	var traits []string
	if general, err := r.Store.GetGeneral(warID); err == nil && general != nil {
		traits = general.Traits
	}
	report := sitrep.Build(warID, traits, result.NewSnapshot, result.Events, player.AuthorityPoints)

	// 5. Judge, with bounded timeout and neutral fallback.
	verdict := r.judgeTurn(ctx, in, report)

	// 6. Apply and commit atomically.
	newAuthority := r.Bounds.Apply(player.AuthorityPoints, verdict.AuthorityDelta)
	now := time.Now().UTC()

	war.Snapshot = result.NewSnapshot
	war.TurnCount = result.TurnID
	war.LastCommandAt = &now
	if result.GameOver {
		war.Status = StatusEnded
		war.EndedAt = &now
	}

	commit := TurnCommit{
		War:          war,
		PlayerID:     player.ID,
		NewAuthority: newAuthority,
		Ledger: authority.Entry{
			ID:     uuid.NewString(),
			WarID:  warID,
			TurnID: result.TurnID,
			Delta:  verdict.AuthorityDelta,
			Reason: verdict.Commentary,
			Context: authority.Context{
				Intent:   in,
				Report:   report,
				Judgment: verdict,
			},
			CreatedAt: now,
		},
		Action: ActionRecord{
			ID:         uuid.NewString(),
			WarID:      warID,
			RawCommand: rawText,
			Intent:     in,
			Outcome:    "SUCCESS",
			StateDelta: result.StateDelta,
			Judgment:   verdict,
			CreatedAt:  now,
		},
		SitRep: SitRepRecord{
			ID:         uuid.NewString(),
			WarID:      warID,
			TurnID:     result.TurnID,
			Text:       report.Summary(),
			Structured: report,
			CreatedAt:  now,
		},
	}

	if err := r.Store.CommitTurn(commit); err != nil {
		return nil, err
	}

	slog.Info("turn resolved",
		"war_id", warID,
		"turn", result.TurnID,
		"pattern", in.PrimaryPattern,
		"delta", verdict.AuthorityDelta,
		"authority", newAuthority,
		"game_over", result.GameOver,
	)

	return &TurnOutcome{
		TurnID:       result.TurnID,
		Instructions: result.Instructions,
		Judgment:     verdict,
		NewState:     result.NewSnapshot,
		Friction:     fr,
		Intent:       in,
		MetaIntent:   meta,
		SitRep:       report.Summary(),
		GameOver:     result.GameOver,
	}, nil
}

// judgeTurn calls the oracle under its own deadline. Timeouts, transport
// errors, and malformed replies all collapse to the neutral judgment; the
// turn never fails on the oracle's account.
func (r *Resolver) judgeTurn(ctx context.Context, in engine.TacticalIntent, report sitrep.Report) judge.Judgment {
	if r.Oracle == nil {
		return judge.Neutral()
	}

	jctx, cancel := context.WithTimeout(ctx, r.JudgeTimeout)
	defer cancel()

	verdict, err := r.Oracle.Judge(jctx, in, report)
	if err != nil {
		slog.Warn("oracle unavailable, using neutral judgment", "error", err)
		return judge.Neutral()
	}
	return verdict
}

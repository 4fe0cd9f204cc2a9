package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Aitbek01/arena-gauntlet/brackets"
	"github.com/Aitbek01/arena-gauntlet/metrics"
	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/oracle"
	"github.com/Aitbek01/arena-gauntlet/queue"
	"github.com/Aitbek01/arena-gauntlet/repositories"
	"golang.org/x/sync/errgroup"
)

type nowFunc func() time.Time

func defaultNow() time.Time { return time.Now().UTC() }

const dayLayout = "2006-01-02"

// drawSeedTag separates selection draws from the other sub-seed domains.
const drawSeedTag = 0xD4A1

// PipelineConfig is shared by both scheduler variants.
type PipelineConfig struct {
	BracketSize        int
	SelectionOffset    uint64
	ExecutionOffset    uint64
	CarryOverFinalists bool
	Lethal             bool
}

// PipelineDeps are the collaborators of a run pipeline. DB is optional:
// when nil (tests), repository calls run without a shared transaction.
// Archiver is optional as well.
type PipelineDeps struct {
	DB          *sql.DB
	Queue       *queue.Store
	Oracle      oracle.Client
	Resolver    *Resolver
	Simulator   *brackets.Simulator
	Distributor *Distributor
	Runs        repositories.RunRepository
	Pendings    repositories.PendingRunRepository
	Recovery    *RecoveryManager
	Events      EventPublisher
	Archiver    LogArchiver
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// runPipeline is the phase machinery shared by the calendar-cadence
// tournament and the continuous gauntlet. Each phase transition is a
// separate idempotent invocation; nothing blocks waiting for the oracle.
type runPipeline struct {
	PipelineDeps
	cfg  PipelineConfig
	kind models.RunKind
}

func (p *runPipeline) withTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	if p.DB == nil {
		return fn(nil)
	}
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// commit opens a pending run: request randomness for a future selection
// round and persist the committed phase.
func (p *runPipeline) commit(ctx context.Context) (*models.PendingRun, error) {
	selectionRound := p.Oracle.CurrentRound() + p.cfg.SelectionOffset
	if _, err := p.Oracle.RequestAt(selectionRound); err != nil {
		return nil, fmt.Errorf("request selection randomness: %w", err)
	}

	pending := &models.PendingRun{
		Kind:           p.kind,
		Phase:          models.PhaseCommitted,
		SelectionRound: selectionRound,
	}
	if err := p.Pendings.Create(ctx, nil, pending); err != nil {
		return nil, err
	}

	p.Logger.Info("run committed",
		slog.Int64("run_id", pending.RunID), slog.String("kind", string(p.kind)),
		slog.Uint64("selection_round", selectionRound))
	p.Metrics.RunsCommitted.WithLabelValues(string(p.kind)).Inc()
	p.Events.Publish(brackets.RoomGlobal, models.Event{
		Type:    models.EventRunCommitted,
		Payload: PhaseEventPayload{RunID: pending.RunID, Kind: p.kind, Phase: models.PhaseCommitted, Round: selectionRound},
	})
	return pending, nil
}

// selectPending runs the COMMITTED -> SELECTED transition: fetch the
// selection randomness, draw participants out of the queue and create the
// pending Run record.
func (p *runPipeline) selectPending(ctx context.Context, pending *models.PendingRun) (*models.Run, error) {
	if pending.Phase != models.PhaseCommitted {
		return nil, fmt.Errorf("%w: select requires %s, pending run %d is %s",
			ErrWrongPhase, models.PhaseCommitted, pending.RunID, pending.Phase)
	}

	value, err := p.randomnessFor(ctx, pending, pending.SelectionRound)
	if err != nil {
		return nil, err
	}

	if have := p.Queue.Len(); have < p.cfg.BracketSize {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientQueue, have, p.cfg.BracketSize)
	}

	entries, err := p.draw(ctx, value)
	if err != nil {
		p.restoreEntries(entries)
		return nil, err
	}
	participants := make([]models.RunParticipant, len(entries))
	for i, e := range entries {
		participants[i] = models.RunParticipant{
			Seat:         i,
			CompetitorID: e.CompetitorID,
			Loadout:      e.Loadout,
		}
	}

	run := &models.Run{
		ID:           pending.RunID,
		Kind:         p.kind,
		Size:         p.cfg.BracketSize,
		State:        models.RunPending,
		Participants: participants,
	}
	executionRound := p.Oracle.CurrentRound() + p.cfg.ExecutionOffset

	err = p.withTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := p.Runs.Create(ctx, exec, run); err != nil {
			return err
		}
		pending.Phase = models.PhaseSelected
		pending.ExecutionRound = executionRound
		return p.Pendings.Update(ctx, exec, pending)
	})
	if err != nil {
		// The queue is in-memory state: undo the draw before surfacing.
		p.restoreEntries(entries)
		return nil, fmt.Errorf("persist selection for run %d: %w", pending.RunID, err)
	}

	if _, err := p.Oracle.RequestAt(executionRound); err != nil {
		p.Logger.Warn("request execution randomness", slog.Int64("run_id", run.ID), slog.Any("error", err))
	}

	p.Logger.Info("participants selected",
		slog.Int64("run_id", run.ID), slog.Int("count", len(participants)),
		slog.Uint64("execution_round", executionRound), slog.Int("queue_size", p.Queue.Len()))
	p.Metrics.QueueSize.Set(float64(p.Queue.Len()))
	p.Events.Publish(roomForRun(run.ID), models.Event{
		Type:    models.EventRunSelected,
		Payload: PhaseEventPayload{RunID: run.ID, Kind: p.kind, Phase: models.PhaseSelected, Round: executionRound},
	})
	return run, nil
}

// draw removes bracket-size entries from the queue. The carry-over policy
// pulls the previous run's finalists first when they are still queued and
// actually fought; remaining seats are drawn at randomness-chosen
// positions. The queue is shared with withdrawals and the other pipeline,
// so it can shrink between the caller's size check and the removals here;
// an emptied queue aborts the draw, returning the partial set for the
// caller to restore.
func (p *runPipeline) draw(ctx context.Context, value [32]byte) ([]models.QueueEntry, error) {
	drawn := make([]models.QueueEntry, 0, p.cfg.BracketSize)

	if p.cfg.CarryOverFinalists {
		if last, err := p.Runs.LastCompleted(ctx, p.kind); err == nil {
			for _, finalist := range carryOverIDs(last) {
				if len(drawn) == p.cfg.BracketSize {
					break
				}
				if entry, err := p.Queue.Remove(finalist); err == nil {
					drawn = append(drawn, entry)
				}
			}
		}
	}

	for i := uint64(0); len(drawn) < p.cfg.BracketSize; i++ {
		have := p.Queue.Len()
		if have == 0 {
			return drawn, fmt.Errorf("%w: queue drained with %d of %d seats drawn",
				ErrInsufficientQueue, len(drawn), p.cfg.BracketSize)
		}
		idx := brackets.SeedMod(brackets.SubSeed(value, drawSeedTag, i), uint64(have))
		entry, ok := p.Queue.At(int(idx))
		if !ok {
			continue
		}
		if removed, err := p.Queue.Remove(entry.CompetitorID); err == nil {
			drawn = append(drawn, removed)
		}
	}
	return drawn, nil
}

// carryOverIDs lists the previous run's finalists eligible for a carried
// seat. A stand-in podium finish carries nothing: the recorded competitor
// never fought.
func carryOverIDs(last *models.Run) []int64 {
	ids := make([]int64, 0, 2)
	if last.ChampionID != nil && !last.ChampionStandIn {
		ids = append(ids, *last.ChampionID)
	}
	if last.RunnerUpID != nil && !last.RunnerUpStandIn {
		ids = append(ids, *last.RunnerUpID)
	}
	return ids
}

// restoreEntries puts drawn entries back into the queue after a failed
// selection.
func (p *runPipeline) restoreEntries(entries []models.QueueEntry) {
	for _, e := range entries {
		if err := p.Queue.Add(e); err != nil {
			p.Logger.Error("restore drawn entry after failed selection",
				slog.Int64("competitor_id", e.CompetitorID), slog.Any("error", err))
		}
	}
}

// executePending runs SELECTED -> READY -> NONE: fetch the execution
// randomness, resolve seats, simulate the bracket and complete the run.
func (p *runPipeline) executePending(ctx context.Context, pending *models.PendingRun) (*models.Run, error) {
	// A run found in READY stalled between marking and completion; the
	// randomness gate below decides whether it can still finish.
	if pending.Phase != models.PhaseSelected && pending.Phase != models.PhaseReady {
		return nil, fmt.Errorf("%w: execute requires %s, pending run %d is %s",
			ErrWrongPhase, models.PhaseSelected, pending.RunID, pending.Phase)
	}

	value, err := p.randomnessFor(ctx, pending, pending.ExecutionRound)
	if err != nil {
		return nil, err
	}

	run, err := p.Runs.GetByID(ctx, pending.RunID)
	if err != nil {
		return nil, fmt.Errorf("load run %d: %w", pending.RunID, err)
	}

	fighters, replacements, err := p.Resolver.Resolve(ctx, run, value)
	if err != nil {
		return nil, fmt.Errorf("resolve participants of run %d: %w", run.ID, err)
	}
	p.Metrics.StandInReplacements.Add(float64(len(replacements)))

	if pending.Phase == models.PhaseSelected {
		pending.Phase = models.PhaseReady
		if err := p.Pendings.Update(ctx, nil, pending); err != nil {
			return nil, err
		}
		p.Events.Publish(roomForRun(run.ID), models.Event{
			Type:    models.EventRunStarted,
			Payload: PhaseEventPayload{RunID: run.ID, Kind: p.kind, Phase: models.PhaseReady},
		})
	}

	result, err := p.Simulator.Simulate(ctx, brackets.SimulateParams{
		Fighters: fighters,
		Seed:     value,
		Lethal:   p.cfg.Lethal,
	})
	if err != nil {
		return nil, fmt.Errorf("simulate run %d: %w", run.ID, err)
	}

	completion := repositories.RunCompletion{
		ChampionID:      result.Champion.CompetitorID,
		RunnerUpID:      result.RunnerUp.CompetitorID,
		ChampionStandIn: result.Champion.StandIn,
		RunnerUpStandIn: result.RunnerUp.StandIn,
		Replacements:    replacements,
		CompletedAt:     defaultNow(),
	}
	for _, e := range result.Eliminations {
		completion.Eliminations = append(completion.Eliminations, models.Elimination{
			RunID:        run.ID,
			CompetitorID: e.Fighter.CompetitorID,
			StandIn:      e.Fighter.StandIn,
			Round:        e.Round,
			FightIndex:   e.FightIndex,
			Outcome:      e.Outcome,
		})
	}

	err = p.withTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := p.Runs.Complete(ctx, exec, run.ID, completion); err != nil {
			return err
		}
		if err := p.Distributor.DistributeRatings(ctx, exec, run, result); err != nil {
			return err
		}
		return p.Pendings.Delete(ctx, exec, run.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("complete run %d: %w", run.ID, err)
	}

	// Post-completion side effects are best-effort and must not undo the
	// completed run.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.Distributor.DistributeRewards(gctx, run, result, value)
		return nil
	})
	g.Go(func() error {
		p.archiveLogs(gctx, run.ID, result)
		return nil
	})
	_ = g.Wait()

	completed, err := p.Runs.GetByID(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("reload completed run %d: %w", run.ID, err)
	}

	p.Logger.Info("run completed",
		slog.Int64("run_id", run.ID), slog.String("kind", string(p.kind)),
		slog.Int64("champion_id", completion.ChampionID), slog.Int64("runner_up_id", completion.RunnerUpID))
	p.Metrics.RunsCompleted.WithLabelValues(string(p.kind)).Inc()
	p.Events.Publish(roomForRun(run.ID), models.Event{
		Type:    models.EventRunCompleted,
		Payload: RunCompletedPayload{Run: completed},
	})
	return completed, nil
}

// randomnessFor gates a phase transition on its checkpoint. Not-yet-ready
// maps to a retryable checkpoint error; expiry auto-recovers the pending
// run and reports it, never silently.
func (p *runPipeline) randomnessFor(ctx context.Context, pending *models.PendingRun, round uint64) ([32]byte, error) {
	value, err := p.Oracle.ValueFor(round)
	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, oracle.ErrNotYetAvailable):
		return [32]byte{}, &CheckpointNotReachedError{Required: round, Current: p.Oracle.CurrentRound()}
	case errors.Is(err, oracle.ErrExpired):
		if recErr := p.Recovery.RecoverPendingRun(ctx, pending); recErr != nil {
			p.Logger.Error("auto-recovery after randomness expiry failed",
				slog.Int64("run_id", pending.RunID), slog.Any("error", recErr))
			return [32]byte{}, fmt.Errorf("recover expired run %d: %w", pending.RunID, recErr)
		}
		return [32]byte{}, fmt.Errorf("run %d round %d: %w", pending.RunID, round, ErrRandomnessExpired)
	default:
		return [32]byte{}, fmt.Errorf("fetch randomness for round %d: %w", round, err)
	}
}

func (p *runPipeline) archiveLogs(ctx context.Context, runID int64, result *brackets.Result) {
	if p.Archiver == nil {
		return
	}
	logs := make([][]byte, 0, len(result.Fights))
	for _, f := range result.Fights {
		logs = append(logs, f.EncodedLog)
	}
	key, err := p.Archiver.Archive(ctx, runID, logs)
	if err != nil {
		p.Logger.Warn("archive combat logs", slog.Int64("run_id", runID), slog.Any("error", err))
		return
	}
	p.Logger.Info("combat logs archived", slog.Int64("run_id", runID), slog.String("key", key))
}

// Scheduler is the calendar-cadence tournament controller: one commit per
// UTC day, at most one pending run in flight. The day gate is persisted
// through the state repository and cached after the first read, so it
// survives restarts.
type Scheduler struct {
	runPipeline
	state repositories.SchedulerStateRepository

	mu            sync.Mutex
	lastCommitDay string
	dayLoaded     bool
	now           nowFunc
}

func NewScheduler(deps PipelineDeps, cfg PipelineConfig, state repositories.SchedulerStateRepository) *Scheduler {
	return &Scheduler{
		runPipeline: runPipeline{PipelineDeps: deps, cfg: cfg, kind: models.KindTournament},
		state:       state,
		now:         defaultNow,
	}
}

// Commit opens today's tournament. It fails while a pending run is in
// flight or when the daily window was already used.
func (s *Scheduler) Commit(ctx context.Context) (*models.PendingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.Pendings.GetCurrent(ctx, models.KindTournament); err == nil {
		return nil, ErrRunAlreadyPending
	} else if !errors.Is(err, repositories.ErrPendingRunNotFound) {
		return nil, err
	}

	day := s.now().Format(dayLayout)
	last, err := s.commitDay(ctx)
	if err != nil {
		return nil, err
	}
	if day == last {
		return nil, ErrDailyWindowUsed
	}

	pending, err := s.commit(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.state.SetLastCommitDay(ctx, nil, day); err != nil {
		s.Logger.Error("persist commit day", slog.String("day", day), slog.Any("error", err))
	}
	s.lastCommitDay = day
	s.dayLoaded = true
	return pending, nil
}

// commitDay returns the last day a commit succeeded, reading the persisted
// marker on first use and the cache afterwards. Callers hold s.mu.
func (s *Scheduler) commitDay(ctx context.Context) (string, error) {
	if s.dayLoaded {
		return s.lastCommitDay, nil
	}
	day, err := s.state.LastCommitDay(ctx)
	if err != nil {
		return "", fmt.Errorf("load last commit day: %w", err)
	}
	s.lastCommitDay = day
	s.dayLoaded = true
	return day, nil
}

// reopenWindow clears the daily gate, in memory and in the store, after a
// recovery or randomness expiry. Callers hold s.mu.
func (s *Scheduler) reopenWindow(ctx context.Context) {
	if err := s.state.ClearLastCommitDay(ctx, nil); err != nil {
		s.Logger.Error("clear commit day", slog.Any("error", err))
	}
	s.lastCommitDay = ""
	s.dayLoaded = true
}

func (s *Scheduler) Select(ctx context.Context) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.currentPending(ctx)
	if err != nil {
		return nil, err
	}
	run, err := s.selectPending(ctx, pending)
	if errors.Is(err, ErrRandomnessExpired) {
		s.reopenWindow(ctx)
	}
	return run, err
}

func (s *Scheduler) Execute(ctx context.Context) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.currentPending(ctx)
	if err != nil {
		return nil, err
	}
	run, err := s.executePending(ctx, pending)
	if errors.Is(err, ErrRandomnessExpired) {
		s.reopenWindow(ctx)
	}
	return run, err
}

// Recover discards or restores the current pending run and reopens the
// daily window. Without a pending run it is a no-op.
func (s *Scheduler) Recover(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.Pendings.GetCurrent(ctx, models.KindTournament)
	if err != nil {
		if errors.Is(err, repositories.ErrPendingRunNotFound) {
			return nil
		}
		return err
	}
	if err := s.Recovery.RecoverPendingRun(ctx, pending); err != nil {
		return err
	}
	s.reopenWindow(ctx)
	return nil
}

func (s *Scheduler) currentPending(ctx context.Context) (*models.PendingRun, error) {
	pending, err := s.Pendings.GetCurrent(ctx, models.KindTournament)
	if err != nil {
		if errors.Is(err, repositories.ErrPendingRunNotFound) {
			return nil, ErrNoPendingRun
		}
		return nil, err
	}
	return pending, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/repositories"
)

// Gauntlet is the continuous controller: any number of pending runs may
// be in flight at once, each addressed by its run id. Commits do not
// reserve seats; a selection that finds the queue drained fails with
// ErrInsufficientQueue and the run is recovered by the caller.
type Gauntlet struct {
	runPipeline
	mu sync.Mutex
}

func NewGauntlet(deps PipelineDeps, cfg PipelineConfig) *Gauntlet {
	return &Gauntlet{
		runPipeline: runPipeline{PipelineDeps: deps, cfg: cfg, kind: models.KindGauntlet},
	}
}

// Trigger opens a new gauntlet run when enough unreserved competitors are
// queued. Reservation is an estimate: each committed run that has not yet
// selected will draw a full bracket.
func (g *Gauntlet) Trigger(ctx context.Context) (*models.PendingRun, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	inFlight, err := g.Pendings.ListByKind(ctx, models.KindGauntlet)
	if err != nil {
		return nil, err
	}
	reserved := 0
	for _, p := range inFlight {
		if p.Phase == models.PhaseCommitted {
			reserved += g.cfg.BracketSize
		}
	}
	if g.Queue.Len()-reserved < g.cfg.BracketSize {
		return nil, fmt.Errorf("%w: have %d queued, %d reserved, need %d",
			ErrQueueBelowThreshold, g.Queue.Len(), reserved, g.cfg.BracketSize)
	}
	return g.commit(ctx)
}

func (g *Gauntlet) Select(ctx context.Context, runID int64) (*models.Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pending, err := g.pendingByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return g.selectPending(ctx, pending)
}

func (g *Gauntlet) Execute(ctx context.Context, runID int64) (*models.Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pending, err := g.pendingByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return g.executePending(ctx, pending)
}

// Recover discards one pending gauntlet run. Unknown run ids are a no-op
// so that repeated recovery calls converge.
func (g *Gauntlet) Recover(ctx context.Context, runID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	pending, err := g.Pendings.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repositories.ErrPendingRunNotFound) {
			return nil
		}
		return err
	}
	return g.Recovery.RecoverPendingRun(ctx, pending)
}

// Pending lists the gauntlet runs currently in flight.
func (g *Gauntlet) Pending(ctx context.Context) ([]models.PendingRun, error) {
	return g.Pendings.ListByKind(ctx, models.KindGauntlet)
}

func (g *Gauntlet) pendingByID(ctx context.Context, runID int64) (*models.PendingRun, error) {
	pending, err := g.Pendings.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repositories.ErrPendingRunNotFound) {
			return nil, ErrNoPendingRun
		}
		return nil, err
	}
	if pending.Kind != models.KindGauntlet {
		return nil, ErrNoPendingRun
	}
	return pending, nil
}

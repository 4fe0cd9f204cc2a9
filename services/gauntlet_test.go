package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Aitbek01/arena-gauntlet/brackets"
	"github.com/Aitbek01/arena-gauntlet/metrics"
	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/queue"
)

type gauntletFixture struct {
	gauntlet *Gauntlet
	queue    *queue.Store
	oracle   *fakeOracle
	pendings *fakePendingRepo
	runs     *fakeRunRepo
}

func newGauntletFixture(t *testing.T, competitors int) *gauntletFixture {
	t.Helper()

	ids := make([]int64, competitors)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	registry := newFakeRegistry(ids...)
	store := queue.NewStore()
	orc := newFakeOracle(5)
	pub := &recordingPublisher{}
	runs := newFakeRunRepo()
	pendings := newFakePendingRepo()
	rewards := newFakeRewardRepo()
	for _, tier := range []models.PlacementTier{models.TierChampion, models.TierRunnerUp, models.TierSemifinalist} {
		rewards.policies[tier] = []models.RewardSlot{
			{Category: models.CategoryGolden, Weight: models.RewardWeightTotal},
		}
	}
	m := metrics.New()
	recovery := NewRecoveryManager(store, runs, pendings, newFakeDuelRepo(), orc, pub, m, time.Hour, discardLogger())

	deps := PipelineDeps{
		Queue:       store,
		Oracle:      orc,
		Resolver:    NewResolver(registry, &fakeValidator{}, DefaultStandIns(16), pub, discardLogger()),
		Simulator:   brackets.NewSimulator(brackets.NewPowerWeightedOracle(), registry),
		Distributor: NewDistributor(newFakeRatingRepo(), rewards, &fakeIssuer{}, registry, testDistributorConfig(), pub, m, discardLogger()),
		Runs:        runs,
		Pendings:    pendings,
		Recovery:    recovery,
		Events:      pub,
		Metrics:     m,
		Logger:      discardLogger(),
	}
	cfg := PipelineConfig{BracketSize: 8, SelectionOffset: 1, ExecutionOffset: 1}
	f := &gauntletFixture{
		gauntlet: NewGauntlet(deps, cfg),
		queue:    store,
		oracle:   orc,
		pendings: pendings,
		runs:     runs,
	}
	for _, id := range ids {
		if err := store.Add(models.QueueEntry{CompetitorID: id, EnqueuedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("enqueue %d: %v", id, err)
		}
	}
	return f
}

func TestGauntletTriggerThreshold(t *testing.T) {
	f := newGauntletFixture(t, 7)
	if _, err := f.gauntlet.Trigger(context.Background()); !errors.Is(err, ErrQueueBelowThreshold) {
		t.Fatalf("Trigger with 7 queued err = %v, want ErrQueueBelowThreshold", err)
	}
}

func TestGauntletConcurrentRuns(t *testing.T) {
	f := newGauntletFixture(t, 16)
	ctx := context.Background()

	first, err := f.gauntlet.Trigger(ctx)
	if err != nil {
		t.Fatalf("first Trigger: %v", err)
	}
	second, err := f.gauntlet.Trigger(ctx)
	if err != nil {
		t.Fatalf("second Trigger: %v", err)
	}
	if first.RunID == second.RunID {
		t.Fatalf("both triggers produced run %d", first.RunID)
	}

	// 16 queued minus two committed reservations leaves no room.
	if _, err := f.gauntlet.Trigger(ctx); !errors.Is(err, ErrQueueBelowThreshold) {
		t.Fatalf("third Trigger err = %v, want ErrQueueBelowThreshold", err)
	}

	f.oracle.advance(1)
	runA, err := f.gauntlet.Select(ctx, first.RunID)
	if err != nil {
		t.Fatalf("Select run %d: %v", first.RunID, err)
	}
	runB, err := f.gauntlet.Select(ctx, second.RunID)
	if err != nil {
		t.Fatalf("Select run %d: %v", second.RunID, err)
	}

	seated := map[int64]int64{}
	for _, p := range runA.Participants {
		seated[p.CompetitorID] = runA.ID
	}
	for _, p := range runB.Participants {
		if other, dup := seated[p.CompetitorID]; dup {
			t.Errorf("competitor %d seated in runs %d and %d", p.CompetitorID, other, runB.ID)
		}
	}

	f.oracle.advance(1)
	for _, id := range []int64{first.RunID, second.RunID} {
		completed, err := f.gauntlet.Execute(ctx, id)
		if err != nil {
			t.Fatalf("Execute run %d: %v", id, err)
		}
		if completed.State != models.RunCompleted {
			t.Errorf("run %d state = %s, want %s", id, completed.State, models.RunCompleted)
		}
	}
	if remaining, _ := f.gauntlet.Pending(ctx); len(remaining) != 0 {
		t.Errorf("pending gauntlet runs after completion = %d, want 0", len(remaining))
	}
}

func TestGauntletSelectDrainedQueue(t *testing.T) {
	f := newGauntletFixture(t, 8)
	ctx := context.Background()

	pending, err := f.gauntlet.Trigger(ctx)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	// Commit does not reserve seats: everyone leaves before selection.
	for id := int64(1); id <= 8; id++ {
		if _, err := f.queue.Remove(id); err != nil {
			t.Fatalf("remove %d: %v", id, err)
		}
	}

	f.oracle.advance(1)
	if _, err := f.gauntlet.Select(ctx, pending.RunID); !errors.Is(err, ErrInsufficientQueue) {
		t.Fatalf("Select err = %v, want ErrInsufficientQueue", err)
	}

	if err := f.gauntlet.Recover(ctx, pending.RunID); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if err := f.gauntlet.Recover(ctx, pending.RunID); err != nil {
		t.Fatalf("repeated Recover: %v", err)
	}
	if remaining, _ := f.gauntlet.Pending(ctx); len(remaining) != 0 {
		t.Errorf("pending runs after recovery = %d, want 0", len(remaining))
	}
}

func TestGauntletUnknownRun(t *testing.T) {
	f := newGauntletFixture(t, 8)
	ctx := context.Background()

	if _, err := f.gauntlet.Select(ctx, 404); !errors.Is(err, ErrNoPendingRun) {
		t.Fatalf("Select unknown run err = %v, want ErrNoPendingRun", err)
	}
	if _, err := f.gauntlet.Execute(ctx, 404); !errors.Is(err, ErrNoPendingRun) {
		t.Fatalf("Execute unknown run err = %v, want ErrNoPendingRun", err)
	}
	if err := f.gauntlet.Recover(ctx, 404); err != nil {
		t.Fatalf("Recover unknown run: %v", err)
	}
}

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
	"github.com/Aitbek01/arena-gauntlet/repositories"
	"github.com/google/uuid"
)

type duelFixture struct {
	service  *DuelService
	duels    *fakeDuelRepo
	registry *fakeRegistry
	oracle   *fakeOracle
	recovery *RecoveryManager
	pub      *recordingPublisher
}

func newDuelFixture(t *testing.T) *duelFixture {
	t.Helper()
	registry := newFakeRegistry(1, 2)
	duels := newFakeDuelRepo()
	orc := newFakeOracle(5)
	pub := &recordingPublisher{}
	m := metrics.New()
	recovery := NewRecoveryManager(queue.NewStore(), newFakeRunRepo(), newFakePendingRepo(), duels, orc, pub, m, time.Hour, discardLogger())
	svc := NewDuelService(duels, registry, orc, brackets.NewPowerWeightedOracle(), recovery, pub, m, 2, discardLogger())
	return &duelFixture{service: svc, duels: duels, registry: registry, oracle: orc, recovery: recovery, pub: pub}
}

func TestDuelLifecycle(t *testing.T) {
	f := newDuelFixture(t)
	ctx := context.Background()

	duel, err := f.service.Create(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if duel.Status != models.DuelPending {
		t.Fatalf("status = %s, want %s", duel.Status, models.DuelPending)
	}

	var notReached *CheckpointNotReachedError
	if _, err := f.service.Resolve(ctx, duel.ID); !errors.As(err, &notReached) {
		t.Fatalf("early Resolve err = %v, want CheckpointNotReachedError", err)
	}

	f.oracle.advance(2)
	resolved, err := f.service.Resolve(ctx, duel.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Status != models.DuelCompleted {
		t.Fatalf("status = %s, want %s", resolved.Status, models.DuelCompleted)
	}
	if resolved.WinnerID == nil {
		t.Fatal("winner not recorded")
	}
	winner := *resolved.WinnerID
	loser := duel.FighterAID
	if winner == loser {
		loser = duel.FighterBID
	}
	if f.registry.wins[winner] != 1 || f.registry.losses[loser] != 1 {
		t.Errorf("counters: wins[%d]=%d losses[%d]=%d, want 1 each",
			winner, f.registry.wins[winner], loser, f.registry.losses[loser])
	}

	if _, err := f.service.Resolve(ctx, duel.ID); !errors.Is(err, repositories.ErrDuelNotPending) {
		t.Fatalf("second Resolve err = %v, want ErrDuelNotPending", err)
	}
}

func TestDuelResolveIsDeterministic(t *testing.T) {
	run := func() int64 {
		f := newDuelFixture(t)
		duel, err := f.service.Create(context.Background(), 1, 2)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		f.oracle.advance(2)
		resolved, err := f.service.Resolve(context.Background(), duel.ID)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		return *resolved.WinnerID
	}
	if first, second := run(), run(); first != second {
		t.Errorf("same randomness produced winners %d and %d", first, second)
	}
}

func TestDuelCreateValidation(t *testing.T) {
	f := newDuelFixture(t)
	ctx := context.Background()

	if _, err := f.service.Create(ctx, 1, 1); !errors.Is(err, ErrCompetitorIneligible) {
		t.Fatalf("self-duel err = %v, want ErrCompetitorIneligible", err)
	}
	f.registry.retired[2] = true
	if _, err := f.service.Create(ctx, 1, 2); !errors.Is(err, ErrCompetitorIneligible) {
		t.Fatalf("retired opponent err = %v, want ErrCompetitorIneligible", err)
	}
	if _, err := f.service.Create(ctx, 1, 99); !errors.Is(err, repositories.ErrCompetitorNotFound) {
		t.Fatalf("unknown opponent err = %v, want ErrCompetitorNotFound", err)
	}
}

func TestDuelExpiredRandomnessCancels(t *testing.T) {
	f := newDuelFixture(t)
	ctx := context.Background()

	duel, err := f.service.Create(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.oracle.advance(2 + 5 + 1)

	if _, err := f.service.Resolve(ctx, duel.ID); !errors.Is(err, ErrRandomnessExpired) {
		t.Fatalf("Resolve err = %v, want ErrRandomnessExpired", err)
	}
	stored, err := f.duels.GetByID(ctx, duel.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != models.DuelCanceled {
		t.Fatalf("status = %s, want %s", stored.Status, models.DuelCanceled)
	}
	if stored.WinnerID != nil {
		t.Errorf("canceled duel records winner %d", *stored.WinnerID)
	}
	if got := f.pub.count(models.EventDuelRecovered); got != 1 {
		t.Errorf("DUEL_RECOVERED events = %d, want 1", got)
	}
}

func TestRecoverDuelNotTimedOut(t *testing.T) {
	f := newDuelFixture(t)
	ctx := context.Background()

	duel, err := f.service.Create(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.recovery.RecoverDuel(ctx, duel); !errors.Is(err, ErrDuelNotTimedOut) {
		t.Fatalf("RecoverDuel on live duel err = %v, want ErrDuelNotTimedOut", err)
	}
}

func TestSweepDuels(t *testing.T) {
	f := newDuelFixture(t)
	ctx := context.Background()

	stale := &models.Duel{
		ID:         uuid.New(),
		FighterAID: 1,
		FighterBID: 2,
		Round:      1,
		Status:     models.DuelPending,
		CreatedAt:  time.Now().UTC().Add(-2 * time.Hour),
	}
	if err := f.duels.Create(ctx, stale); err != nil {
		t.Fatalf("seed stale duel: %v", err)
	}
	fresh, err := f.service.Create(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	recovered, err := f.recovery.SweepDuels(ctx)
	if err != nil {
		t.Fatalf("SweepDuels: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("recovered = %d, want 1", recovered)
	}
	if d, _ := f.duels.GetByID(ctx, stale.ID); d.Status != models.DuelCanceled {
		t.Errorf("stale duel status = %s, want %s", d.Status, models.DuelCanceled)
	}
	if d, _ := f.duels.GetByID(ctx, fresh.ID); d.Status != models.DuelPending {
		t.Errorf("fresh duel status = %s, want %s", d.Status, models.DuelPending)
	}
}

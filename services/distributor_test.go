package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Aitbek01/arena-gauntlet/brackets"
	"github.com/Aitbek01/arena-gauntlet/metrics"
	"github.com/Aitbek01/arena-gauntlet/models"
)

func testDistributorConfig() DistributorConfig {
	return DistributorConfig{
		Tables: map[int][]int{
			8: {0, 10, 20},
		},
		ChampionPoints: 50,
		RunnerUpPoints: 35,
	}
}

// eightFighterResult builds the result of an 8-bracket where competitor 8
// wins, 7 is runner-up, 5 and 6 fall in the semifinals and 1-4 fall in
// round one.
func eightFighterResult() *brackets.Result {
	f := func(id int64) brackets.Fighter { return brackets.Fighter{CompetitorID: id} }
	return &brackets.Result{
		Champion: f(8),
		RunnerUp: f(7),
		Eliminations: []brackets.Elimination{
			{Fighter: f(1), Round: 1, FightIndex: 0, Outcome: models.OutcomeDecision},
			{Fighter: f(2), Round: 1, FightIndex: 1, Outcome: models.OutcomeDecision},
			{Fighter: f(3), Round: 1, FightIndex: 2, Outcome: models.OutcomeDecision},
			{Fighter: f(4), Round: 1, FightIndex: 3, Outcome: models.OutcomeDecision},
			{Fighter: f(5), Round: 2, FightIndex: 0, Outcome: models.OutcomeDecision},
			{Fighter: f(6), Round: 2, FightIndex: 1, Outcome: models.OutcomeDecision},
			{Fighter: f(7), Round: 3, FightIndex: 0, Outcome: models.OutcomeDecision},
		},
	}
}

func TestPeriodOf(t *testing.T) {
	// 2026-01-01 is a Thursday of ISO week 1.
	if got := PeriodOf(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)); got != 202601 {
		t.Errorf("PeriodOf(2026-01-01) = %d, want 202601", got)
	}
	// 2024-12-30 belongs to ISO week 1 of 2025.
	if got := PeriodOf(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)); got != 202501 {
		t.Errorf("PeriodOf(2024-12-30) = %d, want 202501", got)
	}
}

func TestDistributeRatings(t *testing.T) {
	registry := newFakeRegistry(1, 2, 3, 4, 5, 6, 7, 8)
	ratings := newFakeRatingRepo()
	pub := &recordingPublisher{}
	d := NewDistributor(ratings, newFakeRewardRepo(), &fakeIssuer{}, registry, testDistributorConfig(), pub, metrics.New(), discardLogger())
	run := &models.Run{ID: 1, Kind: models.KindTournament, Size: 8}
	result := eightFighterResult()

	if err := d.DistributeRatings(context.Background(), nil, run, result); err != nil {
		t.Fatalf("DistributeRatings: %v", err)
	}

	period := PeriodOf(time.Now().UTC())
	wantPoints := map[int64]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 10, 6: 10, 7: 35, 8: 50}
	for id, want := range wantPoints {
		got, _ := ratings.Get(context.Background(), id, period)
		if got != want {
			t.Errorf("competitor %d rating = %d, want %d", id, got, want)
		}
		if registry.experience[id] != want {
			t.Errorf("competitor %d experience = %d, want %d", id, registry.experience[id], want)
		}
	}
	// Round-one losers earn zero and produce no award events.
	if got := pub.count(models.EventRatingAwarded); got != 4 {
		t.Errorf("RATING_AWARDED events = %d, want 4", got)
	}
}

func TestDistributeRatingsSkipsStandIns(t *testing.T) {
	registry := newFakeRegistry(1, 2, 3, 4, 5, 6, 7, 8)
	ratings := newFakeRatingRepo()
	d := NewDistributor(ratings, newFakeRewardRepo(), &fakeIssuer{}, registry, testDistributorConfig(), &recordingPublisher{}, metrics.New(), discardLogger())
	run := &models.Run{ID: 1, Size: 8}
	result := eightFighterResult()
	result.Eliminations[4].Fighter.StandIn = true

	if err := d.DistributeRatings(context.Background(), nil, run, result); err != nil {
		t.Fatalf("DistributeRatings: %v", err)
	}
	period := PeriodOf(time.Now().UTC())
	if got, _ := ratings.Get(context.Background(), 5, period); got != 0 {
		t.Errorf("stand-in seat accrued %d rating, want 0", got)
	}
}

func TestDistributeRatingsUnknownSize(t *testing.T) {
	d := NewDistributor(newFakeRatingRepo(), newFakeRewardRepo(), &fakeIssuer{}, newFakeRegistry(), testDistributorConfig(), &recordingPublisher{}, metrics.New(), discardLogger())
	run := &models.Run{ID: 1, Size: 16}

	err := d.DistributeRatings(context.Background(), nil, run, eightFighterResult())
	if !errors.Is(err, ErrNoRatingTable) {
		t.Fatalf("err = %v, want ErrNoRatingTable", err)
	}
}

func TestRollCategory(t *testing.T) {
	slots := []models.RewardSlot{
		{Category: models.CategoryGolden, Weight: 100},
		{Category: models.CategorySilver, Weight: 900},
		{Category: models.CategoryBronze, Weight: 4000},
		{Category: models.CategoryNone, Weight: 5000},
	}
	cases := []struct {
		roll int
		want models.RewardCategory
	}{
		{0, models.CategoryGolden},
		{99, models.CategoryGolden},
		{100, models.CategorySilver},
		{999, models.CategorySilver},
		{1000, models.CategoryBronze},
		{4999, models.CategoryBronze},
		{5000, models.CategoryNone},
		{9999, models.CategoryNone},
	}
	for _, c := range cases {
		if got := rollCategory(slots, c.roll); got != c.want {
			t.Errorf("rollCategory(%d) = %s, want %s", c.roll, got, c.want)
		}
	}
}

func TestRollCategoryZeroWeightTerminates(t *testing.T) {
	slots := []models.RewardSlot{
		{Category: models.CategoryGolden, Weight: 100},
		{Category: models.CategorySilver, Weight: 0},
		{Category: models.CategoryBronze, Weight: 9900},
	}
	if got := rollCategory(slots, 5000); got != models.CategoryNone {
		t.Errorf("roll past zero-weight slot = %s, want %s", got, models.CategoryNone)
	}
}

func TestValidatePolicy(t *testing.T) {
	good := []models.RewardSlot{
		{Category: models.CategoryGolden, Weight: 2500},
		{Category: models.CategoryNone, Weight: 7500},
	}
	if err := ValidatePolicy(good); err != nil {
		t.Errorf("valid policy rejected: %v", err)
	}

	short := []models.RewardSlot{{Category: models.CategoryGolden, Weight: 9999}}
	if err := ValidatePolicy(short); !errors.Is(err, ErrInvalidRewardPercentages) {
		t.Errorf("short policy err = %v, want ErrInvalidRewardPercentages", err)
	}

	negative := []models.RewardSlot{
		{Category: models.CategoryGolden, Weight: -1},
		{Category: models.CategoryNone, Weight: 10001},
	}
	if err := ValidatePolicy(negative); !errors.Is(err, ErrInvalidRewardPercentages) {
		t.Errorf("negative policy err = %v, want ErrInvalidRewardPercentages", err)
	}
}

func TestDistributeRewardsBestEffort(t *testing.T) {
	registry := newFakeRegistry(1, 2, 3, 4, 5, 6, 7, 8)
	rewards := newFakeRewardRepo()
	for _, tier := range []models.PlacementTier{models.TierChampion, models.TierRunnerUp, models.TierSemifinalist} {
		rewards.policies[tier] = []models.RewardSlot{
			{Category: models.CategoryGolden, Weight: models.RewardWeightTotal},
		}
	}
	issuer := &fakeIssuer{fail: true}
	pub := &recordingPublisher{}
	d := NewDistributor(newFakeRatingRepo(), rewards, issuer, registry, testDistributorConfig(), pub, metrics.New(), discardLogger())
	run := &models.Run{ID: 1, Size: 8}

	d.DistributeRewards(context.Background(), run, eightFighterResult(), [32]byte{1})

	// Champion, runner-up and both semifinalists each get a reward event
	// even though issuance failed.
	if got := pub.count(models.EventRewardDistributed); got != 4 {
		t.Fatalf("REWARD_DISTRIBUTED events = %d, want 4", got)
	}
	for _, e := range pub.events {
		if e.Type != models.EventRewardDistributed {
			continue
		}
		payload := e.Payload.(RewardEventPayload)
		if payload.Issued {
			t.Errorf("competitor %d reported issued despite issuer failure", payload.CompetitorID)
		}
	}
}

func TestDistributeRewardsDeterministicRolls(t *testing.T) {
	registry := newFakeRegistry(1, 2, 3, 4, 5, 6, 7, 8)
	rewards := newFakeRewardRepo()
	for _, tier := range []models.PlacementTier{models.TierChampion, models.TierRunnerUp, models.TierSemifinalist} {
		rewards.policies[tier] = []models.RewardSlot{
			{Category: models.CategoryGolden, Weight: 5000},
			{Category: models.CategoryNone, Weight: 5000},
		}
	}
	run := &models.Run{ID: 9, Size: 8}
	seed := [32]byte{7, 7, 7}

	issueRound := func() map[int64][]models.RewardCategory {
		issuer := &fakeIssuer{}
		d := NewDistributor(newFakeRatingRepo(), rewards, issuer, registry, testDistributorConfig(), &recordingPublisher{}, metrics.New(), discardLogger())
		d.DistributeRewards(context.Background(), run, eightFighterResult(), seed)
		return issuer.issued
	}

	first := issueRound()
	second := issueRound()
	if len(first) != len(second) {
		t.Fatalf("issued sets differ in size: %d vs %d", len(first), len(second))
	}
	for id, cats := range first {
		if len(second[id]) != len(cats) {
			t.Errorf("competitor %d issuance differs across identical rolls", id)
		}
	}
}

package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/oracle"
	"github.com/Aitbek01/arena-gauntlet/repositories"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRegistry is an in-memory competitor registry recording the side
// effects services apply through it.
type fakeRegistry struct {
	mu          sync.Mutex
	competitors map[int64]*models.Competitor
	retired     map[int64]bool
	wins        map[int64]int
	losses      map[int64]int
	kills       map[int64]int
	experience  map[int64]int
}

func newFakeRegistry(ids ...int64) *fakeRegistry {
	r := &fakeRegistry{
		competitors: make(map[int64]*models.Competitor),
		retired:     make(map[int64]bool),
		wins:        make(map[int64]int),
		losses:      make(map[int64]int),
		kills:       make(map[int64]int),
		experience:  make(map[int64]int),
	}
	for _, id := range ids {
		r.competitors[id] = &models.Competitor{
			ID:      id,
			OwnerID: id * 100,
			Name:    fmt.Sprintf("Competitor %d", id),
			Stats:   models.StatBlock{Attack: 10, Defense: 10, Vitality: 10, Speed: 10},
		}
	}
	return r
}

func (r *fakeRegistry) GetByID(_ context.Context, id int64) (*models.Competitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.competitors[id]
	if !ok {
		return nil, repositories.ErrCompetitorNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeRegistry) OwnerOf(_ context.Context, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.competitors[id]
	if !ok {
		return 0, repositories.ErrCompetitorNotFound
	}
	return c.OwnerID, nil
}

func (r *fakeRegistry) IsRetired(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.competitors[id]; !ok {
		return false, repositories.ErrCompetitorNotFound
	}
	return r.retired[id], nil
}

func (r *fakeRegistry) Retire(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retired[id] = true
	return nil
}

func (r *fakeRegistry) RecordWin(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wins[id]++
	return nil
}

func (r *fakeRegistry) RecordLoss(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.losses[id]++
	return nil
}

func (r *fakeRegistry) RecordKill(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kills[id]++
	return nil
}

func (r *fakeRegistry) AwardExperience(_ context.Context, id int64, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.experience[id] += points
	return nil
}

// fakeValidator rejects the competitor ids listed in bad.
type fakeValidator struct {
	bad map[int64]error
}

func (v *fakeValidator) ValidateLoadout(_ context.Context, competitorID int64, _ models.Loadout) error {
	if v.bad == nil {
		return nil
	}
	return v.bad[competitorID]
}

type fakeIssuer struct {
	mu     sync.Mutex
	issued map[int64][]models.RewardCategory
	fail   bool
}

func (i *fakeIssuer) Issue(_ context.Context, competitorID int64, category models.RewardCategory) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.fail {
		return fmt.Errorf("issuer unavailable")
	}
	if i.issued == nil {
		i.issued = make(map[int64][]models.RewardCategory)
	}
	i.issued[competitorID] = append(i.issued[competitorID], category)
	return nil
}

// fakeOracle is a manually advanced randomness source. Values follow the
// same checkpoint discipline as the beacon: not available before the
// round, expired after round+window.
type fakeOracle struct {
	mu      sync.Mutex
	current uint64
	window  uint64
}

func newFakeOracle(window uint64) *fakeOracle {
	return &fakeOracle{window: window}
}

func (o *fakeOracle) advance(rounds uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current += rounds
}

func (o *fakeOracle) CurrentRound() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *fakeOracle) RequestAt(round uint64) (oracle.RequestHandle, error) {
	if round <= o.CurrentRound() {
		return oracle.RequestHandle{}, oracle.ErrRoundNotFuture
	}
	return oracle.RequestHandle{ID: uuid.New(), Round: round, RequestedAt: time.Now()}, nil
}

func (o *fakeOracle) ValueFor(round uint64) ([32]byte, error) {
	current := o.CurrentRound()
	if current < round {
		return [32]byte{}, oracle.ErrNotYetAvailable
	}
	if current > round+o.window {
		return [32]byte{}, oracle.ErrExpired
	}
	var v [32]byte
	v[0] = byte(round)
	v[1] = byte(round >> 8)
	v[31] = 0x5E
	return v, nil
}

// recordingPublisher captures every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ string, event models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) typesSeen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// fakeSchedulerStateRepo keeps the cadence marker in memory, shared by
// every scheduler built over it.
type fakeSchedulerStateRepo struct {
	mu  sync.Mutex
	day string
}

func (r *fakeSchedulerStateRepo) LastCommitDay(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.day, nil
}

func (r *fakeSchedulerStateRepo) SetLastCommitDay(_ context.Context, _ repositories.SQLExecutor, day string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.day = day
	return nil
}

func (r *fakeSchedulerStateRepo) ClearLastCommitDay(_ context.Context, _ repositories.SQLExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.day = ""
	return nil
}

// fakeRunRepo keeps runs in memory, honoring the state guards of the
// Postgres implementation.
type fakeRunRepo struct {
	mu   sync.Mutex
	runs map[int64]*models.Run
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[int64]*models.Run)}
}

func (r *fakeRunRepo) Create(_ context.Context, _ repositories.SQLExecutor, run *models.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run.CreatedAt = time.Now().UTC()
	copied := *run
	r.runs[run.ID] = &copied
	return nil
}

func (r *fakeRunRepo) GetByID(_ context.Context, id int64) (*models.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, repositories.ErrRunNotFound
	}
	copied := *run
	return &copied, nil
}

func (r *fakeRunRepo) List(_ context.Context, filter repositories.ListRunsFilter) ([]models.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Run
	for _, run := range r.runs {
		out = append(out, *run)
	}
	return out, nil
}

func (r *fakeRunRepo) Complete(_ context.Context, _ repositories.SQLExecutor, id int64, completion repositories.RunCompletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return repositories.ErrRunNotFound
	}
	if run.State != models.RunPending {
		return repositories.ErrRunNotFound
	}
	run.State = models.RunCompleted
	run.ChampionID = &completion.ChampionID
	run.RunnerUpID = &completion.RunnerUpID
	run.ChampionStandIn = completion.ChampionStandIn
	run.RunnerUpStandIn = completion.RunnerUpStandIn
	run.Eliminations = completion.Eliminations
	completedAt := completion.CompletedAt
	run.CompletedAt = &completedAt
	for _, rep := range completion.Replacements {
		for i := range run.Participants {
			if run.Participants[i].Seat == rep.Seat {
				run.Participants[i] = rep
			}
		}
	}
	return nil
}

func (r *fakeRunRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, id)
	return nil
}

func (r *fakeRunRepo) LastCompleted(_ context.Context, kind models.RunKind) (*models.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *models.Run
	for _, run := range r.runs {
		if run.Kind != kind || run.State != models.RunCompleted {
			continue
		}
		if last == nil || run.CompletedAt.After(*last.CompletedAt) {
			last = run
		}
	}
	if last == nil {
		return nil, repositories.ErrRunNotFound
	}
	copied := *last
	return &copied, nil
}

type fakePendingRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.PendingRun
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{nextID: 1, rows: make(map[int64]*models.PendingRun)}
}

func (r *fakePendingRepo) Create(_ context.Context, _ repositories.SQLExecutor, pending *models.PendingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending.RunID = r.nextID
	pending.CreatedAt = time.Now().UTC()
	r.nextID++
	copied := *pending
	r.rows[pending.RunID] = &copied
	return nil
}

func (r *fakePendingRepo) GetByID(_ context.Context, runID int64) (*models.PendingRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[runID]
	if !ok {
		return nil, repositories.ErrPendingRunNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePendingRepo) GetCurrent(_ context.Context, kind models.RunKind) (*models.PendingRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *models.PendingRun
	for _, p := range r.rows {
		if p.Kind != kind {
			continue
		}
		if oldest == nil || p.RunID < oldest.RunID {
			oldest = p
		}
	}
	if oldest == nil {
		return nil, repositories.ErrPendingRunNotFound
	}
	copied := *oldest
	return &copied, nil
}

func (r *fakePendingRepo) ListByKind(_ context.Context, kind models.RunKind) ([]models.PendingRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PendingRun
	for _, p := range r.rows {
		if p.Kind == kind {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePendingRepo) Update(_ context.Context, _ repositories.SQLExecutor, pending *models.PendingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[pending.RunID]; !ok {
		return repositories.ErrPendingRunNotFound
	}
	copied := *pending
	r.rows[pending.RunID] = &copied
	return nil
}

func (r *fakePendingRepo) Delete(_ context.Context, _ repositories.SQLExecutor, runID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[runID]; !ok {
		return repositories.ErrPendingRunNotFound
	}
	delete(r.rows, runID)
	return nil
}

type fakeRatingRepo struct {
	mu     sync.Mutex
	points map[string]int
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{points: make(map[string]int)}
}

func ratingKey(competitorID int64, period int) string {
	return fmt.Sprintf("%d/%d", competitorID, period)
}

func (r *fakeRatingRepo) Add(_ context.Context, _ repositories.SQLExecutor, competitorID int64, period, points int) error {
	if points < 0 {
		return repositories.ErrNegativeRatingDelta
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points[ratingKey(competitorID, period)] += points
	return nil
}

func (r *fakeRatingRepo) Get(_ context.Context, competitorID int64, period int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.points[ratingKey(competitorID, period)], nil
}

func (r *fakeRatingRepo) Leaderboard(_ context.Context, period, limit int) ([]models.RatingEntry, error) {
	return nil, nil
}

type fakeRewardRepo struct {
	mu       sync.Mutex
	policies map[models.PlacementTier][]models.RewardSlot
}

func newFakeRewardRepo() *fakeRewardRepo {
	return &fakeRewardRepo{policies: make(map[models.PlacementTier][]models.RewardSlot)}
}

func (r *fakeRewardRepo) GetPolicy(_ context.Context, tier models.PlacementTier) ([]models.RewardSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slots, ok := r.policies[tier]
	if !ok {
		return nil, repositories.ErrRewardPolicyNotFound
	}
	return slots, nil
}

func (r *fakeRewardRepo) PutPolicy(_ context.Context, tier models.PlacementTier, slots []models.RewardSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[tier] = slots
	return nil
}

type fakeDuelRepo struct {
	mu    sync.Mutex
	duels map[uuid.UUID]*models.Duel
}

func newFakeDuelRepo() *fakeDuelRepo {
	return &fakeDuelRepo{duels: make(map[uuid.UUID]*models.Duel)}
}

func (r *fakeDuelRepo) Create(_ context.Context, duel *models.Duel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *duel
	r.duels[duel.ID] = &copied
	return nil
}

func (r *fakeDuelRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Duel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.duels[id]
	if !ok {
		return nil, repositories.ErrDuelNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *fakeDuelRepo) Complete(_ context.Context, id uuid.UUID, status models.DuelStatus, winnerID *int64, outcome models.OutcomeTag, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.duels[id]
	if !ok {
		return repositories.ErrDuelNotFound
	}
	if d.Status != models.DuelPending {
		return repositories.ErrDuelNotPending
	}
	d.Status = status
	d.WinnerID = winnerID
	d.Outcome = outcome
	d.CompletedAt = &completedAt
	return nil
}

func (r *fakeDuelRepo) ListPending(_ context.Context, olderThan time.Time) ([]models.Duel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Duel
	for _, d := range r.duels {
		if d.Status == models.DuelPending && d.CreatedAt.Before(olderThan) {
			out = append(out, *d)
		}
	}
	return out, nil
}

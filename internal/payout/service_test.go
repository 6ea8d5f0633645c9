package payout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/visitor-parking-backend/internal/event"
)

type periodKey struct {
	building string
	start    time.Time
}

type fakeRepo struct {
	mu          sync.Mutex
	totals      map[string]Totals
	payouts     map[periodKey]*Payout
	commissions map[string]*Commission
	gone        map[string]bool // buildings deleted mid-run
	aggErr      map[string]error
	inserts     int

	// hideFirstRead simulates a concurrent run that wrote between our
	// lookup and our insert.
	hideFirstRead bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		totals:      map[string]Totals{},
		payouts:     map[periodKey]*Payout{},
		commissions: map[string]*Commission{},
		gone:        map[string]bool{},
		aggErr:      map[string]error{},
	}
}

func (f *fakeRepo) Aggregate(_ context.Context, buildingID string, _, _ time.Time) (Totals, error) {
	if err := f.aggErr[buildingID]; err != nil {
		return Totals{}, err
	}
	return f.totals[buildingID], nil
}

func (f *fakeRepo) ActiveBuildings(context.Context, time.Time, time.Time) ([]string, error) {
	var ids []string
	for _, id := range []string{"bld-a", "bld-b", "bld-c"} {
		if f.totals[id].BookingCount > 0 || f.aggErr[id] != nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeRepo) Insert(_ context.Context, p *Payout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[p.BuildingID] {
		return ErrMissingReference
	}
	k := periodKey{p.BuildingID, p.PeriodStart}
	if _, ok := f.payouts[k]; ok {
		return ErrAlreadyExists
	}
	f.inserts++
	p.ID = "po-" + p.BuildingID
	cp := *p
	f.payouts[k] = &cp
	return nil
}

func (f *fakeRepo) GetByPeriod(_ context.Context, buildingID string, start time.Time) (*Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideFirstRead {
		f.hideFirstRead = false
		return nil, ErrNotFound
	}
	p, ok := f.payouts[periodKey{buildingID, start}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payouts {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) InsertCommission(_ context.Context, c *Commission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.commissions[c.PayoutID]; ok {
		return ErrAlreadyExists
	}
	f.inserts++
	c.ID = "cm-" + c.PayoutID
	cp := *c
	f.commissions[c.PayoutID] = &cp
	return nil
}

func (f *fakeRepo) GetCommission(_ context.Context, payoutID string) (*Commission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.commissions[payoutID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type capture struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *capture) Publish(_ context.Context, e event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

var day = time.Date(2026, 2, 28, 15, 30, 0, 0, time.UTC)

func TestPeriod(t *testing.T) {
	bkk := time.FixedZone("ICT", 7*3600)
	from, to := Period(time.Date(2026, 2, 28, 23, 59, 0, 0, bkk))
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, bkk), from)
	assert.Equal(t, 24*time.Hour, to.Sub(from))
}

func TestRunDailyCreatesThenReportsExisting(t *testing.T) {
	repo := newFakeRepo()
	repo.totals["bld-a"] = Totals{BookingCount: 3, Gross: 30000, Commission: 3000}
	events := &capture{}
	svc := NewService(repo, events, nil)
	ctx := context.Background()

	res, err := svc.RunDaily(ctx, "bld-a", day)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, int64(27000), res.Payout.NetAmount)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), res.Payout.PeriodStart)
	require.Len(t, events.events, 1)
	assert.Equal(t, event.TypePayoutCreated, events.events[0].Type)

	again, err := svc.RunDaily(ctx, "bld-a", day.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, OutcomeExists, again.Outcome)
	assert.Equal(t, res.Payout.ID, again.Payout.ID)
	assert.Equal(t, 1, repo.inserts)
	assert.Len(t, events.events, 1)
}

func TestRunDailyConcurrentInsertResolvesToExisting(t *testing.T) {
	repo := newFakeRepo()
	repo.totals["bld-a"] = Totals{BookingCount: 1, Gross: 1000, Commission: 100}
	svc := NewService(repo, nil, nil)

	_, err := svc.RunDaily(context.Background(), "bld-a", day)
	require.NoError(t, err)

	repo.hideFirstRead = true
	res, err := svc.RunDaily(context.Background(), "bld-a", day)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExists, res.Outcome)
	assert.Equal(t, "po-bld-a", res.Payout.ID)
}

func TestRunDailySkipsVanishedBuilding(t *testing.T) {
	repo := newFakeRepo()
	repo.totals["bld-a"] = Totals{BookingCount: 1, Gross: 1000, Commission: 100}
	repo.gone["bld-a"] = true
	svc := NewService(repo, nil, nil)

	res, err := svc.RunDaily(context.Background(), "bld-a", day)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Nil(t, res.Payout)
}

func TestRunDailyWithoutActivity(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil)

	res, err := svc.RunDaily(context.Background(), "bld-a", day)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoActivity, res.Outcome)
}

func TestCalculateCommissionIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	repo.totals["bld-a"] = Totals{BookingCount: 2, Gross: 20000, Commission: 2000}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	run, err := svc.RunDaily(ctx, "bld-a", day)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*CommissionResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.CalculateCommission(ctx, run.Payout.ID)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Len(t, repo.commissions, 1)
	created := 0
	for _, r := range results {
		require.NotNil(t, r.Commission)
		assert.Equal(t, int64(2000), r.Commission.Amount)
		assert.Equal(t, "cm-po-bld-a", r.Commission.ID)
		if r.Outcome == OutcomeCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
}

func TestCalculateCommissionForMissingPayout(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil)

	res, err := svc.CalculateCommission(context.Background(), "po-missing")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
}

func TestRunAllContinuesPastFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.totals["bld-a"] = Totals{BookingCount: 1, Gross: 1000, Commission: 100}
	repo.aggErr["bld-b"] = errors.New("connection reset")
	repo.totals["bld-c"] = Totals{BookingCount: 4, Gross: 8000, Commission: 800}
	svc := NewService(repo, nil, nil)

	results, err := svc.RunAll(context.Background(), day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bld-b")

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, OutcomeCreated, r.Outcome)
		require.NotNil(t, r.Commission)
		assert.Equal(t, r.Payout.CommissionAmount, r.Commission.Amount)
	}
}

package pricing

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name           string
		base           int64
		rate           float64
		multiplier     float64
		wantTotal      int64
		wantCommission int64
	}{
		{"no multiplier", 10000, 0.10, 1.0, 10000, 1000},
		{"surge", 10000, 0.10, 1.5, 15000, 1500},
		{"rounds total half up", 5, 0.0, 0.3, 2, 0},           // 1.5 -> 2
		{"rounds commission half up", 125, 0.1, 1.0, 125, 13}, // 12.5 -> 13
		{"rounds down below half", 1234, 0.1, 1.0, 1234, 123}, // 123.4 -> 123
		{"free block", 0, 0.2, 2.0, 0, 0},
		{"zero multiplier", 9000, 0.1, 0, 0, 0},
		{"multiplier with three decimals", 1000, 0.15, 1.155, 1155, 173}, // 173.25 -> 173
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compute(tt.base, tt.rate, tt.multiplier)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, q.Total)
			assert.Equal(t, tt.wantCommission, q.Commission)
		})
	}
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	for _, tc := range []struct {
		base       int64
		rate, mult float64
	}{
		{-1, 0.1, 1},
		{100, -0.1, 1},
		{100, 1.1, 1},
		{100, 0.1, -0.5},
		{math.MaxInt64, 0.1, 2},
		{100, 0.1, 1e30},
		{1_000_000_000_000_000, 1, 1},
	} {
		_, err := Compute(tc.base, tc.rate, tc.mult)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestSelectRule(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, SelectRule(nil))
	})

	t.Run("highest priority wins", func(t *testing.T) {
		rules := []Rule{
			{ID: 1, Priority: 1, Multiplier: 1.2},
			{ID: 2, Priority: 5, Multiplier: 2.0},
			{ID: 3, Priority: 3, Multiplier: 0.8},
		}
		assert.Equal(t, int64(2), SelectRule(rules).ID)
	})

	t.Run("ties go to the lowest id regardless of order", func(t *testing.T) {
		rules := []Rule{
			{ID: 9, Priority: 5, Multiplier: 1.1},
			{ID: 4, Priority: 5, Multiplier: 1.3},
			{ID: 7, Priority: 5, Multiplier: 1.2},
		}
		assert.Equal(t, int64(4), SelectRule(rules).ID)
	})
}

type stubRuleStore struct {
	rules []Rule
	err   error
}

func (s stubRuleStore) FindActive(context.Context, string, time.Time, time.Time) ([]Rule, error) {
	return s.rules, s.err
}

func TestServiceQuote(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	req := QuoteRequest{BuildingID: "b1", BasePrice: 20000, StartTime: start, EndTime: start.Add(2 * time.Hour)}

	t.Run("defaults to 1.0 without rules", func(t *testing.T) {
		q, err := NewService(stubRuleStore{}, 0.1).Quote(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, int64(20000), q.Total)
		assert.Equal(t, int64(2000), q.Commission)
		assert.Nil(t, q.RuleID)
	})

	t.Run("applies the selected rule", func(t *testing.T) {
		store := stubRuleStore{rules: []Rule{{ID: 3, Priority: 2, Multiplier: 1.25}, {ID: 8, Priority: 2, Multiplier: 3}}}
		q, err := NewService(store, 0.1).Quote(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, int64(25000), q.Total)
		require.NotNil(t, q.RuleID)
		assert.Equal(t, int64(3), *q.RuleID)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		boom := errors.New("db down")
		_, err := NewService(stubRuleStore{err: boom}, 0.1).Quote(context.Background(), req)
		assert.ErrorIs(t, err, boom)
	})
}

package blacklist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	entries  []entry
	gotProbe Probe
	err      error
}

type entry struct {
	building string // empty means global
	probe    Probe
	reason   string
}

func (f *fakeRepo) FindMatches(_ context.Context, buildingID string, p Probe) ([]Match, error) {
	f.gotProbe = p
	if f.err != nil {
		return nil, f.err
	}
	var out []Match
	for i, e := range f.entries {
		if e.building != "" && e.building != buildingID {
			continue
		}
		hit := (p.Email != "" && p.Email == e.probe.Email) ||
			(p.IDHash != "" && p.IDHash == e.probe.IDHash) ||
			(p.Plate != "" && p.Plate == e.probe.Plate)
		if hit {
			out = append(out, Match{EntryID: string(rune('a' + i)), Global: e.building == "", Reason: e.reason})
		}
	}
	return out, nil
}

func TestHasherNormalizes(t *testing.T) {
	h := NewHasher("pepper")

	assert.Equal(t, h.HashNationalID("1-2345-67890-12-3"), h.HashNationalID("1234567890123"))
	assert.NotEqual(t, h.HashNationalID("1234567890123"), NewHasher("other").HashNationalID("1234567890123"))
	assert.Len(t, h.HashNationalID("A1"), 64)
	assert.Empty(t, h.HashNationalID("  - "))

	assert.Equal(t, "AB123C", NormalizePlate("ab-123 c"))

	p := h.Probe(Subject{Email: " Visitor@Example.COM ", Plate: "xy 99"})
	assert.Equal(t, "visitor@example.com", p.Email)
	assert.Equal(t, "XY99", p.Plate)
	assert.Empty(t, p.IDHash)
}

func TestChecker(t *testing.T) {
	h := NewHasher("pepper")
	repo := &fakeRepo{entries: []entry{
		{building: "", probe: Probe{Plate: "BAD1"}, reason: "fraud"},
		{building: "b-1", probe: Probe{IDHash: h.HashNationalID("999")}, reason: "banned by building"},
		{building: "b-2", probe: Probe{Email: "x@y.z"}, reason: "other building"},
	}}
	c := NewChecker(repo, h, zap.NewNop())
	ctx := context.Background()

	t.Run("global plate", func(t *testing.T) {
		err := c.Check(ctx, "b-7", Subject{Plate: "bad-1"})
		assert.ErrorIs(t, err, ErrBlocked)
	})

	t.Run("building scoped hashed id", func(t *testing.T) {
		err := c.Check(ctx, "b-1", Subject{NationalID: "9-9-9"})
		assert.ErrorIs(t, err, ErrBlocked)
		assert.NotContains(t, repo.gotProbe.IDHash, "999")
	})

	t.Run("entry of another building does not apply", func(t *testing.T) {
		assert.NoError(t, c.Check(ctx, "b-1", Subject{Email: "x@y.z"}))
	})

	t.Run("clean subject", func(t *testing.T) {
		assert.NoError(t, c.Check(ctx, "b-1", Subject{Email: "ok@y.z", Plate: "GOOD1"}))
	})

	t.Run("store error", func(t *testing.T) {
		boom := errors.New("db down")
		err := NewChecker(&fakeRepo{err: boom}, h, zap.NewNop()).Check(ctx, "b-1", Subject{Plate: "A"})
		require.ErrorIs(t, err, boom)
	})
}

package pool

import (
	"testing"
	"time"

	"fxmatch/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pending(amount string, source, target models.Currency) *models.TransferRequest {
	return &models.TransferRequest{
		ID:             uuid.NewString(),
		UserID:         "peer_" + uuid.NewString()[:6],
		Amount:         dec(amount),
		SourceCurrency: source,
		TargetCurrency: target,
		CreatedAt:      now,
		Status:         models.RequestStatusPending,
		ExpiresAt:      now.Add(5 * time.Minute),
	}
}

func amounts(entries []models.TransferRequest) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Amount.String()
	}
	return out
}

func TestPool_FindExact_EarliestWins(t *testing.T) {
	p := New()
	first := pending("100", models.EUR, models.USD)
	p.Insert(pending("50", models.EUR, models.USD))
	p.Insert(first)
	p.Insert(pending("30", models.EUR, models.USD))
	p.Insert(pending("100", models.EUR, models.USD))

	got := p.FindExact(models.USD, models.EUR, dec("100"), now)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID, "earliest-filed exact match wins")
	assert.Equal(t, []string{"50", "30", "100"}, amounts(p.Snapshot(models.PairKey(models.EUR, models.USD))))
}

func TestPool_FindExact_NoAggregation(t *testing.T) {
	// [50, 100, 30] with an incoming 100 must hit the 100 entry directly,
	// not aggregate 50+30+20 across the queue.
	p := New()
	p.Insert(pending("50", models.EUR, models.USD))
	target := pending("100", models.EUR, models.USD)
	p.Insert(target)
	p.Insert(pending("30", models.EUR, models.USD))

	got := p.FindExact(models.USD, models.EUR, dec("100"), now)
	require.NotNil(t, got)
	assert.Equal(t, target.ID, got.ID)
	assert.Equal(t, []string{"50", "30"}, amounts(p.Snapshot(models.PairKey(models.EUR, models.USD))))
	assert.NoError(t, p.CheckConservation(models.PairKey(models.EUR, models.USD)))
}

func TestPool_FindExact_Miss(t *testing.T) {
	p := New()
	p.Insert(pending("50", models.EUR, models.USD))
	assert.Nil(t, p.FindExact(models.USD, models.EUR, dec("100"), now))
	assert.Nil(t, p.FindExact(models.USD, models.GBP, dec("50"), now), "empty pool key")
}

func TestPool_ConsumeFIFO(t *testing.T) {
	// [40, 40] + incoming 70: first entry fully consumed, second shrinks
	// to 10, two fills sum to 70.
	p := New()
	p.Insert(pending("40", models.EUR, models.USD))
	second := pending("40", models.EUR, models.USD)
	p.Insert(second)

	fills, unfilled := p.ConsumeFIFO(models.USD, models.EUR, dec("70"), now)
	require.Len(t, fills, 2)
	assert.True(t, unfilled.IsZero())
	assert.True(t, fills[0].Amount.Equal(dec("40")))
	assert.True(t, fills[0].Exhausted)
	assert.True(t, fills[1].Amount.Equal(dec("30")))
	assert.False(t, fills[1].Exhausted)
	assert.Equal(t, second.ID, fills[1].Peer.ID)

	left := p.Snapshot(models.PairKey(models.EUR, models.USD))
	require.Len(t, left, 1)
	assert.True(t, left[0].Amount.Equal(dec("10")), "partially consumed entry stays at the front with 10 left")
	assert.NoError(t, p.CheckConservation(models.PairKey(models.EUR, models.USD)))
}

func TestPool_ConsumeFIFO_PartialFill(t *testing.T) {
	p := New()
	p.Insert(pending("40", models.EUR, models.USD))

	fills, unfilled := p.ConsumeFIFO(models.USD, models.EUR, dec("70"), now)
	require.Len(t, fills, 1)
	assert.True(t, fills[0].Amount.Equal(dec("40")))
	assert.True(t, unfilled.Equal(dec("30")))
	assert.Empty(t, p.Snapshot(models.PairKey(models.EUR, models.USD)))
}

func TestPool_ConsumeFIFO_EmptyQueue(t *testing.T) {
	p := New()
	fills, unfilled := p.ConsumeFIFO(models.USD, models.EUR, dec("70"), now)
	assert.Empty(t, fills)
	assert.True(t, unfilled.Equal(dec("70")))
}

func TestPool_Remove(t *testing.T) {
	p := New()
	req := pending("40", models.EUR, models.USD)
	p.Insert(req)

	assert.True(t, p.Remove(req.PairKey(), req.ID))
	assert.False(t, p.Remove(req.PairKey(), req.ID), "second remove is a no-op")
	assert.Empty(t, p.Snapshot(req.PairKey()))
	assert.NoError(t, p.CheckConservation(req.PairKey()))
}

func TestPool_ExpireStale(t *testing.T) {
	p := New()
	fresh := pending("40", models.EUR, models.USD)
	stale := pending("60", models.EUR, models.USD)
	stale.ExpiresAt = now.Add(-time.Second)
	p.Insert(fresh)
	p.Insert(stale)

	expired := p.ExpireStale(now)
	assert.Equal(t, []string{stale.ID}, expired)
	assert.Equal(t, []string{"40"}, amounts(p.Snapshot(models.PairKey(models.EUR, models.USD))))
	assert.NoError(t, p.CheckConservation(models.PairKey(models.EUR, models.USD)))
}

func TestPool_ExpiredEntriesInvisibleToMatching(t *testing.T) {
	p := New()
	stale := pending("100", models.EUR, models.USD)
	stale.ExpiresAt = now.Add(-time.Second)
	p.Insert(stale)

	assert.Nil(t, p.FindExact(models.USD, models.EUR, dec("100"), now))
	fills, unfilled := p.ConsumeFIFO(models.USD, models.EUR, dec("50"), now)
	assert.Empty(t, fills)
	assert.True(t, unfilled.Equal(dec("50")))
	assert.NoError(t, p.CheckConservation(models.PairKey(models.EUR, models.USD)))
}

func TestPool_Conservation(t *testing.T) {
	// Arbitrary sequence of inserts, matches and removals keeps the books
	// balanced: queued + consumed + removed = inserted.
	p := New()
	key := models.PairKey(models.EUR, models.USD)

	var kept *models.TransferRequest
	for i, amt := range []string{"25", "100", "12.5", "40", "7.75"} {
		req := pending(amt, models.EUR, models.USD)
		if i == 3 {
			kept = req
		}
		p.Insert(req)
	}

	p.FindExact(models.USD, models.EUR, dec("100"), now)
	p.ConsumeFIFO(models.USD, models.EUR, dec("30"), now)
	p.Remove(key, kept.ID)
	p.ConsumeFIFO(models.USD, models.EUR, dec("500"), now)

	assert.NoError(t, p.CheckConservation(key))
	assert.Empty(t, p.Snapshot(key))
}

func TestPool_IndependentKeys(t *testing.T) {
	p := New()
	p.Insert(pending("40", models.EUR, models.USD))
	p.Insert(pending("40", models.GBP, models.USD))

	// Matching USD->EUR never touches the GBP-USD queue.
	p.ConsumeFIFO(models.USD, models.EUR, dec("40"), now)
	assert.Equal(t, []string{"40"}, amounts(p.Snapshot(models.PairKey(models.GBP, models.USD))))

	depth := p.Depth()
	assert.Equal(t, 0, depth[models.PairKey(models.EUR, models.USD)])
	assert.Equal(t, 1, depth[models.PairKey(models.GBP, models.USD)])
}

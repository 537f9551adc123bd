package engine

import (
	"context"
	"testing"
	"time"

	"fxmatch/internal/clock"
	apperrors "fxmatch/internal/errors"
	"fxmatch/internal/models"
	"fxmatch/internal/services/events"
	"fxmatch/internal/services/fees"
	"fxmatch/internal/services/pool"
	"fxmatch/internal/services/rates"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type testEngine struct {
	Service
	clk  *clock.Fake
	pool *pool.Pool
	bus  *events.Bus
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	cfg := DefaultConfig()
	clk := clock.NewFake(testStart)
	p := pool.New()
	bus := events.NewBus(32, nil)
	svc := NewService(cfg, p, rates.NewTable(nil), fees.NewModel(cfg.FeeRate), bus, nil, nil, clk)
	t.Cleanup(func() {
		svc.Close()
		bus.Close()
	})
	return &testEngine{Service: svc, clk: clk, pool: p, bus: bus}
}

func (e *testEngine) submit(t *testing.T, userID, amount string, source, target models.Currency) *SubmissionHandle {
	t.Helper()
	handle, err := e.Submit(context.Background(), SubmitRequest{
		UserID:         userID,
		Amount:         dec(amount),
		SourceCurrency: source,
		TargetCurrency: target,
		Recipient:      models.Recipient{Name: "Recipient", AccountNumber: "ACCT00000001"},
	})
	require.NoError(t, err)
	return handle
}

func drain(sub *events.Subscription) []models.Event {
	var out []models.Event
	for {
		select {
		case ev := <-sub.C:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func matchEvents(evs []models.Event) []models.MatchEvent {
	var out []models.MatchEvent
	for _, ev := range evs {
		if m, ok := ev.(models.MatchEvent); ok {
			out = append(out, m)
		}
	}
	return out
}

func TestSubmit_Validation(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name    string
		amount  string
		source  models.Currency
		target  models.Currency
		wantErr error
	}{
		{"zero amount", "0", models.USD, models.EUR, apperrors.ErrInvalidAmount},
		{"negative amount", "-5", models.USD, models.EUR, apperrors.ErrInvalidAmount},
		{"unknown source", "100", models.Currency("XXX"), models.EUR, apperrors.ErrUnknownCurrency},
		{"unknown target", "100", models.USD, models.Currency("ZZZ"), apperrors.ErrUnknownCurrency},
		{"below minimum", "1", models.USD, models.EUR, apperrors.ErrAmountBelowMinimum},
		{"below minimum in foreign units", "100", models.EGP, models.USD, apperrors.ErrAmountBelowMinimum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Submit(context.Background(), SubmitRequest{
				UserID:         "u1",
				Amount:         dec(tt.amount),
				SourceCurrency: tt.source,
				TargetCurrency: tt.target,
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, e.PoolDepth(), "rejected submissions never touch the pool")
}

func TestSubmit_SameCurrencyInstantSettlement(t *testing.T) {
	e := newTestEngine(t)
	handle := e.submit(t, "u1", "100", models.USD, models.USD)

	e.clk.Advance(2 * time.Second)

	evs := matchEvents(drain(handle.Events))
	require.Len(t, evs, 1)
	rec := evs[0].Record
	assert.True(t, rec.SameCurrency)
	assert.False(t, rec.Partial)
	assert.True(t, rec.Fee.IsZero())
	assert.True(t, rec.RecipientGets.Equal(dec("100")), "recipient gets the matched amount exactly")
	assert.Empty(t, rec.MatchedRequestID, "same-currency settles with a null peer")
	assert.Empty(t, e.PoolDepth(), "same-currency requests never enter the pool")

	report, err := e.Status(handle.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, report.Status)
}

func TestSubmit_DenyListedPair(t *testing.T) {
	e := newTestEngine(t)

	for _, amount := range []string{"300", "100000"} {
		handle := e.submit(t, "u1", amount, models.EGP, models.INR)

		e.clk.Advance(2 * time.Second)

		evs := drain(handle.Events)
		require.Len(t, evs, 1, "exactly one no-match event")
		noMatch, ok := evs[0].(models.NoMatchEvent)
		require.True(t, ok)
		assert.Equal(t, models.NoMatchReasonNoLiquidity, noMatch.Reason)
		assert.Contains(t, noMatch.Fallback, "5-7%")
		assert.Empty(t, e.PoolDepth(), "deny-listed requests cause zero pool mutations")

		report, err := e.Status(handle.RequestID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusFailed, report.Status)
	}
}

func TestSubmit_ChunkedSimulation(t *testing.T) {
	e := newTestEngine(t)
	handle := e.submit(t, "u1", "1000", models.EGP, models.USD)

	// Chunks fire two seconds apart, in chunk order.
	e.clk.Advance(2 * time.Second)
	first := matchEvents(drain(handle.Events))
	require.Len(t, first, 1)

	e.clk.Advance(4 * time.Second)
	rest := matchEvents(drain(handle.Events))
	require.Len(t, rest, 2)

	chunks := append(first, rest...)
	wantAmounts := []string{"400", "300", "300"}
	wantPartial := []bool{true, true, false}
	total := decimal.Zero
	for i, ev := range chunks {
		assert.True(t, ev.Record.MatchedAmount.Equal(dec(wantAmounts[i])), "chunk %d = %s", i, ev.Record.MatchedAmount)
		assert.Equal(t, wantPartial[i], ev.Record.Partial, "chunk %d partial flag", i)
		total = total.Add(ev.Record.MatchedAmount)
	}
	assert.True(t, total.Equal(dec("1000")), "chunks sum to the full amount")
	assert.Empty(t, e.PoolDepth(), "chunked fills are synthesized, not pooled")

	report, err := e.Status(handle.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, report.Status)
	assert.True(t, report.Filled.Equal(dec("1000")))
}

func TestSubmit_ChunkResidueGoesToLastChunk(t *testing.T) {
	e := newTestEngine(t)
	handle := e.submit(t, "u1", "1000.01", models.EGP, models.USD)

	e.clk.Advance(6 * time.Second)
	chunks := matchEvents(drain(handle.Events))
	require.Len(t, chunks, 3)

	total := decimal.Zero
	for _, ev := range chunks {
		total = total.Add(ev.Record.MatchedAmount)
	}
	assert.True(t, total.Equal(dec("1000.01")), "residue lands in the last chunk, total = %s", total)
}

func TestSubmit_ExactMatchPriority(t *testing.T) {
	e := newTestEngine(t)

	// Pool up counter-requests [50, 100, 30] in insertion order.
	var pooled []*SubmissionHandle
	for _, amount := range []string{"50", "100", "30"} {
		h := e.submit(t, "peer", amount, models.EUR, models.USD)
		e.clk.Advance(2 * time.Second)
		pooled = append(pooled, h)
	}
	key := models.PairKey(models.EUR, models.USD)
	require.Equal(t, 3, e.PoolDepth()[key])

	handle := e.submit(t, "u1", "100", models.USD, models.EUR)
	e.clk.Advance(2 * time.Second)

	evs := matchEvents(drain(handle.Events))
	require.Len(t, evs, 1, "a single direct match, not FIFO aggregation")
	assert.False(t, evs[0].Record.Partial)
	assert.True(t, evs[0].Record.MatchedAmount.Equal(dec("100")))
	assert.Equal(t, pooled[1].RequestID, evs[0].Record.MatchedRequestID, "the exact 100 entry is consumed")

	left := e.pool.Snapshot(key)
	require.Len(t, left, 2)
	assert.True(t, left[0].Amount.Equal(dec("50")))
	assert.True(t, left[1].Amount.Equal(dec("30")))

	peerReport, err := e.Status(pooled[1].RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, peerReport.Status)
}

func TestSubmit_FIFOAggregation(t *testing.T) {
	e := newTestEngine(t)

	var peers []*SubmissionHandle
	for i := 0; i < 2; i++ {
		h := e.submit(t, "peer", "40", models.EUR, models.USD)
		e.clk.Advance(2 * time.Second)
		peers = append(peers, h)
	}

	handle := e.submit(t, "u1", "70", models.USD, models.EUR)
	e.clk.Advance(2 * time.Second)

	evs := matchEvents(drain(handle.Events))
	require.Len(t, evs, 2, "two chunks: 40 from the first entry, 30 from the second")
	assert.True(t, evs[0].Record.MatchedAmount.Equal(dec("40")))
	assert.True(t, evs[0].Record.Partial)
	assert.True(t, evs[1].Record.MatchedAmount.Equal(dec("30")))
	assert.False(t, evs[1].Record.Partial, "final chunk completes the request")

	key := models.PairKey(models.EUR, models.USD)
	left := e.pool.Snapshot(key)
	require.Len(t, left, 1)
	assert.True(t, left[0].Amount.Equal(dec("10")), "second entry shrinks to 10 in place")
	require.NoError(t, e.pool.CheckConservation(key))

	report, err := e.Status(handle.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, report.Status)
	assert.True(t, report.Filled.Equal(dec("70")))

	// First peer fully consumed, second partially.
	first, _ := e.Status(peers[0].RequestID)
	assert.Equal(t, models.RequestStatusCompleted, first.Status)
	second, _ := e.Status(peers[1].RequestID)
	assert.Equal(t, models.RequestStatusPending, second.Status)
	assert.True(t, second.Filled.Equal(dec("30")))
}

func TestSubmit_PartialFillRemainderRepools(t *testing.T) {
	e := newTestEngine(t)

	e.submit(t, "peer", "40", models.EUR, models.USD)
	e.clk.Advance(2 * time.Second)

	handle := e.submit(t, "u1", "70", models.USD, models.EUR)
	e.clk.Advance(2 * time.Second)

	evs := matchEvents(drain(handle.Events))
	require.Len(t, evs, 1)
	assert.True(t, evs[0].Record.MatchedAmount.Equal(dec("40")))
	assert.True(t, evs[0].Record.Partial)

	report, err := e.Status(handle.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, report.Status, "request keeps searching")
	assert.True(t, report.Remaining.Equal(dec("30")))

	// The 30 remainder sits in the USD-EUR pool and a later counter
	// request matches it exactly.
	usdKey := models.PairKey(models.USD, models.EUR)
	left := e.pool.Snapshot(usdKey)
	require.Len(t, left, 1)
	assert.True(t, left[0].Amount.Equal(dec("30")))
	assert.Equal(t, handle.RequestID, left[0].ID, "remainder keeps the original request id")

	counter := e.submit(t, "peer2", "30", models.EUR, models.USD)
	e.clk.Advance(2 * time.Second)

	counterEvs := matchEvents(drain(counter.Events))
	require.Len(t, counterEvs, 1)
	assert.Equal(t, handle.RequestID, counterEvs[0].Record.MatchedRequestID)

	report, err = e.Status(handle.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, report.Status)
	assert.True(t, report.Filled.Equal(dec("70")))
	assert.Empty(t, e.pool.Snapshot(usdKey))
}

func TestSubmit_CounterpartySeesTheMatch(t *testing.T) {
	e := newTestEngine(t)

	peer := e.submit(t, "peer", "100", models.EUR, models.USD)
	e.clk.Advance(2 * time.Second)

	e.submit(t, "u1", "100", models.USD, models.EUR)
	e.clk.Advance(2 * time.Second)

	peerEvs := matchEvents(drain(peer.Events))
	require.Len(t, peerEvs, 1, "the pooled side is notified of the pairing too")
}

func TestExpiry_FailsSearchingRequest(t *testing.T) {
	e := newTestEngine(t)

	handle := e.submit(t, "u1", "100", models.USD, models.EUR)
	e.clk.Advance(2 * time.Second)
	key := models.PairKey(models.USD, models.EUR)
	require.Equal(t, 1, e.PoolDepth()[key])

	e.clk.Advance(5 * time.Minute)

	report, err := e.Status(handle.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusFailed, report.Status)
	assert.Equal(t, 0, e.PoolDepth()[key])
	assert.Empty(t, drain(handle.Events), "expiry is a status change, not an event")
	require.NoError(t, e.pool.CheckConservation(key))
}

func TestExpiry_PartialFillIsPreserved(t *testing.T) {
	e := newTestEngine(t)

	e.submit(t, "peer", "40", models.EUR, models.USD)
	e.clk.Advance(2 * time.Second)

	handle := e.submit(t, "u1", "70", models.USD, models.EUR)
	e.clk.Advance(2 * time.Second)
	require.Len(t, matchEvents(drain(handle.Events)), 1, "the 40 fill settles before expiry")

	e.clk.Advance(5 * time.Minute)

	report, err := e.Status(handle.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPartiallyFilled, report.Status)
	assert.True(t, report.Filled.Equal(dec("40")), "settled fills are not rolled back")
}

func TestCancel_Idempotent(t *testing.T) {
	e := newTestEngine(t)

	handle := e.submit(t, "u1", "100", models.USD, models.EUR)
	e.clk.Advance(2 * time.Second)
	key := models.PairKey(models.USD, models.EUR)
	require.Equal(t, 1, e.PoolDepth()[key])

	e.Cancel(handle.RequestID)
	report, err := e.Status(handle.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, report.Status)
	assert.Equal(t, 0, e.PoolDepth()[key])

	// Cancelling again, or cancelling nonsense, is a no-op.
	e.Cancel(handle.RequestID)
	e.Cancel("no-such-request")
	report, _ = e.Status(handle.RequestID)
	assert.Equal(t, models.RequestStatusCancelled, report.Status)
}

func TestCancel_AfterMatchIsNoop(t *testing.T) {
	e := newTestEngine(t)

	handle := e.submit(t, "u1", "100", models.USD, models.USD)
	e.clk.Advance(2 * time.Second)

	e.Cancel(handle.RequestID)
	report, err := e.Status(handle.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, report.Status)
}

func TestCancel_BeforeTimerFiresSuppressesEvent(t *testing.T) {
	e := newTestEngine(t)

	handle := e.submit(t, "u1", "1000", models.EGP, models.INR)
	e.clk.Advance(time.Second)
	e.Cancel(handle.RequestID)
	e.clk.Advance(time.Minute)

	assert.Empty(t, drain(handle.Events), "cancelled deny timer must not emit")

	chunked := e.submit(t, "u1", "1000", models.EGP, models.USD)
	e.clk.Advance(2 * time.Second)
	require.Len(t, matchEvents(drain(chunked.Events)), 1)
	e.Cancel(chunked.RequestID)
	e.clk.Advance(time.Minute)
	assert.Empty(t, drain(chunked.Events), "cancellation stops the remaining chunk timers")
}

func TestStatus_UnknownRequest(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Status("missing")
	assert.ErrorIs(t, err, apperrors.ErrRequestNotFound)
}

func TestQuote(t *testing.T) {
	e := newTestEngine(t)

	quote, err := e.Quote(dec("100"), models.USD, models.EUR)
	require.NoError(t, err)
	assert.True(t, quote.Rate.Equal(dec("0.87")))
	assert.True(t, quote.Received.Equal(dec("87")))

	_, err = e.Quote(dec("1"), models.USD, models.EUR)
	assert.ErrorIs(t, err, apperrors.ErrAmountBelowMinimum)
}

func TestSubmit_AfterCloseFails(t *testing.T) {
	e := newTestEngine(t)
	e.Close()
	_, err := e.Submit(context.Background(), SubmitRequest{
		UserID:         "u1",
		Amount:         dec("100"),
		SourceCurrency: models.USD,
		TargetCurrency: models.EUR,
	})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestParseChunkProfiles(t *testing.T) {
	profiles := ParseChunkProfiles("EGP:0.4/0.3/0.3; inr:0.5/0.5")
	require.Len(t, profiles, 2)
	assert.Len(t, profiles[models.EGP], 3)
	assert.Len(t, profiles[models.INR], 2)

	assert.Empty(t, ParseChunkProfiles("EGP:0.4/0.3"), "profiles must sum to 1")
	assert.Empty(t, ParseChunkProfiles("garbage"))
}

func TestParseDenyPairs(t *testing.T) {
	pairs := ParseDenyPairs("EGP-INR, egp-jpy")
	assert.True(t, pairs[models.PairKey(models.EGP, models.INR)])
	assert.True(t, pairs["EGP-JPY"])
	assert.Empty(t, ParseDenyPairs(""))
}

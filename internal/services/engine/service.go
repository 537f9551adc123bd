// Package engine orchestrates peer-to-peer currency matching: it accepts
// transfer submissions, drives the liquidity pool and fee model, and
// emits match and no-match events.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"fxmatch/internal/clock"
	apperrors "fxmatch/internal/errors"
	"fxmatch/internal/models"
	"fxmatch/internal/services/events"
	"fxmatch/internal/services/pool"
	"fxmatch/internal/utils/peerdata"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	platformBankName = "FXMatch"
	walletAccount    = "Your Wallet"

	// fallbackAdvice is attached to no-match events so callers can offer
	// a traditional rail instead.
	fallbackAdvice = "No peer-to-peer liquidity for this corridor. You can try again later, or use a traditional transfer system (fees: 5-7%)."
)

type tracked struct {
	req       *models.TransferRequest
	recipient models.Recipient
	total     decimal.Decimal
	filled    decimal.Decimal
	timers    []clock.Timer
}

type service struct {
	cfg     Config
	pool    *pool.Pool
	rates   RateSource
	fees    FeeEvaluator
	bus     *events.Bus
	journal Journal
	metrics MetricsCollector
	clk     clock.Clock

	mu       sync.Mutex
	requests map[string]*tracked
	closed   bool
}

// NewService creates a matching engine. journal may be nil when no
// settlement persistence is configured.
func NewService(cfg Config, p *pool.Pool, rates RateSource, fees FeeEvaluator,
	bus *events.Bus, journal Journal, metrics MetricsCollector, clk clock.Clock) Service {

	if cfg.MatchDelay < 0 {
		cfg.MatchDelay = 0
	}
	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = DefaultConfig().ExpiryWindow
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	if clk == nil {
		clk = clock.New()
	}
	return &service{
		cfg:      cfg,
		pool:     p,
		rates:    rates,
		fees:     fees,
		bus:      bus,
		journal:  journal,
		metrics:  metrics,
		clk:      clk,
		requests: make(map[string]*tracked),
	}
}

// Submit validates and registers a transfer request. It returns
// immediately; matching happens asynchronously and its outcome arrives on
// the handle's event subscription or via Status.
func (s *service) Submit(ctx context.Context, sub SubmitRequest) (*SubmissionHandle, error) {
	if err := s.validate(sub.Amount, sub.SourceCurrency, sub.TargetCurrency); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	req := &models.TransferRequest{
		ID:             uuid.NewString(),
		UserID:         sub.UserID,
		Amount:         sub.Amount,
		SourceCurrency: sub.SourceCurrency,
		TargetCurrency: sub.TargetCurrency,
		CreatedAt:      now,
		Status:         models.RequestStatusPending,
		ExpiresAt:      now.Add(s.cfg.ExpiryWindow),
	}
	t := &tracked{req: req, recipient: sub.Recipient, total: sub.Amount, filled: decimal.Zero}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.requests[req.ID] = t
	s.mu.Unlock()

	s.metrics.RecordSubmission(req.PairKey())
	feed := s.bus.Subscribe(req.ID)

	switch {
	case sub.SourceCurrency == sub.TargetCurrency:
		s.schedule(t, s.cfg.MatchDelay, func() { s.settleSameCurrency(req.ID) })
	case s.cfg.DenyPairs[req.PairKey()]:
		s.schedule(t, s.cfg.MatchDelay, func() { s.emitNoMatch(req.ID) })
	case len(s.cfg.ChunkProfiles[sub.SourceCurrency]) > 0:
		s.scheduleChunks(t)
	default:
		s.schedule(t, s.cfg.MatchDelay, func() { s.attemptPoolMatch(req.ID) })
		s.schedule(t, req.ExpiresAt.Sub(now), func() { s.onExpiry(req.ID) })
	}

	return &SubmissionHandle{RequestID: req.ID, Status: req.Status, Events: feed}, nil
}

func (s *service) validate(amount decimal.Decimal, source, target models.Currency) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if !source.IsSupported() || !target.IsSupported() {
		return apperrors.ErrUnknownCurrency
	}
	usdEquivalent := amount.Mul(s.rates.Rate(source, models.USD))
	if usdEquivalent.LessThan(s.cfg.MinTransferUSD) {
		return apperrors.ErrAmountBelowMinimum
	}
	return nil
}

func (s *service) schedule(t *tracked, d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.timers = append(t.timers, s.clk.AfterFunc(d, f))
}

// Cancel withdraws a request that is still pending. It is idempotent: an
// unknown, matched or already-cancelled request is a no-op.
func (s *service) Cancel(requestID string) {
	s.mu.Lock()
	t, ok := s.requests[requestID]
	if !ok || t.req.Status != models.RequestStatusPending {
		s.mu.Unlock()
		return
	}
	t.req.Status = models.RequestStatusCancelled
	stopTimers(t)
	key := t.req.PairKey()
	s.mu.Unlock()

	s.pool.Remove(key, requestID)
	s.metrics.RecordCancel()
	s.updateDepth(key)
}

// Status reports a request's state and fill progress.
func (s *service) Status(requestID string) (StatusReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.requests[requestID]
	if !ok {
		return StatusReport{}, apperrors.ErrRequestNotFound
	}
	status := t.req.Status
	if status == models.RequestStatusFailed && t.filled.IsPositive() {
		status = models.RequestStatusPartiallyFilled
	}
	return StatusReport{
		RequestID: requestID,
		Status:    status,
		Filled:    t.filled,
		Remaining: t.total.Sub(t.filled),
	}, nil
}

// Quote prices an internal exchange at the current market rate without
// entering the pool.
func (s *service) Quote(amount decimal.Decimal, from, to models.Currency) (QuoteResult, error) {
	if err := s.validate(amount, from, to); err != nil {
		return QuoteResult{}, err
	}
	rate := s.rates.Rate(from, to)
	return QuoteResult{
		Rate:     rate,
		Received: amount.Mul(rate).RoundBank(2),
	}, nil
}

// PoolDepth returns the number of queued requests per pair key.
func (s *service) PoolDepth() map[string]int { return s.pool.Depth() }

// Close stops all pending timers. Queued pool entries are left in place.
func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, t := range s.requests {
		stopTimers(t)
	}
}

// caller must hold s.mu
func stopTimers(t *tracked) {
	for _, timer := range t.timers {
		timer.Stop()
	}
	t.timers = nil
}

// attemptPoolMatch runs the full-amount policy: exact match first, then
// FIFO aggregation, with any unfilled remainder re-entering the pool
// under the request's own key.
func (s *service) attemptPoolMatch(requestID string) {
	s.mu.Lock()
	t, ok := s.requests[requestID]
	if !ok || t.req.Status != models.RequestStatusPending {
		s.mu.Unlock()
		return
	}
	req := t.req
	needed := t.total.Sub(t.filled)
	s.mu.Unlock()

	now := s.clk.Now()
	oppositeKey := models.PairKey(req.TargetCurrency, req.SourceCurrency)

	if peer := s.pool.FindExact(req.SourceCurrency, req.TargetCurrency, needed, now); peer != nil {
		s.settleAgainstPeer(t, peer.ID, peer.UserID, needed, false, true, MatchKindExact)
		s.finish(t)
		s.checkBooks(req.PairKey(), oppositeKey)
		return
	}

	fills, unfilled := s.pool.ConsumeFIFO(req.SourceCurrency, req.TargetCurrency, needed, now)
	for i, f := range fills {
		partial := !(unfilled.IsZero() && i == len(fills)-1)
		s.settleAgainstPeer(t, f.Peer.ID, f.Peer.UserID, f.Amount, partial, f.Exhausted, MatchKindFIFO)
	}

	if unfilled.IsPositive() {
		// Remainder keeps the original id and creation time so FIFO
		// fairness follows first arrival.
		s.mu.Lock()
		req.Amount = unfilled
		s.mu.Unlock()
		s.pool.Insert(req)
	} else {
		s.finish(t)
	}
	s.checkBooks(req.PairKey(), oppositeKey)
}

// settleAgainstPeer emits one match record pairing t with a pooled
// counter-request, updating both sides' fill progress.
func (s *service) settleAgainstPeer(t *tracked, peerID, peerUserID string, matched decimal.Decimal, partial, peerExhausted bool, kind string) {
	now := s.clk.Now()
	rate := s.rates.Rate(t.req.SourceCurrency, t.req.TargetCurrency)

	var peerAccount string
	s.mu.Lock()
	t.filled = t.filled.Add(matched)
	t.req.MatchedRequestID = peerID
	t.req.LockedRate = rate
	if peerT, ok := s.requests[peerID]; ok {
		peerT.filled = peerT.filled.Add(matched)
		peerAccount = peerT.recipient.AccountNumber
		if peerExhausted {
			peerT.req.Status = models.RequestStatusCompleted
			peerT.req.MatchedRequestID = t.req.ID
			stopTimers(peerT)
		}
	}
	s.mu.Unlock()
	if peerAccount == "" {
		peerAccount = peerdata.RandomAccountNumber()
	}

	record := s.buildRecord(t, peerID, peerAccount, matched, rate, partial, now)
	s.persist(record)
	s.metrics.RecordMatch(kind)
	s.metrics.ObserveMatchLatency(now.Sub(t.req.CreatedAt))
	s.bus.Publish(models.MatchEvent{Record: *record}, peerID)
}

// finish marks a fully filled request completed.
func (s *service) finish(t *tracked) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.req.Status == models.RequestStatusPending {
		t.req.Status = models.RequestStatusCompleted
		stopTimers(t)
	}
}

// settleSameCurrency settles a same-currency transfer instantly: no pool,
// no fee, no peer.
func (s *service) settleSameCurrency(requestID string) {
	s.mu.Lock()
	t, ok := s.requests[requestID]
	if !ok || t.req.Status != models.RequestStatusPending {
		s.mu.Unlock()
		return
	}
	t.filled = t.total
	t.req.Status = models.RequestStatusCompleted
	stopTimers(t)
	s.mu.Unlock()

	now := s.clk.Now()
	record := s.buildRecord(t, "", t.recipient.AccountNumber, t.total, decimal.NewFromInt(1), false, now)
	s.persist(record)
	s.metrics.RecordMatch(MatchKindSameCurrency)
	s.metrics.ObserveMatchLatency(now.Sub(t.req.CreatedAt))
	s.bus.Publish(models.MatchEvent{Record: *record})
}

// emitNoMatch reports a denied corridor after the simulated round trip.
func (s *service) emitNoMatch(requestID string) {
	s.mu.Lock()
	t, ok := s.requests[requestID]
	if !ok || t.req.Status != models.RequestStatusPending {
		s.mu.Unlock()
		return
	}
	t.req.Status = models.RequestStatusFailed
	stopTimers(t)
	s.mu.Unlock()

	s.metrics.RecordNoMatch(models.NoMatchReasonNoLiquidity)
	s.bus.Publish(models.NoMatchEvent{
		RequestID: requestID,
		Reason:    models.NoMatchReasonNoLiquidity,
		Fallback:  fallbackAdvice,
		Timestamp: s.clk.Now(),
	})
}

// scheduleChunks splits the request per its source currency's chunk
// profile and schedules one synthesized liquidity-provider fill per
// chunk. Chunk events fire in chunk order.
func (s *service) scheduleChunks(t *tracked) {
	profile := s.cfg.ChunkProfiles[t.req.SourceCurrency]
	amounts := splitChunks(t.total, profile)

	if s.cfg.ChunkInterval <= 0 {
		s.schedule(t, s.cfg.MatchDelay, func() {
			for i := range amounts {
				s.emitChunk(t.req.ID, amounts, i)
			}
		})
		return
	}
	for i := range amounts {
		i := i
		delay := s.cfg.MatchDelay + time.Duration(i)*s.cfg.ChunkInterval
		s.schedule(t, delay, func() { s.emitChunk(t.req.ID, amounts, i) })
	}
}

// splitChunks applies the percentage profile to total. The last chunk
// absorbs the rounding residue so the chunks sum exactly to total.
func splitChunks(total decimal.Decimal, profile []decimal.Decimal) []decimal.Decimal {
	amounts := make([]decimal.Decimal, len(profile))
	allocated := decimal.Zero
	for i, pct := range profile[:len(profile)-1] {
		amounts[i] = total.Mul(pct).RoundBank(2)
		allocated = allocated.Add(amounts[i])
	}
	amounts[len(profile)-1] = total.Sub(allocated)
	return amounts
}

func (s *service) emitChunk(requestID string, amounts []decimal.Decimal, i int) {
	s.mu.Lock()
	t, ok := s.requests[requestID]
	if !ok || t.req.Status != models.RequestStatusPending {
		s.mu.Unlock()
		return
	}
	last := i == len(amounts)-1
	t.filled = t.filled.Add(amounts[i])
	peerID := "peer_" + uuid.NewString()[:6]
	t.req.MatchedRequestID = peerID
	if last {
		t.req.Status = models.RequestStatusCompleted
		stopTimers(t)
	}
	s.mu.Unlock()

	now := s.clk.Now()
	rate := s.rates.Rate(t.req.SourceCurrency, t.req.TargetCurrency)
	record := s.buildRecord(t, peerID, peerdata.RandomAccountNumber(), amounts[i], rate, !last, now)
	s.persist(record)
	s.metrics.RecordMatch(MatchKindChunked)
	s.metrics.ObserveMatchLatency(now.Sub(t.req.CreatedAt))
	s.bus.Publish(models.MatchEvent{Record: *record})
}

// onExpiry fails a request that aged out while still searching. Fills
// already emitted stay settled; nothing is rolled back and no event is
// published. The terminal state is visible via Status.
func (s *service) onExpiry(requestID string) {
	s.mu.Lock()
	t, ok := s.requests[requestID]
	if !ok || t.req.Status != models.RequestStatusPending {
		s.mu.Unlock()
		return
	}
	t.req.Status = models.RequestStatusFailed
	stopTimers(t)
	key := t.req.PairKey()
	s.mu.Unlock()

	s.pool.Remove(key, requestID)
	s.metrics.RecordExpiry()
	s.updateDepth(key)
}

func (s *service) buildRecord(t *tracked, peerID, peerAccount string, matched, rate decimal.Decimal, partial bool, now time.Time) *models.MatchRecord {
	req := t.req
	sameCurrency := req.SourceCurrency == req.TargetCurrency
	breakdown := s.fees.Evaluate(matched, sameCurrency, rate)
	arrival := now.Add(24 * time.Hour)

	return &models.MatchRecord{
		RecordID:         uuid.NewString(),
		RequestID:        req.ID,
		MatchedRequestID: peerID,
		MatchedAmount:    matched,
		Fee:              breakdown.Fee,
		NetAmount:        breakdown.Net,
		ExchangeRate:     rate,
		RecipientGets:    breakdown.RecipientGets,
		SourceCurrency:   req.SourceCurrency,
		TargetCurrency:   req.TargetCurrency,
		SameCurrency:     sameCurrency,
		Partial:          partial,
		UserDetails: models.TransferDetails{
			SourceAccountNumber:      walletAccount,
			SourceBankName:           platformBankName,
			DestinationAccountNumber: t.recipient.AccountNumber,
			DestinationBankName:      t.recipient.BankName,
			DestinationBankCountry:   t.recipient.Country,
			TransferID:               peerdata.TransferID(),
			Timestamp:                now,
			EstimatedArrival:         arrival,
		},
		PeerDetails: models.TransferDetails{
			SourceAccountNumber:      peerdata.RandomAccountNumber(),
			SourceBankName:           peerdata.RandomBank(req.TargetCurrency),
			SourceBankCountry:        peerdata.RandomCountry(req.TargetCurrency),
			DestinationAccountNumber: peerAccount,
			TransferID:               peerdata.TransferID(),
			Timestamp:                now,
			EstimatedArrival:         arrival,
		},
		MatchedAt: now,
	}
}

func (s *service) persist(record *models.MatchRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.SaveMatch(context.Background(), record); err != nil {
		log.Printf("engine: journal save failed for %s: %v", record.RequestID, err)
	}
}

func (s *service) checkBooks(keys ...string) {
	for _, key := range keys {
		if err := s.pool.CheckConservation(key); err != nil {
			log.Printf("engine: BUG: %v", err)
		}
	}
	s.updateDepth(keys...)
}

func (s *service) updateDepth(keys ...string) {
	depth := s.pool.Depth()
	for _, key := range keys {
		s.metrics.SetPoolDepth(key, depth[key])
	}
}

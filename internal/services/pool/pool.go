// Package pool implements the liquidity pool of outstanding transfer
// requests, partitioned by directed currency-pair key.
package pool

import (
	"fmt"
	"sync"
	"time"

	apperrors "fxmatch/internal/errors"
	"fxmatch/internal/models"

	"github.com/shopspring/decimal"
)

// Fill is one slice taken from a pooled counter-request during FIFO
// aggregation. Peer is a copy of the pooled entry taken at fill time;
// Amount is the slice consumed from it.
type Fill struct {
	Peer      models.TransferRequest
	Amount    decimal.Decimal
	Exhausted bool
}

// Pool holds pending transfer requests keyed by directed currency pair.
// Each key has its own lock so unrelated pairs match concurrently; all
// operations on one key are mutually exclusive.
type Pool struct {
	mu     sync.RWMutex
	shards map[string]*shard
}

type shard struct {
	mu      sync.Mutex
	entries []*models.TransferRequest

	// conservation accounting, in source-currency units of this key
	inserted decimal.Decimal
	consumed decimal.Decimal
	removed  decimal.Decimal
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{shards: make(map[string]*shard)}
}

func (p *Pool) shardFor(key string, create bool) *shard {
	p.mu.RLock()
	s, ok := p.shards[key]
	p.mu.RUnlock()
	if ok || !create {
		return s
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok = p.shards[key]; ok {
		return s
	}
	s = &shard{}
	p.shards[key] = s
	return s
}

// Insert appends the request to the tail of its pair's queue. The pool
// owns the entry until it is consumed, removed or expired.
func (p *Pool) Insert(req *models.TransferRequest) {
	s := p.shardFor(req.PairKey(), true)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, req)
	s.inserted = s.inserted.Add(req.Amount)
}

// dropExpired removes aged-out entries from the front state of the queue.
// Caller must hold s.mu.
func (s *shard) dropExpired(now time.Time) {
	valid := s.entries[:0]
	for _, e := range s.entries {
		if e.Valid(now) {
			valid = append(valid, e)
			continue
		}
		s.removed = s.removed.Add(e.Amount)
	}
	s.entries = valid
}

// FindExact scans the opposite-direction queue for the earliest-inserted
// entry whose remaining amount equals amount exactly. A hit is removed
// from the pool and returned; ownership passes to the caller.
func (p *Pool) FindExact(source, target models.Currency, amount decimal.Decimal, now time.Time) *models.TransferRequest {
	s := p.shardFor(models.PairKey(target, source), false)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropExpired(now)

	for i, e := range s.entries {
		if e.Amount.Equal(amount) {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.consumed = s.consumed.Add(amount)
			return e
		}
	}
	return nil
}

// ConsumeFIFO walks the opposite-direction queue in insertion order,
// taking min(entry remaining, amount still needed) from each entry until
// the need is met or the queue is exhausted. Fully consumed entries are
// removed; a partially consumed entry shrinks in place and stays at the
// front of the queue. Returns the fills taken and the amount still
// unfilled (zero when fully filled).
func (p *Pool) ConsumeFIFO(source, target models.Currency, needed decimal.Decimal, now time.Time) ([]Fill, decimal.Decimal) {
	s := p.shardFor(models.PairKey(target, source), false)
	if s == nil {
		return nil, needed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropExpired(now)

	var fills []Fill
	remaining := s.entries[:0]
	for i, e := range s.entries {
		if !needed.IsPositive() {
			remaining = append(remaining, s.entries[i:]...)
			break
		}
		take := decimal.Min(e.Amount, needed)
		needed = needed.Sub(take)
		s.consumed = s.consumed.Add(take)

		exhausted := e.Amount.Equal(take)
		fills = append(fills, Fill{Peer: *e, Amount: take, Exhausted: exhausted})
		if !exhausted {
			e.Amount = e.Amount.Sub(take)
			remaining = append(remaining, e)
		}
	}
	s.entries = remaining
	return fills, needed
}

// Remove deletes the entry with the given id from its pair's queue. It
// reports whether an entry was removed.
func (p *Pool) Remove(key, requestID string) bool {
	s := p.shardFor(key, false)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == requestID {
			s.removed = s.removed.Add(e.Amount)
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// ExpireStale drops every aged-out entry across all keys and returns the
// ids of the dropped requests.
func (p *Pool) ExpireStale(now time.Time) []string {
	p.mu.RLock()
	shards := make(map[string]*shard, len(p.shards))
	for k, s := range p.shards {
		shards[k] = s
	}
	p.mu.RUnlock()

	var expired []string
	for _, s := range shards {
		s.mu.Lock()
		for _, e := range s.entries {
			if !e.Valid(now) {
				expired = append(expired, e.ID)
			}
		}
		s.dropExpired(now)
		s.mu.Unlock()
	}
	return expired
}

// Depth returns the number of queued entries per pair key.
func (p *Pool) Depth() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	depth := make(map[string]int, len(p.shards))
	for k, s := range p.shards {
		s.mu.Lock()
		depth[k] = len(s.entries)
		s.mu.Unlock()
	}
	return depth
}

// Snapshot returns copies of the queued entries for one pair key in
// insertion order.
func (p *Pool) Snapshot(key string) []models.TransferRequest {
	s := p.shardFor(key, false)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TransferRequest, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

// CheckConservation verifies that for the given key the queued amounts
// plus everything ever consumed or removed equals everything ever
// inserted. A violation is a bug in the matching logic.
func (p *Pool) CheckConservation(key string) error {
	s := p.shardFor(key, false)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	queued := decimal.Zero
	for _, e := range s.entries {
		queued = queued.Add(e.Amount)
	}
	if !queued.Add(s.consumed).Add(s.removed).Equal(s.inserted) {
		return fmt.Errorf("%w: key %s queued=%s consumed=%s removed=%s inserted=%s",
			apperrors.ErrPoolConservation, key, queued, s.consumed, s.removed, s.inserted)
	}
	return nil
}

// Package sched bounds concurrent expansion work per independent
// scheduling context.
package sched

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool gates how many expansions run concurrently within one scheduling
// context. Each context, named by a caller-supplied key (one per
// refresh scheduler, one per serving pool, and so on), gets its own
// limiter, created lazily under a mutex so concurrent first use cannot
// race on creation.
//
// Limiters never leave the pool: work is submitted through Do, which
// acquires and releases on the same limiter, so a release can never
// pair with another context's acquire. The pool holds no event data.
type Pool struct {
	limit int64

	mu       sync.Mutex
	limiters map[string]*semaphore.Weighted
}

// NewPool creates a Pool allowing limit concurrent executions per
// scheduling context. A non-positive limit is treated as 1.
func NewPool(limit int) *Pool {
	if limit <= 0 {
		limit = 1
	}
	return &Pool{
		limit:    int64(limit),
		limiters: make(map[string]*semaphore.Weighted),
	}
}

// Limit returns the per-context concurrency bound.
func (p *Pool) Limit() int {
	return int(p.limit)
}

// limiter returns the limiter for the given context key, creating it on
// first use.
func (p *Pool) limiter(contextKey string) *semaphore.Weighted {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[contextKey]
	if !ok {
		l = semaphore.NewWeighted(p.limit)
		p.limiters[contextKey] = l
	}
	return l
}

// Do runs fn within the concurrency bound of the named scheduling
// context, blocking until a slot is free or ctx is done. The slot is
// released when fn returns.
func (p *Pool) Do(ctx context.Context, contextKey string, fn func() error) error {
	l := p.limiter(contextKey)
	if err := l.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.Release(1)
	return fn()
}

// Shutdown clears the limiter registry. In-flight work still releases
// onto the limiter it acquired from; subsequent use recreates limiters
// lazily.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiters = make(map[string]*semaphore.Weighted)
}

// Contexts reports how many scheduling contexts currently hold a
// limiter.
func (p *Pool) Contexts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}

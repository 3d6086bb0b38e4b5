package matching

import (
	"go.uber.org/atomic"
)

type poolNode struct {
	m    *Matcher
	next *poolNode
}

// Pool is a lock-free stack of idle matchers.  Get never blocks: an empty
// pool allocates a new matcher.
type Pool struct {
	head       atomic.Pointer[poolNode]
	newMatcher func() *Matcher
	observe    func(hit bool)

	hits   atomic.Int64
	misses atomic.Int64
}

// NewPool returns an empty pool; observe, if not nil, is told whether each
// Get was served from the pool.
func NewPool(newMatcher func() *Matcher, observe func(hit bool)) *Pool {
	return &Pool{newMatcher: newMatcher, observe: observe}
}

// Get borrows a matcher.  The caller owns it exclusively until Put.
func (p *Pool) Get() *Matcher {
	for {
		h := p.head.Load()
		if h == nil {
			p.misses.Inc()
			p.notify(false)
			return p.newMatcher()
		}
		if p.head.CompareAndSwap(h, h.next) {
			p.hits.Inc()
			p.notify(true)
			return h.m
		}
	}
}

// Put returns a matcher to the pool.
func (p *Pool) Put(m *Matcher) {
	m.reset()
	n := &poolNode{m: m}
	for {
		h := p.head.Load()
		n.next = h
		if p.head.CompareAndSwap(h, n) {
			return
		}
	}
}

// Stats returns how many Gets were served from the pool and how many
// allocated.
func (p *Pool) Stats() (hits, misses int64) { return p.hits.Load(), p.misses.Load() }

func (p *Pool) notify(hit bool) {
	if p.observe != nil {
		p.observe(hit)
	}
}

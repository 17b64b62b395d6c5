// Package pool provides a typed slab allocator. Storage grows in fixed-size
// batches when the free list runs dry, freed slots go back onto the free list
// instead of being released, and the whole slab is dropped only by Teardown.
//
// Slots are addressed by int32 indices. Pointers returned by Get stay valid
// until the slot is freed or the pool is torn down, because batches are never
// reallocated once created.
package pool

import (
	"errors"
	"fmt"
)

// DefaultBatch is the number of slots added on each expansion.
const DefaultBatch = 64

// ErrExhausted is returned when growth would exceed the configured limit.
var ErrExhausted = errors.New("pool exhausted")

// Stats reports allocator counters. Capacity is the number of slots that
// have been allocated in batches; Live + Free always equals Capacity.
type Stats struct {
	Capacity int
	Live     int
	Free     int
	Batches  int
	Allocs   uint64
	Frees    uint64
}

type slot[T any] struct {
	val  T
	live bool
}

// Pool is a slab of T values. The zero value is not usable; call New.
type Pool[T any] struct {
	batch   int
	limit   int
	batches [][]slot[T]
	free    []int32
	live    int
	allocs  uint64
	frees   uint64
}

// Option configures a Pool.
type Option func(*options)

type options struct {
	batch int
	limit int
}

// WithBatch sets the expansion size. Values below 1 are ignored.
func WithBatch(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batch = n
		}
	}
}

// WithLimit caps total capacity. Zero means unlimited.
func WithLimit(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.limit = n
		}
	}
}

// New returns an empty pool. No storage is allocated until the first Alloc.
func New[T any](opts ...Option) *Pool[T] {
	o := options{batch: DefaultBatch}
	for _, fn := range opts {
		fn(&o)
	}
	return &Pool[T]{batch: o.batch, limit: o.limit}
}

// expand appends one batch and pushes its slots on the free list. The free
// list is filled in reverse so that allocation hands out ascending indices.
func (p *Pool[T]) expand() error {
	capacity := len(p.batches) * p.batch
	n := p.batch
	if p.limit > 0 {
		if capacity >= p.limit {
			return fmt.Errorf("pool: capacity %d reached limit %d: %w", capacity, p.limit, ErrExhausted)
		}
		if capacity+n > p.limit {
			n = p.limit - capacity
		}
	}
	p.batches = append(p.batches, make([]slot[T], n, p.batch))
	for i := n - 1; i >= 0; i-- {
		p.free = append(p.free, int32(capacity+i))
	}
	return nil
}

// Alloc takes a slot off the free list, expanding when it is empty. The
// returned value is zeroed.
func (p *Pool[T]) Alloc() (int32, *T, error) {
	if len(p.free) == 0 {
		if err := p.expand(); err != nil {
			return -1, nil, err
		}
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	s := p.slot(idx)
	var zero T
	s.val = zero
	s.live = true
	p.live++
	p.allocs++
	return idx, &s.val, nil
}

// Free returns a slot to the free list. Freeing a dead or unknown index is
// a no-op and reports false.
func (p *Pool[T]) Free(idx int32) bool {
	s := p.slot(idx)
	if s == nil || !s.live {
		return false
	}
	var zero T
	s.val = zero
	s.live = false
	p.free = append(p.free, idx)
	p.live--
	p.frees++
	return true
}

// Get returns the value at idx, or nil if the slot is not live.
func (p *Pool[T]) Get(idx int32) *T {
	s := p.slot(idx)
	if s == nil || !s.live {
		return nil
	}
	return &s.val
}

// Live reports whether idx refers to an allocated slot.
func (p *Pool[T]) Live(idx int32) bool {
	s := p.slot(idx)
	return s != nil && s.live
}

// Len returns the number of live slots.
func (p *Pool[T]) Len() int {
	return p.live
}

// Each calls fn for every live slot in index order until fn returns false.
// fn must not allocate from or free into the pool.
func (p *Pool[T]) Each(fn func(idx int32, v *T) bool) {
	for b, batch := range p.batches {
		for i := range batch {
			if !batch[i].live {
				continue
			}
			if !fn(int32(b*p.batch+i), &batch[i].val) {
				return
			}
		}
	}
}

// Stats returns a snapshot of the allocator counters.
func (p *Pool[T]) Stats() Stats {
	capacity := 0
	for _, b := range p.batches {
		capacity += len(b)
	}
	return Stats{
		Capacity: capacity,
		Live:     p.live,
		Free:     len(p.free),
		Batches:  len(p.batches),
		Allocs:   p.allocs,
		Frees:    p.frees,
	}
}

// Teardown drops every batch. All indices become invalid; the pool can be
// reused and will grow again on the next Alloc.
func (p *Pool[T]) Teardown() {
	p.batches = nil
	p.free = nil
	p.live = 0
}

func (p *Pool[T]) slot(idx int32) *slot[T] {
	if idx < 0 {
		return nil
	}
	b, i := int(idx)/p.batch, int(idx)%p.batch
	if b >= len(p.batches) || i >= len(p.batches[b]) {
		return nil
	}
	return &p.batches[b][i]
}

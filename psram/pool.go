// Package psram emulates the external memory pool of the board and the
// fallible allocation path every large buffer goes through.
//
// A Pool owns one contiguous, cache-line aligned region. Blocks are carved
// from it first-fit and returned with Release; adjacent free spans are
// coalesced. Allocation failure never panics: it returns an error wrapping
// ErrOutOfMemory and leaves the pool bookkeeping untouched so the caller can
// abort its initialization step and dump diagnostics.
package psram

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sbl8/tinyml/core"
)

// Alignment is the granularity of every block handed out by a Pool.
const Alignment = 16

var (
	// ErrNotFound is returned by Init when no external memory is present.
	ErrNotFound = errors.New("psram: external memory not found")
	// ErrOutOfMemory is returned when a request cannot be satisfied.
	ErrOutOfMemory = errors.New("psram: out of memory")
	// ErrInvalidSize is returned for requests of zero or negative size.
	ErrInvalidSize = errors.New("psram: invalid allocation size")
)

// span is a contiguous run of the pool, either free or owned by one block.
type span struct {
	off  int
	size int
	free bool
}

// Pool is a fixed-capacity external memory region. It is safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	mem     []byte
	spans   []span // ordered by offset, covering mem without gaps
	minFree int
	log     zerolog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger attaches a logger for allocation failures.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// Init detects and initializes an external pool of capacity bytes.
func Init(capacity int, opts ...Option) (*Pool, error) {
	if capacity <= 0 {
		return nil, ErrNotFound
	}
	p := &Pool{
		mem:     core.AlignedBytes(capacity),
		spans:   []span{{off: 0, size: capacity, free: true}},
		minFree: capacity,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Capacity returns the pool size in bytes, or 0 for a nil pool.
func (p *Pool) Capacity() int {
	if p == nil {
		return 0
	}
	return len(p.mem)
}

// Acquire carves a zeroed block of at least size bytes from the pool.
// Ownership moves to the caller, who must Release it.
func (p *Pool) Acquire(size int) (*Block, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: pool not initialized", ErrOutOfMemory)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mem == nil {
		return nil, fmt.Errorf("%w: pool not initialized", ErrOutOfMemory)
	}

	// Requests beyond the capacity would overflow the rounding below.
	if size <= len(p.mem) {
		need := int(core.AlignUp(uintptr(size), Alignment))
		for i, s := range p.spans {
			if !s.free || s.size < need {
				continue
			}
			p.split(i, need)
			if free := p.freeLocked(); free < p.minFree {
				p.minFree = free
			}
			data := p.mem[s.off : s.off+size : s.off+size]
			clear(data)
			return &Block{pool: p, off: s.off, size: size, data: data}, nil
		}
	}

	allocFailures.Inc()
	largest := p.largestLocked()
	p.log.Error().Int("size", size).Int("largest_free", largest).Msg("error allocating memory in psram")
	return nil, fmt.Errorf("%w: requested %d bytes, largest free block %d", ErrOutOfMemory, size, largest)
}

// With acquires a block, runs fn and releases the block on every exit path.
func (p *Pool) With(size int, fn func(b *Block) error) error {
	b, err := p.Acquire(size)
	if err != nil {
		return err
	}
	defer b.Release()
	return fn(b)
}

// split turns the free span i into an allocated span of need bytes followed
// by the free remainder, if any.
func (p *Pool) split(i, need int) {
	s := p.spans[i]
	p.spans[i] = span{off: s.off, size: need}
	if rest := s.size - need; rest > 0 {
		p.spans = append(p.spans, span{})
		copy(p.spans[i+2:], p.spans[i+1:])
		p.spans[i+1] = span{off: s.off + need, size: rest, free: true}
	}
}

// releaseLocked frees the span starting at off and merges it with free
// neighbours. p.mu must be held.
func (p *Pool) releaseLocked(off int) {
	i := -1
	for j, s := range p.spans {
		if s.off == off && !s.free {
			i = j
			break
		}
	}
	if i < 0 {
		return
	}
	p.spans[i].free = true

	if i+1 < len(p.spans) && p.spans[i+1].free {
		p.spans[i].size += p.spans[i+1].size
		p.spans = append(p.spans[:i+1], p.spans[i+2:]...)
	}
	if i > 0 && p.spans[i-1].free {
		p.spans[i-1].size += p.spans[i].size
		p.spans = append(p.spans[:i], p.spans[i+1:]...)
	}
}

func (p *Pool) freeLocked() int {
	n := 0
	for _, s := range p.spans {
		if s.free {
			n += s.size
		}
	}
	return n
}

func (p *Pool) largestLocked() int {
	n := 0
	for _, s := range p.spans {
		if s.free && s.size > n {
			n = s.size
		}
	}
	return n
}

// Block is an exclusively owned region of a Pool. Release may be called from
// any goroutine; the accessors must not race with it.
type Block struct {
	pool     *Pool
	off      int
	size     int
	data     []byte
	released bool // guarded by pool.mu
}

// Offset returns the block's base address relative to the pool start.
func (b *Block) Offset() int { return b.off }

// Addr returns the absolute address of the first byte, or 0 after release.
func (b *Block) Addr() uintptr { return core.AddrOf(b.data) }

// Size returns the requested size in bytes.
func (b *Block) Size() int { return b.size }

// Bytes returns the block storage, or nil after release.
func (b *Block) Bytes() []byte { return b.data }

// Float32s views the block as float32 values.
func (b *Block) Float32s() []float32 { return core.AsFloat32(b.data) }

// Release hands the block back to its pool. Further calls are no-ops.
func (b *Block) Release() {
	if b == nil {
		return
	}
	p := b.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.data = nil
	p.releaseLocked(b.off)
}

package psram

import "github.com/rs/zerolog"

// Stats is a snapshot of pool bookkeeping, modelled on multi_heap_info_t.
type Stats struct {
	Initialized      bool
	Capacity         int
	TotalFree        int
	TotalAllocated   int
	LargestFreeBlock int
	MinimumFree      int
	AllocatedBlocks  int
	FreeBlocks       int
	TotalBlocks      int
}

// Stats reports the current pool usage. It never fails: a nil or
// uninitialized pool yields a zero snapshot with Initialized unset.
func (p *Pool) Stats() Stats {
	if p == nil {
		return Stats{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mem == nil {
		return Stats{}
	}

	s := Stats{
		Initialized: true,
		Capacity:    len(p.mem),
		MinimumFree: p.minFree,
		TotalBlocks: len(p.spans),
	}
	for _, sp := range p.spans {
		if sp.free {
			s.TotalFree += sp.size
			s.FreeBlocks++
			if sp.size > s.LargestFreeBlock {
				s.LargestFreeBlock = sp.size
			}
		} else {
			s.TotalAllocated += sp.size
			s.AllocatedBlocks++
		}
	}
	return s
}

// Fragmentation is 1 - largest/free: 0 when free memory is one span.
func (s Stats) Fragmentation() float64 {
	if s.TotalFree == 0 {
		return 0
	}
	return 1 - float64(s.LargestFreeBlock)/float64(s.TotalFree)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("initialized", s.Initialized).
		Int("total_free_bytes", s.TotalFree).
		Int("total_allocated_bytes", s.TotalAllocated).
		Int("largest_free_block", s.LargestFreeBlock).
		Int("minimum_free_bytes", s.MinimumFree).
		Int("allocated_blocks", s.AllocatedBlocks).
		Int("free_blocks", s.FreeBlocks).
		Int("total_blocks", s.TotalBlocks)
}

// LogStats writes the pool usage as one debug event.
func LogStats(log zerolog.Logger, p *Pool) {
	s := p.Stats()
	if !s.Initialized {
		log.Debug().Msg("psram not initialized")
		return
	}
	log.Debug().Object("psram", s).Float64("fragmentation", s.Fragmentation()).Msg("psram usage")
}

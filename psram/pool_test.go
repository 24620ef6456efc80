package psram

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/sbl8/tinyml/core"
)

func newPool(t *testing.T, capacity int) *Pool {
	t.Helper()
	p, err := Init(capacity)
	if err != nil {
		t.Fatalf("Init(%d): %v", capacity, err)
	}
	return p
}

func TestInitNotFound(t *testing.T) {
	t.Parallel()
	for _, c := range []int{0, -1} {
		if _, err := Init(c); !errors.Is(err, ErrNotFound) {
			t.Errorf("Init(%d) err = %v, want ErrNotFound", c, err)
		}
	}
}

func TestAcquireRelease(t *testing.T) {
	t.Parallel()
	p := newPool(t, 4096)

	b, err := p.Acquire(1000)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if b.Size() != 1000 || len(b.Bytes()) != 1000 {
		t.Fatalf("size = %d, len = %d", b.Size(), len(b.Bytes()))
	}
	if !core.IsAligned(b.Addr(), Alignment) {
		t.Errorf("block address %#x not %d-byte aligned", b.Addr(), Alignment)
	}

	s := p.Stats()
	if s.TotalAllocated != 1008 || s.TotalFree != 4096-1008 {
		t.Errorf("allocated=%d free=%d", s.TotalAllocated, s.TotalFree)
	}
	if s.AllocatedBlocks != 1 || s.FreeBlocks != 1 || s.TotalBlocks != 2 {
		t.Errorf("blocks: %+v", s)
	}

	b.Bytes()[0] = 'a'
	if b.Bytes()[0] != 'a' {
		t.Error("write did not stick")
	}

	b.Release()
	b.Release()
	if b.Bytes() != nil || b.Addr() != 0 {
		t.Error("released block still exposes storage")
	}
	s = p.Stats()
	if s.TotalFree != 4096 || s.TotalBlocks != 1 || s.AllocatedBlocks != 0 {
		t.Errorf("after release: %+v", s)
	}
	if s.MinimumFree != 4096-1008 {
		t.Errorf("minimum free = %d, want low-water mark %d", s.MinimumFree, 4096-1008)
	}
}

func TestAcquireZeroesReusedMemory(t *testing.T) {
	t.Parallel()
	p := newPool(t, 256)
	b, _ := p.Acquire(64)
	for i := range b.Bytes() {
		b.Bytes()[i] = 0xAA
	}
	b.Release()

	again, err := p.Acquire(64)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !bytes.Equal(again.Bytes(), make([]byte, 64)) {
		t.Error("reused block was not zeroed")
	}
}

func TestAcquireInvalidSize(t *testing.T) {
	t.Parallel()
	p := newPool(t, 256)
	for _, n := range []int{0, -16} {
		if _, err := p.Acquire(n); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("Acquire(%d) err = %v", n, err)
		}
	}
}

func TestOutOfMemoryLeavesStatsUnchanged(t *testing.T) {
	p := newPool(t, 4096)
	keep, err := p.Acquire(512)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer keep.Release()

	before := p.Stats()
	failuresBefore := testutil.ToFloat64(allocFailures)

	_, err = p.Acquire(before.TotalFree + 1)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("err = %v, want ErrOutOfMemory", err)
	}
	if after := p.Stats(); after != before {
		t.Errorf("stats changed on failure:\nbefore %+v\nafter  %+v", before, after)
	}
	if got := testutil.ToFloat64(allocFailures); got != failuresBefore+1 {
		t.Errorf("alloc failures = %v, want %v", got, failuresBefore+1)
	}
}

func TestAcquireHugeSize(t *testing.T) {
	p := newPool(t, 4096)
	before := p.Stats()

	for _, size := range []int{4097, math.MaxInt - 14, math.MaxInt} {
		if _, err := p.Acquire(size); !errors.Is(err, ErrOutOfMemory) {
			t.Fatalf("Acquire(%d) err = %v, want ErrOutOfMemory", size, err)
		}
		if after := p.Stats(); after != before {
			t.Fatalf("Acquire(%d) changed stats:\nbefore %+v\nafter  %+v", size, before, after)
		}
	}

	b, err := p.Acquire(4096)
	if err != nil {
		t.Fatalf("Acquire(4096) after failures: %v", err)
	}
	b.Release()
}

func TestConcurrentRelease(t *testing.T) {
	t.Parallel()
	p := newPool(t, 4096)

	blocks := make([]*Block, 8)
	for i := range blocks {
		b, err := p.Acquire(100)
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		blocks[i] = b
	}

	var wg sync.WaitGroup
	for _, b := range blocks {
		for i := 0; i < 2; i++ {
			b := b
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Release()
			}()
		}
	}
	wg.Wait()

	s := p.Stats()
	if s.AllocatedBlocks != 0 || s.FreeBlocks != 1 || s.TotalFree != 4096 {
		t.Errorf("after concurrent release: %+v", s)
	}
}

func TestFragmentation(t *testing.T) {
	t.Parallel()
	p := newPool(t, 64*4)
	blocks := make([]*Block, 4)
	for i := range blocks {
		b, err := p.Acquire(64)
		if err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		blocks[i] = b
	}
	blocks[0].Release()
	blocks[2].Release()

	s := p.Stats()
	if s.TotalFree != 128 || s.LargestFreeBlock != 64 || s.FreeBlocks != 2 {
		t.Fatalf("stats: %+v", s)
	}
	if f := s.Fragmentation(); f != 0.5 {
		t.Errorf("fragmentation = %v, want 0.5", f)
	}
	if _, err := p.Acquire(128); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("fragmented request err = %v, want ErrOutOfMemory", err)
	}

	blocks[1].Release()
	s = p.Stats()
	if s.LargestFreeBlock != 192 || s.FreeBlocks != 1 {
		t.Errorf("coalescing failed: %+v", s)
	}
	if _, err := p.Acquire(128); err != nil {
		t.Errorf("Acquire after coalesce: %v", err)
	}
}

func TestNilPool(t *testing.T) {
	t.Parallel()
	var p *Pool
	if s := p.Stats(); s.Initialized || s != (Stats{}) {
		t.Errorf("nil pool stats = %+v", s)
	}
	if _, err := p.Acquire(16); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("nil pool Acquire err = %v", err)
	}
	if p.Capacity() != 0 {
		t.Error("nil pool capacity should be 0")
	}
	if (&Pool{}).Stats().Initialized {
		t.Error("zero pool reported initialized")
	}
}

func TestWithReleasesOnError(t *testing.T) {
	t.Parallel()
	p := newPool(t, 1024)
	boom := errors.New("boom")
	err := p.With(100, func(b *Block) error {
		if p.Stats().AllocatedBlocks != 1 {
			t.Error("block not held inside With")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if s := p.Stats(); s.AllocatedBlocks != 0 || s.TotalFree != 1024 {
		t.Errorf("block leaked: %+v", s)
	}
}

func TestBlockFloat32s(t *testing.T) {
	t.Parallel()
	p := newPool(t, 8192)
	b, err := p.Acquire(784 * 4)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	f := b.Float32s()
	if len(f) != 784 {
		t.Fatalf("len = %d", len(f))
	}
	f[783] = 1
	if b.Bytes()[783*4+3] == 0 {
		t.Error("float view does not alias block bytes")
	}
}

func TestLogStats(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	LogStats(log, nil)
	if !strings.Contains(buf.String(), "psram not initialized") {
		t.Errorf("nil pool log = %q", buf.String())
	}

	buf.Reset()
	p := newPool(t, 2048)
	LogStats(log, p)
	for _, field := range []string{"total_free_bytes", "largest_free_block", "minimum_free_bytes", "total_blocks"} {
		if !strings.Contains(buf.String(), field) {
			t.Errorf("log missing %s: %s", field, buf.String())
		}
	}
}

func TestAllocationFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	p, err := Init(64, WithLogger(zerolog.New(&buf)))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := p.Acquire(128); err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(buf.String(), "error allocating memory in psram") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestCollector(t *testing.T) {
	t.Parallel()
	p := newPool(t, 4096)
	b, _ := p.Acquire(1024)
	defer b.Release()

	c := NewCollector(p)
	if n := testutil.CollectAndCount(c); n != 7 {
		t.Errorf("collected %d metrics, want 7", n)
	}
	expected := `
# HELP tinyml_psram_free_bytes Total free bytes in the external memory pool.
# TYPE tinyml_psram_free_bytes gauge
tinyml_psram_free_bytes 3072
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "tinyml_psram_free_bytes"); err != nil {
		t.Error(err)
	}

	if n := testutil.CollectAndCount(NewCollector(nil)); n != 7 {
		t.Errorf("nil pool collector produced %d metrics", n)
	}
}

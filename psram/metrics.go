package psram

import "github.com/prometheus/client_golang/prometheus"

var allocFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "tinyml",
	Subsystem: "psram",
	Name:      "alloc_failures_total",
	Help:      "Total allocation requests the external memory pool could not satisfy.",
})

func init() {
	prometheus.MustRegister(allocFailures)
}

// Collector exports pool statistics as Prometheus gauges.
type Collector struct {
	pool *Pool

	capacity  *prometheus.Desc
	free      *prometheus.Desc
	allocated *prometheus.Desc
	largest   *prometheus.Desc
	minFree   *prometheus.Desc
	blocks    *prometheus.Desc
}

// NewCollector returns a collector reading p on every scrape. p may be nil.
func NewCollector(p *Pool) *Collector {
	name := func(n string) string { return prometheus.BuildFQName("tinyml", "psram", n) }
	return &Collector{
		pool:      p,
		capacity:  prometheus.NewDesc(name("capacity_bytes"), "Size of the external memory pool.", nil, nil),
		free:      prometheus.NewDesc(name("free_bytes"), "Total free bytes in the external memory pool.", nil, nil),
		allocated: prometheus.NewDesc(name("allocated_bytes"), "Total allocated bytes in the external memory pool.", nil, nil),
		largest:   prometheus.NewDesc(name("largest_free_block_bytes"), "Largest contiguous free block.", nil, nil),
		minFree:   prometheus.NewDesc(name("minimum_free_bytes"), "Lowest free byte count observed since init.", nil, nil),
		blocks:    prometheus.NewDesc(name("blocks"), "Number of pool blocks by state.", []string{"state"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.free
	ch <- c.allocated
	ch <- c.largest
	ch <- c.minFree
	ch <- c.blocks
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()
	gauge := func(d *prometheus.Desc, v int, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), labels...)
	}
	gauge(c.capacity, s.Capacity)
	gauge(c.free, s.TotalFree)
	gauge(c.allocated, s.TotalAllocated)
	gauge(c.largest, s.LargestFreeBlock)
	gauge(c.minFree, s.MinimumFree)
	gauge(c.blocks, s.AllocatedBlocks, "allocated")
	gauge(c.blocks, s.FreeBlocks, "free")
}

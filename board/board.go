// Package board emulates the bring-up steps and peripherals around the
// inference pipeline: external memory detection, the boot banner, the
// memory self-test and the status LED.
package board

import (
	"errors"
	goruntime "runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/rs/zerolog"

	"github.com/sbl8/tinyml/kernels"
	"github.com/sbl8/tinyml/psram"
)

// Info describes the host standing in for the board.
type Info struct {
	CPU        string
	Cores      int
	Threads    int
	Features   []string
	Vectorized bool
	HeapSize   uint64
	HeapFree   uint64
}

// Describe reads CPU and heap information.
func Describe() Info {
	var ms goruntime.MemStats
	goruntime.ReadMemStats(&ms)

	return Info{
		CPU:        cpuid.CPU.BrandName,
		Cores:      cpuid.CPU.PhysicalCores,
		Threads:    cpuid.CPU.LogicalCores,
		Features:   cpuid.CPU.FeatureSet(),
		Vectorized: kernels.Vectorized(),
		HeapSize:   ms.HeapSys,
		HeapFree:   ms.HeapIdle,
	}
}

// Banner logs the boot banner and returns what it logged.
func Banner(log zerolog.Logger) Info {
	info := Describe()
	log.Debug().Uint64("bytes", info.HeapSize).Msg("Heap size")
	log.Debug().Uint64("bytes", info.HeapFree).Msg("Free heap size")
	log.Info().
		Str("cpu", info.CPU).
		Int("cores", info.Cores).
		Int("threads", info.Threads).
		Bool("vectorized", info.Vectorized).
		Msg("board ready")
	return info
}

// InitPSRAM detects and initializes the external memory pool.
func InitPSRAM(capacity int, log zerolog.Logger) (*psram.Pool, error) {
	Banner(log)
	pool, err := psram.Init(capacity, psram.WithLogger(log))
	if err != nil {
		if errors.Is(err, psram.ErrNotFound) {
			log.Error().Int("capacity", capacity).Msg("PSRam was not found on init")
		} else {
			log.Error().Err(err).Msg("PSRam was not inited successfully")
		}
		return nil, err
	}
	log.Info().Int("capacity", pool.Capacity()).Msg("psram initialized")
	return pool, nil
}

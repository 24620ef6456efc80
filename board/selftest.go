package board

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sbl8/tinyml/psram"
)

// SelfTestSize is the block size exercised by SelfTest.
const SelfTestSize = 1000

// SelfTest allocates a block from pool, writes a marker byte and reads it
// back, logging pool usage before and after the allocation.
func SelfTest(pool *psram.Pool, log zerolog.Logger) error {
	log.Info().Msg("Starting PSRAM Test")
	psram.LogStats(log, pool)

	return pool.With(SelfTestSize, func(b *psram.Block) error {
		psram.LogStats(log, pool)

		buf := b.Bytes()
		buf[0] = 'a'
		if got := buf[0]; got != 'a' {
			return fmt.Errorf("psram self-test: read back %q, wrote 'a'", got)
		}
		log.Info().Str("value", string(buf[0])).Int("offset", b.Offset()).Msg("PSRAM Test passed")
		return nil
	})
}

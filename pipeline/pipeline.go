// Package pipeline wires the external memory pool, the model loader and the
// interpreter into the inference loop of the device.
//
// Setup performs every allocation the device will ever make: the model copy,
// the tensor arena and the input buffer all come from the psram pool. Any
// failure there halts initialization and returns every block acquired so
// far. After Setup, Run repeats the same cycle: copy the input image into the
// model, invoke, report per-class scores and the predicted label, wait.
// A failed invocation is reported and the loop moves on to the next cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/sbl8/tinyml/assets"
	"github.com/sbl8/tinyml/config"
	"github.com/sbl8/tinyml/kernels"
	"github.com/sbl8/tinyml/model"
	"github.com/sbl8/tinyml/psram"
	"github.com/sbl8/tinyml/runtime"
)

// Options configures a Pipeline.
type Options struct {
	Logger zerolog.Logger
	// Report receives the diagnostic lines. Nil discards them.
	Report io.Writer
	// Delay between cycles. Zero means config.CycleDelay.
	Delay time.Duration
	// MaxCycles bounds Run. Zero means forever.
	MaxCycles int
	// Image is a grayscale image of config.InputSize bytes. Nil means the
	// embedded sample digit.
	Image []byte
	// Stats enables interpreter execution statistics.
	Stats bool
}

// Pipeline owns the buffers and interpreter of one model.
type Pipeline struct {
	pool   *psram.Pool
	opts   Options
	log    zerolog.Logger
	report *Reporter

	blocks []*psram.Block // acquisition order
	model  *model.Model
	interp *runtime.Interpreter
	engine Engine
	input  []float32
}

// Setup acquires the model, arena and input buffers from pool, loads blob and
// prepares the interpreter.
func Setup(pool *psram.Pool, blob []byte, resolver *kernels.Resolver, opts Options) (_ *Pipeline, err error) {
	p := &Pipeline{
		pool:   pool,
		opts:   opts,
		log:    opts.Logger,
		report: NewReporter(opts.Report),
	}
	if p.opts.Delay <= 0 {
		p.opts.Delay = config.CycleDelay
	}
	if p.opts.Image == nil {
		p.opts.Image = assets.Digit
	}

	defer func() {
		if err != nil {
			p.Close()
		}
	}()

	psram.LogStats(p.log, pool)

	image := p.opts.Image
	if len(image) != config.InputSize {
		return nil, fmt.Errorf("%w: image has %d pixels, want %d", ErrInputSize, len(image), config.InputSize)
	}

	modelBlock, err := p.acquire(len(blob), "model")
	if err != nil {
		return nil, err
	}
	copy(modelBlock.Bytes(), blob)

	p.model, err = model.Load(modelBlock.Bytes())
	if err != nil {
		var se *model.SchemaError
		if errors.As(err, &se) {
			p.log.Error().Uint32("got", se.Got).Uint32("want", se.Want).
				Msgf("Model provided is schema version %d not equal to supported version %d", se.Got, se.Want)
		} else {
			p.log.Error().Err(err).Msg("model load failed")
		}
		return nil, err
	}

	arenaBlock, err := p.acquire(config.TensorArenaSize, "tensor arena")
	if err != nil {
		return nil, err
	}

	p.interp, err = runtime.NewInterpreter(p.model, resolver, arenaBlock.Bytes(), runtime.Options{
		Logger:      p.log,
		EnableStats: opts.Stats,
	})
	if err != nil {
		p.log.Error().Err(err).Msg("interpreter setup failed")
		return nil, err
	}
	if err := p.interp.AllocateTensors(); err != nil {
		p.log.Error().Err(err).Msg("AllocateTensors() failed")
		return nil, err
	}
	p.engine = p.interp

	if n := p.interp.Input(0).NumElements(); n != config.InputSize {
		return nil, fmt.Errorf("%w: input has %d elements, want %d", ErrShapeMismatch, n, config.InputSize)
	}
	if n := p.interp.Output(0).NumElements(); n != config.NumClasses {
		return nil, fmt.Errorf("%w: output has %d elements, want %d", ErrShapeMismatch, n, config.NumClasses)
	}

	inputBlock, err := p.acquire(config.InputSize*4, "input buffer")
	if err != nil {
		return nil, err
	}
	p.input = inputBlock.Float32s()
	for i, px := range image {
		p.input[i] = float32(px) / 255
	}

	p.report.Println("TinyML successfully started!")
	p.log.Info().
		Int("arena_used", p.interp.ArenaUsedBytes()).
		Int("arena_size", p.interp.ArenaSize()).
		Int("operators", len(p.model.Operators)).
		Msg("TinyML successfully started!")
	psram.LogStats(p.log, pool)
	return p, nil
}

func (p *Pipeline) acquire(size int, what string) (*psram.Block, error) {
	b, err := p.pool.Acquire(size)
	if err != nil {
		p.log.Error().Err(err).Str("buffer", what).Int("size", size).Msg("setup allocation failed")
		psram.LogStats(p.log, p.pool)
		return nil, fmt.Errorf("allocate %s: %w", what, err)
	}
	p.blocks = append(p.blocks, b)
	return b, nil
}

// Model returns the loaded model.
func (p *Pipeline) Model() *model.Model { return p.model }

// Interpreter returns the interpreter bound to the tensor arena.
func (p *Pipeline) Interpreter() *runtime.Interpreter { return p.interp }

// Input returns the normalized input image held in external memory.
func (p *Pipeline) Input() []float32 { return p.input }

// Cycle runs one inference and reports its scores and prediction.
// It returns runtime.ErrNotReady after Close.
func (p *Pipeline) Cycle() (Result, error) {
	if p.engine == nil {
		return Result{}, runtime.ErrNotReady
	}
	start := time.Now()
	scores, err := RunCycle(p.engine, p.input)
	cycleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		cyclesTotal.WithLabelValues(resultInvokeError).Inc()
		if errors.Is(err, ErrInvoke) {
			p.report.Println("Invoke failed!")
		}
		p.log.Error().Err(err).Msg("Invoke failed!")
		return Result{}, err
	}

	p.report.Scores(scores)
	res := Classify(scores)
	p.report.Prediction(res)

	cyclesTotal.WithLabelValues(resultOK).Inc()
	lastLabel.Set(float64(res.Label))
	lastConfidence.Set(float64(res.Confidence))
	p.log.Debug().
		Int("label", res.Label).
		Float32("confidence", res.Confidence).
		Dur("elapsed", time.Since(start)).
		Msg("inference cycle")
	return res, nil
}

// Run cycles until MaxCycles is reached or ctx is done, waiting Delay between
// cycles. Failed invocations do not stop the loop. Cancellation is only
// observed between cycles and is not an error.
func (p *Pipeline) Run(ctx context.Context) error {
	var timer *time.Timer

	for n := 0; p.opts.MaxCycles <= 0 || n < p.opts.MaxCycles; n++ {
		if n > 0 {
			if timer == nil {
				timer = time.NewTimer(p.opts.Delay)
			} else {
				timer.Reset(p.opts.Delay)
			}
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		if _, err := p.Cycle(); err != nil && !errors.Is(err, ErrInvoke) {
			return err
		}
	}
	return nil
}

// Close releases every buffer back to the pool. It is safe to call twice.
func (p *Pipeline) Close() {
	for i := len(p.blocks) - 1; i >= 0; i-- {
		p.blocks[i].Release()
	}
	p.blocks = nil
	p.input = nil
	p.engine = nil
}

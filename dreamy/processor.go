package dreamy

import (
	"fmt"

	"github.com/cwbudde/algo-dreamy/dsp/aec"
	"github.com/cwbudde/algo-dreamy/dsp/core"
	"github.com/cwbudde/algo-dreamy/dsp/effects"
	"github.com/cwbudde/algo-dreamy/dsp/granular"
	"github.com/cwbudde/algo-dreamy/dsp/vad"
)

// Processor runs the dreamy pipeline once per audio block: echo-cancel the
// microphone input against the previous output block, feed the cleaned
// samples to the granular engine, render a granular block, and shape it
// with the effects chain. The produced block becomes the next block's echo
// reference.
//
// All state is allocated at construction; ProcessBlock neither allocates
// nor returns errors. A Processor is not safe for concurrent use.
type Processor struct {
	cfg       Config
	canceller *aec.Canceller
	detector  *vad.Detector
	engine    *granular.Engine
	chain     *effects.Chain
	prevOut   []float64
}

// New builds a processor from a validated configuration.
func New(cfg Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	canceller, err := aec.NewWithRegularization(cfg.FilterLength, cfg.StepSize, cfg.RegularizationEpsilon)
	if err != nil {
		return nil, fmt.Errorf("dreamy: echo canceller: %w", err)
	}
	detector, err := vad.NewWithTimes(cfg.SampleRate, cfg.VADThreshold, cfg.VADAttackMs, cfg.VADReleaseMs)
	if err != nil {
		return nil, fmt.Errorf("dreamy: voice activity detector: %w", err)
	}

	engine, err := granular.New(cfg.SampleRate, cfg.RingBufferMs, cfg.MaxGrains)
	if err != nil {
		return nil, fmt.Errorf("dreamy: granular engine: %w", err)
	}
	if err := configureEngine(engine, cfg); err != nil {
		return nil, fmt.Errorf("dreamy: granular engine: %w", err)
	}

	chain, err := buildChain(cfg)
	if err != nil {
		return nil, fmt.Errorf("dreamy: effects chain: %w", err)
	}

	return &Processor{
		cfg:       cfg,
		canceller: canceller,
		detector:  detector,
		engine:    engine,
		chain:     chain,
		prevOut:   make([]float64, cfg.BlockSize),
	}, nil
}

// configureEngine applies the grain tunables. Grain size and lookback
// constrain each other, so the one compatible with the engine's current
// state is applied first.
func configureEngine(e *granular.Engine, cfg Config) error {
	if cfg.GrainSizeMs <= e.LookbackMs() {
		if err := e.SetGrainSizeMs(cfg.GrainSizeMs); err != nil {
			return err
		}
		if err := e.SetLookbackMs(cfg.LookbackMs); err != nil {
			return err
		}
	} else {
		if err := e.SetLookbackMs(cfg.LookbackMs); err != nil {
			return err
		}
		if err := e.SetGrainSizeMs(cfg.GrainSizeMs); err != nil {
			return err
		}
	}
	if err := e.SetDensity(cfg.GrainDensity); err != nil {
		return err
	}
	if err := e.SetPitchShift(cfg.PitchShift); err != nil {
		return err
	}
	if err := e.SetPitchRandomness(cfg.PitchRandomness); err != nil {
		return err
	}
	if err := e.SetTimeRandomness(cfg.TimeRandomness); err != nil {
		return err
	}
	e.SetRandomSeed(cfg.Seed)
	return nil
}

func buildChain(cfg Config) (*effects.Chain, error) {
	lowpass, err := effects.NewOnePole(cfg.SampleRate, cfg.LowpassCutoffHz)
	if err != nil {
		return nil, err
	}
	chorus, err := effects.NewChorus(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	if err := chorus.SetRateHz(cfg.ChorusRateHz); err != nil {
		return nil, err
	}
	if err := chorus.SetBaseDelayMs(cfg.ChorusBaseDelayMs); err != nil {
		return nil, err
	}
	if err := chorus.SetDepthMs(cfg.ChorusDepthMs); err != nil {
		return nil, err
	}
	if err := chorus.SetMix(cfg.ChorusMix); err != nil {
		return nil, err
	}
	reverb, err := effects.NewReverbWithTuning(cfg.SampleRate, cfg.ReverbTuning, cfg.ReverbWet, cfg.ReverbDry)
	if err != nil {
		return nil, err
	}
	return effects.NewChain(lowpass, chorus, reverb)
}

// Config returns the configuration the processor was built with.
func (p *Processor) Config() Config { return p.cfg }

// Canceller returns the echo canceller stage.
func (p *Processor) Canceller() *aec.Canceller { return p.canceller }

// Detector returns the voice activity detector gating adaptation.
func (p *Processor) Detector() *vad.Detector { return p.detector }

// Engine returns the granular engine stage.
func (p *Processor) Engine() *granular.Engine { return p.engine }

// Chain returns the effects chain stage.
func (p *Processor) Chain() *effects.Chain { return p.chain }

// ProcessBlock transforms one microphone block into one output block.
// Both slices should be BlockSize long; shorter slices process only the
// overlapping prefix. dst and input may alias.
func (p *Processor) ProcessBlock(dst, input []float64) {
	n := len(input)
	if len(dst) < n {
		n = len(dst)
	}
	if n > p.cfg.BlockSize {
		n = p.cfg.BlockSize
	}

	// Echo-cancel against the previous output block, gating adaptation on
	// speaker activity, and feed the cleaned signal into grain history.
	for i := 0; i < n; i++ {
		ref := p.prevOut[i]
		p.canceller.SetAdaptationEnabled(p.detector.Process(ref))
		clean := p.canceller.ProcessSample(input[i], ref)
		p.engine.Write(clean)
	}

	p.engine.Render(dst[:n])
	p.chain.ProcessInPlace(dst[:n])

	copy(p.prevOut, dst[:n])
	core.Zero(p.prevOut[n:])
}

// Reset returns every stage to its initial state. The next block sees a
// silent echo reference, as at startup.
func (p *Processor) Reset() {
	p.canceller.Reset()
	p.detector.Reset()
	p.engine.Reset()
	p.chain.Reset()
	core.Zero(p.prevOut)
}

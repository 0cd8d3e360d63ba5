package calibration

import (
	"github.com/go-logr/logr"
)

// Builder can build calibration engines.
type Builder struct {
	control    ControlOwner
	delays     DelayLoader
	probe      Probe
	bus        Bus
	maxDelay   uint8
	burstReads int
	log        logr.Logger
}

// MakeBuilder returns a Builder with the default sweep parameters.
func MakeBuilder() Builder {
	return Builder{
		maxDelay:   7,
		burstReads: 128,
		log:        logr.Discard(),
	}
}

// WithControlOwner sets who switches the command lines.
func (b Builder) WithControlOwner(c ControlOwner) Builder {
	b.control = c
	return b
}

// WithDelayLoader sets where candidate delays are loaded.
func (b Builder) WithDelayLoader(d DelayLoader) Builder {
	b.delays = d
	return b
}

// WithProbe sets the burst detector.
func (b Builder) WithProbe(p Probe) Builder {
	b.probe = p
	return b
}

// WithBus sets how read bursts are generated.
func (b Builder) WithBus(bus Bus) Builder {
	b.bus = bus
	return b
}

// WithMaxDelay sets the largest delay tried.
func (b Builder) WithMaxDelay(d uint8) Builder {
	b.maxDelay = d
	return b
}

// WithBurstReads sets the number of reads per sample.
func (b Builder) WithBurstReads(n int) Builder {
	b.burstReads = n
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(log logr.Logger) Builder {
	b.log = log
	return b
}

// Build creates the engine.
func (b Builder) Build() *Engine {
	b.mustBeComplete()

	return &Engine{
		control:    b.control,
		delays:     b.delays,
		probe:      b.probe,
		bus:        b.bus,
		maxDelay:   b.maxDelay,
		burstReads: b.burstReads,
		log:        b.log,
	}
}

func (b Builder) mustBeComplete() {
	if b.control == nil || b.delays == nil || b.probe == nil || b.bus == nil {
		panic("calibration: control owner, delay loader, probe and bus are required")
	}
}

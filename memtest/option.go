package memtest

import (
	"math"

	"github.com/sarchlab/dramcal/dfii"
)

type patternKind int

const (
	patternFixed patternKind = iota
	patternLFSR
	patternAddress
)

type config struct {
	kind         patternKind
	delayer      dfii.Delayer
	settleCycles int
	errorLimit   int
}

func defaultConfig() config {
	return config{kind: patternFixed}
}

func (c config) pattern(w Width) generator {
	mask := widthMask(w)

	switch c.kind {
	case patternLFSR:
		return lfsrPattern{lfsr: NewLFSR(LFSRSeed), mask: mask}
	case patternAddress:
		return addressPattern{width: w, mask: mask}
	}

	return fixedPattern{value: fixedFor(w)}
}

// Option configures a run.
type Option func(*config)

// WithLFSR fills with the pseudo-random sequence instead of the fixed value.
func WithLFSR() Option {
	return func(c *config) {
		c.kind = patternLFSR
	}
}

// WithAddressPattern tags every element with its byte offset.
func WithAddressPattern() Option {
	return func(c *config) {
		c.kind = patternAddress
	}
}

// WithSettleDelay waits cycles between the write and the read pass.
func WithSettleDelay(d dfii.Delayer, cycles int) Option {
	return func(c *config) {
		c.delayer = d
		c.settleCycles = cycles
	}
}

// WithErrorLimit keeps verifying after a mismatch until more than n elements
// failed. A negative n never stops early.
func WithErrorLimit(n int) Option {
	return func(c *config) {
		if n < 0 {
			n = math.MaxInt
		}

		c.errorLimit = n
	}
}

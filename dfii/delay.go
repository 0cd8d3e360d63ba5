package dfii

import (
	"sync/atomic"
	"time"
)

// A Delayer waits for a number of sequencer cycles.
type Delayer interface {
	Delay(cycles int)
}

// BusyLoop waits by spinning. Each cycle is one atomic increment, which the
// compiler cannot remove.
type BusyLoop struct{}

var spin uint32

// Delay spins for cycles iterations.
func (BusyLoop) Delay(cycles int) {
	for i := 0; i < cycles; i++ {
		atomic.AddUint32(&spin, 1)
	}
}

// Timer waits by sleeping CyclePeriod for every cycle.
type Timer struct {
	CyclePeriod time.Duration
}

// Delay sleeps for cycles periods.
func (t Timer) Delay(cycles int) {
	if cycles <= 0 {
		return
	}

	time.Sleep(time.Duration(cycles) * t.CyclePeriod)
}

// NoDelay returns immediately. It is meant for simulated devices.
type NoDelay struct{}

// Delay does nothing.
func (NoDelay) Delay(int) {}

// Package calibration finds, for every lane, the window of read delays over
// which the PHY detects read bursts and centers the lane inside it.
package calibration

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/dramcal/hooking"
)

// NumLanes is the number of lanes the engine calibrates.
const NumLanes = 2

// NoDelay marks a window bound that was never observed.
const NoDelay = -1

// ErrNoWindow is returned when a lane never detected a burst.
var ErrNoWindow = errors.New("calibration: no burst detect window")

// ControlOwner hands the command lines between the controller and software.
type ControlOwner interface {
	SetSoftwareControl() error
	SetHardwareControl() error
}

// DelayLoader programs the read delay of both lanes.
type DelayLoader interface {
	SetReadDelays(delays [NumLanes]uint8) error
}

// Probe is the sticky burst detector of the PHY.
type Probe interface {
	ResetBurstDetect() error
	BurstDetected(lane int) (bool, error)
}

// Bus issues reads to the memory so that the PHY sees read bursts.
type Bus interface {
	ReadBurst(n int) error
}

// Window is the inclusive range of read delays where a lane detected bursts.
type Window struct {
	Min   int
	Max   int
	Found bool
}

// Center returns the midpoint of the window, rounded down.
func (w Window) Center() int {
	return (w.Min + w.Max) / 2
}

// Sample is a single probe of one lane at one delay.
type Sample struct {
	Lane     int
	Delay    uint8
	Detected bool
}

// Result holds the outcome of a calibration run.
type Result struct {
	Delays  [NumLanes]uint8
	Windows [NumLanes]Window
	Samples []Sample
}

// Hook positions of the engine. Samples carry a Sample item; lane completion
// carries a LaneDone item.
var (
	HookPosSample   = &hooking.HookPos{Name: "CalibrationSample"}
	HookPosLaneDone = &hooking.HookPos{Name: "CalibrationLaneDone"}
)

// LaneDone reports the window chosen for a lane.
type LaneDone struct {
	Lane   int
	Window Window
	Delay  uint8
}

// Engine sweeps the read delays and selects the center of each lane's burst
// detect window.
type Engine struct {
	hooking.HookableBase

	control    ControlOwner
	delays     DelayLoader
	probe      Probe
	bus        Bus
	maxDelay   uint8
	burstReads int
	log        logr.Logger
}

// MaxDelay returns the largest delay the engine tries.
func (e *Engine) MaxDelay() uint8 {
	return e.maxDelay
}

// BurstReads returns the number of reads issued per sample.
func (e *Engine) BurstReads() int {
	return e.burstReads
}

// Run calibrates both lanes, starting from the base delays. Software control
// is held for the whole run and released before returning, also on error. A
// failed acquire may have left the lines half switched, so the release is
// attempted then too.
// A lane without a window keeps its base delay and makes Run return an error
// wrapping ErrNoWindow together with the result of the other lane.
func (e *Engine) Run(base [NumLanes]uint8) (res Result, err error) {
	res.Delays = base

	defer func() {
		releaseErr := e.control.SetHardwareControl()
		if releaseErr != nil {
			err = errors.Join(err, fmt.Errorf(
				"calibration: release software control: %w", releaseErr))
		}
	}()

	if err = e.control.SetSoftwareControl(); err != nil {
		return res, fmt.Errorf("calibration: acquire software control: %w", err)
	}

	var missing []error

	for lane := 0; lane < NumLanes; lane++ {
		w, sweepErr := e.sweepLane(lane, &res)
		if sweepErr != nil {
			return res, sweepErr
		}

		res.Windows[lane] = w

		if !w.Found {
			e.log.Info("no burst detect window", "lane", lane)
			missing = append(missing,
				fmt.Errorf("lane %d: %w", lane, ErrNoWindow))
		} else {
			res.Delays[lane] = uint8(w.Center())
			e.log.V(1).Info("lane calibrated",
				"lane", lane, "min", w.Min, "max", w.Max,
				"delay", res.Delays[lane])
		}

		e.InvokeHook(hooking.HookCtx{
			Domain: e,
			Pos:    HookPosLaneDone,
			Item:   LaneDone{Lane: lane, Window: w, Delay: res.Delays[lane]},
		})
	}

	if err = e.delays.SetReadDelays(res.Delays); err != nil {
		return res, fmt.Errorf("calibration: load result: %w", err)
	}

	return res, errors.Join(missing...)
}

func (e *Engine) sweepLane(lane int, res *Result) (Window, error) {
	w := Window{Min: NoDelay, Max: NoDelay}
	candidate := res.Delays

	for d := 0; d <= int(e.maxDelay); d++ {
		candidate[lane] = uint8(d)

		detected, err := e.sample(candidate, lane)
		if err != nil {
			return w, err
		}

		s := Sample{Lane: lane, Delay: uint8(d), Detected: detected}
		res.Samples = append(res.Samples, s)
		e.InvokeHook(hooking.HookCtx{Domain: e, Pos: HookPosSample, Item: s})

		switch {
		case detected && !w.Found:
			w.Min = d
			w.Found = true
		case !detected && w.Found:
			w.Max = d - 1
			return w, nil
		}
	}

	if w.Found {
		w.Max = int(e.maxDelay)
	}

	return w, nil
}

func (e *Engine) sample(delays [NumLanes]uint8, lane int) (bool, error) {
	if err := e.delays.SetReadDelays(delays); err != nil {
		return false, fmt.Errorf("calibration: load delays %v: %w", delays, err)
	}

	if err := e.probe.ResetBurstDetect(); err != nil {
		return false, fmt.Errorf("calibration: reset burst detect: %w", err)
	}

	if err := e.bus.ReadBurst(e.burstReads); err != nil {
		return false, fmt.Errorf("calibration: read burst: %w", err)
	}

	detected, err := e.probe.BurstDetected(lane)
	if err != nil {
		return false, fmt.Errorf("calibration: read burst detect: %w", err)
	}

	return detected, nil
}

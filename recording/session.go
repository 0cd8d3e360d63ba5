package recording

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/dramcal/calibration"
	"github.com/sarchlab/dramcal/hooking"
	"github.com/sarchlab/dramcal/memtest"
)

// Table names.
const (
	TableSamples  = "calibration_samples"
	TableLanes    = "calibration_lanes"
	TableMemTests = "memtests"
	TableTasks    = "tasks"
)

// SampleEntry is one probe of the calibration sweep.
type SampleEntry struct {
	Session  string
	Lane     int
	Delay    int
	Detected bool
}

// LaneEntry is the window and delay chosen for a lane.
type LaneEntry struct {
	Session string
	Lane    int
	Min     int
	Max     int
	Found   bool
	Delay   int
}

// MemTestEntry summarizes one memory test.
type MemTestEntry struct {
	Session       string
	Width         int
	Elements      uint32
	Checked       uint32
	Errors        int
	FirstFailAddr int64
}

// TaskEntry is a bring-up task that ended.
type TaskEntry struct {
	Session   string
	ID        string
	Kind      string
	What      string
	Location  string
	StartTime float64
	EndTime   float64
	Error     string
}

// Session is a hook that records everything observed during one bring-up
// session under a common session ID.
type Session struct {
	recorder DataRecorder
	id       string
	now      func() time.Time

	lock    sync.Mutex
	started map[string]TaskEntry
}

// NewSession creates the tables if needed and starts a session with a fresh
// ID.
func NewSession(recorder DataRecorder) *Session {
	recorder.CreateTable(TableSamples, SampleEntry{})
	recorder.CreateTable(TableLanes, LaneEntry{})
	recorder.CreateTable(TableMemTests, MemTestEntry{})
	recorder.CreateTable(TableTasks, TaskEntry{})

	return &Session{
		recorder: recorder,
		id:       xid.New().String(),
		now:      time.Now,
		started:  make(map[string]TaskEntry),
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Func records calibration samples, lane results and tasks.
func (s *Session) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case calibration.HookPosSample:
		sample := ctx.Item.(calibration.Sample)
		s.recorder.InsertData(TableSamples, SampleEntry{
			Session:  s.id,
			Lane:     sample.Lane,
			Delay:    int(sample.Delay),
			Detected: sample.Detected,
		})
	case calibration.HookPosLaneDone:
		done := ctx.Item.(calibration.LaneDone)
		s.recorder.InsertData(TableLanes, LaneEntry{
			Session: s.id,
			Lane:    done.Lane,
			Min:     done.Window.Min,
			Max:     done.Window.Max,
			Found:   done.Window.Found,
			Delay:   int(done.Delay),
		})
	case hooking.HookPosTaskStart:
		s.startTask(ctx)
	case hooking.HookPosTaskEnd:
		s.endTask(ctx.Item.(hooking.TaskEnd))
	}
}

func (s *Session) startTask(ctx hooking.HookCtx) {
	start := ctx.Item.(hooking.TaskStart)
	entry := TaskEntry{
		Session:   s.id,
		ID:        start.ID,
		Kind:      string(start.Kind),
		What:      start.What,
		StartTime: seconds(s.now()),
	}

	if named, ok := ctx.Domain.(interface{ Name() string }); ok {
		entry.Location = named.Name()
	}

	s.lock.Lock()
	s.started[start.ID] = entry
	s.lock.Unlock()
}

func (s *Session) endTask(end hooking.TaskEnd) {
	s.lock.Lock()
	entry, ok := s.started[end.ID]
	delete(s.started, end.ID)
	s.lock.Unlock()

	if !ok {
		return
	}

	entry.EndTime = seconds(s.now())
	if end.Err != nil {
		entry.Error = end.Err.Error()
	}

	s.recorder.InsertData(TableTasks, entry)
}

// RecordMemTest stores the summary of a memory test.
func (s *Session) RecordMemTest(report memtest.Report) {
	entry := MemTestEntry{
		Session:       s.id,
		Width:         int(report.Width),
		Elements:      report.Elements,
		Checked:       report.Checked,
		Errors:        report.Errors,
		FirstFailAddr: -1,
	}

	if addr, ok := report.FirstFailAddr(); ok {
		entry.FirstFailAddr = int64(addr)
	}

	s.recorder.InsertData(TableMemTests, entry)
}

func seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

package monitoring

import (
	"sync/atomic"
	"time"

	"github.com/rs/xid"
)

// A ProgressBar follows one read delay sweep, one step per probed delay.
type ProgressBar struct {
	ID        string
	Name      string
	StartTime time.Time
	Total     uint64

	laneSteps uint64
	finished  atomic.Uint64
	lane      atomic.Int64
}

func newProgressBar(name string, total uint64) *ProgressBar {
	return &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}
}

// Advance counts one probe of the given lane.
func (b *ProgressBar) Advance(lane int) {
	b.lane.Store(int64(lane))
	b.finished.Add(1)
}

// CompleteLane moves the bar to the end of the lane's allotment. A sweep that
// stops when the window closes skips the remaining delays of the lane.
func (b *ProgressBar) CompleteLane(lane int) {
	if b.laneSteps == 0 {
		return
	}

	b.lane.Store(int64(lane))
	b.finished.Store(min(uint64(lane+1)*b.laneSteps, b.Total))
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
	Lane      int       `json:"lane"`
}

func (b *ProgressBar) snapshot() progressRsp {
	return progressRsp{
		ID:        b.ID,
		Name:      b.Name,
		StartTime: b.StartTime,
		Total:     b.Total,
		Finished:  b.finished.Load(),
		Lane:      int(b.lane.Load()),
	}
}

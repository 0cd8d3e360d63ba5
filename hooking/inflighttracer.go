package hooking

import (
	"sort"
	"sync"
)

// InflightTracer keeps the tasks that have started but not ended. It is what
// the monitor shows while a long calibration or memory test is running.
type InflightTracer struct {
	filter TaskFilter

	lock          sync.Mutex
	inflightTasks map[string]Task
	order         []string
	completed     uint64
	failed        uint64
}

// NewInflightTracer creates a new InflightTracer. A nil filter accepts all
// tasks.
func NewInflightTracer(filter TaskFilter) *InflightTracer {
	t := &InflightTracer{
		filter:        filter,
		inflightTasks: make(map[string]Task),
	}

	if t.filter == nil {
		t.filter = func(TaskStart) bool { return true }
	}

	return t
}

// Func dispatches the hook to the start, step and end handlers.
func (t *InflightTracer) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosTaskStart:
		t.StartTask(ctx, ctx.Item.(TaskStart))
	case HookPosTaskStep:
		t.StepTask(ctx.Item.(TaskStep))
	case HookPosTaskEnd:
		t.EndTask(ctx.Item.(TaskEnd))
	}
}

// StartTask records the start of a task.
func (t *InflightTracer) StartTask(ctx HookCtx, taskStart TaskStart) {
	if !t.filter(taskStart) {
		return
	}

	currTask := Task{
		ID:   taskStart.ID,
		Kind: taskStart.Kind,
		What: taskStart.What,
	}

	if named, ok := ctx.Domain.(interface{ Name() string }); ok {
		currTask.Where = named.Name()
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.inflightTasks[currTask.ID] = currTask
	t.order = append(t.order, currTask.ID)
}

// StepTask appends a step to an in-flight task.
func (t *InflightTracer) StepTask(s TaskStep) {
	t.lock.Lock()
	defer t.lock.Unlock()

	currTask, ok := t.inflightTasks[s.TaskID]
	if !ok {
		return
	}

	currTask.Steps = append(currTask.Steps, Step{What: s.What, Detail: s.Detail})
	t.inflightTasks[s.TaskID] = currTask
}

// EndTask removes a task from the in-flight set.
func (t *InflightTracer) EndTask(taskEnd TaskEnd) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.inflightTasks[taskEnd.ID]; !ok {
		return
	}

	delete(t.inflightTasks, taskEnd.ID)

	for i, id := range t.order {
		if id == taskEnd.ID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	t.completed++
	if taskEnd.Err != nil {
		t.failed++
	}
}

// InflightTasks returns the tasks that have not ended, oldest first.
func (t *InflightTracer) InflightTasks() []Task {
	t.lock.Lock()
	defer t.lock.Unlock()

	tasks := make([]Task, 0, len(t.order))
	for _, id := range t.order {
		tasks = append(tasks, t.inflightTasks[id])
	}

	return tasks
}

// Counts returns how many tasks have ended and how many of them failed.
func (t *InflightTracer) Counts() (completed, failed uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.completed, t.failed
}

// CountTracer counts how many times each hook position fired.
type CountTracer struct {
	lock   sync.Mutex
	counts map[string]uint64
}

// NewCountTracer creates a CountTracer.
func NewCountTracer() *CountTracer {
	return &CountTracer{counts: make(map[string]uint64)}
}

// Func increments the counter of the hook position.
func (t *CountTracer) Func(ctx HookCtx) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.counts[ctx.Pos.Name]++
}

// Count returns the counter of one hook position.
func (t *CountTracer) Count(pos *HookPos) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[pos.Name]
}

// Names returns the hook positions that fired, sorted.
func (t *CountTracer) Names() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := make([]string, 0, len(t.counts))
	for n := range t.counts {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

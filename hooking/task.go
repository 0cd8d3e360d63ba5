package hooking

// Task sites fired by a bring-up context.
var (
	HookPosTaskStart = &HookPos{Name: "TaskStart"}
	HookPosTaskStep  = &HookPos{Name: "TaskStep"}
	HookPosTaskEnd   = &HookPos{Name: "TaskEnd"}
)

// TaskKind classifies bring-up tasks.
type TaskKind string

// Kinds of the tasks run by a bring-up context.
const (
	TaskInit        TaskKind = "init"
	TaskCalibration TaskKind = "calibration"
	TaskMemTest     TaskKind = "memtest"
)

// TaskStart is the item of HookPosTaskStart.
type TaskStart struct {
	ID   string
	Kind TaskKind
	What string
}

// TaskStep is the item of HookPosTaskStep, for example one calibrated lane.
type TaskStep struct {
	TaskID string
	What   string
	Detail string
}

// TaskEnd is the item of HookPosTaskEnd. Err is nil if the task succeeded.
type TaskEnd struct {
	ID  string
	Err error
}

// Task is a started task as the tracers keep it. Where is the name of the
// domain that runs it, if the domain has one.
type Task struct {
	ID    string   `json:"id"`
	Kind  TaskKind `json:"kind"`
	What  string   `json:"what"`
	Where string   `json:"where"`
	Steps []Step   `json:"steps"`
}

// Step is one step a Task has taken.
type Step struct {
	What   string `json:"what"`
	Detail string `json:"detail"`
}

// TaskFilter selects the tasks a tracer keeps.
type TaskFilter func(t TaskStart) bool

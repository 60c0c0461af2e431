package model

import (
	"fmt"
	"strings"
)

// ActionKind identifies one step of a CPU burst.
type ActionKind string

const (
	ActionRun     ActionKind = "run"
	ActionRequest ActionKind = "request"
	ActionRelease ActionKind = "release"
)

// Action is a single entry of a CPU burst.
// Duration is used by run actions; Resource and Amount by request/release.
type Action struct {
	Kind     ActionKind `json:"kind" yaml:"kind"`
	Duration int        `json:"duration,omitempty" yaml:"duration,omitempty"`
	Resource int        `json:"resource,omitempty" yaml:"resource,omitempty"`
	Amount   int        `json:"amount,omitempty" yaml:"amount,omitempty"`
}

// Run returns an action executing for n ticks.
func Run(n int) Action { return Action{Kind: ActionRun, Duration: n} }

// Request returns an action acquiring amount instances of resource.
func Request(resource, amount int) Action {
	return Action{Kind: ActionRequest, Resource: resource, Amount: amount}
}

// Release returns an action freeing amount instances of resource.
func Release(resource, amount int) Action {
	return Action{Kind: ActionRelease, Resource: resource, Amount: amount}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionRun:
		return fmt.Sprintf("%d", a.Duration)
	case ActionRequest:
		return fmt.Sprintf("R[%d,%d]", a.Resource, a.Amount)
	case ActionRelease:
		return fmt.Sprintf("F[%d,%d]", a.Resource, a.Amount)
	}
	return string(a.Kind)
}

// BurstKind distinguishes CPU bursts from I/O bursts.
type BurstKind string

const (
	BurstCPU BurstKind = "CPU"
	BurstIO  BurstKind = "IO"
)

// Burst is a contiguous phase of a task: ordered actions for CPU bursts,
// a fixed Duration for I/O bursts.
type Burst struct {
	Kind     BurstKind `json:"kind" yaml:"kind"`
	Actions  []Action  `json:"actions,omitempty" yaml:"actions,omitempty"`
	Duration int       `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// CPU builds a CPU burst from the given actions.
func CPU(actions ...Action) Burst { return Burst{Kind: BurstCPU, Actions: actions} }

// IO builds an I/O burst lasting d ticks.
func IO(d int) Burst { return Burst{Kind: BurstIO, Duration: d} }

func (b Burst) String() string {
	if b.Kind == BurstIO {
		return fmt.Sprintf("IO {%d}", b.Duration)
	}
	parts := make([]string, len(b.Actions))
	for i, a := range b.Actions {
		parts[i] = a.String()
	}
	return "CPU {" + strings.Join(parts, ", ") + "}"
}

// TaskSpec is the immutable description of a task as loaded from a scenario.
type TaskSpec struct {
	ID       int     `json:"id" yaml:"id"`
	Arrival  int     `json:"arrival" yaml:"arrival"`
	Priority int     `json:"priority" yaml:"priority"`
	Bursts   []Burst `json:"bursts" yaml:"bursts"`
}

// PendingRequest is the request a WAITING task is blocked on.
type PendingRequest struct {
	Resource int `json:"resource"`
	Amount   int `json:"amount"`
}

// Task is the runtime record of a simulated process. It is created once at
// load time; its final values are kept for reporting.
type Task struct {
	TaskSpec

	// BasePriority is the priority at load time; Priority changes with aging.
	BasePriority int
	State        TaskState

	BurstIndex      int
	ActionIndex     int
	ActionRemaining int // ticks left in the in-progress run action, 0 when not started
	IORemaining     int
	Pending         *PendingRequest

	WaitingTime int // ticks spent in a ready queue
	ReadyWait   int // aging counter
	Quantum     int // ticks left in the current dispatch

	StartedAt   *int // first dispatch tick
	CompletedAt *int
}

// NewTask creates the runtime record for spec with a full quantum.
func NewTask(spec TaskSpec, quantum int) *Task {
	return &Task{
		TaskSpec:     spec,
		BasePriority: spec.Priority,
		State:        TaskStateNew,
		Quantum:      quantum,
	}
}

// CurrentBurst returns the burst under the cursor, or nil when all bursts are done.
func (t *Task) CurrentBurst() *Burst {
	if t.BurstIndex >= 0 && t.BurstIndex < len(t.Bursts) {
		return &t.Bursts[t.BurstIndex]
	}
	return nil
}

// HasMoreBursts reports whether the cursor still points at a burst.
func (t *Task) HasMoreBursts() bool {
	return t.BurstIndex < len(t.Bursts)
}

// Label returns the display name of the task, e.g. "P3".
func (t *Task) Label() string {
	return TaskLabel(t.ID)
}

// TaskLabel formats a task id for display.
func TaskLabel(id int) string {
	return fmt.Sprintf("P%d", id)
}

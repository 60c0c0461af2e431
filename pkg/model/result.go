package model

// IdleTaskID marks a Gantt interval in which no task held the CPU.
const IdleTaskID = 0

// Interval is one merged Gantt chart entry covering ticks [Start, End).
type Interval struct {
	Start  int `json:"start" yaml:"start"`
	End    int `json:"end" yaml:"end"`
	TaskID int `json:"task_id" yaml:"task_id"` // IdleTaskID when idle
}

// Idle reports whether the CPU was idle during the interval.
func (iv Interval) Idle() bool {
	return iv.TaskID == IdleTaskID
}

// Label returns "IDLE" or the task label.
func (iv Interval) Label() string {
	if iv.Idle() {
		return "IDLE"
	}
	return TaskLabel(iv.TaskID)
}

// DeadlockEvent records one recovery action.
type DeadlockEvent struct {
	Tick       int   `json:"tick" yaml:"tick"`
	Victim     int   `json:"victim" yaml:"victim"`
	Deadlocked []int `json:"deadlocked" yaml:"deadlocked"`
}

// TaskSummary is the final per-task record handed to reporting.
type TaskSummary struct {
	ID            int       `json:"id" yaml:"id"`
	Arrival       int       `json:"arrival" yaml:"arrival"`
	BasePriority  int       `json:"base_priority" yaml:"base_priority"`
	FinalPriority int       `json:"final_priority" yaml:"final_priority"`
	State         TaskState `json:"state" yaml:"state"`
	StartedAt     *int      `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt   *int      `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	WaitingTime   int       `json:"waiting_time" yaml:"waiting_time"`
	Turnaround    int       `json:"turnaround" yaml:"turnaround"`
}

// Result is the final state of a simulation run.
type Result struct {
	RunID         string          `json:"run_id" yaml:"run_id"`
	Scenario      string          `json:"scenario,omitempty" yaml:"scenario,omitempty"`
	Ticks         int             `json:"ticks" yaml:"ticks"`
	BusyTicks     int             `json:"busy_ticks" yaml:"busy_ticks"`
	Gantt         []Interval      `json:"gantt" yaml:"gantt"`
	Tasks         []TaskSummary   `json:"tasks" yaml:"tasks"`
	Deadlocks     []DeadlockEvent `json:"deadlocks" yaml:"deadlocks"`
	AvgWaiting    float64         `json:"avg_waiting" yaml:"avg_waiting"`
	AvgTurnaround float64         `json:"avg_turnaround" yaml:"avg_turnaround"`
	Finished      int             `json:"finished" yaml:"finished"`
	Terminated    int             `json:"terminated" yaml:"terminated"`
}

// Utilization returns the fraction of ticks in which the CPU was busy.
func (r *Result) Utilization() float64 {
	if r.Ticks == 0 {
		return 0
	}
	return float64(r.BusyTicks) / float64(r.Ticks)
}

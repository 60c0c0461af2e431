package model

// TaskState represents the lifecycle state of a simulated Task.
type TaskState string

const (
	TaskStateNew        TaskState = "NEW"
	TaskStateReady      TaskState = "READY"
	TaskStateRunning    TaskState = "RUNNING"
	TaskStateWaiting    TaskState = "WAITING"
	TaskStateIO         TaskState = "IO"
	TaskStateFinished   TaskState = "FINISHED"
	TaskStateTerminated TaskState = "TERMINATED"
)

// String returns the string representation of the task state.
func (s TaskState) String() string {
	return string(s)
}

// IsTerminal returns true if the task is in a final state.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateFinished, TaskStateTerminated:
		return true
	}
	return false
}

// ValidTaskTransitions defines the allowed state transitions for Tasks.
// Every non-terminal state may move to TERMINATED through deadlock recovery.
var ValidTaskTransitions = map[TaskState][]TaskState{
	TaskStateNew:     {TaskStateReady, TaskStateTerminated},
	TaskStateReady:   {TaskStateRunning, TaskStateTerminated},
	TaskStateRunning: {TaskStateReady, TaskStateWaiting, TaskStateIO, TaskStateFinished, TaskStateTerminated},
	TaskStateWaiting: {TaskStateReady, TaskStateTerminated},
	TaskStateIO:      {TaskStateReady, TaskStateFinished, TaskStateTerminated},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	for _, allowed := range ValidTaskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

package scheduler

import (
	"slices"

	"github.com/me/schedsim/pkg/model"
)

// Timeline accumulates the Gantt chart one tick at a time, merging
// consecutive ticks with the same occupant.
type Timeline struct {
	closed []model.Interval
	open   *model.Interval
}

// Record attributes tick to taskID (model.IdleTaskID when idle).
func (tl *Timeline) Record(tick, taskID int) {
	if tl.open != nil && tl.open.TaskID == taskID && tl.open.End == tick {
		tl.open.End = tick + 1
		return
	}
	tl.Close()
	tl.open = &model.Interval{Start: tick, End: tick + 1, TaskID: taskID}
}

// Close emits the open interval, if any.
func (tl *Timeline) Close() {
	if tl.open == nil {
		return
	}
	tl.closed = append(tl.closed, *tl.open)
	tl.open = nil
}

// Intervals returns the chart so far, including the open interval.
func (tl *Timeline) Intervals() []model.Interval {
	out := slices.Clone(tl.closed)
	if tl.open != nil {
		out = append(out, *tl.open)
	}
	if out == nil {
		out = []model.Interval{}
	}
	return out
}

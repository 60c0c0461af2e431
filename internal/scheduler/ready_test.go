package scheduler

import (
	"slices"
	"testing"

	"github.com/me/schedsim/pkg/model"
)

func readyTask(id, priority int) *model.Task {
	return model.NewTask(model.TaskSpec{ID: id, Priority: priority}, 5)
}

func ids(tasks []*model.Task) []int {
	out := make([]int, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestReadyQueues_PriorityThenFIFO(t *testing.T) {
	q := NewReadyQueues(20)
	q.Push(readyTask(1, 3))
	q.Push(readyTask(2, 0))
	q.Push(readyTask(3, 3))
	q.Push(readyTask(4, 0))

	if got := q.Peek(); got == nil || got.ID != 2 {
		t.Fatalf("Peek = %v, want P2", got)
	}
	var order []int
	for q.Len() > 0 {
		order = append(order, q.Pop().ID)
	}
	if want := []int{2, 4, 1, 3}; !slices.Equal(order, want) {
		t.Errorf("pop order = %v, want %v", order, want)
	}
	if q.Pop() != nil || q.Peek() != nil {
		t.Error("expected empty queues")
	}
}

func TestReadyQueues_ClampsOutOfRangePriority(t *testing.T) {
	q := NewReadyQueues(4)
	q.Push(readyTask(1, 9))
	q.Push(readyTask(2, -1))

	if q.BucketLen(4) != 1 || q.BucketLen(0) != 1 {
		t.Errorf("bucket lens = %d/%d, want 1/1", q.BucketLen(0), q.BucketLen(4))
	}
	if q.BucketLen(99) != 0 {
		t.Error("BucketLen out of range should be 0")
	}
}

func TestReadyQueues_Age(t *testing.T) {
	tests := []struct {
		name         string
		priority     int
		readyWait    int
		wantPriority int
		wantWait     int
		wantPromoted bool
	}{
		{"below threshold", 3, 0, 3, 1, false},
		{"reaches threshold", 3, 9, 2, 0, true},
		{"already top priority", 0, 9, 0, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewReadyQueues(20)
			task := readyTask(1, tt.priority)
			task.ReadyWait = tt.readyWait
			q.Push(task)

			promoted := q.Age(10)
			if task.Priority != tt.wantPriority || task.ReadyWait != tt.wantWait {
				t.Errorf("priority/wait = %d/%d, want %d/%d", task.Priority, task.ReadyWait, tt.wantPriority, tt.wantWait)
			}
			if (len(promoted) == 1) != tt.wantPromoted {
				t.Errorf("promoted = %v, want promoted=%v", ids(promoted), tt.wantPromoted)
			}
			if q.BucketLen(tt.wantPriority) != 1 {
				t.Errorf("task not in bucket %d after aging", tt.wantPriority)
			}
		})
	}
}

// TestReadyQueues_AgePreservesOrder checks that a promoted task joins its new
// bucket behind tasks already queued there, in pre-aging order.
func TestReadyQueues_AgePreservesOrder(t *testing.T) {
	q := NewReadyQueues(20)
	a, b, c := readyTask(1, 1), readyTask(2, 2), readyTask(3, 2)
	b.ReadyWait, c.ReadyWait = 9, 9
	q.Push(a)
	q.Push(b)
	q.Push(c)

	promoted := q.Age(10)
	if !slices.Equal(ids(promoted), []int{2, 3}) {
		t.Errorf("promoted = %v, want [2 3]", ids(promoted))
	}
	if got := ids(q.Tasks()); !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("order = %v, want [1 2 3]", got)
	}
	if q.BucketLen(1) != 3 || q.BucketLen(2) != 0 {
		t.Errorf("bucket lens = %d/%d, want 3/0", q.BucketLen(1), q.BucketLen(2))
	}
}

package scheduler

import "github.com/me/schedsim/pkg/model"

// ReadyQueues is the ready structure: one FIFO bucket per priority level,
// indexed by priority (0 is the highest).
type ReadyQueues struct {
	buckets [][]*model.Task
}

// NewReadyQueues creates buckets for priorities 0..maxPriority.
func NewReadyQueues(maxPriority int) *ReadyQueues {
	return &ReadyQueues{buckets: make([][]*model.Task, maxPriority+1)}
}

// Push appends t to the bucket of its current priority.
func (q *ReadyQueues) Push(t *model.Task) {
	i := q.bucket(t.Priority)
	q.buckets[i] = append(q.buckets[i], t)
}

// Peek returns the head of the lowest-numbered non-empty bucket, or nil.
func (q *ReadyQueues) Peek() *model.Task {
	for _, b := range q.buckets {
		if len(b) > 0 {
			return b[0]
		}
	}
	return nil
}

// Pop removes and returns the head of the lowest-numbered non-empty bucket.
func (q *ReadyQueues) Pop() *model.Task {
	for i, b := range q.buckets {
		if len(b) > 0 {
			t := b[0]
			b[0] = nil
			q.buckets[i] = b[1:]
			return t
		}
	}
	return nil
}

// Len returns the number of queued tasks.
func (q *ReadyQueues) Len() int {
	n := 0
	for _, b := range q.buckets {
		n += len(b)
	}
	return n
}

// Tasks returns every queued task, bucket by bucket in FIFO order.
func (q *ReadyQueues) Tasks() []*model.Task {
	out := make([]*model.Task, 0, q.Len())
	for _, b := range q.buckets {
		out = append(out, b...)
	}
	return out
}

// BucketLen returns the number of tasks queued at priority p.
func (q *ReadyQueues) BucketLen(p int) int {
	if p < 0 || p >= len(q.buckets) {
		return 0
	}
	return len(q.buckets[p])
}

// Age increments the aging counter of every queued task, promotes tasks
// whose counter reached threshold by one level, and rebuilds the buckets.
// Relative order is preserved: tasks are re-pushed in their pre-aging
// bucket order. The promoted tasks are returned.
func (q *ReadyQueues) Age(threshold int) []*model.Task {
	var promoted []*model.Task
	all := q.Tasks()
	for _, t := range all {
		t.ReadyWait++
		if t.ReadyWait >= threshold && t.Priority > 0 {
			t.Priority--
			t.ReadyWait = 0
			promoted = append(promoted, t)
		}
	}
	if len(promoted) == 0 {
		return nil
	}
	for i := range q.buckets {
		q.buckets[i] = nil
	}
	for _, t := range all {
		q.Push(t)
	}
	return promoted
}

// bucket clamps p into range. NewEngine rejects out-of-range priorities, so
// only direct users of ReadyQueues reach the clamp.
func (q *ReadyQueues) bucket(p int) int {
	if p < 0 {
		return 0
	}
	if p >= len(q.buckets) {
		return len(q.buckets) - 1
	}
	return p
}

package scheduler

import (
	"github.com/me/schedsim/internal/ledger"
	"github.com/me/schedsim/pkg/model"
)

// DetectDeadlock runs the safety scan and returns the waiting tasks that can
// never be satisfied, in waiting-set order.
//
// Tasks that are not WAITING count as finishable but contribute nothing to
// the work vector, which starts from the ledger's real available counts. A
// waiting task whose pending request fits is marked finishable and its
// allocation is added to the work vector; the scan repeats until a full pass
// marks nothing new.
func DetectDeadlock(l *ledger.Ledger, waiting []*model.Task) []*model.Task {
	work := l.AvailableSnapshot()
	finishable := make([]bool, len(waiting))

	for changed := true; changed; {
		changed = false
		for i, t := range waiting {
			if finishable[i] {
				continue
			}
			if t.Pending != nil && work[t.Pending.Resource] < t.Pending.Amount {
				continue
			}
			finishable[i] = true
			changed = true
			for resource, n := range l.Allocation(t.ID) {
				work[resource] += n
			}
		}
	}

	var deadlocked []*model.Task
	for i, t := range waiting {
		if !finishable[i] {
			deadlocked = append(deadlocked, t)
		}
	}
	return deadlocked
}

// SelectVictim picks the deadlocked task with the highest priority value
// (the least important task). Ties go to the lowest task id.
func SelectVictim(deadlocked []*model.Task) *model.Task {
	var victim *model.Task
	for _, t := range deadlocked {
		switch {
		case victim == nil:
			victim = t
		case t.Priority > victim.Priority:
			victim = t
		case t.Priority == victim.Priority && t.ID < victim.ID:
			victim = t
		}
	}
	return victim
}

// Package ledger tracks resource instances and per-task allocations.
//
// Every operation is a single indivisible step: a request is either granted
// in full or not at all, and releases are clamped to what the task holds.
// The ledger is owned by one engine and is not safe for concurrent use.
package ledger

import (
	"fmt"
	"slices"
)

// Ledger holds total and available instance counts per resource id together
// with the allocations of every task.
type Ledger struct {
	total     map[int]int
	available map[int]int
	alloc     map[int]map[int]int // task id -> resource id -> held
	ids       []int
}

// New creates a ledger where every resource starts fully available.
func New(totals map[int]int) *Ledger {
	l := &Ledger{
		total:     make(map[int]int, len(totals)),
		available: make(map[int]int, len(totals)),
		alloc:     make(map[int]map[int]int),
	}
	for id, n := range totals {
		l.total[id] = n
		l.available[id] = n
		l.ids = append(l.ids, id)
	}
	slices.Sort(l.ids)
	return l
}

// Request grants amount instances of resource to task if enough are
// available. Unknown resources have zero instances.
func (l *Ledger) Request(task, resource, amount int) bool {
	if amount <= 0 {
		return true
	}
	if l.available[resource] < amount {
		return false
	}
	l.available[resource] -= amount
	held := l.alloc[task]
	if held == nil {
		held = make(map[int]int)
		l.alloc[task] = held
	}
	held[resource] += amount
	return true
}

// Release frees min(amount, held) instances and returns how many were freed.
func (l *Ledger) Release(task, resource, amount int) int {
	held := l.alloc[task][resource]
	freed := min(amount, held)
	if freed <= 0 {
		return 0
	}
	l.alloc[task][resource] = held - freed
	if l.alloc[task][resource] == 0 {
		delete(l.alloc[task], resource)
	}
	l.available[resource] += freed
	return freed
}

// ReleaseAll frees everything task holds. Calling it twice is a no-op.
func (l *Ledger) ReleaseAll(task int) {
	for resource, n := range l.alloc[task] {
		l.available[resource] += n
	}
	delete(l.alloc, task)
}

// Available returns the free instances of resource.
func (l *Ledger) Available(resource int) int {
	return l.available[resource]
}

// Total returns the configured instances of resource.
func (l *Ledger) Total(resource int) int {
	return l.total[resource]
}

// Held returns the instances of resource currently allocated to task.
func (l *Ledger) Held(task, resource int) int {
	return l.alloc[task][resource]
}

// Allocation returns a copy of everything task holds.
func (l *Ledger) Allocation(task int) map[int]int {
	out := make(map[int]int, len(l.alloc[task]))
	for resource, n := range l.alloc[task] {
		out[resource] = n
	}
	return out
}

// AvailableSnapshot returns a copy of the available vector.
func (l *Ledger) AvailableSnapshot() map[int]int {
	out := make(map[int]int, len(l.available))
	for resource, n := range l.available {
		out[resource] = n
	}
	return out
}

// Resources returns the resource ids in ascending order.
func (l *Ledger) Resources() []int {
	return slices.Clone(l.ids)
}

// CheckConservation verifies available + sum(held) == total for every
// resource and that no counter is negative.
func (l *Ledger) CheckConservation() error {
	for _, id := range l.ids {
		sum := l.available[id]
		if l.available[id] < 0 || l.available[id] > l.total[id] {
			return fmt.Errorf("resource %d: available %d outside [0, %d]", id, l.available[id], l.total[id])
		}
		for task, held := range l.alloc {
			if held[id] < 0 {
				return fmt.Errorf("resource %d: task %d holds %d", id, task, held[id])
			}
			sum += held[id]
		}
		if sum != l.total[id] {
			return fmt.Errorf("resource %d: available+held = %d, total = %d", id, sum, l.total[id])
		}
	}
	return nil
}

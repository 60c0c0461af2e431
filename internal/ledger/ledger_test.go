package ledger

import (
	"slices"
	"testing"
)

func TestRequest_GrantsWhenAvailable(t *testing.T) {
	l := New(map[int]int{1: 3})

	if !l.Request(10, 1, 2) {
		t.Fatal("expected grant of 2/3")
	}
	if got := l.Available(1); got != 1 {
		t.Errorf("Available = %d, want 1", got)
	}
	if got := l.Held(10, 1); got != 2 {
		t.Errorf("Held = %d, want 2", got)
	}
	if err := l.CheckConservation(); err != nil {
		t.Error(err)
	}
}

func TestRequest_NoPartialGrant(t *testing.T) {
	l := New(map[int]int{1: 3})
	l.Request(10, 1, 2)

	if l.Request(11, 1, 2) {
		t.Fatal("expected denial: only 1 available")
	}
	if got := l.Available(1); got != 1 {
		t.Errorf("Available = %d after denial, want 1", got)
	}
	if got := l.Held(11, 1); got != 0 {
		t.Errorf("Held = %d after denial, want 0", got)
	}
}

func TestRequest_UnknownResource(t *testing.T) {
	l := New(map[int]int{1: 1})
	if l.Request(1, 99, 1) {
		t.Error("request for an undeclared resource must not be granted")
	}
}

func TestRelease_Clamped(t *testing.T) {
	tests := []struct {
		name      string
		held      int
		release   int
		wantFreed int
		wantAvail int
	}{
		{"partial", 3, 1, 1, 3},
		{"exact", 3, 3, 3, 5},
		{"more than held", 3, 10, 3, 5},
		{"nothing held", 0, 2, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(map[int]int{1: 5})
			if tt.held > 0 {
				l.Request(7, 1, tt.held)
			}
			if got := l.Release(7, 1, tt.release); got != tt.wantFreed {
				t.Errorf("Release freed %d, want %d", got, tt.wantFreed)
			}
			if got := l.Available(1); got != tt.wantAvail {
				t.Errorf("Available = %d, want %d", got, tt.wantAvail)
			}
			if err := l.CheckConservation(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestReleaseAll_Idempotent(t *testing.T) {
	l := New(map[int]int{1: 2, 2: 4})
	l.Request(1, 1, 2)
	l.Request(1, 2, 3)
	l.Request(2, 2, 1)

	l.ReleaseAll(1)
	l.ReleaseAll(1)

	if got := l.Available(1); got != 2 {
		t.Errorf("Available(1) = %d, want 2", got)
	}
	if got := l.Available(2); got != 3 {
		t.Errorf("Available(2) = %d, want 3", got)
	}
	if got := l.Held(2, 2); got != 1 {
		t.Errorf("other task's allocation changed: %d", got)
	}
	if len(l.Allocation(1)) != 0 {
		t.Errorf("Allocation(1) = %v, want empty", l.Allocation(1))
	}
	if err := l.CheckConservation(); err != nil {
		t.Error(err)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	l := New(map[int]int{1: 2})
	l.Request(1, 1, 1)

	avail := l.AvailableSnapshot()
	avail[1] = 100
	alloc := l.Allocation(1)
	alloc[1] = 100

	if l.Available(1) != 1 || l.Held(1, 1) != 1 {
		t.Error("mutating a snapshot changed the ledger")
	}
}

func TestResources_Sorted(t *testing.T) {
	l := New(map[int]int{3: 1, 1: 1, 2: 1})
	if got := l.Resources(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("Resources() = %v", got)
	}
}

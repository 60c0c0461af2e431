package scheduler

import (
	"context"

	"github.com/me/schedsim/pkg/model"
)

// Simulator advances a scenario through discrete ticks.
type Simulator interface {
	// Run ticks until every task is terminal. Cancellation is checked between ticks.
	Run(ctx context.Context) (*model.Result, error)

	// Tick runs a single simulated time unit. Used for testing.
	Tick(ctx context.Context) error

	// Done reports whether every task reached a terminal state.
	Done() bool
}

var _ Simulator = (*Engine)(nil)

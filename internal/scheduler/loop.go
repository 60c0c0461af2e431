package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/me/schedsim/internal/ledger"
	"github.com/me/schedsim/internal/logging"
	"github.com/me/schedsim/internal/observability"
	"github.com/me/schedsim/pkg/model"
)

// Config holds scheduler configuration.
type Config struct {
	TimeQuantum    int
	AgingThreshold int
	MaxPriority    int
	MaxTicks       int // 0 disables the bound
}

// DefaultConfig returns the classic simulator constants.
func DefaultConfig() Config {
	return Config{
		TimeQuantum:    5,
		AgingThreshold: 10,
		MaxPriority:    20,
		MaxTicks:       1_000_000,
	}
}

// Engine is a deterministic, single-threaded priority scheduler simulation.
// It owns the resource ledger, the ready queues and every task record for
// the lifetime of the run.
type Engine struct {
	config   Config
	ledger   *ledger.Ledger
	ready    *ReadyQueues
	tasks    []*model.Task // load order
	byID     map[int]*model.Task
	running  *model.Task
	waiting  []*model.Task // FIFO by block time
	inIO     []*model.Task
	timeline Timeline

	deadlocks []model.DeadlockEvent
	time      int
	terminal  int
	busy      int

	runID    string
	scenario string
	logger   *slog.Logger
}

// NewEngine builds an engine for sc. Every task starts NEW with a full quantum.
// A task whose priority lies outside [0, cfg.MaxPriority] is rejected with an
// InternalError; run the parser's Validator first to report such input.
func NewEngine(sc *model.Scenario, cfg Config, logger *slog.Logger) (*Engine, error) {
	for _, spec := range sc.Tasks {
		if spec.Priority < 0 || spec.Priority > cfg.MaxPriority {
			return nil, &model.InternalError{
				TaskID: spec.ID,
				Reason: fmt.Sprintf("priority %d outside [0, %d]", spec.Priority, cfg.MaxPriority),
			}
		}
	}

	runID := "run_" + uuid.New().String()
	e := &Engine{
		config:   cfg,
		ledger:   ledger.New(sc.ResourceTotals()),
		ready:    NewReadyQueues(cfg.MaxPriority),
		byID:     make(map[int]*model.Task, len(sc.Tasks)),
		runID:    runID,
		scenario: sc.Name,
		logger:   logging.Component(logger, "scheduler", "run_id", runID),
	}
	for _, spec := range sc.Tasks {
		t := model.NewTask(spec, cfg.TimeQuantum)
		e.tasks = append(e.tasks, t)
		e.byID[t.ID] = t
	}
	return e, nil
}

// Run ticks until every task is terminal and returns the final result.
func (e *Engine) Run(ctx context.Context) (*model.Result, error) {
	ctx, span := observability.StartSpan(ctx, "simulation.run",
		attribute.String("run_id", e.runID),
		attribute.Int("tasks", len(e.tasks)),
		attribute.Int("time_quantum", e.config.TimeQuantum),
		attribute.Int("aging_threshold", e.config.AgingThreshold),
	)
	defer span.End()

	e.logger.Info("simulation started", "tasks", len(e.tasks), "resources", len(e.ledger.Resources()))

	for !e.Done() {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return nil, err
		}
		if e.config.MaxTicks > 0 && e.time >= e.config.MaxTicks {
			err := &model.InternalError{
				Tick:   e.time,
				Reason: fmt.Sprintf("simulation did not terminate within %d ticks", e.config.MaxTicks),
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if err := e.Tick(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}
	e.timeline.Close()

	res := e.Result()
	span.SetAttributes(
		attribute.Int("ticks", res.Ticks),
		attribute.Int("finished", res.Finished),
		attribute.Int("terminated", res.Terminated),
		attribute.Int("deadlocks", len(res.Deadlocks)),
	)
	e.logger.Info("simulation finished",
		"ticks", res.Ticks,
		"finished", res.Finished,
		"terminated", res.Terminated,
		"avg_waiting", res.AvgWaiting,
		"avg_turnaround", res.AvgTurnaround,
	)
	return res, nil
}

// Tick runs a single simulated time unit. It is a no-op once Done.
func (e *Engine) Tick(ctx context.Context) error {
	if e.Done() {
		return nil
	}

	// Phase 1: Admit arrivals.
	if err := e.admitArrivals(); err != nil {
		return fmt.Errorf("phase 1 (admission): %w", err)
	}

	// Phase 2: Retry blocked resource requests in FIFO order.
	if err := e.retryWaiting(); err != nil {
		return fmt.Errorf("phase 2 (resource retry): %w", err)
	}

	// Phase 3: Advance every task doing I/O.
	if err := e.advanceIO(); err != nil {
		return fmt.Errorf("phase 3 (io): %w", err)
	}

	// Phase 4: Age ready tasks and rebuild the buckets.
	for _, t := range e.ready.Age(e.config.AgingThreshold) {
		e.logger.Debug("task promoted", "tick", e.time, "task", t.Label(), "priority", t.Priority)
	}

	// Phases 5-6: Preemption decision and dispatch.
	if err := e.schedule(); err != nil {
		return fmt.Errorf("phase 5 (schedule): %w", err)
	}

	// Phase 7: Accrue waiting time.
	for _, t := range e.ready.Tasks() {
		t.WaitingTime++
	}

	// Phase 8: Execute one action-step of the running task.
	if e.running == nil {
		e.timeline.Record(e.time, model.IdleTaskID)
	} else {
		e.timeline.Record(e.time, e.running.ID)
		e.busy++
		if err := e.step(); err != nil {
			return fmt.Errorf("phase 8 (execute): %w", err)
		}
	}

	// Phase 9: Deadlock detection and recovery.
	if len(e.waiting) > 0 {
		if err := e.recoverDeadlock(ctx); err != nil {
			return fmt.Errorf("phase 9 (deadlock): %w", err)
		}
	}

	// Phase 10: Advance time.
	e.time++
	if e.Done() {
		e.timeline.Close()
	}
	return nil
}

// admitArrivals moves NEW tasks whose arrival time has come into the ready queues.
func (e *Engine) admitArrivals() error {
	for _, t := range e.tasks {
		if t.State != model.TaskStateNew || t.Arrival > e.time {
			continue
		}
		t.ReadyWait = 0
		if err := e.makeReady(t); err != nil {
			return err
		}
		e.logger.Debug("task admitted", "tick", e.time, "task", t.Label(), "priority", t.Priority)
	}
	return nil
}

// retryWaiting grants pending requests of WAITING tasks, earliest-blocked first.
func (e *Engine) retryWaiting() error {
	if len(e.waiting) == 0 {
		return nil
	}
	still := make([]*model.Task, 0, len(e.waiting))
	for _, t := range e.waiting {
		req := t.Pending
		if req == nil {
			return e.internal(t, "waiting task has no pending request", nil)
		}
		if !e.ledger.Request(t.ID, req.Resource, req.Amount) {
			still = append(still, t)
			continue
		}
		t.Pending = nil
		t.ActionIndex++
		if err := e.makeReady(t); err != nil {
			return err
		}
		e.logger.Debug("request granted after wait", "tick", e.time, "task", t.Label(),
			"resource", req.Resource, "amount", req.Amount)
	}
	e.waiting = still
	return nil
}

// advanceIO decrements every in-flight I/O burst and releases finished ones.
func (e *Engine) advanceIO() error {
	if len(e.inIO) == 0 {
		return nil
	}
	var still, done []*model.Task
	for _, t := range e.inIO {
		t.IORemaining--
		if t.IORemaining <= 0 {
			done = append(done, t)
		} else {
			still = append(still, t)
		}
	}
	e.inIO = still

	for _, t := range done {
		t.IORemaining = 0
		t.BurstIndex++
		if !t.HasMoreBursts() {
			if err := e.finish(t, e.time); err != nil {
				return err
			}
			continue
		}
		if err := e.makeReady(t); err != nil {
			return err
		}
		e.logger.Debug("io complete", "tick", e.time, "task", t.Label())
	}
	return nil
}

// schedule dispatches the best ready task when the CPU is free, or preempts
// the running task when a strictly higher priority task is ready.
func (e *Engine) schedule() error {
	best := e.ready.Peek()
	if best == nil {
		return nil
	}
	if e.running == nil {
		return e.dispatch()
	}
	if best.Priority >= e.running.Priority {
		return nil
	}

	// Lateral preemption keeps the remaining quantum and aging counter.
	cur := e.running
	if err := e.transition(cur, model.TaskStateReady); err != nil {
		return err
	}
	e.ready.Push(cur)
	e.running = nil
	e.logger.Debug("task preempted", "tick", e.time, "task", cur.Label(), "by", best.Label(),
		"quantum_left", cur.Quantum)
	return e.dispatch()
}

func (e *Engine) dispatch() error {
	t := e.ready.Pop()
	if t == nil {
		return nil
	}
	if err := e.transition(t, model.TaskStateRunning); err != nil {
		return err
	}
	if t.StartedAt == nil {
		at := e.time
		t.StartedAt = &at
	}
	e.running = t
	e.logger.Debug("task dispatched", "tick", e.time, "task", t.Label(), "priority", t.Priority, "quantum", t.Quantum)
	return nil
}

// step executes exactly one action of the running task's CPU burst.
func (e *Engine) step() error {
	t := e.running
	burst := t.CurrentBurst()
	if burst == nil {
		return e.internal(t, "running task has no current burst", nil)
	}
	if burst.Kind != model.BurstCPU {
		return e.internal(t, fmt.Sprintf("running task's current burst is %s, not CPU", burst.Kind), nil)
	}
	if t.ActionIndex >= len(burst.Actions) {
		return e.completeBurst(t)
	}

	action := burst.Actions[t.ActionIndex]
	switch action.Kind {
	case model.ActionRun:
		if t.ActionRemaining == 0 {
			t.ActionRemaining = action.Duration
		}
		t.ActionRemaining--
		t.Quantum--
		if t.ActionRemaining <= 0 {
			t.ActionRemaining = 0
			t.ActionIndex++
		}

	case model.ActionRequest:
		if !e.ledger.Request(t.ID, action.Resource, action.Amount) {
			t.Pending = &model.PendingRequest{Resource: action.Resource, Amount: action.Amount}
			if err := e.transition(t, model.TaskStateWaiting); err != nil {
				return err
			}
			e.waiting = append(e.waiting, t)
			e.running = nil
			e.logger.Debug("task blocked on resource", "tick", e.time, "task", t.Label(),
				"resource", action.Resource, "amount", action.Amount)
			return nil
		}
		t.ActionIndex++

	case model.ActionRelease:
		e.ledger.Release(t.ID, action.Resource, action.Amount)
		t.ActionIndex++

	default:
		return e.internal(t, fmt.Sprintf("unknown action kind %q", action.Kind), nil)
	}

	if t.ActionIndex >= len(burst.Actions) {
		return e.completeBurst(t)
	}
	if t.Quantum <= 0 {
		if err := e.makeReady(t); err != nil {
			return err
		}
		t.ReadyWait = 0
		e.running = nil
		e.logger.Debug("quantum expired", "tick", e.time, "task", t.Label())
	}
	return nil
}

// completeBurst moves the running task past its CPU burst into I/O, the
// ready queues, or FINISHED.
func (e *Engine) completeBurst(t *model.Task) error {
	t.BurstIndex++
	t.ActionIndex = 0
	t.ActionRemaining = 0
	e.running = nil

	if !t.HasMoreBursts() {
		return e.finish(t, e.time+1)
	}
	next := t.CurrentBurst()
	if next.Kind == model.BurstIO {
		if err := e.transition(t, model.TaskStateIO); err != nil {
			return err
		}
		t.IORemaining = next.Duration
		e.inIO = append(e.inIO, t)
		e.logger.Debug("io started", "tick", e.time, "task", t.Label(), "duration", next.Duration)
		return nil
	}
	return e.makeReady(t)
}

// recoverDeadlock terminates at most one victim per tick.
func (e *Engine) recoverDeadlock(ctx context.Context) error {
	deadlocked := DetectDeadlock(e.ledger, e.waiting)
	if len(deadlocked) == 0 {
		return nil
	}
	victim := SelectVictim(deadlocked)
	ids := make([]int, len(deadlocked))
	for i, t := range deadlocked {
		ids[i] = t.ID
	}

	if err := e.terminate(victim); err != nil {
		return err
	}
	e.deadlocks = append(e.deadlocks, model.DeadlockEvent{Tick: e.time, Victim: victim.ID, Deadlocked: ids})

	trace.SpanFromContext(ctx).AddEvent("deadlock", trace.WithAttributes(
		attribute.Int("tick", e.time),
		attribute.Int("victim", victim.ID),
		attribute.IntSlice("deadlocked", ids),
	))
	e.logger.Warn("deadlock detected, terminating victim", "tick", e.time, "victim", victim.Label(),
		"priority", victim.Priority, "deadlocked", len(ids))
	return nil
}

func (e *Engine) makeReady(t *model.Task) error {
	if err := e.transition(t, model.TaskStateReady); err != nil {
		return err
	}
	t.Quantum = e.config.TimeQuantum
	e.ready.Push(t)
	return nil
}

func (e *Engine) finish(t *model.Task, at int) error {
	if err := e.transition(t, model.TaskStateFinished); err != nil {
		return err
	}
	e.ledger.ReleaseAll(t.ID)
	t.CompletedAt = &at
	e.terminal++
	e.logger.Debug("task finished", "tick", e.time, "task", t.Label(), "completed_at", at)
	return nil
}

func (e *Engine) terminate(t *model.Task) error {
	if err := e.transition(t, model.TaskStateTerminated); err != nil {
		return err
	}
	e.ledger.ReleaseAll(t.ID)
	t.Pending = nil
	at := e.time
	t.CompletedAt = &at
	e.waiting = slices.DeleteFunc(e.waiting, func(w *model.Task) bool { return w == t })
	e.terminal++
	return nil
}

func (e *Engine) transition(t *model.Task, next model.TaskState) error {
	if !t.State.CanTransitionTo(next) {
		return e.internal(t, "lifecycle", &model.InvalidTransitionError{TaskID: t.ID, From: t.State, To: next})
	}
	t.State = next
	return nil
}

func (e *Engine) internal(t *model.Task, reason string, cause error) error {
	return &model.InternalError{Tick: e.time, TaskID: t.ID, Reason: reason, Err: cause}
}

// Result summarises the run. Tasks that never completed use the current
// tick as their completion time for turnaround.
func (e *Engine) Result() *model.Result {
	res := &model.Result{
		RunID:     e.runID,
		Scenario:  e.scenario,
		Ticks:     e.time,
		BusyTicks: e.busy,
		Gantt:     e.timeline.Intervals(),
		Tasks:     make([]model.TaskSummary, 0, len(e.tasks)),
		Deadlocks: slices.Clone(e.deadlocks),
	}
	if res.Deadlocks == nil {
		res.Deadlocks = []model.DeadlockEvent{}
	}

	var totalWait, totalTurnaround int
	for _, t := range e.tasks {
		finish := e.time
		if t.CompletedAt != nil {
			finish = *t.CompletedAt
		}
		s := model.TaskSummary{
			ID:            t.ID,
			Arrival:       t.Arrival,
			BasePriority:  t.BasePriority,
			FinalPriority: t.Priority,
			State:         t.State,
			StartedAt:     t.StartedAt,
			CompletedAt:   t.CompletedAt,
			WaitingTime:   t.WaitingTime,
			Turnaround:    finish - t.Arrival,
		}
		switch t.State {
		case model.TaskStateFinished:
			res.Finished++
		case model.TaskStateTerminated:
			res.Terminated++
		}
		totalWait += s.WaitingTime
		totalTurnaround += s.Turnaround
		res.Tasks = append(res.Tasks, s)
	}
	if n := len(e.tasks); n > 0 {
		res.AvgWaiting = float64(totalWait) / float64(n)
		res.AvgTurnaround = float64(totalTurnaround) / float64(n)
	}
	return res
}

// Done reports whether every task reached a terminal state.
func (e *Engine) Done() bool {
	return e.terminal == len(e.tasks)
}

// Time returns the current simulated tick.
func (e *Engine) Time() int { return e.time }

// RunID returns the identifier of this run.
func (e *Engine) RunID() string { return e.runID }

// Running returns the task holding the CPU, or nil.
func (e *Engine) Running() *model.Task { return e.running }

// Task returns the task with the given id, or nil.
func (e *Engine) Task(id int) *model.Task { return e.byID[id] }

// Tasks returns every task in load order.
func (e *Engine) Tasks() []*model.Task { return slices.Clone(e.tasks) }

// Waiting returns the WAITING tasks in retry order.
func (e *Engine) Waiting() []*model.Task { return slices.Clone(e.waiting) }

// InIO returns the tasks currently doing I/O.
func (e *Engine) InIO() []*model.Task { return slices.Clone(e.inIO) }

// Ready returns the ready queues.
func (e *Engine) Ready() *ReadyQueues { return e.ready }

// Ledger returns the resource ledger.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Deadlocks returns the recovery log so far.
func (e *Engine) Deadlocks() []model.DeadlockEvent { return slices.Clone(e.deadlocks) }

package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/looplab/fsm"

	"github.com/panyam/handoff/logging"
	"github.com/panyam/handoff/metrics"
)

// Task states. A Producer walks ready, running, draining, emitting, done.
// A Consumer walks ready, running, done. Either ends in failed instead of
// done when its body returns an error or panics.
const (
	StateReady    = "ready"
	StateRunning  = "running"
	StateDraining = "draining"
	StateEmitting = "emitting"
	StateDone     = "done"
	StateFailed   = "failed"
)

const (
	eventStart  = "start"
	eventDrain  = "drain"
	eventEmit   = "emit"
	eventFinish = "finish"
	eventFail   = "fail"
)

// task is the lifecycle shared by Producer and Consumer: a body that runs
// once, either on the caller's goroutine (Run) or its own (Start), with
// completion signalled through Wait, ClosedChan and an onDone hook.
type task struct {
	kind   string
	logger logr.Logger
	state  *fsm.FSM
	body   func(ctx context.Context) error
	onDone func()

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	err     error

	done       chan struct{}
	closedChan chan error
}

func newTask(kind string, events fsm.Events, cfg Config, body func(ctx context.Context) error) *task {
	t := &task{
		kind:       kind,
		logger:     cfg.Logger.WithValues(kind, cfg.Name),
		body:       body,
		done:       make(chan struct{}),
		closedChan: make(chan error, 1),
	}
	t.state = fsm.NewFSM(StateReady, events, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			t.logger.V(logging.DEBUG).Info("State changed", "from", e.Src, "to", e.Dst)
			metrics.RecordTaskTransition(kind, e.Dst)
		},
	})
	return t
}

// Run executes the task body on the calling goroutine and returns once the
// task reached done or failed. A task can only be run once.
func (t *task) Run(ctx context.Context) error {
	ctx, err := t.begin(ctx)
	if err != nil {
		return err
	}
	return t.execute(ctx)
}

// Start executes the task body on a new goroutine. Use Wait or ClosedChan
// to learn when it finishes.
func (t *task) Start(ctx context.Context) error {
	ctx, err := t.begin(ctx)
	if err != nil {
		return err
	}
	go t.execute(ctx)
	return nil
}

// Stop cancels a started task and waits for it to finish. The cancellation
// it causes is not reported as an error.
func (t *task) Stop() error {
	t.mu.Lock()
	started, cancel := t.started, t.cancel
	t.mu.Unlock()
	if !started {
		return nil
	}
	cancel()
	<-t.done
	if err := t.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Wait blocks until the task finished and returns its error.
func (t *task) Wait() error {
	<-t.done
	return t.Err()
}

// Done returns a channel that is closed once the task finished.
func (t *task) Done() <-chan struct{} {
	return t.done
}

// ClosedChan receives the task's final error (nil on success) and is then
// closed.
func (t *task) ClosedChan() <-chan error {
	return t.closedChan
}

// Err returns the error the task finished with, or nil while it is running.
func (t *task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// IsRunning returns true between start and finish.
func (t *task) IsRunning() bool {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// State returns the current lifecycle state.
func (t *task) State() string {
	return t.state.Current()
}

func (t *task) begin(ctx context.Context) (context.Context, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyStarted, t.kind)
	}
	t.started = true
	ctx, t.cancel = context.WithCancel(ctx)
	return ctx, nil
}

// unbegin reverts a begin whose body never ran, leaving the task ready to
// be started again.
func (t *task) unbegin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel()
	t.cancel = nil
	t.started = false
}

func (t *task) execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrTaskPanicked, t.kind, r)
		}
		t.finish(err)
	}()
	t.transition(eventStart)
	return t.body(ctx)
}

func (t *task) finish(err error) {
	if err != nil {
		t.logger.Error(err, "Task failed", "state", t.State())
		t.transition(eventFail)
	} else {
		t.transition(eventFinish)
	}

	t.mu.Lock()
	t.err = err
	cancel := t.cancel
	t.mu.Unlock()
	cancel()

	if t.onDone != nil {
		t.onDone()
	}
	t.closedChan <- err
	close(t.closedChan)
	close(t.done)
}

// transition fires event on the state machine. Events are only fired from
// the task's own goroutine so a rejected event is a bug, not a race.
func (t *task) transition(event string) {
	if err := t.state.Event(context.Background(), event); err != nil {
		t.logger.Error(err, "Rejected state transition", "event", event, "state", t.State())
	}
}

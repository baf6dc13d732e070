package sim

import (
	"errors"
	"fmt"
)

// A CancelTask is the signal delivered to a task that is being cancelled. It
// surfaces from the suspension point the task is parked on. Simulation code
// may observe it to clean up, but should pass it back out of the activity.
type CancelTask struct {
	// Subject is the task being cancelled.
	Subject *Task
	// Reason carries the caller-provided cancellation reason, if any.
	Reason error
}

func (c *CancelTask) Error() string {
	if c.Reason != nil {
		return fmt.Sprintf("task %s is being cancelled: %s",
			c.Subject.ID(), c.Reason)
	}
	return fmt.Sprintf("task %s is being cancelled", c.Subject.ID())
}

func (c *CancelTask) Unwrap() error {
	return c.Reason
}

// A TaskCancelled is the terminal payload of a cancelled task. Awaiting a
// cancelled task yields this error.
type TaskCancelled struct {
	// Subject is the cancelled task.
	Subject *Task
	// Reason carries the original cancellation reason, if any.
	Reason error
}

func (c *TaskCancelled) Error() string {
	if c.Reason != nil {
		return fmt.Sprintf("task %s was cancelled: %s",
			c.Subject.ID(), c.Reason)
	}
	return fmt.Sprintf("task %s was cancelled", c.Subject.ID())
}

func (c *TaskCancelled) Unwrap() error {
	return c.Reason
}

// ErrTaskClosed is the reason delivered to non-volatile children when their
// scope shuts down.
var ErrTaskClosed = errors.New("task closed by its scope")

// ErrVolatileTaskClosed is the reason delivered to volatile children when
// their scope tears down.
var ErrVolatileTaskClosed = errors.New("volatile task closed by its scope")

// errKernelShutdown terminates tasks that are still suspended when the
// kernel drains its queues.
var errKernelShutdown = errors.New("kernel shutting down")

// ErrKernelRunning reports a nested call of Run on a kernel that is already
// driving a simulation.
var ErrKernelRunning = errors.New("kernel is already running")

// ErrLockReentry reports a task acquiring a lock it already holds. Nested
// acquisition would deadlock on release order, so it is diagnosed eagerly.
var ErrLockReentry = errors.New("lock is already held by the acquiring task")

// ErrStreamClosed reports an operation on a channel or queue that has been
// closed.
var ErrStreamClosed = errors.New("stream is closed and cannot carry more messages")

// A ResourcesUnavailable reports a claim that can never be satisfied, such
// as a strict claim above the total supply or a borrow beyond a fixed
// capacity. It is returned synchronously from the claim site.
type ResourcesUnavailable struct {
	// Claim is the offending level vector.
	Claim Claim
}

func (r *ResourcesUnavailable) Error() string {
	return fmt.Sprintf("claim %v can never be satisfied", r.Claim)
}

// A PanicError wraps a panic recovered from a task body. It is fatal: it
// bypasses Concurrent aggregation and surfaces from Run directly.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", p.Value)
}

func (p *PanicError) fatalSimulationError() {}

// A HaltSimulation requests an immediate, non-graceful end of the run. It is
// fatal: scopes on the unwind path cancel their children but never wrap it
// into a Concurrent.
type HaltSimulation struct {
	Reason error
}

func (h *HaltSimulation) Error() string {
	if h.Reason != nil {
		return fmt.Sprintf("simulation halted: %s", h.Reason)
	}
	return "simulation halted"
}

func (h *HaltSimulation) Unwrap() error {
	return h.Reason
}

func (h *HaltSimulation) fatalSimulationError() {}

type fatalError interface {
	fatalSimulationError()
}

// IsFatal tells whether an error must bypass Concurrent aggregation and
// supersede scope results on its way out of the simulation.
func IsFatal(err error) bool {
	var f fatalError
	return errors.As(err, &f)
}

// isTeardown tells whether an error is a task-local teardown signal. Such
// errors terminate the task they are delivered to and are never collected
// into a Concurrent.
func isTeardown(err error) bool {
	var cancel *CancelTask
	if errors.As(err, &cancel) {
		return true
	}

	return errors.Is(err, ErrTaskClosed) ||
		errors.Is(err, ErrVolatileTaskClosed) ||
		errors.Is(err, errKernelShutdown)
}

// A scopeClosing is the internal signal a scope injects into its own body
// when the scope must stop early, either because a child failed or because
// an until-guard fired. Bodies observe it from a suspension point and are
// expected to return it unmodified.
type scopeClosing struct {
	scope   *Scope
	byGuard bool
}

func (s *scopeClosing) Error() string {
	if s.byGuard {
		return "scope guard fired, scope is closing"
	}
	return "a concurrent task failed, scope is closing"
}

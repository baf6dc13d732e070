package sim

import (
	"errors"
	"runtime/debug"
)

// TaskState describes the lifecycle position of a Task.
type TaskState int

const (
	// TaskStateCreated means the task is scheduled but has not resumed yet.
	TaskStateCreated TaskState = iota
	// TaskStateRunning means the task body is currently executing.
	TaskStateRunning
	// TaskStateWaiting means the task is subscribed to a notification.
	TaskStateWaiting
	// TaskStateCancelled means the task finished due to cancellation.
	TaskStateCancelled
	// TaskStateFailed means the task finished due to an unhandled error.
	TaskStateFailed
	// TaskStateSuccess means the task finished normally.
	TaskStateSuccess
)

func (s TaskState) String() string {
	switch s {
	case TaskStateCreated:
		return "Created"
	case TaskStateRunning:
		return "Running"
	case TaskStateWaiting:
		return "Waiting"
	case TaskStateCancelled:
		return "Cancelled"
	case TaskStateFailed:
		return "Failed"
	case TaskStateSuccess:
		return "Success"
	}
	return "Unknown"
}

// Terminal tells whether a state is final.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCancelled, TaskStateFailed, TaskStateSuccess:
		return true
	}
	return false
}

// An Activity is the body of a task. It runs cooperatively: it must only
// block through the suspension primitives on its Proc, and it reports its
// outcome through the returned value and error.
type Activity func(p *Proc) (any, error)

// A Task is a concurrently running activity, owned by a Scope. Other tasks
// can Join a task to receive its outcome, or Cancel it.
type Task struct {
	id       string
	kernel   *Kernel
	activity Activity
	scope    *Scope
	volatile bool

	state   TaskState
	result  any
	failure error

	waitingOn     Notification
	done          *doneCond
	cancellations []*activation
	startAct      *activation

	proc    *Proc
	resume  chan resumeSignal
	started bool
}

func newTask(k *Kernel, activity Activity, scope *Scope, volatile bool) *Task {
	t := &Task{
		id:       GetIDGenerator().Generate(),
		kernel:   k,
		activity: activity,
		scope:    scope,
		volatile: volatile,
		state:    TaskStateCreated,
		resume:   make(chan resumeSignal),
	}
	t.proc = &Proc{task: t, kernel: k}
	t.done = &doneCond{task: t}
	t.done.initCondition(t.done)
	return t
}

// ID returns the task identifier.
func (t *Task) ID() string {
	return t.id
}

// Status returns the current lifecycle state.
func (t *Task) Status() TaskState {
	return t.state
}

// Volatile tells whether the task is closed forcefully when its scope ends.
func (t *Task) Volatile() bool {
	return t.volatile
}

// WaitingOn returns the notification the task is currently subscribed to,
// or nil when the task is not suspended on one.
func (t *Task) WaitingOn() Notification {
	return t.waitingOn
}

// Done returns the condition that turns true once the task reaches a
// terminal state.
func (t *Task) Done() Condition {
	return t.done
}

func (t *Task) terminal() bool {
	return t.state.Terminal()
}

// Join suspends the calling task until this task terminates, then returns
// its payload. A failed task yields its failure; a cancelled task yields a
// TaskCancelled.
func (t *Task) Join(p *Proc) (any, error) {
	if err := p.Wait(t.done); err != nil {
		return nil, err
	}
	return t.result, t.failure
}

// Cancel requests cancellation. A task that has not started yet is
// cancelled immediately and its body never runs. A running or waiting task
// receives a CancelTask from its next suspension point. Cancelling a
// terminal task is a no-op, and repeated cancellation keeps only the first
// delivered reason.
func (t *Task) Cancel(reason error) {
	if t.terminal() {
		return
	}

	if !t.started {
		if t.startAct != nil {
			t.startAct.revoked = true
		}
		t.terminate(&TaskCancelled{Subject: t, Reason: reason})
		return
	}

	signal := &CancelTask{Subject: t, Reason: reason}
	a := &activation{task: t, err: signal}
	t.cancellations = append(t.cancellations, a)
	t.kernel.scheduleNow(a)
}

// main is the goroutine body of a task. It parks on the resume channel
// between turns; the kernel and the task hand control back and forth so
// that only one of them runs at any moment.
func (t *Task) main() {
	sig := <-t.resume

	if sig.err != nil {
		// closed before the body ever ran
		t.finish(nil, sig.err)
		t.kernel.yield <- struct{}{}
		return
	}

	var result any
	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				result = nil
				err = &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		result, err = t.activity(t.proc)
	}()

	t.finish(result, err)
	t.kernel.yield <- struct{}{}
}

// finish classifies the outcome of the body, publishes the terminal state
// and informs the owning scope synchronously.
func (t *Task) finish(result any, err error) {
	for _, c := range t.cancellations {
		c.revoked = true
	}
	t.cancellations = nil

	var cancel *CancelTask

	switch {
	case err == nil:
		t.state = TaskStateSuccess
		t.result = result

	case errors.As(err, &cancel) && cancel.Subject == t:
		t.state = TaskStateCancelled
		t.failure = &TaskCancelled{Subject: t, Reason: cancel.Reason}

	case isTeardown(err):
		t.state = TaskStateCancelled
		t.failure = &TaskCancelled{Subject: t, Reason: err}

	default:
		t.state = TaskStateFailed
		t.failure = err
	}

	t.sealed()
}

// terminate finalizes a task whose body never ran.
func (t *Task) terminate(cancelled *TaskCancelled) {
	t.state = TaskStateCancelled
	t.failure = cancelled
	t.sealed()
}

func (t *Task) sealed() {
	t.kernel.InvokeHook(HookCtx{
		Domain: t.kernel,
		Pos:    HookPosTaskTerminate,
		Item:   t,
	})

	t.done.changed()

	if t.scope != nil {
		t.scope.childTerminated(t)
	}
}

// doneCond turns true once its task is terminal.
type doneCond struct {
	conditionBase
	task *Task
}

func (d *doneCond) Value() bool {
	return d.task.terminal()
}

func (d *doneCond) Not() Condition {
	return newInverted(d)
}

package sim

// A Scope bounds the lifetime of the tasks spawned inside it. The body of
// the scope and all non-volatile children must finish before the scope
// ends; volatile children are closed forcefully at the end.
//
// Failure handling follows a strict priority: a fatal error supersedes
// everything, a synchronous body error propagates unwrapped, and failures
// of children are aggregated into a single Concurrent. A scope never raises
// both a body error and a Concurrent from the same exit.
type Scope struct {
	proc   *Proc
	kernel *Kernel
	owner  *Task

	children  []*Task
	volatiles []*Task

	ended    *latch
	failures []error
	fatal    error

	closing bool
	exiting bool

	guard       Notification
	guardWaiter *waiter

	closeSignal *scopeClosing
	guardSignal *scopeClosing
	abortAct    *activation
}

func newScope(p *Proc, guard Notification) *Scope {
	s := &Scope{
		proc:   p,
		kernel: p.kernel,
		owner:  p.task,
		ended:  newLatch(),
		guard:  guard,
	}
	s.closeSignal = &scopeClosing{scope: s}
	s.guardSignal = &scopeClosing{scope: s, byGuard: true}
	return s
}

func (s *Scope) run(body func(s *Scope) error) error {
	if s.guard != nil {
		s.guardWaiter = &waiter{task: s.owner, err: s.guardSignal}
		s.guard.subscribe(s.guardWaiter)
	}

	err := body(s)
	return s.exit(err)
}

type doConfig struct {
	after    VTimeInSec
	volatile bool
}

// A DoOption adjusts how a child task is spawned.
type DoOption func(*doConfig)

// WithAfter delays the start of the child by d. A non-positive delay starts
// the child in the current instant.
func WithAfter(d VTimeInSec) DoOption {
	return func(cfg *doConfig) { cfg.after = d }
}

// Volatile marks the child as not blocking scope exit; it is closed
// forcefully once all non-volatile children have finished.
func Volatile() DoOption {
	return func(cfg *doConfig) { cfg.volatile = true }
}

// Do spawns an activity as a child task of this scope.
func (s *Scope) Do(activity Activity, opts ...DoOption) *Task {
	cfg := doConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	t := newTask(s.kernel, activity, s, cfg.volatile)
	s.kernel.register(t)

	start := &activation{task: t}
	t.startAct = start
	if cfg.after > 0 {
		s.kernel.scheduleAfter(cfg.after, start)
	} else {
		s.kernel.scheduleNow(start)
	}

	if cfg.volatile {
		s.volatiles = append(s.volatiles, t)
	} else {
		s.children = append(s.children, t)
	}

	if s.closing || s.kernel.draining {
		if cfg.volatile {
			t.Cancel(ErrVolatileTaskClosed)
		} else {
			t.Cancel(ErrTaskClosed)
		}
	}

	return t
}

// Ended returns the condition that turns true when the scope body has
// completed and the scope begins waiting for its children. Children can
// wait on it to shut down gracefully together with the scope.
func (s *Scope) Ended() Condition {
	return s.ended
}

// childTerminated is the synchronous hook a task invokes when it reaches a
// terminal state. Cancellation-shaped terminations are not failures and are
// ignored here.
func (s *Scope) childTerminated(t *Task) {
	if t.state != TaskStateFailed {
		return
	}

	err := t.failure

	if IsFatal(err) {
		if s.fatal == nil {
			s.fatal = err
		}
		s.closing = true
		if s.exiting {
			s.cancelChildren()
		} else {
			s.interruptBody()
		}
		return
	}

	s.recordFailure(err)

	if !s.exiting {
		s.closing = true
		s.interruptBody()
	}
}

func (s *Scope) recordFailure(err error) {
	for _, existing := range s.failures {
		if existing == err {
			return
		}
	}
	s.failures = append(s.failures, err)
}

// interruptBody injects the scope-closing signal into the owner task. The
// signal is observed at the owner's next suspension point; turn-queue order
// guarantees that every same-instant sibling still gets its turn first.
func (s *Scope) interruptBody() {
	if s.exiting || s.abortAct != nil {
		return
	}

	s.abortAct = &activation{task: s.owner, err: s.closeSignal}
	s.kernel.scheduleNow(s.abortAct)
}

func (s *Scope) isOwnSignal(err error) bool {
	return err == s.closeSignal || err == s.guardSignal
}

func (s *Scope) cancelChildren() {
	for _, c := range s.children {
		if !c.terminal() {
			c.Cancel(ErrTaskClosed)
		}
	}
}

// exit tears the scope down on every exit path: normal completion, body
// failure, child failure, guard firing, and cancellation of the owner. It
// always leaves every child in a terminal state before returning.
func (s *Scope) exit(bodyErr error) error {
	s.exiting = true

	pending := bodyErr
	if pending != nil || s.closing {
		s.closing = true
		s.cancelChildren()
	}

	s.ended.trip()

	pending = s.awaitAll(s.children, pending)

	for _, v := range s.volatiles {
		if !v.terminal() {
			v.Cancel(ErrVolatileTaskClosed)
		}
	}
	pending = s.awaitAll(s.volatiles, pending)

	// the guard stays armed while children are awaited, so that it can
	// still close a scope whose body has already completed
	if s.guardWaiter != nil {
		s.guard.unsubscribe(s.guardWaiter)
	}

	if s.abortAct != nil {
		s.abortAct.revoked = true
	}

	if s.fatal != nil && !IsFatal(pending) {
		return s.fatal
	}
	if pending != nil && !s.isOwnSignal(pending) {
		return pending
	}
	if len(s.failures) > 0 {
		return NewConcurrent(s.failures...)
	}
	return nil
}

// awaitAll waits for every task in the list to reach a terminal state. Own
// scope-closing signals arriving during the wait are absorbed; any other
// signal (the owner being cancelled, kernel shutdown) turns the exit into a
// teardown and is carried out of the scope after the children settle.
func (s *Scope) awaitAll(tasks []*Task, pending error) error {
	for i := 0; i < len(tasks); i++ {
		t := tasks[i]

		for !t.terminal() {
			err := s.proc.Wait(t.done)

			if s.fatal != nil && !s.closing {
				s.closing = true
				s.cancelChildren()
			}

			if err == nil {
				continue
			}

			if s.isOwnSignal(err) {
				// the guard fired, or a child failed, while waiting:
				// reap the remaining children now
				if !s.closing {
					s.closing = true
					s.cancelChildren()
				}
				continue
			}

			if pending == nil || s.isOwnSignal(pending) {
				pending = err
			}
			if !s.closing {
				s.closing = true
				s.cancelChildren()
			}
		}
	}

	return pending
}

// latch is a single-shot internal condition.
type latch struct {
	conditionBase
	isSet bool
}

func newLatch() *latch {
	l := &latch{}
	l.initCondition(l)
	return l
}

func (l *latch) Value() bool {
	return l.isSet
}

func (l *latch) Not() Condition {
	return newInverted(l)
}

func (l *latch) trip() {
	if l.isSet {
		return
	}
	l.isSet = true
	l.changed()
}

package sim

// An activation is one queued resumption. It either resumes a task,
// delivering a wake-up or an error-shaped signal, or runs an internal
// kernel callback (used by time-derived conditions).
type activation struct {
	task *Task
	wake *waiter
	err  error
	fn   func()

	revoked bool
}

// live tells whether the activation should still be dispatched.
func (a *activation) live() bool {
	if a.revoked {
		return false
	}
	if a.fn != nil {
		return true
	}
	if a.wake != nil && a.wake.revoked {
		return false
	}
	return !a.task.terminal()
}

type resumeSignal struct {
	wake *waiter
	err  error
}

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// A Kernel drives a discrete event simulation. It owns the virtual clock,
// the time-ordered wait queue, the per-instant turn queue, and the table of
// all tasks spawned during a run.
//
// A Kernel is strictly single-threaded: exactly one task executes at any
// moment, and all primitives must be used from the task the kernel is
// currently resuming.
type Kernel struct {
	HookableBase

	timeline *waitQueue
	pending  []*activation

	now       VTimeInSec
	turnCount uint64

	tasks    []*Task
	current  *Task
	running  bool
	draining bool

	yield chan struct{}
}

// NewKernel creates a Kernel with an empty timeline.
func NewKernel() *Kernel {
	k := new(Kernel)
	k.timeline = newWaitQueue()
	k.yield = make(chan struct{})
	return k
}

// CurrentTime returns the current virtual time.
func (k *Kernel) CurrentTime() VTimeInSec {
	return k.now
}

// TurnCount returns the number of turns dispatched so far.
func (k *Kernel) TurnCount() uint64 {
	return k.turnCount
}

// Time returns the time facade bound to this kernel.
func (k *Kernel) Time() *Time {
	return &Time{kernel: k}
}

// Run starts a simulation with the given root activities and processes
// turns until both queues drain. It returns the failure of the root scope,
// if any.
func (k *Kernel) Run(roots ...Activity) error {
	return k.RunUntil(timeEternity, roots...)
}

// RunUntil behaves like Run but stops once the earliest queued wake-up lies
// beyond till. The bound is inclusive: wake-ups at exactly till still
// dispatch. Tasks that are still suspended when the run ends are closed.
func (k *Kernel) RunUntil(till VTimeInSec, roots ...Activity) error {
	if k.running {
		return ErrKernelRunning
	}

	k.running = true
	defer func() { k.running = false }()

	k.now = 0
	k.turnCount = 0
	k.tasks = nil
	k.pending = nil
	k.timeline = newWaitQueue()

	rootTask := newTask(k, func(p *Proc) (any, error) {
		err := p.Scope(func(s *Scope) error {
			for _, root := range roots {
				s.Do(root)
			}
			return nil
		})
		return nil, err
	}, nil, false)
	k.register(rootTask)
	k.scheduleNow(&activation{task: rootTask})

	k.loop(till)
	k.drain()

	if rootTask.state == TaskStateFailed {
		return rootTask.failure
	}
	return nil
}

func (k *Kernel) loop(till VTimeInSec) {
	for {
		for len(k.pending) > 0 {
			a := k.pending[0]
			k.pending = k.pending[1:]

			if !a.live() {
				continue
			}

			k.turnCount++

			ctx := HookCtx{
				Domain: k,
				Pos:    HookPosBeforeTurn,
				Item:   a.task,
				Detail: a,
			}
			k.InvokeHook(ctx)

			k.dispatch(a)

			ctx.Pos = HookPosAfterTurn
			k.InvokeHook(ctx)
		}

		t, ok := k.timeline.PeekTime()
		if !ok || t > till {
			return
		}

		t, bucket := k.timeline.Pop()
		if t > k.now {
			k.now = t
			k.InvokeHook(HookCtx{
				Domain: k,
				Pos:    HookPosTimeAdvance,
				Item:   t,
			})
		}
		k.pending = append(k.pending, bucket...)
	}
}

// dispatch resumes one task, or runs one internal callback, and waits until
// the task suspends or terminates.
func (k *Kernel) dispatch(a *activation) {
	if a.fn != nil {
		a.fn()
		return
	}

	t := a.task
	k.current = t

	if !t.started {
		t.started = true
		go t.main()
	}

	t.state = TaskStateRunning
	t.resume <- resumeSignal{wake: a.wake, err: a.err}
	<-k.yield

	k.current = nil
}

// drain closes every task that is still alive once the run ends. Tasks are
// visited in reverse spawn order so that children settle before the scopes
// that own them.
func (k *Kernel) drain() {
	k.draining = true
	defer func() { k.draining = false }()

	for i := len(k.tasks) - 1; i >= 0; i-- {
		t := k.tasks[i]

		if t.terminal() {
			continue
		}

		if !t.started {
			t.terminate(&TaskCancelled{Subject: t, Reason: errKernelShutdown})
			continue
		}

		for !t.terminal() {
			k.current = t
			t.resume <- resumeSignal{err: errKernelShutdown}
			<-k.yield
			k.current = nil
		}
	}

	k.pending = nil
}

func (k *Kernel) register(t *Task) {
	k.tasks = append(k.tasks, t)
}

// scheduleNow appends an activation to the tail of the current turn queue.
func (k *Kernel) scheduleNow(a *activation) {
	k.pending = append(k.pending, a)
}

// scheduleAt queues an activation for a future time. Activations at or
// before the current time join the current turn queue instead.
func (k *Kernel) scheduleAt(t VTimeInSec, a *activation) {
	if t <= k.now {
		k.scheduleNow(a)
		return
	}
	k.timeline.Push(t, a)
}

// scheduleAfter queues an activation a relative delay from now.
func (k *Kernel) scheduleAfter(d VTimeInSec, a *activation) {
	k.scheduleAt(k.now+d, a)
}

// TaskStatus is a point-in-time description of one task, as reported to
// monitoring front-ends.
type TaskStatus struct {
	ID       string
	State    string
	Volatile bool
}

// KernelStatus is a point-in-time description of the kernel state.
type KernelStatus struct {
	Now           VTimeInSec
	Turns         uint64
	PendingTurns  int
	QueuedWakeups int
	Tasks         []TaskStatus
}

// Status takes a snapshot of the kernel state for inspection.
func (k *Kernel) Status() KernelStatus {
	status := KernelStatus{
		Now:           k.now,
		Turns:         k.turnCount,
		PendingTurns:  len(k.pending),
		QueuedWakeups: k.timeline.Len(),
	}

	for _, t := range k.tasks {
		status.Tasks = append(status.Tasks, TaskStatus{
			ID:       t.ID(),
			State:    t.Status().String(),
			Volatile: t.Volatile(),
		})
	}

	return status
}

var debugging bool

// EnableDebugChecks turns on internal consistency assertions. The checks
// only enrich diagnostics; observable simulation behaviour is unchanged.
func EnableDebugChecks() {
	debugging = true
}

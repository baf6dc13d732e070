package sim

// A Lock grants exclusive access to one task at a time. Contending tasks
// queue in FIFO order; releasing hands ownership directly to the oldest
// waiter. Re-acquiring a lock the task already holds is an error.
type Lock struct {
	note  notificationBase
	owner *Task
}

// NewLock creates an unowned Lock.
func NewLock() *Lock {
	return &Lock{}
}

// Available tells whether an Acquire would return without suspending.
func (l *Lock) Available() bool {
	return l.owner == nil
}

// Acquire takes the lock, suspending until it is free. It returns the
// release function, which must run on every exit path, including
// cancellation. Releasing twice is harmless.
func (l *Lock) Acquire(p *Proc) (release func(), err error) {
	t := p.task

	if l.owner == t {
		return nil, ErrLockReentry
	}

	if l.owner == nil {
		l.owner = t
	} else {
		if err := p.WaitFor(&l.note); err != nil {
			// ownership may have been handed over while the
			// cancellation was in flight; pass it on
			if l.owner == t {
				l.handOver()
			}
			return nil, err
		}
	}

	released := false
	release = func() {
		if released || l.owner != t {
			return
		}
		released = true
		l.handOver()
	}
	return release, nil
}

// handOver wakes the oldest waiter and transfers ownership to it, or frees
// the lock when nobody waits.
func (l *Lock) handOver() {
	if w, ok := l.note.awakeNext(); ok {
		l.owner = w.task
		return
	}
	l.owner = nil
}

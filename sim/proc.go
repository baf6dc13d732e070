package sim

import "log"

// A Proc is the handle a running activity uses to interact with the kernel.
// Every suspension primitive takes the Proc of the calling task; the kernel
// delivers cancellation and scope-closing signals through the error these
// primitives return.
type Proc struct {
	task   *Task
	kernel *Kernel
}

// Task returns the task this handle belongs to.
func (p *Proc) Task() *Task {
	return p.task
}

// Now returns the current virtual time.
func (p *Proc) Now() VTimeInSec {
	return p.kernel.now
}

// Time returns the time facade of the driving kernel.
func (p *Proc) Time() *Time {
	return &Time{kernel: p.kernel}
}

func (p *Proc) checkCurrent() {
	if !debugging || p.kernel.current == p.task {
		return
	}

	if p.kernel.current == nil {
		log.Panicf(
			"task %s used a suspension primitive outside a running kernel",
			p.task.ID())
	}
	log.Panicf(
		"task %s used a suspension primitive while task %s is running",
		p.task.ID(), p.kernel.current.ID())
}

// hibernate parks the task until the kernel resumes it.
func (p *Proc) hibernate() resumeSignal {
	t := p.task
	t.state = TaskStateWaiting
	t.kernel.yield <- struct{}{}
	sig := <-t.resume
	t.state = TaskStateRunning
	return sig
}

// Postpone re-queues the task at the tail of the current turn queue and
// suspends, letting every other runnable task of this instant proceed
// first. Like every suspension it may instead deliver a pending
// cancellation.
func (p *Proc) Postpone() error {
	p.checkCurrent()

	w := &waiter{task: p.task, scheduled: true}
	p.kernel.scheduleNow(&activation{task: p.task, wake: w})

	sig := p.hibernate()
	if sig.wake == w {
		return nil
	}

	w.revoked = true
	return sig.err
}

// WaitFor subscribes the task to a notification and suspends until it
// fires. The returned error is nil for the wake-up and carries the signal
// for cancellation or scope closure.
func (p *Proc) WaitFor(n Notification) error {
	p.checkCurrent()

	w := &waiter{task: p.task}
	n.subscribe(w)
	p.task.waitingOn = n

	sig := p.hibernate()

	p.task.waitingOn = nil
	n.unsubscribe(w)

	if sig.wake == w {
		return nil
	}
	return sig.err
}

// Wait suspends the task until the condition is true. A condition that
// already holds still costs one turn. The wait re-subscribes until the
// value is observed true, so conditions that flicker back to false while
// the wake-up is in flight are handled correctly.
func (p *Proc) Wait(c Condition) error {
	if c.Value() {
		if err := p.Postpone(); err != nil {
			return err
		}
	}

	for !c.Value() {
		if err := p.WaitFor(c); err != nil {
			return err
		}
	}
	return nil
}

// Hold suspends the task for a relative span of virtual time.
func (p *Proc) Hold(d VTimeInSec) error {
	return p.WaitFor(p.Time().After(d))
}

// Scope runs body inside a fresh structured-concurrency scope. The scope
// only ends after every non-volatile child has terminated; volatile
// children are closed at the end. Concurrent child failures surface as a
// single Concurrent error.
func (p *Proc) Scope(body func(s *Scope) error) error {
	p.checkCurrent()
	s := newScope(p, nil)
	return s.run(body)
}

// Until runs body inside a scope that is closed when the guard notification
// fires. Closing through the guard is not an error: the children are
// cancelled and Until returns nil unless the children failed independently.
func (p *Proc) Until(guard Notification, body func(s *Scope) error) error {
	p.checkCurrent()
	s := newScope(p, guard)
	return s.run(body)
}

package sim

// Time is the facade over the virtual clock of one kernel. It builds the
// time-derived notifications:
//
//	p.Time().After(d)   fires once, d from now
//	p.Time().Reach(t)   true at and after t
//	p.Time().At(t)      true exactly at t
//	p.Time().Before(t)  true strictly before t
//
// Time itself cannot be waited on; only the derived notifications can.
type Time struct {
	kernel *Kernel
}

// Now returns the current virtual time.
func (t *Time) Now() VTimeInSec {
	return t.kernel.now
}

// After returns a one-shot notification that fires when virtual time has
// advanced d beyond the moment of each subscription.
func (t *Time) After(d VTimeInSec) Notification {
	return &delayNotification{kernel: t.kernel, duration: d}
}

// Reach returns the condition that time is at or beyond the target.
func (t *Time) Reach(target VTimeInSec) Condition {
	c := &reachCond{kernel: t.kernel, target: target}
	c.initCondition(c)
	return c
}

// At returns the condition that time is exactly the target. Waiting for a
// moment that has already passed suspends forever.
func (t *Time) At(target VTimeInSec) Condition {
	c := &momentCond{kernel: t.kernel, target: target}
	c.initCondition(c)
	return c
}

// Before returns the condition that time is strictly before the target.
// The condition never turns true again once the target has passed, so a
// late waiter suspends forever.
func (t *Time) Before(target VTimeInSec) Condition {
	c := &beforeCond{kernel: t.kernel, target: target}
	c.initCondition(c)
	return c
}

// A delayNotification wakes each subscriber a fixed span after the
// subscription. It is not a condition: every subscription opens a fresh
// interval.
type delayNotification struct {
	kernel   *Kernel
	duration VTimeInSec
}

func (d *delayNotification) subscribe(w *waiter) {
	w.scheduled = true
	d.kernel.scheduleAfter(
		d.duration, &activation{task: w.task, wake: w, err: w.err})
}

func (d *delayNotification) unsubscribe(w *waiter) {
	if w.scheduled {
		w.revoked = true
	}
}

// reachCond is true from its target time onward.
type reachCond struct {
	conditionBase
	kernel    *Kernel
	target    VTimeInSec
	triggered bool
}

func (c *reachCond) Value() bool {
	return c.kernel.now >= c.target
}

func (c *reachCond) Not() Condition {
	return c.kernel.Time().Before(c.target)
}

func (c *reachCond) subscribe(w *waiter) {
	if c.Value() {
		w.wake()
		return
	}
	c.ensureTrigger()
	c.notificationBase.subscribe(w)
}

func (c *reachCond) addListener(l condListener) {
	if !c.Value() {
		c.ensureTrigger()
	}
	c.conditionBase.addListener(l)
}

func (c *reachCond) ensureTrigger() {
	if c.triggered {
		return
	}
	c.triggered = true
	c.kernel.scheduleAt(c.target, &activation{fn: c.changed})
}

// beforeCond is true strictly before its target time.
type beforeCond struct {
	conditionBase
	kernel    *Kernel
	target    VTimeInSec
	triggered bool
}

func (c *beforeCond) Value() bool {
	return c.kernel.now < c.target
}

func (c *beforeCond) Not() Condition {
	return c.kernel.Time().Reach(c.target)
}

// subscribe never arms a trigger: the condition can only turn false, so a
// subscriber that finds it false waits forever.
func (c *beforeCond) subscribe(w *waiter) {
	if c.Value() {
		w.wake()
		return
	}
	c.notificationBase.subscribe(w)
}

// addListener arms the falling-edge trigger so composites observing this
// condition re-evaluate when the target passes.
func (c *beforeCond) addListener(l condListener) {
	if c.Value() && !c.triggered {
		c.triggered = true
		c.kernel.scheduleAt(c.target, &activation{fn: c.changed})
	}
	c.conditionBase.addListener(l)
}

// momentCond is true exactly at its target time.
type momentCond struct {
	conditionBase
	kernel    *Kernel
	target    VTimeInSec
	triggered bool
}

func (c *momentCond) Value() bool {
	return c.kernel.now == c.target
}

// Not inverts the moment totally: the inverse holds at every time other
// than the target. Note that the inverse can never fire for a task that
// waits on it at the target moment, as there is no "directly after" a
// point of continuous time.
func (c *momentCond) Not() Condition {
	return newInverted(c)
}

func (c *momentCond) subscribe(w *waiter) {
	if c.Value() {
		w.wake()
		return
	}
	if c.kernel.now < c.target {
		c.ensureTrigger()
	}
	c.notificationBase.subscribe(w)
}

func (c *momentCond) addListener(l condListener) {
	if c.kernel.now <= c.target {
		c.ensureTrigger()
	}
	c.conditionBase.addListener(l)
}

func (c *momentCond) ensureTrigger() {
	if c.triggered {
		return
	}
	c.triggered = true
	c.kernel.scheduleAt(c.target, &activation{fn: c.changed})
}

// eternityCond is never true. Waiting on it suspends forever.
type eternityCond struct {
	conditionBase
}

func (c *eternityCond) Value() bool {
	return false
}

func (c *eternityCond) Not() Condition {
	return Instant
}

// instantCond is always true. Waiting on it costs exactly one turn.
type instantCond struct {
	conditionBase
}

func (c *instantCond) Value() bool {
	return true
}

func (c *instantCond) Not() Condition {
	return Eternity
}

// Eternity is the condition that never triggers.
var Eternity Condition = newEternity()

// Instant is the condition that is indistinguishable from the current
// instant: waiting on it merely postpones the task by one turn.
var Instant Condition = newInstant()

func newEternity() *eternityCond {
	c := &eternityCond{}
	c.initCondition(c)
	return c
}

func newInstant() *instantCond {
	c := &instantCond{}
	c.initCondition(c)
	return c
}

// A TimeSeries yields an unbounded sequence of wake-up times, driven either
// by a fixed delay after each resumption or by a fixed interval from the
// series start.
type TimeSeries struct {
	delay    VTimeInSec
	interval VTimeInSec
	base     VTimeInSec
	primed   bool
}

// EachDelay returns a series that pauses for d on every step, measured from
// the previous resumption.
func EachDelay(d VTimeInSec) *TimeSeries {
	return &TimeSeries{delay: d}
}

// EachInterval returns a series that resumes at t0+d, t0+2d, ...,
// independent of how long the work between steps takes.
func EachInterval(d VTimeInSec) *TimeSeries {
	return &TimeSeries{interval: d}
}

// Next suspends until the next step of the series and returns the time of
// resumption.
func (s *TimeSeries) Next(p *Proc) (VTimeInSec, error) {
	if s.delay != 0 {
		if err := p.Hold(s.delay); err != nil {
			return 0, err
		}
		return p.Now(), nil
	}

	if !s.primed {
		s.base = p.Now()
		s.primed = true
	}
	s.base += s.interval

	if err := p.Wait(p.Time().Reach(s.base)); err != nil {
		return 0, err
	}
	return p.Now(), nil
}

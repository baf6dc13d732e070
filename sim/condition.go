package sim

import "slices"

// A Condition is a Boolean-valued notification. Waiting on a condition
// completes once its value is true; a condition that is already true merely
// postpones the waiting task by one turn.
//
// Conditions compose with All, AnyOf and Not. Every condition is
// invertible.
type Condition interface {
	Notification

	// Value reports the current truth value.
	Value() bool

	// Not returns the inverse condition.
	Not() Condition

	addListener(l condListener)
	removeListener(l condListener)
}

// A condListener observes value changes of a condition. Composite
// conditions register as listeners on their operands.
type condListener interface {
	conditionChanged()
}

// conditionBase implements the subscription bookkeeping shared by all
// conditions. The self back-reference lets the base consult the concrete
// truth value.
type conditionBase struct {
	notificationBase
	self      Condition
	listeners []condListener
}

func (c *conditionBase) initCondition(self Condition) {
	c.self = self
}

// subscribe follows the condition rule: a subscriber of an already-true
// condition is scheduled immediately rather than parked.
func (c *conditionBase) subscribe(w *waiter) {
	if c.self.Value() {
		w.wake()
		return
	}
	c.notificationBase.subscribe(w)
}

// changed propagates a possible value change: subscribers wake when the
// value is now true, and listeners re-evaluate regardless of direction.
// Listener notification uses a snapshot so that the graph may be rewired
// mid-propagation.
func (c *conditionBase) changed() {
	if c.self.Value() {
		c.awakeAll()
	}

	listeners := slices.Clone(c.listeners)
	for _, l := range listeners {
		l.conditionChanged()
	}
}

func (c *conditionBase) addListener(l condListener) {
	c.listeners = append(c.listeners, l)
}

func (c *conditionBase) removeListener(l condListener) {
	for i, existing := range c.listeners {
		if existing == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

func (c *conditionBase) observed() bool {
	return c.hasWaiters() || len(c.listeners) > 0
}

type connectiveOp int

const (
	opAll connectiveOp = iota
	opAny
)

// A connective is the logical combination of sub-conditions. It attaches to
// its operands lazily: the first subscriber or listener hooks the operand
// listeners up, and the last one detaches them, so an unobserved composite
// costs nothing.
type connective struct {
	conditionBase
	op       connectiveOp
	children []Condition
	attached bool
}

// All returns the conjunction of the given conditions. Nested conjunctions
// are unpacked.
func All(conditions ...Condition) Condition {
	return newConnective(opAll, conditions)
}

// AnyOf returns the disjunction of the given conditions. Nested
// disjunctions are unpacked.
func AnyOf(conditions ...Condition) Condition {
	return newConnective(opAny, conditions)
}

func newConnective(op connectiveOp, conditions []Condition) *connective {
	c := &connective{op: op}
	c.initCondition(c)

	for _, cond := range conditions {
		if nested, ok := cond.(*connective); ok && nested.op == op {
			c.children = append(c.children, nested.children...)
			continue
		}
		c.children = append(c.children, cond)
	}

	return c
}

func (c *connective) Value() bool {
	if c.op == opAll {
		for _, child := range c.children {
			if !child.Value() {
				return false
			}
		}
		return true
	}

	for _, child := range c.children {
		if child.Value() {
			return true
		}
	}
	return false
}

// Not applies De Morgan's law, producing a fresh composite over the
// inverted operands.
func (c *connective) Not() Condition {
	inverted := make([]Condition, 0, len(c.children))
	for _, child := range c.children {
		inverted = append(inverted, child.Not())
	}

	if c.op == opAll {
		return AnyOf(inverted...)
	}
	return All(inverted...)
}

func (c *connective) subscribe(w *waiter) {
	if c.Value() {
		w.wake()
		return
	}
	c.attach()
	c.notificationBase.subscribe(w)
}

func (c *connective) unsubscribe(w *waiter) {
	c.notificationBase.unsubscribe(w)
	c.detachIfIdle()
}

func (c *connective) addListener(l condListener) {
	c.attach()
	c.conditionBase.addListener(l)
}

func (c *connective) removeListener(l condListener) {
	c.conditionBase.removeListener(l)
	c.detachIfIdle()
}

func (c *connective) conditionChanged() {
	c.changed()
	c.detachIfIdle()
}

func (c *connective) attach() {
	if c.attached {
		return
	}
	c.attached = true
	for _, child := range c.children {
		child.addListener(c)
	}
}

func (c *connective) detachIfIdle() {
	if !c.attached || c.observed() {
		return
	}
	c.attached = false
	for _, child := range c.children {
		child.removeListener(c)
	}
}

// Not returns the inverse of a condition.
func Not(c Condition) Condition {
	return c.Not()
}

// An inverted condition is a thin wrapper that observes its operand and
// negates its value. Conditions without a cheaper natural inverse fall back
// to it.
type inverted struct {
	conditionBase
	operand  Condition
	attached bool
}

func newInverted(operand Condition) *inverted {
	c := &inverted{operand: operand}
	c.initCondition(c)
	return c
}

func (c *inverted) Value() bool {
	return !c.operand.Value()
}

func (c *inverted) Not() Condition {
	return c.operand
}

func (c *inverted) subscribe(w *waiter) {
	if c.Value() {
		w.wake()
		return
	}
	c.attach()
	c.notificationBase.subscribe(w)
}

func (c *inverted) unsubscribe(w *waiter) {
	c.notificationBase.unsubscribe(w)
	c.detachIfIdle()
}

func (c *inverted) addListener(l condListener) {
	c.attach()
	c.conditionBase.addListener(l)
}

func (c *inverted) removeListener(l condListener) {
	c.conditionBase.removeListener(l)
	c.detachIfIdle()
}

func (c *inverted) conditionChanged() {
	c.changed()
	c.detachIfIdle()
}

func (c *inverted) attach() {
	if c.attached {
		return
	}
	c.attached = true
	c.operand.addListener(c)
}

func (c *inverted) detachIfIdle() {
	if !c.attached || c.observed() {
		return
	}
	c.attached = false
	c.operand.removeListener(c)
}

package sim

import "slices"

// Number constrains the value types a Tracked can hold.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// A trackedWatcher observes value changes of a Tracked.
type trackedWatcher interface {
	sourceChanged()
}

// A Tracked holds a value whose changes are observable. Relational methods
// derive conditions that re-evaluate on every update; arithmetic methods
// mutate the value and notify.
type Tracked[T Number] struct {
	value    T
	watchers []trackedWatcher
}

// NewTracked creates a Tracked holding the given initial value.
func NewTracked[T Number](value T) *Tracked[T] {
	return &Tracked[T]{value: value}
}

// Get returns the current value.
func (t *Tracked[T]) Get() T {
	return t.value
}

// Set assigns a new value and notifies every derived condition.
func (t *Tracked[T]) Set(p *Proc, value T) error {
	t.value = value

	watchers := slices.Clone(t.watchers)
	for _, w := range watchers {
		w.sourceChanged()
	}

	return p.Postpone()
}

// Add increases the value by delta.
func (t *Tracked[T]) Add(p *Proc, delta T) error {
	return t.Set(p, t.value+delta)
}

// Sub decreases the value by delta.
func (t *Tracked[T]) Sub(p *Proc, delta T) error {
	return t.Set(p, t.value-delta)
}

// Mul scales the value by factor.
func (t *Tracked[T]) Mul(p *Proc, factor T) error {
	return t.Set(p, t.value*factor)
}

// Div divides the value by divisor.
func (t *Tracked[T]) Div(p *Proc, divisor T) error {
	return t.Set(p, t.value/divisor)
}

func (t *Tracked[T]) addWatcher(w trackedWatcher) {
	t.watchers = append(t.watchers, w)
}

func (t *Tracked[T]) removeWatcher(w trackedWatcher) {
	for i, existing := range t.watchers {
		if existing == w {
			t.watchers = append(t.watchers[:i], t.watchers[i+1:]...)
			return
		}
	}
}

// RelOp enumerates the relational operators on tracked values.
type RelOp int

const (
	RelEQ RelOp = iota
	RelNE
	RelLT
	RelLE
	RelGT
	RelGE
)

func (op RelOp) String() string {
	switch op {
	case RelEQ:
		return "=="
	case RelNE:
		return "!="
	case RelLT:
		return "<"
	case RelLE:
		return "<="
	case RelGT:
		return ">"
	case RelGE:
		return ">="
	}
	return "?"
}

func (op RelOp) inverse() RelOp {
	switch op {
	case RelEQ:
		return RelNE
	case RelNE:
		return RelEQ
	case RelLT:
		return RelGE
	case RelLE:
		return RelGT
	case RelGT:
		return RelLE
	}
	return RelLT
}

func compare[T Number](op RelOp, left, right T) bool {
	switch op {
	case RelEQ:
		return left == right
	case RelNE:
		return left != right
	case RelLT:
		return left < right
	case RelLE:
		return left <= right
	case RelGT:
		return left > right
	}
	return left >= right
}

// Equals returns the condition that the tracked value equals v.
func (t *Tracked[T]) Equals(v T) Condition {
	return newBoolExpr(RelEQ, t, nil, v)
}

// Differs returns the condition that the tracked value differs from v.
func (t *Tracked[T]) Differs(v T) Condition {
	return newBoolExpr(RelNE, t, nil, v)
}

// Below returns the condition that the tracked value is less than v.
func (t *Tracked[T]) Below(v T) Condition {
	return newBoolExpr(RelLT, t, nil, v)
}

// AtMost returns the condition that the tracked value is at most v.
func (t *Tracked[T]) AtMost(v T) Condition {
	return newBoolExpr(RelLE, t, nil, v)
}

// Above returns the condition that the tracked value is greater than v.
func (t *Tracked[T]) Above(v T) Condition {
	return newBoolExpr(RelGT, t, nil, v)
}

// AtLeast returns the condition that the tracked value is at least v.
func (t *Tracked[T]) AtLeast(v T) Condition {
	return newBoolExpr(RelGE, t, nil, v)
}

// Cmp returns the condition relating this tracked value to another one.
// The condition re-evaluates when either side changes.
func (t *Tracked[T]) Cmp(op RelOp, other *Tracked[T]) Condition {
	return newBoolExpr(op, t, other, 0)
}

// A boolExpr is the relational condition over one or two tracked sources.
// It attaches to its sources lazily, like every composite.
type boolExpr[T Number] struct {
	conditionBase
	op         RelOp
	left       *Tracked[T]
	right      *Tracked[T]
	rightConst T
	attached   bool
}

func newBoolExpr[T Number](
	op RelOp,
	left, right *Tracked[T],
	rightConst T,
) *boolExpr[T] {
	e := &boolExpr[T]{
		op:         op,
		left:       left,
		right:      right,
		rightConst: rightConst,
	}
	e.initCondition(e)
	return e
}

func (e *boolExpr[T]) Value() bool {
	rhs := e.rightConst
	if e.right != nil {
		rhs = e.right.value
	}
	return compare(e.op, e.left.value, rhs)
}

func (e *boolExpr[T]) Not() Condition {
	return newBoolExpr(e.op.inverse(), e.left, e.right, e.rightConst)
}

func (e *boolExpr[T]) subscribe(w *waiter) {
	if e.Value() {
		w.wake()
		return
	}
	e.attach()
	e.notificationBase.subscribe(w)
}

func (e *boolExpr[T]) unsubscribe(w *waiter) {
	e.notificationBase.unsubscribe(w)
	e.detachIfIdle()
}

func (e *boolExpr[T]) addListener(l condListener) {
	e.attach()
	e.conditionBase.addListener(l)
}

func (e *boolExpr[T]) removeListener(l condListener) {
	e.conditionBase.removeListener(l)
	e.detachIfIdle()
}

func (e *boolExpr[T]) sourceChanged() {
	e.changed()
	e.detachIfIdle()
}

func (e *boolExpr[T]) attach() {
	if e.attached {
		return
	}
	e.attached = true
	e.left.addWatcher(e)
	if e.right != nil {
		e.right.addWatcher(e)
	}
}

func (e *boolExpr[T]) detachIfIdle() {
	if !e.attached || e.observed() {
		return
	}
	e.attached = false
	e.left.removeWatcher(e)
	if e.right != nil {
		e.right.removeWatcher(e)
	}
}

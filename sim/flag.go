package sim

// A Flag is an explicitly settable condition. Setting it to its current
// value is a no-op and wakes nobody, although the call still costs a turn.
type Flag struct {
	conditionBase
	value bool
}

// NewFlag creates a Flag that starts false.
func NewFlag() *Flag {
	f := &Flag{}
	f.initCondition(f)
	return f
}

// Value reports the current value of the flag.
func (f *Flag) Value() bool {
	return f.value
}

// Not returns the inverse flag condition.
func (f *Flag) Not() Condition {
	return newInverted(f)
}

// Set assigns the value of the flag, waking subscribers on a false-to-true
// transition and subscribers of the inverse on the opposite one.
func (f *Flag) Set(p *Proc, to bool) error {
	if f.value != to {
		f.value = to
		f.changed()
	}
	return p.Postpone()
}

package sim

import "fmt"

// A Claim is a multi-commodity level vector requested from or transferred
// to a Resources supply.
type Claim map[string]float64

func (c Claim) clone() Claim {
	out := make(Claim, len(c))
	for name, level := range c {
		out[name] = level
	}
	return out
}

// Resources is a supply of named, non-negative levels. Tasks temporarily
// Borrow levels or permanently Produce and Consume them. Pending claims
// queue in FIFO order: on every level increase the head claim is checked
// first, and no claim ever overtakes an earlier one.
type Resources struct {
	levels   map[string]float64
	totals   map[string]float64
	capacity map[string]float64

	pending []*claimRecord
}

type claimRecord struct {
	amounts Claim
	granted *latch
	consume bool
}

// NewResources creates a supply with the given initial levels. The set of
// commodities is fixed at creation.
func NewResources(initial map[string]float64) *Resources {
	r := &Resources{
		levels: make(map[string]float64, len(initial)),
		totals: make(map[string]float64, len(initial)),
	}
	for name, level := range initial {
		if level < 0 {
			panic(fmt.Sprintf(
				"initial level of %q must not be negative", name))
		}
		r.levels[name] = level
		r.totals[name] = level
	}
	return r
}

// Capacities is a Resources supply with a fixed upper bound per commodity.
// Borrowing beyond a bound fails synchronously, and producing above it is
// an error.
type Capacities struct {
	Resources
}

// NewCapacities creates a bounded supply filled to its capacity.
func NewCapacities(capacity map[string]float64) *Capacities {
	c := &Capacities{Resources: *NewResources(capacity)}
	c.capacity = make(map[string]float64, len(capacity))
	for name, level := range capacity {
		c.capacity[name] = level
	}
	return c
}

// Level returns the currently available level of one commodity.
func (r *Resources) Level(name string) float64 {
	return r.levels[name]
}

// Available returns a snapshot of the currently available levels.
func (r *Resources) Available() Claim {
	return Claim(r.levels).clone()
}

type borrowConfig struct {
	strict bool
}

// A BorrowOption adjusts how a claim is made.
type BorrowOption func(*borrowConfig)

// Strict makes the claim fail synchronously with ResourcesUnavailable when
// it exceeds the total supply, instead of waiting for a Produce that may
// never come.
func Strict() BorrowOption {
	return func(cfg *borrowConfig) { cfg.strict = true }
}

// Borrow suspends until the claimed levels are available, deducts them, and
// returns the release function that gives them back. The release must run
// on every exit path, including cancellation. Claims against a Capacities
// supply fail synchronously with ResourcesUnavailable when they exceed its
// capacity.
func (r *Resources) Borrow(
	p *Proc,
	claim Claim,
	opts ...BorrowOption,
) (release func(), err error) {
	cfg := borrowConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := r.validate(claim); err != nil {
		return nil, err
	}
	if r.capacity != nil && !fits(claim, r.capacity) {
		return nil, &ResourcesUnavailable{Claim: claim.clone()}
	}
	if cfg.strict && !fits(claim, r.totals) {
		return nil, &ResourcesUnavailable{Claim: claim.clone()}
	}

	rec, err := r.enqueue(p, claim, false)
	if err != nil {
		return nil, err
	}

	released := false
	release = func() {
		if released {
			return
		}
		released = true
		r.insert(rec.amounts)
	}
	return release, nil
}

// Produce permanently adds levels to the supply.
func (r *Resources) Produce(p *Proc, amounts Claim) error {
	if err := r.validate(amounts); err != nil {
		return err
	}

	if r.capacity != nil {
		for name, level := range amounts {
			if r.totals[name]+level > r.capacity[name] {
				return fmt.Errorf(
					"producing %v of %q exceeds the capacity of %v",
					r.totals[name]+level, name, r.capacity[name])
			}
		}
	}

	for name, level := range amounts {
		r.totals[name] += level
	}
	r.insert(amounts)

	return p.Postpone()
}

// Consume permanently removes levels from the supply, suspending until they
// are available. Consumption queues behind earlier claims.
func (r *Resources) Consume(p *Proc, amounts Claim) error {
	if err := r.validate(amounts); err != nil {
		return err
	}

	_, err := r.enqueue(p, amounts, true)
	return err
}

// enqueue appends a claim to the FIFO wait list and suspends the caller
// until the claim is granted.
func (r *Resources) enqueue(
	p *Proc,
	claim Claim,
	consume bool,
) (*claimRecord, error) {
	rec := &claimRecord{
		amounts: claim.clone(),
		granted: newLatch(),
		consume: consume,
	}
	r.pending = append(r.pending, rec)
	r.dispatch()

	if err := p.Wait(rec.granted); err != nil {
		if rec.granted.Value() {
			// granted while the cancellation was in flight; undo
			if rec.consume {
				for name, level := range rec.amounts {
					r.totals[name] += level
				}
			}
			r.insert(rec.amounts)
		} else {
			r.removePending(rec)
		}
		return nil, err
	}

	return rec, nil
}

// dispatch grants queued claims strictly in order, stopping at the first
// claim that does not fit the available levels.
func (r *Resources) dispatch() {
	for len(r.pending) > 0 {
		head := r.pending[0]
		if !fits(head.amounts, r.levels) {
			return
		}

		for name, level := range head.amounts {
			r.levels[name] -= level
		}
		if head.consume {
			for name, level := range head.amounts {
				r.totals[name] -= level
			}
		}

		r.pending = r.pending[1:]
		head.granted.trip()
	}
}

// insert returns levels to the supply and re-checks the claim queue.
func (r *Resources) insert(amounts Claim) {
	for name, level := range amounts {
		r.levels[name] += level
	}
	r.dispatch()
}

func (r *Resources) removePending(rec *claimRecord) {
	for i, existing := range r.pending {
		if existing == rec {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			// the head may have changed; later claims may now fit
			r.dispatch()
			return
		}
	}
}

func (r *Resources) validate(claim Claim) error {
	if len(claim) == 0 {
		return fmt.Errorf("a claim must name at least one commodity")
	}
	for name, level := range claim {
		if _, ok := r.levels[name]; !ok {
			return fmt.Errorf("unknown commodity %q", name)
		}
		if level < 0 {
			return fmt.Errorf(
				"claimed level of %q must not be negative", name)
		}
	}
	return nil
}

// fits tells whether every claimed level is covered by the supply.
func fits(claim Claim, supply map[string]float64) bool {
	for name, level := range claim {
		if supply[name] < level {
			return false
		}
	}
	return true
}

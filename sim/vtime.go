package sim

import "math"

// VTimeInSec defines the time in the simulated space in the unit of second.
type VTimeInSec float64

// timeEternity and timeInstant are the sentinel timestamps that bound the
// virtual timeline. They never appear as keys in the wait queue.
var (
	timeEternity = VTimeInSec(math.Inf(1))
	timeInstant  = VTimeInSec(math.Inf(-1))
)

package sampler

import "time"

// minElapsed replaces a zero or negative interval between observations.
const minElapsed = 1e-6

// counterRate converts a pair of monotonically increasing counters into per-second rates.
// The zero value is ready to use; its first observation only primes the state.
type counterRate struct {
	primed bool
	at     time.Time
	a, b   uint64
}

func (r *counterRate) observe(now time.Time, a, b uint64) (rateA, rateB float64) {
	if r.primed {
		dt := now.Sub(r.at).Seconds()
		if dt < minElapsed {
			dt = minElapsed
		}
		rateA = delta(a, r.a) / dt
		rateB = delta(b, r.b) / dt
	}
	r.primed, r.at, r.a, r.b = true, now, a, b
	return rateA, rateB
}

// delta is zero when a counter went backwards (interface reset or wrap).
func delta(cur, prev uint64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur - prev)
}

package lifecycle

import "math/rand"

// Timer is an absolute simulation time that is either active or inactive.
type Timer struct {
	at     float64
	active bool
}

func TimerAt(at float64) Timer { return Timer{at: at, active: true} }

func (t *Timer) Set(at float64) { t.at, t.active = at, true }
func (t *Timer) Clear()         { *t = Timer{} }

func (t Timer) Active() bool { return t.active }

// Time returns the absolute time and whether the timer is active.
func (t Timer) Time() (float64, bool) { return t.at, t.active }

// Due reports whether the timer is active and its time has been reached.
func (t Timer) Due(now float64) bool { return t.active && now >= t.at }

// Interval is a duration distribution. SD follows the parameter convention
// of being twice the true standard deviation.
type Interval struct {
	Mean float64
	SD   float64
}

// Rand is the subset of *rand.Rand the lifecycle code draws from.
type Rand interface {
	Float64() float64
	NormFloat64() float64
}

var _ Rand = (*rand.Rand)(nil)

// Sample returns now + mean + (SD/2)*N(0,1), never earlier than now.
func Sample(r Rand, iv Interval, now float64) float64 {
	t := now + iv.Mean + (iv.SD/2)*r.NormFloat64()
	if t < now {
		return now
	}
	return t
}

// Specificity draws a uniform specificity in [lo, hi).
func Specificity(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// Bind is the binding protocol: a marker mismatch never binds, otherwise the
// attempt succeeds with probability specificity*suppression. A zero
// probability never binds.
func Bind(r Rand, matched bool, specificity, suppression float64) bool {
	if !matched {
		return false
	}
	return r.Float64() < specificity*suppression
}

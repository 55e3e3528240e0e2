// Package idle merges "stopped with engine running" samples into idle spans.
//
// Consecutive stopped samples form a span. A running sample longer than the
// tolerance closes the span; a shorter one is absorbed into it once another
// stopped sample follows. A closed span keeps its length minus the tolerance,
// or nothing when it does not exceed the tolerance. The kept idle time is
// attributed to the first sample of the span.
package idle

// DefaultToleranceMinutes is the grace period removed from every span
const DefaultToleranceMinutes = 1.0

// Step is one sample of a single machine, in time order
type Step struct {
	Stopped bool
	Minutes float64
}

// Span is a kept idle interval. Start and End are step indexes (inclusive).
type Span struct {
	Start       int
	End         int
	Minutes     float64
	IdleMinutes float64
}

// IdleHours returns the kept idle time in hours
func (s Span) IdleHours() float64 {
	return s.IdleMinutes / 60
}

// Merge runs the scan over steps and returns the idle hours attributed to
// each step together with the kept spans.
func Merge(steps []Step, toleranceMinutes float64) ([]float64, []Span) {
	idle := make([]float64, len(steps))
	var spans []Span

	var (
		open    bool
		cur     Span
		pending float64 // absorbed running minutes since the last stopped step
	)
	closeSpan := func() {
		if cur.Minutes > toleranceMinutes {
			cur.IdleMinutes = cur.Minutes - toleranceMinutes
			idle[cur.Start] = cur.IdleHours()
			spans = append(spans, cur)
		}
		open = false
		pending = 0
	}

	for i, s := range steps {
		m := s.Minutes
		if m < 0 {
			m = 0
		}

		if s.Stopped {
			if !open {
				open = true
				cur = Span{Start: i}
			}
			cur.Minutes += pending + m
			cur.End = i
			pending = 0
			continue
		}

		if !open {
			continue
		}
		if m > toleranceMinutes {
			closeSpan()
			continue
		}
		pending += m
	}
	if open {
		closeSpan()
	}

	return idle, spans
}

// Total sums the idle hours returned by Merge
func Total(idle []float64) float64 {
	var sum float64
	for _, h := range idle {
		sum += h
	}
	return sum
}

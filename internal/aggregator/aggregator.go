// Package aggregator combines the per-client averages of one sampling run.
package aggregator

import (
	"sync"

	"github.com/moznion/go-optional"
)

// Aggregator is an append-only collection of client averages.
// It is safe for concurrent use. Values are never removed or reordered.
type Aggregator struct {
	mu     sync.Mutex
	values []float64
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		mu:     sync.Mutex{},
		values: make([]float64, 0),
	}
}

// AddAverage records the average of one client.
func (a *Aggregator) AddAverage(value float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.values = append(a.values, value)
}

// FinalAverage returns the arithmetic mean of every recorded value, or 0.0 when none was recorded.
// Use Mean to tell an empty aggregator apart from a genuine zero.
func (a *Aggregator) FinalAverage() float64 {
	return a.Mean().TakeOr(0.0)
}

// Mean returns the arithmetic mean of every recorded value, or None when none was recorded.
func (a *Aggregator) Mean() optional.Option[float64] {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.values) == 0 {
		return optional.None[float64]()
	}

	sum := 0.0
	for _, v := range a.values {
		sum += v
	}

	return optional.Some(sum / float64(len(a.values)))
}

// Count returns the number of recorded values.
func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.values)
}

// Values returns a copy of the recorded values in insertion order.
func (a *Aggregator) Values() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	values := make([]float64, len(a.values))
	copy(values, a.values)

	return values
}

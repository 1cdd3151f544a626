// Package metrics holds the named business counters each service reports
// on its /metrics endpoint.
package metrics

import (
	"io"
	"sync"

	vm "github.com/VictoriaMetrics/metrics"
)

// Counters is a set of named counters backed by a private VictoriaMetrics set.
// Names are reported as-is in Snapshot and with the prefix in Prometheus text.
type Counters struct {
	prefix string
	set    *vm.Set

	mu       sync.RWMutex
	counters map[string]*vm.Counter
}

// NewCounters creates a counter set and pre-registers names so they report 0.
func NewCounters(prefix string, names ...string) *Counters {
	c := &Counters{
		prefix:   prefix,
		set:      vm.NewSet(),
		counters: make(map[string]*vm.Counter, len(names)),
	}
	for _, n := range names {
		c.counter(n)
	}
	return c
}

// Inc increments the named counter, creating it on first use.
func (c *Counters) Inc(name string) {
	c.counter(name).Inc()
}

// Get returns the current value of the named counter.
func (c *Counters) Get(name string) uint64 {
	c.mu.RLock()
	ctr, ok := c.counters[name]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	return ctr.Get()
}

// Snapshot returns a point-in-time copy of all counters.
func (c *Counters) Snapshot() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]uint64, len(c.counters))
	for name, ctr := range c.counters {
		out[name] = ctr.Get()
	}
	return out
}

// WritePrometheus writes the counters in Prometheus text format.
func (c *Counters) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

func (c *Counters) counter(name string) *vm.Counter {
	c.mu.RLock()
	ctr, ok := c.counters[name]
	c.mu.RUnlock()
	if ok {
		return ctr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctr, ok = c.counters[name]; ok {
		return ctr
	}
	ctr = c.set.GetOrCreateCounter(c.metricName(name))
	c.counters[name] = ctr
	return ctr
}

func (c *Counters) metricName(name string) string {
	if c.prefix == "" {
		return name + "_total"
	}
	return c.prefix + "_" + name + "_total"
}

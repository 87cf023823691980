package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// BasicProvider is an in-memory Provider. Instruments are created on first request
// and reused for the same series, which is the instrument name plus its static
// attributes (see SeriesKey). Two registrations with the same name but different
// attributes get distinct instruments. Snapshot reports every series at once,
// which is what tests and the bench report read.
type BasicProvider struct {
	mu         sync.RWMutex
	counters   map[string]*BasicCounter
	updowns    map[string]*BasicUpDownCounter
	histograms map[string]*BasicHistogram
	meta       map[string]InstrumentConfig
}

// NewBasicProvider constructs a new BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   make(map[string]*BasicCounter),
		updowns:    make(map[string]*BasicUpDownCounter),
		histograms: make(map[string]*BasicHistogram),
		meta:       make(map[string]InstrumentConfig),
	}
}

// SeriesKey identifies an instrument by name and static attributes, e.g.
// `jobs_total{queue="a"}`. Attributes are sorted by key; without attributes the
// key is the bare name.
func SeriesKey(name string, attrs map[string]string) string {
	if len(attrs) == 0 {
		return name
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(attrs[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// lookup returns the instrument registered in m for the series described by name and opts,
// creating it with mk on first use. The first registration's description and unit win.
func lookup[T any](p *BasicProvider, m map[string]T, name string, opts []InstrumentOption, mk func() T) T {
	cfg := applyOptions(opts)
	key := SeriesKey(name, cfg.Attributes)

	p.mu.RLock()
	v, ok := m[key]
	p.mu.RUnlock()
	if ok {
		return v
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok = m[key]; ok {
		return v
	}
	if _, seen := p.meta[key]; !seen {
		p.meta[key] = cfg
	}
	v = mk()
	m[key] = v
	return v
}

// Counter returns the monotonic counter registered under name.
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	return lookup(p, p.counters, name, opts, func() *BasicCounter { return &BasicCounter{} })
}

// UpDownCounter returns the up/down counter registered under name.
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	return lookup(p, p.updowns, name, opts, func() *BasicUpDownCounter { return &BasicUpDownCounter{} })
}

// Histogram returns the histogram registered under name.
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	return lookup(p, p.histograms, name, opts, func() *BasicHistogram {
		return &BasicHistogram{min: math.Inf(1), max: math.Inf(-1)}
	})
}

// Describe returns the metadata recorded when the series was first registered.
// key is a SeriesKey; for instruments without attributes it is the plain name.
func (p *BasicProvider) Describe(key string) (InstrumentConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cfg, ok := p.meta[key]
	return cfg, ok
}

// Snapshot is a point-in-time copy of every instrument of a BasicProvider,
// keyed by SeriesKey.
type Snapshot struct {
	Counters       map[string]int64
	UpDownCounters map[string]int64
	Histograms     map[string]HistSnapshot
}

// Names returns all series keys in the snapshot, sorted.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s.Counters)+len(s.UpDownCounters)+len(s.Histograms))
	for n := range s.Counters {
		names = append(names, n)
	}
	for n := range s.UpDownCounters {
		names = append(names, n)
	}
	for n := range s.Histograms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies the current value of every registered instrument.
// Instruments keep moving while the copy is taken, so values are not mutually consistent.
func (p *BasicProvider) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Snapshot{
		Counters:       make(map[string]int64, len(p.counters)),
		UpDownCounters: make(map[string]int64, len(p.updowns)),
		Histograms:     make(map[string]HistSnapshot, len(p.histograms)),
	}
	for n, c := range p.counters {
		s.Counters[n] = c.Snapshot()
	}
	for n, u := range p.updowns {
		s.UpDownCounters[n] = u.Snapshot()
	}
	for n, h := range p.histograms {
		s.Histograms[n] = h.Snapshot()
	}
	return s
}

// BasicCounter is a thread-safe monotonic counter.
type BasicCounter struct {
	val atomic.Int64
}

// Add increments the counter by n.
func (c *BasicCounter) Add(n int64) { c.val.Add(n) }

// Snapshot returns the current value.
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicUpDownCounter is a thread-safe up/down counter.
type BasicUpDownCounter struct {
	val atomic.Int64
}

// Add adds n (positive or negative) to the current value.
func (u *BasicUpDownCounter) Add(n int64) { u.val.Add(n) }

// Snapshot returns the current value.
func (u *BasicUpDownCounter) Snapshot() int64 { return u.val.Load() }

// BasicHistogram tracks count, sum, min and max of recorded values. No buckets.
type BasicHistogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

// Record adds a measurement to the histogram.
func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	h.min = math.Min(h.min, v)
	h.max = math.Max(h.max, v)
	h.count++
	h.sum += v
	h.mu.Unlock()
}

// HistSnapshot is an immutable snapshot of a BasicHistogram.
// Min and Max are zero when Count is zero.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

// Snapshot returns a copy of the histogram state at the time of call.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return HistSnapshot{}
	}
	return HistSnapshot{
		Count: h.count,
		Sum:   h.sum,
		Min:   h.min,
		Max:   h.max,
		Mean:  h.sum / float64(h.count),
	}
}

package metrics

// NoopProvider returns instruments that discard every measurement.
// It is what a queue uses when no provider is configured.
type NoopProvider struct{}

// NewNoopProvider constructs a Provider that discards all metrics.
func NewNoopProvider() NoopProvider { return NoopProvider{} }

func (NoopProvider) Counter(string, ...InstrumentOption) Counter { return noop{} }

func (NoopProvider) UpDownCounter(string, ...InstrumentOption) UpDownCounter { return noop{} }

func (NoopProvider) Histogram(string, ...InstrumentOption) Histogram { return noop{} }

// noop satisfies every instrument interface.
type noop struct{}

func (noop) Add(int64) {}

func (noop) Record(float64) {}

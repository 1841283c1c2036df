package erpc

// MetricsSink allows optional instrumentation without a hard dependency on
// any particular metrics backend, mirroring
// internal/sessioncore.MetricsSink. An Rpc defaults to noopMetrics; callers
// that care wire in their own sink via WithMetrics.
type MetricsSink interface {
	IncCounter(name string, tags map[string]string)
	ObserveHistogram(name string, value float64, tags map[string]string)
}

type noopMetrics struct{}

func (noopMetrics) IncCounter(name string, tags map[string]string)                   {}
func (noopMetrics) ObserveHistogram(name string, value float64, tags map[string]string) {}

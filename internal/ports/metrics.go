package ports

// Metrics is the subset of instrumentation the application layer emits
// itself. Transport-level metrics stay in the adapters.
type Metrics interface {
	RecordLoginFailure()
	RecordTicketIssued()
	RecordTicketCollision()
}

// NopMetrics discards all measurements. Used when no registry is wired,
// mainly in tests.
type NopMetrics struct{}

func (NopMetrics) RecordLoginFailure()    {}
func (NopMetrics) RecordTicketIssued()    {}
func (NopMetrics) RecordTicketCollision() {}

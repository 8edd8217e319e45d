// Package metrics defines the instrumentation hooks recorded by the
// correlation engine.
package metrics

// Instrument names recorded by the processor.
const (
	BuffersAdmitted        = "zsl_buffers_admitted_total"
	BuffersEvicted         = "zsl_buffers_evicted_total"
	BuffersDiscardedLocked = "zsl_buffers_discarded_locked_total"
	BuffersResident        = "zsl_buffers_resident"
	PairsMatched           = "zsl_pairs_matched_total"
	PairsDispatched        = "zsl_pairs_dispatched_total"
	MetadataRecorded       = "zsl_metadata_recorded_total"
	ReleaseMismatches      = "zsl_release_mismatches_total"
)

// Provider constructs instruments used to record metrics.
// Implementations must be safe for concurrent use.
//
// Keep this interface minimal and stable. New capabilities belong in
// separate optional interfaces rather than on this surface.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
}

// Counter records monotonic counts.
// Methods must be safe for concurrent use.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that can move up or down (e.g., buffers
// currently resident in the pair ring).
// Methods must be safe for concurrent use.
type UpDownCounter interface {
	Add(n int64)
}

// InstrumentConfig carries optional instrument metadata. It's advisory only.
type InstrumentConfig struct {
	Description string
	Unit        string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets an advisory description for the instrument.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit for the instrument (e.g., "1", "buffers").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

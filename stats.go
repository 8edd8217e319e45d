package zsl

// Stats is a point-in-time snapshot of processor state, ring occupancy, and
// lifetime counters.
type Stats struct {
	// State is the lifecycle state at snapshot time.
	State State

	// Buffered is the number of ring slots currently holding a buffer.
	Buffered int

	// CompletePairs is the number of slots currently holding both a buffer
	// and its matched metadata.
	CompletePairs int

	BuffersAdmitted   uint64
	BuffersEvicted    uint64
	BuffersDiscarded  uint64
	PairsMatched      uint64
	PairsDispatched   uint64
	MetadataRecorded  uint64
	ReleaseMismatches uint64
}

// Stats returns a snapshot of the processor. Safe for concurrent use.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Stats{
		State:             p.state,
		BuffersAdmitted:   p.admitted,
		BuffersEvicted:    p.evicted,
		BuffersDiscarded:  p.discarded,
		PairsMatched:      p.matched,
		PairsDispatched:   p.dispatched,
		MetadataRecorded:  p.recorded,
		ReleaseMismatches: p.mismatched,
	}

	for i := p.queue.tail; i != p.queue.head; i = (i + 1) % len(p.queue.slots) {
		s := &p.queue.slots[i]
		if s.buffer != nil {
			st.Buffered++
		}
		if s.buffer != nil && s.meta != nil {
			st.CompletePairs++
		}
	}

	return st
}

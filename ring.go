package zsl

// pairSlot is one cell of the pair ring: a buffer and, once correlated, the
// metadata whose timestamp matches it. A slot is complete when both are
// present; metadata is never present without a buffer.
type pairSlot struct {
	buffer *Buffer
	meta   Metadata
}

// pairRing is a fixed-capacity circular buffer of pair slots. head is the
// next write position, tail the oldest unconsumed position. One extra slot
// is allocated internally to distinguish full from empty, so a ring of
// depth n holds n entries.
//
// Not safe for concurrent use; the Processor's mutex guards it.
type pairRing struct {
	slots []pairSlot
	head  int
	tail  int
}

func newPairRing(depth uint) *pairRing {
	return &pairRing{slots: make([]pairSlot, depth+1)}
}

func (r *pairRing) full() bool { return (r.head+1)%len(r.slots) == r.tail }

// push writes a buffer into the head slot with empty metadata and advances
// head. The caller must evict first when the ring is full.
func (r *pairRing) push(buf *Buffer) {
	s := &r.slots[r.head]
	s.buffer = buf
	s.meta = nil
	r.head = (r.head + 1) % len(r.slots)
}

// evictOldest clears the tail slot and returns its buffer so the caller can
// release it to the source. Eviction is strictly oldest-first; matched but
// unconsumed pairs are evicted the same as unmatched ones.
func (r *pairRing) evictOldest() *Buffer {
	s := &r.slots[r.tail]
	buf := s.buffer
	s.buffer = nil
	s.meta = nil
	r.tail = (r.tail + 1) % len(r.slots)
	return buf
}

// oldestComplete returns the index of the first slot at or after tail whose
// metadata is present, or -1 when no complete pair exists. Metadata is only
// ever placed next to a buffer, so such a slot is a complete pair.
func (r *pairRing) oldestComplete() int {
	for i := r.tail; i != r.head; i = (i + 1) % len(r.slots) {
		if r.slots[i].meta != nil {
			return i
		}
	}
	return -1
}

// drainAll empties every slot and returns the buffers still held, oldest
// first, so teardown can release them back to the source.
func (r *pairRing) drainAll() []*Buffer {
	var bufs []*Buffer
	for i := r.tail; i != r.head; i = (i + 1) % len(r.slots) {
		if r.slots[i].buffer != nil {
			bufs = append(bufs, r.slots[i].buffer)
		}
		r.slots[i] = pairSlot{}
	}
	r.head, r.tail = 0, 0
	return bufs
}

// frameHistory is the bounded backlog of metadata records awaiting a
// matching buffer. A single rotating write index overwrites the oldest
// record; there is no read cursor, every slot is scanned per match attempt.
//
// Not safe for concurrent use; the Processor's mutex guards it.
type frameHistory struct {
	records    []Metadata
	writeIndex int
}

func newFrameHistory(depth uint) *frameHistory {
	return &frameHistory{records: make([]Metadata, depth)}
}

// record inserts md at the write index, discarding whatever occupied it.
func (h *frameHistory) record(md Metadata) {
	h.records[h.writeIndex] = md
	h.writeIndex = (h.writeIndex + 1) % len(h.records)
}

// takeMatch scans the history in index order for the first record whose
// timestamp equals ts or lies strictly within tolerance of it, and moves it
// out, leaving the slot empty. Exact and within-tolerance hits are treated
// identically; the first hit wins, not the closest. Records without a
// timestamp never match.
func (h *frameHistory) takeMatch(ts int64, tolerance int64) Metadata {
	for i, md := range h.records {
		if md == nil {
			continue
		}
		fts, ok := md.SensorTimestamp()
		if !ok {
			continue
		}
		if fts == ts || abs64(ts-fts) < tolerance {
			h.records[i] = nil
			return md
		}
	}
	return nil
}

// clear drops every record and resets the write index.
func (h *frameHistory) clear() {
	for i := range h.records {
		h.records[i] = nil
	}
	h.writeIndex = 0
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

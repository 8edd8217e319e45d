package zsl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ygrebnov/errorc"

	"github.com/magicxavi/zsl/metrics"
)

// State is the lifecycle state of the Processor.
type State int

const (
	// StateRunning admits and matches new buffers.
	StateRunning State = iota

	// StateLocked is entered the instant a pair is dispatched for
	// reprocessing. Buffers arriving while locked are drained from the
	// source but released without being admitted.
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateLocked:
		return "LOCKED"
	default:
		return "UNKNOWN"
	}
}

// Processor correlates two asynchronously-arriving timestamped streams:
// image buffers pulled from a BufferSource by a dedicated drain goroutine,
// and metadata records pushed in via Record. Matched pairs accumulate in a
// bounded ring until SelectAndDispatch hands the oldest complete pair to
// the reprocess sink and capture pipeline.
//
// All methods are safe for concurrent use. A single mutex guards both
// rings, the cursors, and the lifecycle state, so every match pass observes
// a consistent snapshot across them.
type Processor struct {
	cfg     config
	log     logrus.FieldLogger
	client  ClientResolver
	source  BufferSource
	streams StreamProvider

	// wake is the coalesced buffer-availability signal: capacity one, so
	// any number of notifications landing before the drain loop wakes
	// collapse into a single drain cycle.
	wake chan struct{}

	// mu guards everything below.
	mu      sync.Mutex
	state   State
	queue   *pairRing
	frames  *frameHistory
	pending uuid.UUID // handle handed to the sink; uuid.Nil when none outstanding
	stopped bool

	// lifetime counters reported by Stats
	admitted   uint64
	evicted    uint64
	discarded  uint64
	matched    uint64
	recorded   uint64
	dispatched uint64
	mismatched uint64

	// instruments
	mAdmitted   metrics.Counter
	mEvicted    metrics.Counter
	mDiscarded  metrics.Counter
	mMatched    metrics.Counter
	mRecorded   metrics.Counter
	mDispatched metrics.Counter
	mMismatched metrics.Counter
	mResident   metrics.UpDownCounter

	startMu sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ ReleaseListener = (*Processor)(nil)

// New creates a Processor. client resolves the owning session at call time,
// source produces image buffers, and streams supplies the configured
// reprocessing input stream.
func New(client ClientResolver, source BufferSource, streams StreamProvider, opts ...Option) (*Processor, error) {
	if client == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("", "client resolver is required"))
	}
	if source == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("", "buffer source is required"))
	}
	if streams == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("", "stream provider is required"))
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:     cfg,
		log:     cfg.Logger,
		client:  client,
		source:  source,
		streams: streams,
		wake:    make(chan struct{}, 1),
		state:   StateRunning,
		queue:   newPairRing(cfg.QueueDepth),
		frames:  newFrameHistory(cfg.FrameListDepth),
	}

	m := cfg.Metrics
	p.mAdmitted = m.Counter(metrics.BuffersAdmitted, metrics.WithUnit("buffers"))
	p.mEvicted = m.Counter(metrics.BuffersEvicted, metrics.WithUnit("buffers"))
	p.mDiscarded = m.Counter(metrics.BuffersDiscardedLocked, metrics.WithUnit("buffers"))
	p.mMatched = m.Counter(metrics.PairsMatched, metrics.WithUnit("pairs"))
	p.mRecorded = m.Counter(metrics.MetadataRecorded, metrics.WithUnit("records"))
	p.mDispatched = m.Counter(metrics.PairsDispatched, metrics.WithUnit("pairs"))
	p.mMismatched = m.Counter(metrics.ReleaseMismatches, metrics.WithUnit("releases"))
	p.mResident = m.UpDownCounter(metrics.BuffersResident, metrics.WithUnit("buffers"))

	return p, nil
}

// Start spawns the drain loop. Only the first call succeeds; subsequent
// calls return ErrInvalidState.
func (p *Processor) Start(ctx context.Context) error {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	if p.started {
		return fmt.Errorf("%w: already started", ErrInvalidState)
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	p.wg.Add(1)
	go p.drainLoop(ctx)

	return nil
}

// Stop terminates the drain loop, waits for it to exit, and releases every
// buffer handle still held by the pair ring back to the source. After Stop,
// Record is a no-op and SelectAndDispatch fails with ErrInvalidState.
//
// Idempotent: safe to call multiple times and safe before Start.
func (p *Processor) Stop() error {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	p.mu.Lock()
	alreadyStopped := p.stopped
	p.stopped = true
	p.mu.Unlock()
	if alreadyStopped {
		return nil
	}

	if p.started {
		p.cancel()
		p.wg.Wait()
	}

	// The loop has exited; no live reader can touch the rings now.
	p.mu.Lock()
	bufs := p.queue.drainAll()
	p.frames.clear()
	p.mu.Unlock()

	for _, buf := range bufs {
		p.mResident.Add(-1)
		p.source.ReleaseBuffer(buf)
	}

	return nil
}

// OnBufferAvailable signals the drain loop that a buffer may be waiting at
// the source. Fire-and-forget; callable from any goroutine.
func (p *Processor) OnBufferAvailable() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Record inserts a metadata record into the frame history, overwriting the
// record at the rotating write index, and immediately attempts to match it
// against buffered frames. Metadata arriving while a reprocess is in flight
// is dropped. A record without a sensor timestamp is stored but excluded
// from matching.
func (p *Processor) Record(md Metadata) {
	if md == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRunning || p.stopped {
		return
	}

	if _, ok := md.SensorTimestamp(); !ok {
		p.log.Warn("metadata record has no sensor timestamp, unusable for matching")
	}

	p.frames.record(md)
	p.recorded++
	p.mRecorded.Add(1)

	p.findMatchesLocked()
}

// OnBufferReleased resumes buffer admission after the downstream consumer
// frees the reprocessing buffer. A handle other than the one handed off is
// logged and counted; the transition back to RUNNING happens regardless.
func (p *Processor) OnBufferReleased(handle uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if handle != p.pending {
		p.mismatched++
		p.mMismatched.Add(1)
		p.log.WithFields(logrus.Fields{
			"expected": p.pending,
			"released": handle,
		}).Error("released buffer does not match dispatched buffer")
	}

	p.pending = uuid.Nil
	p.state = StateRunning
}

// SelectAndDispatch scans the pair ring from the oldest unconsumed entry
// forward for the first complete pair, pushes its buffer handle to the
// reprocess sink, submits a reprocess-type request carrying its metadata to
// the capture pipeline, and locks the processor until the buffer is
// released. When either submission fails the error is surfaced and no state
// is committed.
func (p *Processor) SelectAndDispatch(requestID int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrInvalidState
	}

	client := p.client()
	if client == nil {
		return ErrClientGone
	}

	idx := p.queue.oldestComplete()
	if idx < 0 {
		return ErrNothingToReprocess
	}
	slot := &p.queue.slots[idx]

	inStream := p.streams.ReprocessStreamID()
	req := &ReprocessRequest{
		ID:           requestID,
		Type:         RequestTypeReprocess,
		InputStream:  inStream,
		OutputStream: client.Pipeline().OutputStreamID(),
		Metadata:     slot.meta,
	}

	if err := client.Sink().Submit(inStream, slot.buffer.Handle, p); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkSubmission, err)
	}
	if err := client.Pipeline().Submit(req); err != nil {
		return fmt.Errorf("%w: %w", ErrCaptureSubmission, err)
	}

	p.pending = slot.buffer.Handle
	p.state = StateLocked
	p.dispatched++
	p.mDispatched.Add(1)

	p.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"timestamp":  slot.buffer.Timestamp,
		"stream":     inStream,
	}).Debug("dispatched pair for reprocessing")

	return nil
}

// ReprocessStreamID reports the configured reprocessing input stream.
func (p *Processor) ReprocessStreamID() StreamID {
	return p.streams.ReprocessStreamID()
}

// State returns the current lifecycle state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// drainLoop waits for the coalesced availability signal, then pulls buffers
// from the source one at a time until none remain. The bounded wait keeps
// the loop responsive to shutdown even when no signal arrives; a timeout
// just re-checks liveness. The loop exits permanently once the owning
// client is gone.
func (p *Processor) drainLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
		case <-time.After(p.cfg.WaitTimeout):
			continue
		}

		for {
			if p.client() == nil {
				p.log.Warn("owning client is gone, drain loop exiting")
				return
			}
			if err := p.drainOne(); err != nil {
				if !errors.Is(err, ErrNoBufferAvailable) {
					p.log.WithError(err).Error("error receiving buffer from source")
				}
				break
			}
		}
	}
}

// drainOne pulls a single buffer from the source and admits it. Any error
// from the source, including ErrNoBufferAvailable, terminates the current
// drain cycle.
func (p *Processor) drainOne() error {
	buf, err := p.source.AcquireBuffer()
	if err != nil {
		return err
	}
	p.admitBuffer(buf)
	return nil
}

// admitBuffer inserts buf into the pair ring, evicting the oldest entry
// when the ring is full, then runs a match pass. While locked or stopped
// the buffer is released back to the source instead, keeping the producer
// free of backpressure without accumulating mid-reprocess.
func (p *Processor) admitBuffer(buf *Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRunning || p.stopped {
		p.discarded++
		p.mDiscarded.Add(1)
		p.source.ReleaseBuffer(buf)
		p.log.WithField("timestamp", buf.Timestamp).Debug("locked, discarding new buffer")
		return
	}

	if p.queue.full() {
		if old := p.queue.evictOldest(); old != nil {
			p.evicted++
			p.mEvicted.Add(1)
			p.mResident.Add(-1)
			p.source.ReleaseBuffer(old)
		}
	}

	p.queue.push(buf)
	p.admitted++
	p.mAdmitted.Add(1)
	p.mResident.Add(1)

	p.findMatchesLocked()
}

// findMatchesLocked pairs every buffer-only slot with the first history
// record whose timestamp is equal or within the configured tolerance,
// moving the record out of the history so it can never match twice.
// Caller must hold mu.
func (p *Processor) findMatchesLocked() {
	tol := p.cfg.MatchTolerance.Nanoseconds()
	for i := range p.queue.slots {
		s := &p.queue.slots[i]
		if s.buffer == nil || s.meta != nil || s.buffer.Timestamp == 0 {
			continue
		}
		if md := p.frames.takeMatch(s.buffer.Timestamp, tol); md != nil {
			s.meta = md
			p.matched++
			p.mMatched.Add(1)
			p.log.WithField("timestamp", s.buffer.Timestamp).Debug("paired buffer with metadata")
		}
	}
}

package zsl

import (
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// testMeta is a minimal Metadata implementation for tests.
type testMeta struct {
	ts    int64
	valid bool
}

func (m *testMeta) SensorTimestamp() (int64, bool) { return m.ts, m.valid }

func meta(ts int64) *testMeta { return &testMeta{ts: ts, valid: true} }

// fakeSource is an in-memory BufferSource that records released buffers.
type fakeSource struct {
	mu       sync.Mutex
	queued   []*Buffer
	released []*Buffer
	errOnce  error
}

func (s *fakeSource) AcquireBuffer() (*Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errOnce != nil {
		err := s.errOnce
		s.errOnce = nil
		return nil, err
	}
	if len(s.queued) == 0 {
		return nil, ErrNoBufferAvailable
	}
	buf := s.queued[0]
	s.queued = s.queued[1:]
	return buf, nil
}

func (s *fakeSource) ReleaseBuffer(buf *Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, buf)
}

func (s *fakeSource) enqueue(bufs ...*Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, bufs...)
}

func (s *fakeSource) setErrOnce(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errOnce = err
}

func (s *fakeSource) releasedHandles() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	handles := make([]uuid.UUID, 0, len(s.released))
	for _, b := range s.released {
		handles = append(handles, b.Handle)
	}
	return handles
}

type sinkCall struct {
	stream StreamID
	handle uuid.UUID
}

// fakeSink records buffer handle submissions.
type fakeSink struct {
	mu    sync.Mutex
	calls []sinkCall
	fail  error
}

func (s *fakeSink) Submit(stream StreamID, handle uuid.UUID, _ ReleaseListener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.calls = append(s.calls, sinkCall{stream: stream, handle: handle})
	return nil
}

func (s *fakeSink) submissions() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkCall(nil), s.calls...)
}

// fakePipeline records submitted capture requests.
type fakePipeline struct {
	mu   sync.Mutex
	reqs []*ReprocessRequest
	fail error
	out  StreamID
}

func (p *fakePipeline) Submit(req *ReprocessRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.reqs = append(p.reqs, req)
	return nil
}

func (p *fakePipeline) OutputStreamID() StreamID { return p.out }

func (p *fakePipeline) requests() []*ReprocessRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*ReprocessRequest(nil), p.reqs...)
}

type fakeClient struct {
	sink *fakeSink
	pipe *fakePipeline
}

func (c *fakeClient) Sink() ReprocessSink       { return c.sink }
func (c *fakeClient) Pipeline() CapturePipeline { return c.pipe }

type fakeStreams struct{ id StreamID }

func (s fakeStreams) ReprocessStreamID() StreamID { return s.id }

// testHarness bundles a processor with its fake collaborators.
type testHarness struct {
	p      *Processor
	source *fakeSource
	sink   *fakeSink
	pipe   *fakePipeline
	gone   atomic.Bool
}

const (
	testReprocessStream StreamID = 2
	testOutputStream    StreamID = 3
)

func newHarness(t *testing.T, opts ...Option) *testHarness {
	t.Helper()

	h := &testHarness{
		source: &fakeSource{},
		sink:   &fakeSink{},
		pipe:   &fakePipeline{out: testOutputStream},
	}
	client := &fakeClient{sink: h.sink, pipe: h.pipe}
	resolve := func() Client {
		if h.gone.Load() {
			return nil
		}
		return client
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	p, err := New(resolve, h.source, fakeStreams{id: testReprocessStream},
		append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	h.p = p
	return h
}

// pairAt admits a buffer and records matching metadata, both at ts.
func (h *testHarness) pairAt(ts int64) *Buffer {
	buf := NewBuffer(ts, nil)
	h.p.admitBuffer(buf)
	h.p.Record(meta(ts))
	return buf
}

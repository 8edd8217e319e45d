package zsl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/magicxavi/zsl/metrics"
)

func TestNew_Defaults(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, uint(4), h.p.cfg.QueueDepth)
	require.Equal(t, uint(10), h.p.cfg.FrameListDepth)
	require.Equal(t, time.Millisecond, h.p.cfg.MatchTolerance)
	require.Equal(t, 50*time.Millisecond, h.p.cfg.WaitTimeout)
	require.Equal(t, StateRunning, h.p.State())
}

func TestNew_NilCollaboratorsRejected(t *testing.T) {
	source := &fakeSource{}
	streams := fakeStreams{id: 1}
	resolve := func() Client { return nil }

	_, err := New(nil, source, streams)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(resolve, nil, streams)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(resolve, source, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_NilOptionSkipped(t *testing.T) {
	resolve := func() Client { return nil }
	_, err := New(resolve, &fakeSource{}, fakeStreams{id: 1}, nil, WithQueueDepth(8))
	require.NoError(t, err)
}

func TestOptions_InvalidInputs(t *testing.T) {
	cases := []struct {
		name string
		opt  Option
	}{
		{"queue depth zero", WithQueueDepth(0)},
		{"queue depth one", WithQueueDepth(1)},
		{"frame list depth zero", WithFrameListDepth(0)},
		{"zero tolerance", WithMatchTolerance(0)},
		{"negative tolerance", WithMatchTolerance(-time.Millisecond)},
		{"zero wait timeout", WithWaitTimeout(0)},
		{"nil logger", WithLogger(nil)},
		{"nil metrics provider", WithMetrics(nil)},
	}

	resolve := func() Client { return nil }
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(resolve, &fakeSource{}, fakeStreams{id: 1}, tc.opt)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestOptions_Applied(t *testing.T) {
	resolve := func() Client { return nil }
	p, err := New(resolve, &fakeSource{}, fakeStreams{id: 1},
		WithQueueDepth(6),
		WithFrameListDepth(20),
		WithMatchTolerance(2*time.Millisecond),
		WithWaitTimeout(10*time.Millisecond),
		WithMetrics(metrics.NewBasicProvider()),
	)
	require.NoError(t, err)

	require.Equal(t, uint(6), p.cfg.QueueDepth)
	require.Equal(t, uint(20), p.cfg.FrameListDepth)
	require.Equal(t, 2*time.Millisecond, p.cfg.MatchTolerance)
	require.Equal(t, 10*time.Millisecond, p.cfg.WaitTimeout)

	// ring sizing follows the configured depths
	require.Equal(t, 7, len(p.queue.slots)) // one reserved slot
	require.Equal(t, 20, len(p.frames.records))
}

func TestWithMatchTolerance_WidensPairing(t *testing.T) {
	h := newHarness(t, WithMatchTolerance(5*time.Millisecond))

	h.p.admitBuffer(NewBuffer(10_000_000, nil))
	h.p.Record(meta(14_000_000)) // 4ms away, inside the widened tolerance

	require.Equal(t, 1, h.p.Stats().CompletePairs)
}

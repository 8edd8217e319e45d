// Package zsl implements the correlation core of a zero-shutter-lag image
// pipeline stage: it pairs raw image buffers from a hardware producer with
// per-capture metadata records from a request pipeline, by capture
// timestamp, and hands the most recent unlocked pair to a downstream
// reprocessing path on demand.
//
// Construction
//   - New(client, source, streams, opts ...Option): builds a Processor
//     wired to its collaborators. All collaborators are required; options
//     tune depths, tolerance, logging, and metrics.
//
// Defaults
// Unless overridden, the following defaults apply to a new Processor:
//   - QueueDepth: 4 (pair-slot ring capacity)
//   - FrameListDepth: 10 (metadata history capacity)
//   - MatchTolerance: 1ms
//   - WaitTimeout: 50ms (drain loop wake re-check interval)
//   - Logger: logrus.StandardLogger()
//   - Metrics: metrics.NewNoopProvider()
//
// Lifecycle
// Start(ctx) spawns the single drain goroutine, which waits on the
// coalesced OnBufferAvailable signal and pulls buffers from the source
// until it reports none available. SelectAndDispatch locks the processor;
// buffers delivered while locked are drained from the source but released
// without being admitted. OnBufferReleased resumes admission. Stop joins
// the drain goroutine and releases every buffer the ring still holds back
// to the source.
//
// Ordering
// Buffers and metadata are matched best-effort by timestamp, not by
// arrival order: a buffer admitted before or after its metadata pairs
// identically. Eviction is strict FIFO, oldest slot first, bounding both
// memory and buffer-handle residency to the queue depth.
package zsl

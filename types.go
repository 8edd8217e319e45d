package zsl

import (
	"github.com/google/uuid"
)

// StreamID identifies a configured camera stream.
type StreamID int32

// NoStream marks an unconfigured stream.
const NoStream StreamID = -1

// Metadata is a per-capture metadata record produced by the request
// pipeline. Records are opaque to this package apart from the sensor
// timestamp.
type Metadata interface {
	// SensorTimestamp returns the capture timestamp in nanoseconds
	// (monotonic clock domain). ok is false when the record carries no
	// timestamp; such records are kept in the history but never match.
	SensorTimestamp() (ts int64, ok bool)
}

// Buffer is a handle to a hardware image buffer plus its capture timestamp.
// A zero Timestamp marks "no buffer present". The Handle identifies the
// buffer across hand-off and release notifications.
type Buffer struct {
	Handle    uuid.UUID
	Timestamp int64
	Payload   any
}

// NewBuffer allocates a fresh handle for a captured buffer.
func NewBuffer(timestamp int64, payload any) *Buffer {
	return &Buffer{Handle: uuid.New(), Timestamp: timestamp, Payload: payload}
}

// BufferSource is the external producer of image buffers. Ownership of an
// acquired buffer transfers to the caller until it is released back.
type BufferSource interface {
	// AcquireBuffer returns the next buffer, or an error wrapping
	// ErrNoBufferAvailable when the source is drained.
	AcquireBuffer() (*Buffer, error)

	// ReleaseBuffer returns ownership of a buffer to the source.
	ReleaseBuffer(*Buffer)
}

// ReleaseListener is notified when an externally held reprocessing buffer
// becomes free again. The Processor implements it.
type ReleaseListener interface {
	OnBufferReleased(handle uuid.UUID)
}

// ReprocessSink accepts buffer handles as input for reprocessing. The
// listener is invoked once the sink no longer holds the buffer.
type ReprocessSink interface {
	Submit(stream StreamID, handle uuid.UUID, listener ReleaseListener) error
}

// RequestType discriminates capture request kinds.
type RequestType uint8

const (
	RequestTypeCapture RequestType = iota
	RequestTypeReprocess
)

// ReprocessRequest is handed to the capture pipeline when a pair is
// dispatched. InputStream names the reprocessing input stream the buffer
// was pushed to; OutputStream names the client's designated output.
type ReprocessRequest struct {
	ID           int32
	Type         RequestType
	InputStream  StreamID
	OutputStream StreamID
	Metadata     Metadata
}

// CapturePipeline submits capture requests downstream.
type CapturePipeline interface {
	Submit(req *ReprocessRequest) error
	OutputStreamID() StreamID
}

// Client bundles the collaborators owned by the client session.
type Client interface {
	Sink() ReprocessSink
	Pipeline() CapturePipeline
}

// ClientResolver resolves the owning client at call time. It returns nil
// once the session is gone; the processor never assumes its collaborators
// outlive it.
type ClientResolver func() Client

// StreamProvider supplies the configured reprocessing input stream. Stream
// configuration is owned and lifecycle-managed outside this package.
type StreamProvider interface {
	ReprocessStreamID() StreamID
}

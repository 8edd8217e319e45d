package zsl

import "errors"

const Namespace = "zsl"

var (
	// ErrNoBufferAvailable is returned by a BufferSource when it has no
	// buffer to hand out. It terminates a drain cycle and is not an error
	// condition.
	ErrNoBufferAvailable = errors.New(Namespace + ": no buffer available")

	// ErrNothingToReprocess is returned by SelectAndDispatch when the pair
	// ring holds no complete pair.
	ErrNothingToReprocess = errors.New(Namespace + ": no complete pair to reprocess")

	// ErrSinkSubmission wraps a failure to push the selected buffer handle
	// to the reprocess sink.
	ErrSinkSubmission = errors.New(Namespace + ": reprocess sink submission failed")

	// ErrCaptureSubmission wraps a failure to submit the reprocess request
	// to the capture pipeline.
	ErrCaptureSubmission = errors.New(Namespace + ": capture pipeline submission failed")

	// ErrClientGone is returned when the owning client session can no
	// longer be resolved.
	ErrClientGone = errors.New(Namespace + ": owning client is gone")

	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")
	ErrInvalidState  = errors.New(Namespace + ": invalid processor state")
)
